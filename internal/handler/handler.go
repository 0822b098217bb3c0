package handler

import (
	"context"
	"time"

	"crew-shift-reconciler/internal/repository"
	"crew-shift-reconciler/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Sender - то, что умеет отправлять сообщения в Telegram
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Scheduler - операции сверки, доступные оператору
type Scheduler interface {
	RunWindow(ctx context.Context, daysBack int, asOf time.Time) (service.RunResult, error)
	RunUnit(ctx context.Context, date time.Time, crewID uint, asOf time.Time) (service.RunResult, error)
	Backfill(ctx context.Context, req service.BackfillRequest) (service.RunResult, error)
}

type Handler struct {
	sender       Sender
	scheduler    Scheduler
	runs         repository.RunRepository
	exceptions   repository.ExceptionRepository
	adminChatID  int64
	lookbackDays int
	now          func() time.Time
	logger       *logrus.Logger
}

func NewHandler(
	sender Sender,
	scheduler Scheduler,
	runs repository.RunRepository,
	exceptions repository.ExceptionRepository,
	adminChatID int64,
	lookbackDays int,
	logger *logrus.Logger,
) *Handler {
	return &Handler{
		sender:       sender,
		scheduler:    scheduler,
		runs:         runs,
		exceptions:   exceptions,
		adminChatID:  adminChatID,
		lookbackDays: lookbackDays,
		now:          time.Now,
		logger:       logger,
	}
}

// HandleUpdates обрабатывает обновления до закрытия канала или отмены ctx
func (h *Handler) HandleUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			h.handleMessage(ctx, update.Message)
		}
	}
}

func (h *Handler) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	userName := ""
	if message.From != nil {
		userName = message.From.UserName
	}
	h.logger.WithFields(logrus.Fields{
		"chat_id": message.Chat.ID,
		"user":    userName,
	}).Info(message.Text)

	if !message.IsCommand() {
		h.reply(message.Chat.ID, "Используйте /help для списка команд.")
		return
	}
	h.handleCommand(ctx, message)
}

func (h *Handler) isAdmin(chatID int64) bool {
	return h.adminChatID != 0 && chatID == h.adminChatID
}

func (h *Handler) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.sender.Send(msg); err != nil {
		h.logger.WithError(err).WithField("chat_id", chatID).Error("Failed to send message")
	}
}
