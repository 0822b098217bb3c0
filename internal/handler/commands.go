package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"crew-shift-reconciler/internal/models"
	"crew-shift-reconciler/internal/service"
	"crew-shift-reconciler/pkg/worktime"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const maxListedErrors = 10

func (h *Handler) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	command := message.Command()
	args := strings.Fields(message.CommandArguments())
	chatID := message.Chat.ID

	switch command {
	case "start", "help":
		h.sendHelpMessage(chatID)
		return
	}

	if !h.isAdmin(chatID) {
		h.reply(chatID, "❌ Доступ запрещен. Эта команда только для администраторов.")
		return
	}

	switch command {
	case "reconcile":
		h.reconcileUnit(ctx, chatID, args)
	case "backfill":
		h.backfill(ctx, chatID, args)
	case "window":
		h.runWindow(ctx, chatID, args)
	case "runs":
		h.showRuns(ctx, chatID, args)
	case "exceptions":
		h.showExceptionCounts(ctx, chatID, args)
	default:
		h.reply(chatID, "❌ Неизвестная команда. Используйте /help для списка команд.")
	}
}

func (h *Handler) sendHelpMessage(chatID int64) {
	text := `🛠 Сверка смен бригад

/reconcile ДАТА БРИГАДА - сверить одну бригаду за день
/backfill С ПО [БРИГАДА...] - принудительная пересверка диапазона
/window [ДНЕЙ] - сверить окно за последние дни
/runs [N] - последние запуски
/exceptions С [ПО] - количество записей по видам

Даты в формате ГГГГ-ММ-ДД.`
	h.reply(chatID, text)
}

// reconcileUnit - /reconcile 2024-03-01 10
func (h *Handler) reconcileUnit(ctx context.Context, chatID int64, args []string) {
	if len(args) != 2 {
		h.reply(chatID, "❌ Формат: /reconcile ГГГГ-ММ-ДД БРИГАДА")
		return
	}
	date, err := worktime.ParseDate(args[0])
	if err != nil {
		h.reply(chatID, "❌ Неверная дата: "+args[0])
		return
	}
	crewID, err := parseCrewID(args[1])
	if err != nil {
		h.reply(chatID, "❌ Неверный номер бригады: "+args[1])
		return
	}

	result, err := h.scheduler.RunUnit(ctx, date, crewID, h.now())
	if err != nil {
		h.reply(chatID, "❌ Ошибка сверки: "+err.Error())
		return
	}
	if result.UnitsPending > 0 {
		h.reply(chatID, fmt.Sprintf("⏳ Бригада %d за %s еще не готова к сверке: окно ожидания не истекло.",
			crewID, worktime.FormatDate(date)))
		return
	}
	h.reply(chatID, formatRunResult(result))
}

// backfill - /backfill 2024-03-01 2024-03-07 10 20
func (h *Handler) backfill(ctx context.Context, chatID int64, args []string) {
	if len(args) < 2 {
		h.reply(chatID, "❌ Формат: /backfill ГГГГ-ММ-ДД ГГГГ-ММ-ДД [БРИГАДА...]")
		return
	}
	from, err := worktime.ParseDate(args[0])
	if err != nil {
		h.reply(chatID, "❌ Неверная дата: "+args[0])
		return
	}
	to, err := worktime.ParseDate(args[1])
	if err != nil {
		h.reply(chatID, "❌ Неверная дата: "+args[1])
		return
	}

	req := service.BackfillRequest{From: from, To: to}
	for _, arg := range args[2:] {
		for _, part := range strings.Split(arg, ",") {
			if part == "" {
				continue
			}
			crewID, err := parseCrewID(part)
			if err != nil {
				h.reply(chatID, "❌ Неверный номер бригады: "+part)
				return
			}
			req.CrewIDs = append(req.CrewIDs, crewID)
		}
	}

	result, err := h.scheduler.Backfill(ctx, req)
	if err != nil {
		h.reply(chatID, "❌ Ошибка пересверки: "+err.Error())
		return
	}
	h.reply(chatID, formatRunResult(result))
}

// runWindow - /window [дней]
func (h *Handler) runWindow(ctx context.Context, chatID int64, args []string) {
	days := h.lookbackDays
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			h.reply(chatID, "❌ Количество дней должно быть положительным числом")
			return
		}
		days = n
	}

	result, err := h.scheduler.RunWindow(ctx, days, h.now())
	if err != nil {
		h.reply(chatID, "❌ Ошибка сверки окна: "+err.Error())
		return
	}
	h.reply(chatID, formatRunResult(result))
}

func (h *Handler) showRuns(ctx context.Context, chatID int64, args []string) {
	limit := 5
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			limit = n
		}
	}

	runs, err := h.runs.Recent(ctx, limit)
	if err != nil {
		h.reply(chatID, "❌ Ошибка получения запусков: "+err.Error())
		return
	}
	if len(runs) == 0 {
		h.reply(chatID, "📭 Запусков сверки еще не было.")
		return
	}

	var b strings.Builder
	b.WriteString("📋 Последние запуски:\n")
	for _, run := range runs {
		fmt.Fprintf(&b, "\n%s %s (%s)\n", runIcon(run), run.StartedAt.Format("2006-01-02 15:04"), run.Trigger)
		fmt.Fprintf(&b, "   %s - %s, единиц: %d, успешно: %d, ожидают: %d, записей: %d, %s\n",
			worktime.FormatDate(run.WindowFrom), worktime.FormatDate(run.WindowTo),
			run.UnitsProcessed, run.UnitsSucceeded, run.UnitsPending, run.RecordsCreated,
			run.Duration().Round(time.Millisecond))
	}
	h.reply(chatID, b.String())
}

// showExceptionCounts - /exceptions 2024-03-01 [2024-03-31]
func (h *Handler) showExceptionCounts(ctx context.Context, chatID int64, args []string) {
	if len(args) == 0 || len(args) > 2 {
		h.reply(chatID, "❌ Формат: /exceptions ГГГГ-ММ-ДД [ГГГГ-ММ-ДД]")
		return
	}
	from, err := worktime.ParseDate(args[0])
	if err != nil {
		h.reply(chatID, "❌ Неверная дата: "+args[0])
		return
	}
	to := from
	if len(args) == 2 {
		if to, err = worktime.ParseDate(args[1]); err != nil {
			h.reply(chatID, "❌ Неверная дата: "+args[1])
			return
		}
	}

	counts, err := h.exceptions.CountByKind(ctx, from, to)
	if err != nil {
		h.reply(chatID, "❌ Ошибка подсчета записей: "+err.Error())
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 Записи за %s - %s:\n", worktime.FormatDate(from), worktime.FormatDate(to))
	fmt.Fprintf(&b, "Прогулы: %d\n", counts["absence"])
	fmt.Fprintf(&b, "Работа в чужой бригаде: %d\n", counts["crew-divergence"])
	for _, kind := range models.OvertimeKinds {
		fmt.Fprintf(&b, "Переработка %s: %d\n", kind, counts["overtime:"+string(kind)])
	}
	fmt.Fprintf(&b, "Бригады без смен: %d", counts["unjustified-crew-case"])
	h.reply(chatID, b.String())
}

func formatRunResult(result service.RunResult) string {
	var b strings.Builder
	icon := "✅"
	if len(result.Errors) > 0 {
		icon = "⚠️"
	}
	fmt.Fprintf(&b, "%s Сверка завершена (%s)\n", icon, result.Trigger)
	fmt.Fprintf(&b, "🆔 %s\n", result.RunID)
	fmt.Fprintf(&b, "📅 %s - %s\n", worktime.FormatDate(result.From), worktime.FormatDate(result.To))
	fmt.Fprintf(&b, "Обработано единиц: %d\n", result.UnitsProcessed)
	fmt.Fprintf(&b, "Успешно: %d\n", result.UnitsSucceeded)
	fmt.Fprintf(&b, "Ожидают готовности: %d\n", result.UnitsPending)
	fmt.Fprintf(&b, "Создано записей: %d", result.RecordsCreated)

	if len(result.Errors) > 0 {
		fmt.Fprintf(&b, "\n\nОшибки (%d):", len(result.Errors))
		for i, e := range result.Errors {
			if i == maxListedErrors {
				fmt.Fprintf(&b, "\n … и еще %d", len(result.Errors)-maxListedErrors)
				break
			}
			fmt.Fprintf(&b, "\n • %s [%s]: %s", e.Unit, e.Status, e.Message)
		}
	}
	return b.String()
}

func runIcon(run models.ReconciliationRun) string {
	if string(run.Errors) != "" && string(run.Errors) != "[]" && string(run.Errors) != "null" {
		return "⚠️"
	}
	return "✅"
}

func parseCrewID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid crew id %q", s)
	}
	return uint(id), nil
}
