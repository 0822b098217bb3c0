package reconcile

import (
	"errors"
	"fmt"

	"crew-shift-reconciler/internal/models"
)

var (
	// ErrUnknownWorker - слот ссылается на несуществующего работника
	ErrUnknownWorker = errors.New("planned slot references unknown worker")

	// ErrInvalidExpectedState - у слота состояние вне закрытого набора
	ErrInvalidExpectedState = errors.New("planned slot has invalid expected state")

	// ErrInvalidWindow - глубина окна сверки не задана или отрицательна
	ErrInvalidWindow = errors.New("invalid reconciliation window")

	// ErrInvalidRange - конец диапазона раньше начала
	ErrInvalidRange = errors.New("invalid date range: end before start")
)

// SlotError - ошибка целостности данных для одного слота. Слот пропускается,
// остальные слоты единицы обрабатываются.
type SlotError struct {
	SlotID   uint
	WorkerID uint
	Err      error
}

func (e *SlotError) Error() string {
	return fmt.Sprintf("slot %d (worker %d): %v", e.SlotID, e.WorkerID, e.Err)
}

func (e *SlotError) Unwrap() error {
	return e.Err
}

// RecordError - не удалось записать запись-исключение
type RecordError struct {
	Record models.ExceptionRecord
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("write %s %s: %v", e.Record.RecordKind(), e.Record.NaturalKey(), e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// IsConfigError - ошибка конфигурации вызова, прерывает весь запуск
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidWindow) || errors.Is(err, ErrInvalidRange)
}
