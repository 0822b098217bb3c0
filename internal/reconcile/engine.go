package reconcile

import (
	"time"

	"crew-shift-reconciler/internal/models"
	"crew-shift-reconciler/pkg/worktime"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DefaultTolerance - окно ожидания после планового начала смены
const DefaultTolerance = 30 * time.Minute

// Resolution - чем закончилась обработка одного слота
type Resolution string

const (
	ResolutionMatched            Resolution = "matched"
	ResolutionLateCompensated    Resolution = "late-compensated"
	ResolutionLateUncompensated  Resolution = "late-uncompensated"
	ResolutionDivergence         Resolution = "divergence"
	ResolutionAbsence            Resolution = "absence"
	ResolutionSuppressedByCrew   Resolution = "suppressed-justification"
	ResolutionSuppressedByStatus Resolution = "suppressed-status"
	ResolutionRest               Resolution = "rest"
	ResolutionRestWorked         Resolution = "rest-worked"
	ResolutionAttended           Resolution = "attended"
	ResolutionSkipped            Resolution = "skipped"
)

type SlotResolution struct {
	SlotID   uint
	WorkerID uint
	State    models.ExpectedState
	Result   Resolution
}

// Outcome - результат сверки одной единицы (бригада, день), еще не записанный
type Outcome struct {
	Date        time.Time
	CrewID      uint
	Records     []models.ExceptionRecord
	Resolutions []SlotResolution
	Errors      []error
}

type Config struct {
	Tolerance           time.Duration
	DefaultShiftMinutes int
	Location            *time.Location
}

// Engine - чистая логика сверки плана с фактом
type Engine struct {
	cfg    Config
	now    func() time.Time
	logger *logrus.Logger
}

func NewEngine(cfg Config, logger *logrus.Logger) *Engine {
	if cfg.Tolerance < 0 {
		cfg.Tolerance = DefaultTolerance
	}
	if cfg.DefaultShiftMinutes <= 0 {
		cfg.DefaultShiftMinutes = worktime.DefaultShiftMinutes
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{cfg: cfg, now: time.Now, logger: logger}
}

// WithClock подменяет источник текущего времени (для незакрытых отметок)
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Evaluate вычисляет записи-исключения для бригады crewID по срезу дня
func (e *Engine) Evaluate(snap *Snapshot, crewID uint) Outcome {
	out := Outcome{Date: snap.Date, CrewID: crewID}
	now := e.now()

	workSlots := 0
	for _, slot := range snap.SlotsForCrew(crewID) {
		if slot.ExpectedState == models.ExpectedWork {
			workSlots++
		}

		result, record, err := e.evaluateSlot(snap, slot, now)
		if err != nil {
			out.Errors = append(out.Errors, err)
			result = ResolutionSkipped
		}
		out.Resolutions = append(out.Resolutions, SlotResolution{
			SlotID:   slot.ID,
			WorkerID: slot.WorkerID,
			State:    slot.ExpectedState,
			Result:   result,
		})
		if record != nil {
			out.Records = append(out.Records, record)
		}
	}

	out.Records = append(out.Records, e.unscheduledExtras(snap, now)...)

	// Обоснование бригады гасит только индивидуальные прогулы, но не сам случай
	if workSlots > 0 && snap.ShiftCount(crewID) == 0 {
		out.Records = append(out.Records, &models.UnjustifiedCrewCase{
			Date:                 snap.Date,
			CrewID:               crewID,
			PlannedWorkSlotCount: workSlots,
		})
	}

	return out
}

func (e *Engine) evaluateSlot(snap *Snapshot, slot models.PlannedSlot, now time.Time) (Resolution, models.ExceptionRecord, error) {
	if !slot.ExpectedState.Valid() {
		return "", nil, &SlotError{SlotID: slot.ID, WorkerID: slot.WorkerID, Err: ErrInvalidExpectedState}
	}
	worker, ok := snap.Workers[slot.WorkerID]
	if !ok {
		return "", nil, &SlotError{SlotID: slot.ID, WorkerID: slot.WorkerID, Err: ErrUnknownWorker}
	}

	attendances := snap.AttendancesFor(slot.WorkerID)

	switch slot.ExpectedState {
	case models.ExpectedWork:
		if own, ok := firstInCrew(attendances, slot.CrewID); ok {
			result, record := e.lateness(snap, slot, own, now)
			return result, record, nil
		}
		if len(attendances) > 0 {
			// в своей бригаде отметок нет, значит все отметки в чужих
			return ResolutionDivergence, &models.CrewDivergence{
				Date:           snap.Date,
				WorkerID:       slot.WorkerID,
				ExpectedCrewID: slot.CrewID,
				ActualCrewID:   attendances[0].CrewID,
				Kind:           models.DivergenceKindCrew,
			}, nil
		}
		result, record := e.noShow(snap, slot, worker)
		return result, record, nil

	case models.ExpectedRest:
		if len(attendances) == 0 {
			return ResolutionRest, nil, nil
		}
		first := attendances[0]
		worked := worktime.HoursBetween(first.OpenedAt, first.ClosedAt, now)
		slotID := slot.ID
		return ResolutionRestWorked, &models.Overtime{
			Date:          snap.Date,
			WorkerID:      slot.WorkerID,
			AttendanceID:  first.ID,
			PlannedSlotID: &slotID,
			Kind:          models.OvertimeRestDayWorked,
			PlannedHours:  decimal.Zero,
			WorkedHours:   worked,
			DeltaHours:    worked,
		}, nil

	case models.ExpectedException, models.ExpectedAbsent:
		if len(attendances) > 0 {
			return ResolutionAttended, nil, nil
		}
		result, record := e.noShow(snap, slot, worker)
		return result, record, nil
	}

	return "", nil, &SlotError{SlotID: slot.ID, WorkerID: slot.WorkerID, Err: ErrInvalidExpectedState}
}

func (e *Engine) noShow(snap *Snapshot, slot models.PlannedSlot, worker models.Worker) (Resolution, models.ExceptionRecord) {
	if snap.SuppressedByJustification(slot.CrewID) {
		return ResolutionSuppressedByCrew, nil
	}
	if models.IsLeaveLike(worker.Status) || snap.OnLeave(worker.ID) {
		return ResolutionSuppressedByStatus, nil
	}
	return ResolutionAbsence, &models.Absence{
		Date:          snap.Date,
		CrewID:        slot.CrewID,
		WorkerID:      slot.WorkerID,
		Reason:        models.AbsenceReasonNoShow,
		PlannedSlotID: slot.ID,
	}
}

// lateness - работник вышел в свою бригаду; опоздание за пределами допуска
// фиксируется только если потерянное время отработано
func (e *Engine) lateness(snap *Snapshot, slot models.PlannedSlot, att Attendance, now time.Time) (Resolution, models.ExceptionRecord) {
	start, ok := slot.StartOffset()
	if !ok {
		return ResolutionMatched, nil
	}
	deadline := worktime.At(snap.Date, start, e.cfg.Location).Add(e.cfg.Tolerance)
	if !att.OpenedAt.After(deadline) {
		return ResolutionMatched, nil
	}

	planned := worktime.Hours(worktime.PlannedDuration(start, slot.EndOffset(), e.cfg.DefaultShiftMinutes))
	worked := worktime.HoursBetween(att.OpenedAt, att.ClosedAt, now)
	delta := worked.Sub(planned)

	if delta.IsNegative() {
		// TODO: согласовать с продуктом, нужна ли отдельная запись для неотработанного опоздания
		e.logger.WithFields(logrus.Fields{
			"date":          worktime.FormatDate(snap.Date),
			"crew_id":       slot.CrewID,
			"worker_id":     slot.WorkerID,
			"attendance_id": att.ID,
			"planned_hours": planned.String(),
			"worked_hours":  worked.String(),
		}).Warn("Late arrival not compensated, no overtime recorded")
		return ResolutionLateUncompensated, nil
	}

	slotID := slot.ID
	return ResolutionLateCompensated, &models.Overtime{
		Date:          snap.Date,
		WorkerID:      slot.WorkerID,
		AttendanceID:  att.ID,
		PlannedSlotID: &slotID,
		Kind:          models.OvertimeLatenessCompensated,
		PlannedHours:  planned,
		WorkedHours:   worked,
		DeltaHours:    delta,
	}
}

// unscheduledExtras - отметки работников без единого слота в этот день.
// Смотрит на план всех бригад, а не только сверяемой.
func (e *Engine) unscheduledExtras(snap *Snapshot, now time.Time) []models.ExceptionRecord {
	var records []models.ExceptionRecord
	for _, att := range snap.Attendances() {
		if snap.HasPlan(att.WorkerID) {
			continue
		}
		worked := worktime.HoursBetween(att.OpenedAt, att.ClosedAt, now)
		records = append(records, &models.Overtime{
			Date:         snap.Date,
			WorkerID:     att.WorkerID,
			AttendanceID: att.ID,
			Kind:         models.OvertimeUnscheduledExtra,
			PlannedHours: decimal.Zero,
			WorkedHours:  worked,
			DeltaHours:   worked,
		})
	}
	return records
}

func firstInCrew(attendances []Attendance, crewID uint) (Attendance, bool) {
	for _, a := range attendances {
		if a.CrewID == crewID {
			return a, true
		}
	}
	return Attendance{}, false
}
