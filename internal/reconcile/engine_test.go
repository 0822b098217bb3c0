package reconcile

import (
	"testing"
	"time"
	_ "time/tzdata"

	"crew-shift-reconciler/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

var day = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func clock(h, m int) time.Time {
	return time.Date(2024, 3, 1, h, m, 0, 0, time.UTC)
}

func tod(h, m int) *datatypes.Time {
	t := datatypes.NewTime(h, m, 0, 0)
	return &t
}

func workSlot(id, crewID, workerID uint) models.PlannedSlot {
	return models.PlannedSlot{
		ID:            id,
		ScheduleID:    1,
		CrewID:        crewID,
		WorkerID:      workerID,
		Date:          day,
		ExpectedState: models.ExpectedWork,
		ExpectedStart: tod(8, 0),
		ExpectedEnd:   tod(16, 0),
	}
}

func slotWithState(id, crewID, workerID uint, state models.ExpectedState) models.PlannedSlot {
	return models.PlannedSlot{ID: id, ScheduleID: 1, CrewID: crewID, WorkerID: workerID, Date: day, ExpectedState: state}
}

func shift(id, crewID uint, attendances ...models.ObservedAttendance) models.ObservedShift {
	return models.ObservedShift{ID: id, CrewID: crewID, Date: day, OpenedAt: clock(7, 50), Attendances: attendances}
}

func attendance(id, workerID uint, opened time.Time, closed *time.Time) models.ObservedAttendance {
	return models.ObservedAttendance{ID: id, WorkerID: workerID, OpenedAt: opened, ClosedAt: closed}
}

func at(t time.Time) *time.Time { return &t }

func workers(ids ...uint) []models.Worker {
	out := make([]models.Worker, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.Worker{ID: id, Name: "worker", Status: models.WorkerStatusActive})
	}
	return out
}

func newTestEngine(t *testing.T) (*Engine, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	engine := NewEngine(Config{Tolerance: DefaultTolerance}, logger).
		WithClock(func() time.Time { return clock(20, 0) })
	return engine, hook
}

func countKind(records []models.ExceptionRecord, kind string) int {
	n := 0
	for _, r := range records {
		if r.RecordKind() == kind {
			n++
		}
	}
	return n
}

func TestEvaluate_NoShowProducesAbsence(t *testing.T) {
	engine, _ := newTestEngine(t)
	snap := NewSnapshot(day, []models.PlannedSlot{workSlot(1, 10, 55)}, nil).
		WithWorkers(workers(55))

	out := engine.Evaluate(snap, 10)

	require.Empty(t, out.Errors)
	require.Equal(t, 1, countKind(out.Records, "absence"))
	absence := out.Records[0].(*models.Absence)
	assert.Equal(t, day, absence.Date)
	assert.Equal(t, uint(10), absence.CrewID)
	assert.Equal(t, uint(55), absence.WorkerID)
	assert.Equal(t, models.AbsenceReasonNoShow, absence.Reason)
	assert.Equal(t, uint(1), absence.PlannedSlotID)
	// crew 10 opened no shift at all
	assert.Equal(t, 1, countKind(out.Records, "unjustified-crew-case"))
	assert.Len(t, out.Records, 2)
}

func TestEvaluate_ToleranceBoundary(t *testing.T) {
	tests := []struct {
		name     string
		opened   time.Time
		closed   time.Time
		wantLate int
		want     Resolution
	}{
		{name: "inside tolerance", opened: clock(8, 29), closed: clock(16, 0), wantLate: 0, want: ResolutionMatched},
		{name: "exactly at tolerance", opened: clock(8, 30), closed: clock(16, 0), wantLate: 0, want: ResolutionMatched},
		{name: "late and compensated", opened: clock(8, 31), closed: clock(16, 31), wantLate: 1, want: ResolutionLateCompensated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, _ := newTestEngine(t)
			snap := NewSnapshot(day,
				[]models.PlannedSlot{workSlot(1, 10, 55)},
				[]models.ObservedShift{shift(1, 10, attendance(100, 55, tt.opened, at(tt.closed)))},
			).WithWorkers(workers(55))

			out := engine.Evaluate(snap, 10)

			require.Empty(t, out.Errors)
			assert.Equal(t, tt.wantLate, countKind(out.Records, "overtime:lateness-compensated"))
			assert.Len(t, out.Records, tt.wantLate)
			require.Len(t, out.Resolutions, 1)
			assert.Equal(t, tt.want, out.Resolutions[0].Result)
		})
	}
}

func TestEvaluate_LatenessCompensatedHours(t *testing.T) {
	engine, _ := newTestEngine(t)
	snap := NewSnapshot(day,
		[]models.PlannedSlot{workSlot(1, 10, 55)},
		[]models.ObservedShift{shift(1, 10, attendance(100, 55, clock(9, 0), at(clock(17, 30))))},
	).WithWorkers(workers(55))

	out := engine.Evaluate(snap, 10)

	require.Len(t, out.Records, 1)
	ot := out.Records[0].(*models.Overtime)
	assert.Equal(t, models.OvertimeLatenessCompensated, ot.Kind)
	assert.Equal(t, uint(100), ot.AttendanceID)
	require.NotNil(t, ot.PlannedSlotID)
	assert.Equal(t, uint(1), *ot.PlannedSlotID)
	assert.True(t, ot.PlannedHours.Equal(decimal.NewFromInt(8)))
	assert.True(t, ot.WorkedHours.Equal(decimal.RequireFromString("8.5")))
	assert.True(t, ot.DeltaHours.Equal(decimal.RequireFromString("0.5")))
}

func TestEvaluate_PlannedTimesAreWallClockOnDaylightSavingDay(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	dstDay := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	local := func(h, m int) time.Time { return time.Date(2024, 3, 10, h, m, 0, 0, loc) }

	logger, _ := test.NewNullLogger()
	engine := NewEngine(Config{Tolerance: DefaultTolerance, Location: loc}, logger).
		WithClock(func() time.Time { return local(20, 0) })

	slot := workSlot(1, 10, 55)
	slot.Date = dstDay
	observed := shift(1, 10, attendance(100, 55, local(8, 45), at(local(17, 30))))
	observed.Date = dstDay
	snap := NewSnapshot(dstDay, []models.PlannedSlot{slot}, []models.ObservedShift{observed}).
		WithWorkers(workers(55))

	out := engine.Evaluate(snap, 10)

	require.Empty(t, out.Errors)
	require.Len(t, out.Resolutions, 1)
	assert.Equal(t, ResolutionLateCompensated, out.Resolutions[0].Result)
	require.Len(t, out.Records, 1)
	ot := out.Records[0].(*models.Overtime)
	assert.Equal(t, models.OvertimeLatenessCompensated, ot.Kind)
	assert.True(t, ot.DeltaHours.Equal(decimal.RequireFromString("0.75")))

	plan := UnitPlan{Unit: Unit{Date: dstDay, CrewID: 10}, Slots: []models.PlannedSlot{slot}}
	assert.True(t, ReadyAt(plan, DefaultTolerance, loc).Equal(local(8, 30)))
}

func TestEvaluate_LatenessNotCompensatedLogsWarning(t *testing.T) {
	engine, hook := newTestEngine(t)
	snap := NewSnapshot(day,
		[]models.PlannedSlot{workSlot(1, 10, 55)},
		[]models.ObservedShift{shift(1, 10, attendance(100, 55, clock(9, 0), at(clock(16, 0))))},
	).WithWorkers(workers(55))

	out := engine.Evaluate(snap, 10)

	assert.Empty(t, out.Records)
	require.Len(t, out.Resolutions, 1)
	assert.Equal(t, ResolutionLateUncompensated, out.Resolutions[0].Result)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, uint(55), hook.LastEntry().Data["worker_id"])
}

func TestEvaluate_OpenAttendanceCountsUntilNow(t *testing.T) {
	engine, _ := newTestEngine(t) // clock is 20:00
	snap := NewSnapshot(day,
		[]models.PlannedSlot{workSlot(1, 10, 55)},
		[]models.ObservedShift{shift(1, 10, attendance(100, 55, clock(10, 0), nil))},
	).WithWorkers(workers(55))

	out := engine.Evaluate(snap, 10)

	require.Len(t, out.Records, 1)
	ot := out.Records[0].(*models.Overtime)
	assert.True(t, ot.WorkedHours.Equal(decimal.NewFromInt(10)))
	assert.True(t, ot.DeltaHours.Equal(decimal.NewFromInt(2)))
}

func TestEvaluate_CrewDivergenceAndGlobalPlan(t *testing.T) {
	engine, _ := newTestEngine(t)
	slots := []models.PlannedSlot{workSlot(1, 1, 7)}
	shifts := []models.ObservedShift{shift(1, 2, attendance(100, 7, clock(8, 0), at(clock(16, 0))))}

	// crew A: worker showed up in crew B
	snapA := NewSnapshot(day, slots, shifts).WithWorkers(workers(7))
	outA := engine.Evaluate(snapA, 1)

	require.Empty(t, outA.Errors)
	require.Equal(t, 1, countKind(outA.Records, "crew-divergence"))
	div := outA.Records[0].(*models.CrewDivergence)
	assert.Equal(t, uint(1), div.ExpectedCrewID)
	assert.Equal(t, uint(2), div.ActualCrewID)
	assert.Equal(t, models.DivergenceKindCrew, div.Kind)
	assert.Zero(t, countKind(outA.Records, "absence"))
	assert.Zero(t, countKind(outA.Records, "overtime:unscheduled-extra"))

	// crew B: no slot for the worker, but the worker has a plan elsewhere
	snapB := NewSnapshot(day, slots, shifts).WithWorkers(workers(7))
	outB := engine.Evaluate(snapB, 2)

	assert.Empty(t, outB.Records)
	assert.Empty(t, outB.Errors)
}

func TestEvaluate_RestDay(t *testing.T) {
	engine, _ := newTestEngine(t)
	rest := slotWithState(1, 10, 55, models.ExpectedRest)

	t.Run("no attendance", func(t *testing.T) {
		snap := NewSnapshot(day, []models.PlannedSlot{rest}, nil).WithWorkers(workers(55))
		out := engine.Evaluate(snap, 10)
		assert.Empty(t, out.Records)
		assert.Equal(t, ResolutionRest, out.Resolutions[0].Result)
	})

	t.Run("worked on rest day", func(t *testing.T) {
		snap := NewSnapshot(day, []models.PlannedSlot{rest}, []models.ObservedShift{
			shift(1, 4, attendance(100, 55, clock(9, 0), at(clock(13, 30)))),
			shift(2, 10, attendance(101, 55, clock(14, 0), at(clock(15, 0)))),
		}).WithWorkers(workers(55))

		out := engine.Evaluate(snap, 10)

		require.Len(t, out.Records, 1)
		ot := out.Records[0].(*models.Overtime)
		assert.Equal(t, models.OvertimeRestDayWorked, ot.Kind)
		assert.Equal(t, uint(100), ot.AttendanceID, "earliest attendance wins")
		assert.True(t, ot.PlannedHours.IsZero())
		assert.True(t, ot.WorkedHours.Equal(decimal.RequireFromString("4.5")))
		assert.True(t, ot.DeltaHours.Equal(ot.WorkedHours))
	})
}

func TestEvaluate_UnscheduledExtraIsGlobal(t *testing.T) {
	engine, _ := newTestEngine(t)
	slots := []models.PlannedSlot{workSlot(1, 1, 7), workSlot(2, 3, 8)}
	shifts := []models.ObservedShift{
		shift(1, 1,
			attendance(100, 7, clock(8, 0), at(clock(16, 0))),
			attendance(101, 99, clock(8, 0), at(clock(12, 0))),
		),
		shift(2, 3, attendance(102, 8, clock(8, 0), at(clock(16, 0)))),
	}

	for _, crewID := range []uint{1, 3} {
		snap := NewSnapshot(day, slots, shifts).WithWorkers(workers(7, 8))
		out := engine.Evaluate(snap, crewID)

		require.Len(t, out.Records, 1, "crew %d", crewID)
		ot := out.Records[0].(*models.Overtime)
		assert.Equal(t, models.OvertimeUnscheduledExtra, ot.Kind)
		assert.Equal(t, uint(99), ot.WorkerID)
		assert.Equal(t, uint(101), ot.AttendanceID)
		assert.Nil(t, ot.PlannedSlotID)
		assert.True(t, ot.WorkedHours.Equal(decimal.NewFromInt(4)))
	}
}

func TestEvaluate_JustificationSuppressesAbsencesButNotCrewCase(t *testing.T) {
	engine, _ := newTestEngine(t)
	slots := []models.PlannedSlot{workSlot(1, 10, 55), workSlot(2, 10, 56)}

	snap := NewSnapshot(day, slots, nil).
		WithWorkers(workers(55, 56)).
		WithJustifications([]models.TeamJustification{
			{CrewID: 10, Date: day, Status: models.JustificationApproved, SuppressesAbsence: true},
		})

	out := engine.Evaluate(snap, 10)

	assert.Zero(t, countKind(out.Records, "absence"))
	require.Equal(t, 1, countKind(out.Records, "unjustified-crew-case"))
	crewCase := out.Records[0].(*models.UnjustifiedCrewCase)
	assert.Equal(t, 2, crewCase.PlannedWorkSlotCount)
	for _, r := range out.Resolutions {
		assert.Equal(t, ResolutionSuppressedByCrew, r.Result)
	}
}

func TestEvaluate_NonSuppressingJustifications(t *testing.T) {
	engine, _ := newTestEngine(t)
	for _, j := range []models.TeamJustification{
		{CrewID: 10, Date: day, Status: models.JustificationPending, SuppressesAbsence: true},
		{CrewID: 10, Date: day, Status: models.JustificationApproved, SuppressesAbsence: false},
		{CrewID: 11, Date: day, Status: models.JustificationApproved, SuppressesAbsence: true},
	} {
		snap := NewSnapshot(day, []models.PlannedSlot{workSlot(1, 10, 55)}, nil).
			WithWorkers(workers(55)).
			WithJustifications([]models.TeamJustification{j})

		out := engine.Evaluate(snap, 10)

		assert.Equal(t, 1, countKind(out.Records, "absence"), "justification %+v", j)
	}
}

func TestEvaluate_LeaveSuppressesAbsence(t *testing.T) {
	engine, _ := newTestEngine(t)

	t.Run("leave-like status", func(t *testing.T) {
		snap := NewSnapshot(day, []models.PlannedSlot{workSlot(1, 10, 55)}, nil).
			WithWorkers([]models.Worker{{ID: 55, Status: models.WorkerStatusSickLeave}})
		out := engine.Evaluate(snap, 10)
		assert.Zero(t, countKind(out.Records, "absence"))
		assert.Equal(t, ResolutionSuppressedByStatus, out.Resolutions[0].Result)
	})

	t.Run("terminated is not leave", func(t *testing.T) {
		snap := NewSnapshot(day, []models.PlannedSlot{workSlot(1, 10, 55)}, nil).
			WithWorkers([]models.Worker{{ID: 55, Status: models.WorkerStatusTerminated}})
		out := engine.Evaluate(snap, 10)
		assert.Equal(t, 1, countKind(out.Records, "absence"))
	})

	t.Run("dated leave period", func(t *testing.T) {
		snap := NewSnapshot(day, []models.PlannedSlot{workSlot(1, 10, 55)}, nil).
			WithWorkers(workers(55)).
			WithLeaves([]models.LeavePeriod{{WorkerID: 55, StartDate: day.AddDate(0, 0, -2), EndDate: day, Type: models.WorkerStatusVacation}})
		out := engine.Evaluate(snap, 10)
		assert.Zero(t, countKind(out.Records, "absence"))
	})
}

func TestEvaluate_ExceptionAndAbsentStatesUseNoShowBranch(t *testing.T) {
	engine, _ := newTestEngine(t)
	for _, state := range []models.ExpectedState{models.ExpectedException, models.ExpectedAbsent} {
		slot := slotWithState(1, 10, 55, state)

		snap := NewSnapshot(day, []models.PlannedSlot{slot}, nil).WithWorkers(workers(55))
		out := engine.Evaluate(snap, 10)
		assert.Equal(t, 1, countKind(out.Records, "absence"), string(state))
		assert.Zero(t, countKind(out.Records, "unjustified-crew-case"), "no WORK slots")

		// showing up in another crew is not a divergence for these states
		snap = NewSnapshot(day, []models.PlannedSlot{slot}, []models.ObservedShift{
			shift(1, 2, attendance(100, 55, clock(8, 0), at(clock(16, 0)))),
		}).WithWorkers(workers(55))
		out = engine.Evaluate(snap, 10)
		assert.Empty(t, out.Records, string(state))
		assert.Equal(t, ResolutionAttended, out.Resolutions[0].Result)
	}
}

func TestEvaluate_DataIntegrityErrorsSkipOnlyTheSlot(t *testing.T) {
	engine, _ := newTestEngine(t)
	slots := []models.PlannedSlot{
		workSlot(1, 10, 55),
		workSlot(2, 10, 404),
		slotWithState(3, 10, 55, models.ExpectedState("HOLIDAY")),
	}
	snap := NewSnapshot(day, slots, nil).WithWorkers(workers(55))

	out := engine.Evaluate(snap, 10)

	require.Len(t, out.Errors, 2)
	assert.ErrorIs(t, out.Errors[0], ErrUnknownWorker)
	assert.ErrorIs(t, out.Errors[1], ErrInvalidExpectedState)
	var slotErr *SlotError
	require.ErrorAs(t, out.Errors[0], &slotErr)
	assert.Equal(t, uint(2), slotErr.SlotID)

	assert.Equal(t, 1, countKind(out.Records, "absence"))
	crewCase := out.Records[len(out.Records)-1].(*models.UnjustifiedCrewCase)
	assert.Equal(t, 2, crewCase.PlannedWorkSlotCount)
}

func TestEvaluate_ExactlyOneResolutionPerWorkSlot(t *testing.T) {
	engine, _ := newTestEngine(t)
	slots := []models.PlannedSlot{
		workSlot(1, 10, 1), // matched
		workSlot(2, 10, 2), // divergence
		workSlot(3, 10, 3), // absence
	}
	shifts := []models.ObservedShift{
		shift(1, 10, attendance(100, 1, clock(8, 0), at(clock(16, 0)))),
		shift(2, 20, attendance(101, 2, clock(8, 0), at(clock(16, 0)))),
	}
	snap := NewSnapshot(day, slots, shifts).WithWorkers(workers(1, 2, 3))

	out := engine.Evaluate(snap, 10)

	require.Empty(t, out.Errors)
	perWorker := map[uint]int{}
	for _, r := range out.Records {
		switch rec := r.(type) {
		case *models.Absence:
			perWorker[rec.WorkerID]++
		case *models.CrewDivergence:
			perWorker[rec.WorkerID]++
		}
	}
	assert.Equal(t, map[uint]int{2: 1, 3: 1}, perWorker)
	assert.Equal(t, ResolutionMatched, out.Resolutions[0].Result)
	assert.Equal(t, ResolutionDivergence, out.Resolutions[1].Result)
	assert.Equal(t, ResolutionAbsence, out.Resolutions[2].Result)
	assert.Zero(t, countKind(out.Records, "unjustified-crew-case"))
}

func TestEvaluate_IsDeterministic(t *testing.T) {
	engine, _ := newTestEngine(t)
	slots := []models.PlannedSlot{workSlot(1, 10, 1), slotWithState(2, 10, 2, models.ExpectedRest)}
	shifts := []models.ObservedShift{
		shift(2, 10, attendance(101, 2, clock(9, 0), at(clock(12, 0))), attendance(102, 77, clock(9, 0), nil)),
	}

	first := engine.Evaluate(NewSnapshot(day, slots, shifts).WithWorkers(workers(1, 2)), 10)
	second := engine.Evaluate(NewSnapshot(day, slots, shifts).WithWorkers(workers(1, 2)), 10)

	require.Equal(t, len(first.Records), len(second.Records))
	for i := range first.Records {
		assert.Equal(t, first.Records[i].NaturalKey(), second.Records[i].NaturalKey())
	}
}
