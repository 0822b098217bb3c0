package reconcile

import (
	"sort"
	"time"

	"crew-shift-reconciler/internal/models"
	"crew-shift-reconciler/pkg/worktime"
)

// Attendance - отметка работника вместе с бригадой, в чьей смене она сделана
type Attendance struct {
	ID       uint
	ShiftID  uint
	CrewID   uint
	WorkerID uint
	OpenedAt time.Time
	ClosedAt *time.Time
}

// Snapshot - срез одного дня только для чтения: плановые слоты всех бригад,
// все открытые смены и справочники. Строится заново для каждой единицы сверки.
type Snapshot struct {
	Date           time.Time
	Slots          []models.PlannedSlot
	Shifts         []models.ObservedShift
	Workers        map[uint]models.Worker
	Leaves         []models.LeavePeriod
	Justifications map[uint]models.TeamJustification

	attendances []Attendance
	byWorker    map[uint][]Attendance
	planned     map[uint]bool
	shiftCount  map[uint]int
}

// NewSnapshot индексирует слоты и смены дня
func NewSnapshot(date time.Time, slots []models.PlannedSlot, shifts []models.ObservedShift) *Snapshot {
	s := &Snapshot{
		Date:           worktime.Day(date),
		Slots:          slots,
		Shifts:         shifts,
		Workers:        make(map[uint]models.Worker),
		Justifications: make(map[uint]models.TeamJustification),
		byWorker:       make(map[uint][]Attendance),
		planned:        make(map[uint]bool),
		shiftCount:     make(map[uint]int),
	}

	for _, slot := range slots {
		s.planned[slot.WorkerID] = true
	}

	for _, shift := range shifts {
		s.shiftCount[shift.CrewID]++
		for _, a := range shift.Attendances {
			s.attendances = append(s.attendances, Attendance{
				ID:       a.ID,
				ShiftID:  shift.ID,
				CrewID:   shift.CrewID,
				WorkerID: a.WorkerID,
				OpenedAt: a.OpenedAt,
				ClosedAt: a.ClosedAt,
			})
		}
	}

	// Порядок отметок определяет, какая из них считается первой
	sort.SliceStable(s.attendances, func(i, j int) bool {
		if !s.attendances[i].OpenedAt.Equal(s.attendances[j].OpenedAt) {
			return s.attendances[i].OpenedAt.Before(s.attendances[j].OpenedAt)
		}
		return s.attendances[i].ID < s.attendances[j].ID
	})
	for _, a := range s.attendances {
		s.byWorker[a.WorkerID] = append(s.byWorker[a.WorkerID], a)
	}

	return s
}

// WithWorkers добавляет статусы работников
func (s *Snapshot) WithWorkers(workers []models.Worker) *Snapshot {
	for _, w := range workers {
		s.Workers[w.ID] = w
	}
	return s
}

// WithLeaves добавляет периоды отсутствия, действующие в этот день
func (s *Snapshot) WithLeaves(leaves []models.LeavePeriod) *Snapshot {
	s.Leaves = append(s.Leaves, leaves...)
	return s
}

// WithJustifications добавляет обоснования бригад
func (s *Snapshot) WithJustifications(justifications []models.TeamJustification) *Snapshot {
	for _, j := range justifications {
		// одобренное подавляющее обоснование важнее прочих за тот же день
		if cur, ok := s.Justifications[j.CrewID]; ok && cur.SuppressesAbsences() {
			continue
		}
		s.Justifications[j.CrewID] = j
	}
	return s
}

// SlotsForCrew - плановые слоты одной бригады
func (s *Snapshot) SlotsForCrew(crewID uint) []models.PlannedSlot {
	var out []models.PlannedSlot
	for _, slot := range s.Slots {
		if slot.CrewID == crewID {
			out = append(out, slot)
		}
	}
	return out
}

// AttendancesFor - отметки работника во всех бригадах, по времени открытия
func (s *Snapshot) AttendancesFor(workerID uint) []Attendance {
	return s.byWorker[workerID]
}

// Attendances - все отметки дня
func (s *Snapshot) Attendances() []Attendance {
	return s.attendances
}

// HasPlan - у работника есть слот в любой бригаде в этот день
func (s *Snapshot) HasPlan(workerID uint) bool {
	return s.planned[workerID]
}

// ShiftCount - число смен, открытых бригадой
func (s *Snapshot) ShiftCount(crewID uint) int {
	return s.shiftCount[crewID]
}

// OnLeave - работник в отпуске/больничном в этот день
func (s *Snapshot) OnLeave(workerID uint) bool {
	for i := range s.Leaves {
		if s.Leaves[i].WorkerID == workerID && s.Leaves[i].Covers(s.Date) {
			return true
		}
	}
	return false
}

// SuppressedByJustification - прогулы бригады отменены обоснованием
func (s *Snapshot) SuppressedByJustification(crewID uint) bool {
	j, ok := s.Justifications[crewID]
	return ok && j.SuppressesAbsences()
}
