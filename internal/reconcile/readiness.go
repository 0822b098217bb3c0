package reconcile

import (
	"fmt"
	"sort"
	"time"

	"crew-shift-reconciler/internal/models"
	"crew-shift-reconciler/pkg/worktime"
)

// Unit - единица сверки: бригада за календарный день
type Unit struct {
	Date   time.Time
	CrewID uint
}

func (u Unit) String() string {
	return fmt.Sprintf("%s/crew-%d", worktime.FormatDate(u.Date), u.CrewID)
}

// UnitPlan - единица вместе с ее плановыми слотами
type UnitPlan struct {
	Unit
	Slots []models.PlannedSlot
}

// GroupUnits группирует слоты по (день, бригада) в порядке даты, затем бригады
func GroupUnits(slots []models.PlannedSlot) []UnitPlan {
	index := make(map[Unit]int)
	var plans []UnitPlan
	for _, slot := range slots {
		u := Unit{Date: worktime.Day(slot.Date), CrewID: slot.CrewID}
		i, ok := index[u]
		if !ok {
			i = len(plans)
			index[u] = i
			plans = append(plans, UnitPlan{Unit: u})
		}
		plans[i].Slots = append(plans[i].Slots, slot)
	}
	sort.Slice(plans, func(i, j int) bool {
		if !plans[i].Date.Equal(plans[j].Date) {
			return plans[i].Date.Before(plans[j].Date)
		}
		return plans[i].CrewID < plans[j].CrewID
	})
	return plans
}

// ReadyAt - момент, когда единица становится доступной для сверки: у каждого
// рабочего слота истекло окно допуска после планового начала. Рабочий слот без
// времени начала, как и единица без рабочих слотов, ждет конца дня.
func ReadyAt(plan UnitPlan, tolerance time.Duration, loc *time.Location) time.Time {
	var ready time.Time
	hasWork := false
	for i := range plan.Slots {
		slot := &plan.Slots[i]
		if slot.ExpectedState != models.ExpectedWork {
			continue
		}
		hasWork = true

		var at time.Time
		if start, ok := slot.StartOffset(); ok {
			at = worktime.At(plan.Date, start, loc).Add(tolerance)
		} else {
			at = worktime.EndOfDay(plan.Date, loc)
		}
		if at.After(ready) {
			ready = at
		}
	}
	if !hasWork {
		return worktime.EndOfDay(plan.Date, loc)
	}
	return ready
}

// IsReady - прошло ли окно допуска для всей единицы к моменту asOf
func IsReady(plan UnitPlan, asOf time.Time, tolerance time.Duration, loc *time.Location) bool {
	return !asOf.Before(ReadyAt(plan, tolerance, loc))
}
