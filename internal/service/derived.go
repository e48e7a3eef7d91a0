package service

import (
	"github.com/shopspring/decimal"

	"pr-tracker/internal/models"
)

var (
	partialDay = decimal.New(3, -1)
	oneDay     = decimal.NewFromInt(1)
)

// ComputePrDays counts the calendar days a PR line covers, both ends included.
// An inverted range yields 0.
func ComputePrDays(from, to models.Date) int {
	days := from.DaysUntil(to) + 1
	if days < 0 {
		return 0
	}
	return days
}

// ComputeDsaDays applies the allowance rule: the last travel day counts as 0.3.
//
//	diff <= 0 -> 0
//	diff == 1 -> 0.3
//	diff > 1  -> (diff - 1) + 0.3
func ComputeDsaDays(start, end models.Date) decimal.Decimal {
	diff := start.DaysUntil(end)
	switch {
	case diff <= 0:
		return decimal.Zero
	case diff == 1:
		return partialDay
	default:
		return decimal.NewFromInt(int64(diff)).Sub(oneDay).Add(partialDay)
	}
}

// ReminderDate is the day a reminder fires, reminderDays before from.
// ok is false when no reminder is configured.
func ReminderDate(from models.Date, reminderDays *int) (models.Date, bool) {
	if reminderDays == nil || from.IsZero() {
		return models.Date{}, false
	}
	return from.AddDays(-*reminderDays), true
}

// ClassifyReminder compares a reminder date with today.
func ClassifyReminder(date models.Date, ok bool, today models.Date) string {
	if !ok || date.IsZero() {
		return models.ReminderNone
	}
	switch diff := today.DaysUntil(date); {
	case diff < 0:
		return models.ReminderOverdue
	case diff == 0:
		return models.ReminderDueToday
	default:
		return models.ReminderUpcoming
	}
}
