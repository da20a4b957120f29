package reminders

import (
	"fmt"
	"strings"
	"time"

	"github.com/billfold/billfold/internal/money"
)

// NextReminderDate computes where the schedule moves after a reminder
// fires on today for an invoice due on due. Before the due date it
// steps to the next closer before-due offset, falling over to the
// first after-due offset once the before-due ladder is exhausted.
// At or past the due date it steps to the next later after-due offset.
// A nil return means the ladder is exhausted and the invoice leaves
// the schedule until something re-enrolls it.
func NextReminderDate(today, due time.Time, settings Settings) *time.Time {
	diff := daysBetween(due, today)

	if diff < 0 {
		distance := -diff
		best := 0
		for _, offset := range settings.DaysBeforeDue {
			if offset < distance && offset > best {
				best = offset
			}
		}
		if best > 0 {
			next := dateOnly(due).AddDate(0, 0, -best)
			return &next
		}
		if first, ok := minOffset(settings.DaysAfterDue); ok {
			next := dateOnly(due).AddDate(0, 0, first)
			return &next
		}
		return nil
	}

	best := 0
	for _, offset := range settings.DaysAfterDue {
		if offset > diff && (best == 0 || offset < best) {
			best = offset
		}
	}
	if best > 0 {
		next := dateOnly(due).AddDate(0, 0, best)
		return &next
	}
	return nil
}

// FirstReminderDate is the enrollment point: the earliest configured
// reminder for an invoice due on due. Used when an invoice is sent.
func FirstReminderDate(due time.Time, settings Settings) *time.Time {
	if max, ok := maxOffset(settings.DaysBeforeDue); ok {
		next := dateOnly(due).AddDate(0, 0, -max)
		return &next
	}
	if min, ok := minOffset(settings.DaysAfterDue); ok {
		next := dateOnly(due).AddDate(0, 0, min)
		return &next
	}
	return nil
}

// StatusPhrase renders the human distance between today and the due
// date: "due in N days", "due today" or "overdue by N days".
func StatusPhrase(today, due time.Time) string {
	diff := daysBetween(due, today)
	switch {
	case diff < 0:
		if diff == -1 {
			return "due in 1 day"
		}
		return fmt.Sprintf("due in %d days", -diff)
	case diff == 0:
		return "due today"
	case diff == 1:
		return "overdue by 1 day"
	default:
		return fmt.Sprintf("overdue by %d days", diff)
	}
}

// RenderMessage substitutes the template placeholders with the
// invoice's concrete values.
func RenderMessage(inv DueInvoice, settings Settings, today time.Time) Message {
	r := strings.NewReplacer(
		"{invoice_number}", inv.Number,
		"{amount}", money.Format(inv.AmountPayable, inv.Currency),
		"{due_date}", inv.DueDate.Format("02 Jan 2006"),
		"{status}", StatusPhrase(today, inv.DueDate),
	)
	return Message{
		Recipient: inv.ClientEmail,
		Subject:   r.Replace(settings.Subject),
		Body:      r.Replace(settings.Body),
	}
}

// daysBetween returns to − from in whole calendar days, ignoring the
// time-of-day component.
func daysBetween(from, to time.Time) int {
	return int(dateOnly(to).Sub(dateOnly(from)).Hours() / 24)
}

func dateOnly(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func minOffset(offsets []int) (int, bool) {
	best := 0
	for _, o := range offsets {
		if o > 0 && (best == 0 || o < best) {
			best = o
		}
	}
	return best, best > 0
}

func maxOffset(offsets []int) (int, bool) {
	best := 0
	for _, o := range offsets {
		if o > best {
			best = o
		}
	}
	return best, best > 0
}
