package reminders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func TestNextReminderDate(t *testing.T) {
	settings := Settings{DaysBeforeDue: []int{7, 1}, DaysAfterDue: []int{1, 3, 7}}
	due := d(2025, time.June, 10)

	cases := []struct {
		name  string
		today time.Time
		want  *time.Time
	}{
		// One day out: no before-due offset is closer than 1, so the
		// schedule switches to the first after-due offset.
		{"direction switch", d(2025, time.June, 9), ptr(d(2025, time.June, 11))},
		// Seven days out: the 1-day-before offset is still ahead.
		{"next before-due rung", d(2025, time.June, 3), ptr(d(2025, time.June, 9))},
		{"due today", d(2025, time.June, 10), ptr(d(2025, time.June, 11))},
		{"one day overdue", d(2025, time.June, 11), ptr(d(2025, time.June, 13))},
		{"three days overdue", d(2025, time.June, 13), ptr(d(2025, time.June, 17))},
		{"ladder exhausted", d(2025, time.June, 17), nil},
		{"far overdue", d(2025, time.July, 1), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NextReminderDate(tc.today, due, settings)
			if tc.want == nil {
				require.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			require.Equal(t, *tc.want, *got)
		})
	}
}

func TestNextReminderDateNoAfterOffsets(t *testing.T) {
	settings := Settings{DaysBeforeDue: []int{7}}
	due := d(2025, time.June, 10)

	// Before-due ladder exhausted and no after-due fallback.
	require.Nil(t, NextReminderDate(d(2025, time.June, 5), due, settings))
	require.Nil(t, NextReminderDate(d(2025, time.June, 12), due, settings))
}

func TestFirstReminderDate(t *testing.T) {
	due := d(2025, time.June, 10)

	got := FirstReminderDate(due, Settings{DaysBeforeDue: []int{1, 7}, DaysAfterDue: []int{3}})
	require.NotNil(t, got)
	require.Equal(t, d(2025, time.June, 3), *got)

	got = FirstReminderDate(due, Settings{DaysAfterDue: []int{3, 7}})
	require.NotNil(t, got)
	require.Equal(t, d(2025, time.June, 13), *got)

	require.Nil(t, FirstReminderDate(due, Settings{}))
}

func TestStatusPhrase(t *testing.T) {
	due := d(2025, time.June, 10)

	require.Equal(t, "due in 7 days", StatusPhrase(d(2025, time.June, 3), due))
	require.Equal(t, "due in 1 day", StatusPhrase(d(2025, time.June, 9), due))
	require.Equal(t, "due today", StatusPhrase(d(2025, time.June, 10), due))
	require.Equal(t, "overdue by 1 day", StatusPhrase(d(2025, time.June, 11), due))
	require.Equal(t, "overdue by 5 days", StatusPhrase(d(2025, time.June, 15), due))
}

func TestRenderMessage(t *testing.T) {
	inv := DueInvoice{
		Number:        "INV-2025-0042",
		ClientEmail:   "billing@acme.example",
		Currency:      "INR",
		AmountPayable: 118000,
		DueDate:       d(2025, time.June, 10),
	}
	settings := Settings{
		Subject: "Reminder: {invoice_number}",
		Body:    "Invoice {invoice_number} for {amount} is {status} (due {due_date}).",
	}

	msg := RenderMessage(inv, settings, d(2025, time.June, 12))
	require.Equal(t, "billing@acme.example", msg.Recipient)
	require.Equal(t, "Reminder: INV-2025-0042", msg.Subject)
	require.Equal(t, "Invoice INV-2025-0042 for ₹1,18,000.00 is overdue by 2 days (due 10 Jun 2025).", msg.Body)
}
