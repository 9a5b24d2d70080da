package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var day0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func TestBookAvailability(t *testing.T) {
	testCases := []struct {
		name      string
		status    BookStatus
		reference bool
		available bool
	}{
		{"available", BookAvailable, false, true},
		{"loaned", BookLoaned, false, false},
		{"maintenance", BookMaintenance, false, false},
		{"lost", BookLost, false, false},
		{"reference-only", BookAvailable, true, false},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			b := &Book{Status: tt.status, Reference: tt.reference}
			assert.Equal(t, tt.available, b.IsAvailable())
		})
	}
}

func TestLoanOverdue(t *testing.T) {
	due := day0.AddDate(0, 0, 15)
	l := &Loan{LoanDate: day0, DueDate: due, Status: LoanActive}

	assert.False(t, l.OverdueAt(due), "not overdue on the due date itself")
	assert.True(t, l.OverdueAt(due.AddDate(0, 0, 1)))

	// A returned loan is never overdue, no matter how late it was.
	returned := due.AddDate(0, 0, 10)
	l.ReturnedAt = &returned
	assert.False(t, l.OverdueAt(due.AddDate(0, 0, 20)))
}

func TestLoanDaysLate(t *testing.T) {
	due := day0.AddDate(0, 0, 15)
	l := &Loan{LoanDate: day0, DueDate: due, Status: LoanActive}

	assert.Equal(t, 0, l.DaysLateAt(due))
	assert.Equal(t, 0, l.DaysLateAt(due.AddDate(0, 0, -3)), "early is not negative lateness")
	assert.Equal(t, 5, l.DaysLateAt(due.AddDate(0, 0, 5)))

	returned := due.AddDate(0, 0, 2)
	l.ReturnedAt = &returned
	assert.Equal(t, 2, l.DaysLateAt(due.AddDate(0, 0, 30)), "returned loans use the return date")
}

func TestLoanFine(t *testing.T) {
	due := day0.AddDate(0, 0, 15)
	l := &Loan{LoanDate: day0, DueDate: due}

	// 15-day loan returned on day 20 at 1000/day: 5 days late.
	returned := day0.AddDate(0, 0, 20)
	l.ReturnedAt = &returned
	assert.Equal(t, 5000.0, l.FineAt(1000, returned))

	// Returned on day 10: no fine.
	early := day0.AddDate(0, 0, 10)
	l.ReturnedAt = &early
	assert.Equal(t, 0.0, l.FineAt(1000, early))
}

func TestLoanDescribe(t *testing.T) {
	due := day0.AddDate(0, 0, 15)
	l := &Loan{LoanDate: day0, DueDate: due, Status: LoanActive}

	assert.Equal(t, "Active", l.Describe(day0))
	assert.Equal(t, "Overdue (3 days)", l.Describe(due.AddDate(0, 0, 3)))

	l.Status = LoanRenewed
	assert.Equal(t, "Renewed", l.Describe(day0))

	returned := due
	l.ReturnedAt = &returned
	l.Status = LoanReturned
	assert.Equal(t, "Returned", l.Describe(due))
	l.Fine = 2000
	assert.Equal(t, "Returned (fined)", l.Describe(due))
}

func TestDaysBetweenIgnoresTimeOfDay(t *testing.T) {
	a := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)
	b := time.Date(2024, 3, 2, 0, 1, 0, 0, time.UTC)
	assert.Equal(t, 1, daysBetween(a, b))
	assert.Equal(t, -1, daysBetween(b, a))
	assert.Equal(t, 0, daysBetween(a, a))
}
