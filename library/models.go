package library

import (
	"fmt"
	"time"
)

// BookStatus is the circulation state of a catalog item.
type BookStatus string

const (
	BookAvailable   BookStatus = "available"
	BookLoaned      BookStatus = "loaned"
	BookMaintenance BookStatus = "maintenance"
	BookLost        BookStatus = "lost"
)

// LoanStatus is the lifecycle state of a loan. A loan starts Active, may be
// extended once to Renewed, and ends Returned. It is never resurrected.
type LoanStatus string

const (
	LoanActive   LoanStatus = "active"
	LoanRenewed  LoanStatus = "renewed"
	LoanReturned LoanStatus = "returned"
)

// Book represents a catalog item.
type Book struct {
	ID        int64      `json:"id"`
	ISBN      string     `json:"isbn"`
	Title     string     `json:"title"`
	Author    string     `json:"author"`
	Publisher string     `json:"publisher"`
	Category  string     `json:"category"`
	Year      int        `json:"year"`
	Pages     int        `json:"pages"`
	Shelf     string     `json:"shelf"`
	Status    BookStatus `json:"status"`
	Reference bool       `json:"reference"` // reference-only items never circulate
}

// IsAvailable reports whether the book can be lent out right now.
func (b *Book) IsAvailable() bool {
	return b.Status == BookAvailable && !b.Reference
}

// Loan links a book to a borrower for a bounded period.
type Loan struct {
	ID         int64      `json:"id"`
	BookID     int64      `json:"book_id"`
	UserID     int64      `json:"user_id"`
	UserKind   UserKind   `json:"user_kind"`
	LoanDate   time.Time  `json:"loan_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
	Status     LoanStatus `json:"status"`
	Notes      string     `json:"notes"`
	Fine       float64    `json:"fine"`
}

// Open reports whether the loan still holds the book (Active or Renewed).
func (l *Loan) Open() bool {
	return l.Status == LoanActive || l.Status == LoanRenewed
}

// OverdueAt reports whether the loan is overdue at t. Overdue is derived,
// never stored: an unreturned loan whose due date has passed.
func (l *Loan) OverdueAt(t time.Time) bool {
	return l.ReturnedAt == nil && t.After(l.DueDate)
}

// DaysLateAt returns how many whole days past due the loan is at t.
// For returned loans the actual return date is used instead of t.
func (l *Loan) DaysLateAt(t time.Time) int {
	ref := t
	if l.ReturnedAt != nil {
		ref = *l.ReturnedAt
	}
	late := daysBetween(l.DueDate, ref)
	if late < 0 {
		return 0
	}
	return late
}

// FineAt computes the fine owed at t given a per-day rate.
func (l *Loan) FineAt(ratePerDay float64, t time.Time) float64 {
	return float64(l.DaysLateAt(t)) * ratePerDay
}

// Describe renders a human-readable status for listings.
func (l *Loan) Describe(now time.Time) string {
	switch {
	case l.Status == LoanReturned && l.Fine > 0:
		return "Returned (fined)"
	case l.Status == LoanReturned:
		return "Returned"
	case l.OverdueAt(now):
		return fmt.Sprintf("Overdue (%d days)", l.DaysLateAt(now))
	case l.Status == LoanRenewed:
		return "Renewed"
	default:
		return "Active"
	}
}

// daysBetween counts calendar days from a to b, ignoring time of day.
func daysBetween(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a) / (24 * time.Hour))
}
