package library

import (
	"errors"
	"fmt"
	"time"
)

// DefaultFineRate is the fine charged per day of lateness, in the library's
// currency, unless the service is configured otherwise.
const DefaultFineRate = 1000.0

// Precondition failures the loan service reports. Store failures are wrapped
// separately so callers can tell "nothing found" from "could not ask".
var (
	ErrBookUnavailable  = errors.New("book unavailable")
	ErrUserNotFound     = errors.New("user not found")
	ErrLoanLimitReached = errors.New("loan limit reached")
	ErrLoanNotFound     = errors.New("loan not found")
	ErrLoanNotActive    = errors.New("loan not active")
	ErrLoanNotRenewable = errors.New("loan not renewable")
)

// BookStore is the catalog the loan service consults. Lookups return
// (nil, nil) when the id does not exist.
type BookStore interface {
	GetBook(id int64) (*Book, error)
	SetBookStatus(id int64, status BookStatus) error
	ListBooks() ([]*Book, error)
}

// PersonStore resolves borrower ids to their concrete variant.
type PersonStore interface {
	GetPerson(id int64) (Borrower, error)
	ListPersons() ([]Borrower, error)
}

// LoanStore persists loans. CreateLoan and CloseLoan are units of work: the
// implementation must apply the loan write and the linked book's status flip
// together or not at all.
type LoanStore interface {
	GetLoan(id int64) (*Loan, error)
	CreateLoan(l *Loan) (int64, error)
	CloseLoan(l *Loan) error
	RenewLoan(l *Loan) error
	UpdateLoanNotes(id int64, notes string) error
	ListLoans() ([]*Loan, error)
	DeleteLoan(id int64) error
}

// LoanService drives the loan lifecycle: eligibility, due dates, fines and
// status transitions. All state lives in the injected stores.
type LoanService struct {
	books    BookStore
	users    PersonStore
	loans    LoanStore
	fineRate float64
	now      func() time.Time
}

// NewLoanService wires the service to its stores. A fineRate of 0 selects
// the default daily rate.
func NewLoanService(books BookStore, users PersonStore, loans LoanStore, fineRate float64) *LoanService {
	if fineRate <= 0 {
		fineRate = DefaultFineRate
	}
	return &LoanService{
		books:    books,
		users:    users,
		loans:    loans,
		fineRate: fineRate,
		now:      time.Now,
	}
}

// FineRate returns the configured daily fine rate.
func (s *LoanService) FineRate() float64 { return s.fineRate }

// CreateLoan grants a loan of bookID to userID. Preconditions are checked in
// order and the first failure aborts with no state change: the book must be
// available, the user must exist, and the user's open loans must be under
// their limit. On success the loan insert and the book's flip to Loaned are
// applied as one unit of work by the store.
func (s *LoanService) CreateLoan(bookID, userID int64) (*Loan, error) {
	book, err := s.books.GetBook(bookID)
	if err != nil {
		return nil, fmt.Errorf("look up book %d: %w", bookID, err)
	}
	if book == nil || !book.IsAvailable() {
		return nil, ErrBookUnavailable
	}

	user, err := s.users.GetPerson(userID)
	if err != nil {
		return nil, fmt.Errorf("look up user %d: %w", userID, err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	open, err := s.countOpenLoans(userID)
	if err != nil {
		return nil, err
	}
	if open >= user.LoanLimit() {
		return nil, ErrLoanLimitReached
	}

	now := s.now()
	loan := &Loan{
		BookID:   bookID,
		UserID:   userID,
		UserKind: user.Kind(),
		LoanDate: now,
		DueDate:  now.AddDate(0, 0, user.LoanDays()),
		Status:   LoanActive,
	}
	id, err := s.loans.CreateLoan(loan)
	if err != nil {
		return nil, fmt.Errorf("create loan: %w", err)
	}
	loan.ID = id
	return loan, nil
}

// ReturnLoan processes the book coming back: the return date is stamped, the
// status moves to Returned, a fine is charged for any overdue days, and the
// book flips back to Available in the same unit of work. Renewed loans are
// returnable here as well; only Returned loans are rejected.
func (s *LoanService) ReturnLoan(loanID int64) error {
	loan, err := s.loans.GetLoan(loanID)
	if err != nil {
		return fmt.Errorf("look up loan %d: %w", loanID, err)
	}
	if loan == nil {
		return ErrLoanNotFound
	}
	if !loan.Open() {
		return ErrLoanNotActive
	}

	now := s.now()
	loan.ReturnedAt = &now
	loan.Status = LoanReturned
	if late := loan.DaysLateAt(now); late > 0 {
		loan.Fine = float64(late) * s.fineRate
	}
	if err := s.loans.CloseLoan(loan); err != nil {
		return fmt.Errorf("close loan %d: %w", loanID, err)
	}
	return nil
}

// RenewLoan pushes the due date out by extraDays. Only an Active loan that is
// not yet overdue can be renewed, and a renewal cannot be renewed again.
func (s *LoanService) RenewLoan(loanID int64, extraDays int) error {
	loan, err := s.loans.GetLoan(loanID)
	if err != nil {
		return fmt.Errorf("look up loan %d: %w", loanID, err)
	}
	if loan == nil {
		return ErrLoanNotFound
	}
	if loan.Status != LoanActive || loan.OverdueAt(s.now()) {
		return ErrLoanNotRenewable
	}

	loan.DueDate = loan.DueDate.AddDate(0, 0, extraDays)
	loan.Status = LoanRenewed
	if err := s.loans.RenewLoan(loan); err != nil {
		return fmt.Errorf("renew loan %d: %w", loanID, err)
	}
	return nil
}

// DeleteLoan removes a loan record. Deleting an open loan releases the book
// back to Available; the store applies both writes together.
func (s *LoanService) DeleteLoan(loanID int64) error {
	loan, err := s.loans.GetLoan(loanID)
	if err != nil {
		return fmt.Errorf("look up loan %d: %w", loanID, err)
	}
	if loan == nil {
		return ErrLoanNotFound
	}
	if err := s.loans.DeleteLoan(loanID); err != nil {
		return fmt.Errorf("delete loan %d: %w", loanID, err)
	}
	return nil
}

// GetLoan returns the loan or ErrLoanNotFound.
func (s *LoanService) GetLoan(loanID int64) (*Loan, error) {
	loan, err := s.loans.GetLoan(loanID)
	if err != nil {
		return nil, fmt.Errorf("look up loan %d: %w", loanID, err)
	}
	if loan == nil {
		return nil, ErrLoanNotFound
	}
	return loan, nil
}

// AnnotateLoan replaces the free-text notes on a loan.
func (s *LoanService) AnnotateLoan(loanID int64, notes string) error {
	loan, err := s.loans.GetLoan(loanID)
	if err != nil {
		return fmt.Errorf("look up loan %d: %w", loanID, err)
	}
	if loan == nil {
		return ErrLoanNotFound
	}
	return s.loans.UpdateLoanNotes(loanID, notes)
}

// ListLoans returns every loan, any status.
func (s *LoanService) ListLoans() ([]*Loan, error) {
	return s.loans.ListLoans()
}

// ActiveLoansFor returns the user's loans in status Active.
func (s *LoanService) ActiveLoansFor(userID int64) ([]*Loan, error) {
	all, err := s.loans.ListLoans()
	if err != nil {
		return nil, err
	}
	var out []*Loan
	for _, l := range all {
		if l.UserID == userID && l.Status == LoanActive {
			out = append(out, l)
		}
	}
	return out, nil
}

// LoansForBook returns every loan ever made of the book, any status.
func (s *LoanService) LoansForBook(bookID int64) ([]*Loan, error) {
	all, err := s.loans.ListLoans()
	if err != nil {
		return nil, err
	}
	var out []*Loan
	for _, l := range all {
		if l.BookID == bookID {
			out = append(out, l)
		}
	}
	return out, nil
}

// OverdueLoans recomputes the overdue set on every call.
func (s *LoanService) OverdueLoans() ([]*Loan, error) {
	all, err := s.loans.ListLoans()
	if err != nil {
		return nil, err
	}
	now := s.now()
	var out []*Loan
	for _, l := range all {
		if l.OverdueAt(now) {
			out = append(out, l)
		}
	}
	return out, nil
}

// LoansDueWithin returns Active loans whose due date falls before now+days.
func (s *LoanService) LoansDueWithin(days int) ([]*Loan, error) {
	all, err := s.loans.ListLoans()
	if err != nil {
		return nil, err
	}
	limit := s.now().AddDate(0, 0, days)
	var out []*Loan
	for _, l := range all {
		if l.Status == LoanActive && l.DueDate.Before(limit) {
			out = append(out, l)
		}
	}
	return out, nil
}

// TotalFines sums the stored fines across all of the user's loans,
// regardless of status.
func (s *LoanService) TotalFines(userID int64) (float64, error) {
	all, err := s.loans.ListLoans()
	if err != nil {
		return 0, err
	}
	var total float64
	for _, l := range all {
		if l.UserID == userID {
			total += l.Fine
		}
	}
	return total, nil
}

// CanBorrow reports whether the user is under their loan limit.
func (s *LoanService) CanBorrow(userID int64) (bool, error) {
	user, err := s.users.GetPerson(userID)
	if err != nil {
		return false, fmt.Errorf("look up user %d: %w", userID, err)
	}
	if user == nil {
		return false, ErrUserNotFound
	}
	open, err := s.countOpenLoans(userID)
	if err != nil {
		return false, err
	}
	return open < user.LoanLimit(), nil
}

// LoanStats is the aggregate report for the loan table.
type LoanStats struct {
	Total    int
	Active   int
	Overdue  int
	Returned int
}

// Stats classifies every loan in a single pass: returned loans in one bucket,
// open loans split into overdue and on-time.
func (s *LoanService) Stats() (LoanStats, error) {
	all, err := s.loans.ListLoans()
	if err != nil {
		return LoanStats{}, err
	}
	now := s.now()
	st := LoanStats{Total: len(all)}
	for _, l := range all {
		switch {
		case l.Status == LoanReturned:
			st.Returned++
		case l.OverdueAt(now):
			st.Overdue++
		default:
			st.Active++
		}
	}
	return st, nil
}

// countOpenLoans counts the user's loans in status Active or Renewed.
func (s *LoanService) countOpenLoans(userID int64) (int, error) {
	all, err := s.loans.ListLoans()
	if err != nil {
		return 0, fmt.Errorf("list loans: %w", err)
	}
	n := 0
	for _, l := range all {
		if l.UserID == userID && l.Open() {
			n++
		}
	}
	return n, nil
}
