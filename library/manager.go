package library

import (
	"fmt"
)

// LibraryManager is a thin façade over the Database and the LoanService,
// keeping CLI code simple.
type LibraryManager struct {
	db    *Database
	loans *LoanService
}

// NewLibraryManager opens (or creates) the SQLite database at dbPath and
// wires the loan service to it. A fineRate of 0 selects the default.
func NewLibraryManager(dbPath string, fineRate float64) (*LibraryManager, error) {
	db, err := NewDatabase(dbPath)
	if err != nil {
		return nil, err
	}
	return &LibraryManager{
		db:    db,
		loans: NewLoanService(db, db, db, fineRate),
	}, nil
}

// Close closes the underlying database.
func (lm *LibraryManager) Close() error { return lm.db.Close() }

// Loans exposes the loan service for callers that want it directly.
func (lm *LibraryManager) Loans() *LoanService { return lm.loans }

// ------------------ Book helpers ------------------

// AddBook validates the form input and inserts the book as Available.
func (lm *LibraryManager) AddBook(in BookInput) (int64, error) {
	if err := in.Validate(); err != nil {
		return 0, fmt.Errorf("invalid book: %w", err)
	}
	return lm.db.AddBook(in.toBook())
}

func (lm *LibraryManager) GetBook(id int64) (*Book, error)      { return lm.db.GetBook(id) }
func (lm *LibraryManager) ListBooks() ([]*Book, error)          { return lm.db.ListBooks() }
func (lm *LibraryManager) SearchBooks(q string) ([]*Book, error) { return lm.db.SearchBooks(q) }
func (lm *LibraryManager) DeleteBook(id int64) error            { return lm.db.DeleteBook(id) }

// EditBook applies validated form input to an existing book, preserving its
// circulation status.
func (lm *LibraryManager) EditBook(id int64, in BookInput) error {
	if err := in.Validate(); err != nil {
		return fmt.Errorf("invalid book: %w", err)
	}
	current, err := lm.db.GetBook(id)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("book %d does not exist", id)
	}
	b := in.toBook()
	b.ID = id
	b.Status = current.Status
	return lm.db.UpdateBook(b)
}

// SetBookStatus moves a book between Available, Maintenance and Lost.
// Loaned is owned by the loan lifecycle and cannot be set by hand.
func (lm *LibraryManager) SetBookStatus(id int64, status BookStatus) error {
	if status == BookLoaned {
		return fmt.Errorf("loaned status is set by the loan lifecycle")
	}
	return lm.db.SetBookStatus(id, status)
}

// ------------------ Borrower helpers ------------------

// RegisterMember validates the form input, inserts the member, and stores
// their password hash.
func (lm *LibraryManager) RegisterMember(in MemberInput) (int64, error) {
	if err := in.Validate(); err != nil {
		return 0, fmt.Errorf("invalid member: %w", err)
	}
	m := NewMember(in.GivenNames, in.FamilyNames, in.Email, in.Code)
	m.Phone = in.Phone
	m.Program = in.Program
	m.Term = in.Term
	id, err := lm.db.AddPerson(m)
	if err != nil {
		return 0, err
	}
	return id, lm.db.SetPassword(id, in.Password)
}

// RegisterGraduate registers a graduated member with the higher loan limit.
func (lm *LibraryManager) RegisterGraduate(in GraduateInput) (int64, error) {
	if err := in.Validate(); err != nil {
		return 0, fmt.Errorf("invalid graduate: %w", err)
	}
	g := NewGraduateMember(in.GivenNames, in.FamilyNames, in.Email, in.Code, in.Degree)
	g.Phone = in.Phone
	g.Program = in.Program
	g.GraduatedOn = in.GraduatedOn
	g.Postgrad = in.Postgrad
	g.Employer = in.Employer
	id, err := lm.db.AddPerson(g)
	if err != nil {
		return 0, err
	}
	return id, lm.db.SetPassword(id, in.Password)
}

// RegisterStaff registers an instructor/staff borrower.
func (lm *LibraryManager) RegisterStaff(in StaffInput) (int64, error) {
	if err := in.Validate(); err != nil {
		return 0, fmt.Errorf("invalid staff member: %w", err)
	}
	s := NewStaffMember(in.GivenNames, in.FamilyNames, in.Email, in.EmployeeCode, in.Department)
	s.Phone = in.Phone
	s.Specialty = in.Specialty
	if in.Contract != "" {
		s.Contract = ContractType(in.Contract)
	}
	s.AcademicTitle = in.AcademicTitle
	s.Experience = in.Experience
	id, err := lm.db.AddPerson(s)
	if err != nil {
		return 0, err
	}
	return id, lm.db.SetPassword(id, in.Password)
}

func (lm *LibraryManager) GetPerson(id int64) (Borrower, error) { return lm.db.GetPerson(id) }
func (lm *LibraryManager) ListPersons() ([]Borrower, error)     { return lm.db.ListPersons() }
func (lm *LibraryManager) UpdatePerson(b Borrower) error        { return lm.db.UpdatePerson(b) }
func (lm *LibraryManager) DeletePerson(id int64) error          { return lm.db.DeletePerson(id) }

func (lm *LibraryManager) Authenticate(email, password string) (Borrower, error) {
	return lm.db.Authenticate(email, password)
}

func (lm *LibraryManager) ResetPassword(personID int64, password string) error {
	return lm.db.SetPassword(personID, password)
}

// ------------------ Loan helpers ------------------

func (lm *LibraryManager) CreateLoan(bookID, userID int64) (*Loan, error) {
	return lm.loans.CreateLoan(bookID, userID)
}

func (lm *LibraryManager) ReturnLoan(loanID int64) error { return lm.loans.ReturnLoan(loanID) }

func (lm *LibraryManager) RenewLoan(loanID int64, extraDays int) error {
	return lm.loans.RenewLoan(loanID, extraDays)
}

func (lm *LibraryManager) DeleteLoan(loanID int64) error { return lm.loans.DeleteLoan(loanID) }

func (lm *LibraryManager) GetLoan(loanID int64) (*Loan, error) { return lm.loans.GetLoan(loanID) }

func (lm *LibraryManager) AnnotateLoan(loanID int64, notes string) error {
	return lm.loans.AnnotateLoan(loanID, notes)
}

func (lm *LibraryManager) ListLoans() ([]*Loan, error) { return lm.loans.ListLoans() }

func (lm *LibraryManager) ActiveLoansFor(userID int64) ([]*Loan, error) {
	return lm.loans.ActiveLoansFor(userID)
}

func (lm *LibraryManager) LoansForBook(bookID int64) ([]*Loan, error) {
	return lm.loans.LoansForBook(bookID)
}

func (lm *LibraryManager) OverdueLoans() ([]*Loan, error) { return lm.loans.OverdueLoans() }

func (lm *LibraryManager) LoansDueWithin(days int) ([]*Loan, error) {
	return lm.loans.LoansDueWithin(days)
}

func (lm *LibraryManager) TotalFines(userID int64) (float64, error) {
	return lm.loans.TotalFines(userID)
}

func (lm *LibraryManager) Stats() (LoanStats, error) { return lm.loans.Stats() }
