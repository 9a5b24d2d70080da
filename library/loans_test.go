package library

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory implementation of the three store contracts,
// mirroring the transactional semantics of the SQLite Database.
type fakeStore struct {
	books  map[int64]*Book
	users  map[int64]Borrower
	loans  map[int64]*Loan
	nextID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		books: make(map[int64]*Book),
		users: make(map[int64]Borrower),
		loans: make(map[int64]*Loan),
	}
}

func (f *fakeStore) addBook(b *Book) *Book {
	if b.Status == "" {
		b.Status = BookAvailable
	}
	b.ID = int64(len(f.books) + 1)
	f.books[b.ID] = b
	return b
}

func (f *fakeStore) addUser(id int64, b Borrower) {
	b.Base().ID = id
	f.users[id] = b
}

func (f *fakeStore) GetBook(id int64) (*Book, error) { return f.books[id], nil }

func (f *fakeStore) SetBookStatus(id int64, status BookStatus) error {
	b, ok := f.books[id]
	if !ok {
		return fmt.Errorf("book %d does not exist", id)
	}
	b.Status = status
	return nil
}

func (f *fakeStore) ListBooks() ([]*Book, error) {
	var out []*Book
	for _, b := range f.books {
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeStore) GetPerson(id int64) (Borrower, error) { return f.users[id], nil }

func (f *fakeStore) ListPersons() ([]Borrower, error) {
	var out []Borrower
	for _, b := range f.users {
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeStore) GetLoan(id int64) (*Loan, error) { return f.loans[id], nil }

func (f *fakeStore) CreateLoan(l *Loan) (int64, error) {
	b, ok := f.books[l.BookID]
	if !ok || !b.IsAvailable() {
		return 0, fmt.Errorf("book %d is not available", l.BookID)
	}
	f.nextID++
	cp := *l
	cp.ID = f.nextID
	f.loans[cp.ID] = &cp
	b.Status = BookLoaned
	return cp.ID, nil
}

func (f *fakeStore) CloseLoan(l *Loan) error {
	if _, ok := f.loans[l.ID]; !ok {
		return fmt.Errorf("loan %d does not exist", l.ID)
	}
	cp := *l
	f.loans[l.ID] = &cp
	if b, ok := f.books[l.BookID]; ok {
		b.Status = BookAvailable
	}
	return nil
}

func (f *fakeStore) RenewLoan(l *Loan) error {
	if _, ok := f.loans[l.ID]; !ok {
		return fmt.Errorf("loan %d does not exist", l.ID)
	}
	cp := *l
	f.loans[l.ID] = &cp
	return nil
}

func (f *fakeStore) UpdateLoanNotes(id int64, notes string) error {
	l, ok := f.loans[id]
	if !ok {
		return fmt.Errorf("loan %d does not exist", id)
	}
	l.Notes = notes
	return nil
}

func (f *fakeStore) ListLoans() ([]*Loan, error) {
	var out []*Loan
	for _, l := range f.loans {
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeStore) DeleteLoan(id int64) error {
	l, ok := f.loans[id]
	if !ok {
		return fmt.Errorf("loan %d does not exist", id)
	}
	if l.Open() {
		if b, ok := f.books[l.BookID]; ok {
			b.Status = BookAvailable
		}
	}
	delete(f.loans, id)
	return nil
}

// newTestService returns a service over a fake store with a controllable
// clock starting at day0.
func newTestService(t *testing.T) (*LoanService, *fakeStore, *time.Time) {
	t.Helper()
	fs := newFakeStore()
	svc := NewLoanService(fs, fs, fs, 0)
	now := day0
	svc.now = func() time.Time { return now }
	return svc, fs, &now
}

func TestCreateLoanForMember(t *testing.T) {
	svc, fs, _ := newTestService(t)
	book := fs.addBook(&Book{Title: "Algorithms", Author: "Cormen"})
	fs.addUser(1, NewMember("Ana", "Torres", "ana@campus.edu", "M-1"))

	loan, err := svc.CreateLoan(book.ID, 1)
	require.NoError(t, err)

	assert.Equal(t, LoanActive, loan.Status)
	assert.Equal(t, KindMember, loan.UserKind)
	assert.Equal(t, day0, loan.LoanDate)
	assert.Equal(t, day0.AddDate(0, 0, 15), loan.DueDate)
	assert.Equal(t, BookLoaned, book.Status)
}

func TestCreateLoanDurationByKind(t *testing.T) {
	testCases := []struct {
		name string
		user Borrower
		days int
	}{
		{"staff", NewStaffMember("Carla", "Reyes", "carla@campus.edu", "E-1", "CS"), 30},
		{"graduate", NewGraduateMember("Luis", "Mora", "luis@campus.edu", "M-2", "Engineer"), 15},
		{"unrecognized kind", &Person{GivenNames: "X", FamilyNames: "Y"}, 7},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			svc, fs, _ := newTestService(t)
			book := fs.addBook(&Book{Title: "B", Author: "A"})
			fs.addUser(1, tt.user)

			loan, err := svc.CreateLoan(book.ID, 1)
			require.NoError(t, err)
			assert.Equal(t, day0.AddDate(0, 0, tt.days), loan.DueDate)
		})
	}
}

func TestCreateLoanBookUnavailable(t *testing.T) {
	svc, fs, _ := newTestService(t)
	fs.addUser(1, NewMember("Ana", "Torres", "ana@campus.edu", "M-1"))

	// Missing book.
	_, err := svc.CreateLoan(99, 1)
	assert.ErrorIs(t, err, ErrBookUnavailable)

	// Reference-only book.
	ref := fs.addBook(&Book{Title: "Dictionary", Author: "Oxford", Reference: true})
	_, err = svc.CreateLoan(ref.ID, 1)
	assert.ErrorIs(t, err, ErrBookUnavailable)

	// Already loaned book.
	book := fs.addBook(&Book{Title: "B", Author: "A", Status: BookLoaned})
	_, err = svc.CreateLoan(book.ID, 1)
	assert.ErrorIs(t, err, ErrBookUnavailable)
}

func TestCreateLoanUserNotFound(t *testing.T) {
	svc, fs, _ := newTestService(t)
	book := fs.addBook(&Book{Title: "B", Author: "A"})

	_, err := svc.CreateLoan(book.ID, 42)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Equal(t, BookAvailable, book.Status, "failed create must not touch the book")
}

func TestCreateLoanLimitReached(t *testing.T) {
	svc, fs, _ := newTestService(t)
	fs.addUser(1, NewMember("Ana", "Torres", "ana@campus.edu", "M-1"))

	// A member may hold 3 open loans; renewals count against the limit.
	for i := 0; i < 3; i++ {
		b := fs.addBook(&Book{Title: fmt.Sprintf("B%d", i), Author: "A"})
		loan, err := svc.CreateLoan(b.ID, 1)
		require.NoError(t, err)
		if i == 0 {
			require.NoError(t, svc.RenewLoan(loan.ID, 5))
		}
	}

	fourth := fs.addBook(&Book{Title: "B4", Author: "A"})
	_, err := svc.CreateLoan(fourth.ID, 1)
	assert.ErrorIs(t, err, ErrLoanLimitReached)
	assert.Equal(t, BookAvailable, fourth.Status, "book must stay untouched")
	assert.Len(t, fs.loans, 3, "no loan row may be created")
}

func TestStaffLimitByContract(t *testing.T) {
	testCases := []struct {
		contract ContractType
		limit    int
	}{
		{ContractFullTime, 10},
		{ContractHalfTime, 7},
		{ContractAdjunct, 5},
	}
	for _, tt := range testCases {
		t.Run(string(tt.contract), func(t *testing.T) {
			svc, fs, _ := newTestService(t)
			staff := NewStaffMember("Carla", "Reyes", "carla@campus.edu", "E-1", "CS")
			staff.Contract = tt.contract
			fs.addUser(1, staff)

			for i := 0; i < tt.limit; i++ {
				b := fs.addBook(&Book{Title: fmt.Sprintf("B%d", i), Author: "A"})
				_, err := svc.CreateLoan(b.ID, 1)
				require.NoError(t, err)
			}
			extra := fs.addBook(&Book{Title: "extra", Author: "A"})
			_, err := svc.CreateLoan(extra.ID, 1)
			assert.ErrorIs(t, err, ErrLoanLimitReached)
		})
	}
}

func TestReturnLoanOnTime(t *testing.T) {
	svc, fs, now := newTestService(t)
	book := fs.addBook(&Book{Title: "B", Author: "A"})
	fs.addUser(1, NewMember("Ana", "Torres", "ana@campus.edu", "M-1"))

	loan, err := svc.CreateLoan(book.ID, 1)
	require.NoError(t, err)

	*now = day0.AddDate(0, 0, 10)
	require.NoError(t, svc.ReturnLoan(loan.ID))

	got, err := svc.GetLoan(loan.ID)
	require.NoError(t, err)
	assert.Equal(t, LoanReturned, got.Status)
	require.NotNil(t, got.ReturnedAt)
	assert.Equal(t, *now, *got.ReturnedAt)
	assert.Equal(t, 0.0, got.Fine)
	assert.Equal(t, BookAvailable, book.Status)
}

func TestReturnLoanLateChargesFine(t *testing.T) {
	svc, fs, now := newTestService(t)
	book := fs.addBook(&Book{Title: "B", Author: "A"})
	fs.addUser(1, NewMember("Ana", "Torres", "ana@campus.edu", "M-1"))

	loan, err := svc.CreateLoan(book.ID, 1)
	require.NoError(t, err)

	// 15-day loan returned on day 20 at the default 1000/day rate.
	*now = day0.AddDate(0, 0, 20)
	require.NoError(t, svc.ReturnLoan(loan.ID))

	got, err := svc.GetLoan(loan.ID)
	require.NoError(t, err)
	assert.Equal(t, 5000.0, got.Fine)
	assert.Equal(t, BookAvailable, book.Status)
}

func TestReturnLoanTwiceFails(t *testing.T) {
	svc, fs, now := newTestService(t)
	book := fs.addBook(&Book{Title: "B", Author: "A"})
	fs.addUser(1, NewMember("Ana", "Torres", "ana@campus.edu", "M-1"))

	loan, err := svc.CreateLoan(book.ID, 1)
	require.NoError(t, err)

	*now = day0.AddDate(0, 0, 20)
	require.NoError(t, svc.ReturnLoan(loan.ID))

	// Second return must fail and must not double-charge the fine.
	*now = day0.AddDate(0, 0, 40)
	err = svc.ReturnLoan(loan.ID)
	assert.ErrorIs(t, err, ErrLoanNotActive)

	got, err := svc.GetLoan(loan.ID)
	require.NoError(t, err)
	assert.Equal(t, 5000.0, got.Fine)
}

func TestReturnRenewedLoan(t *testing.T) {
	svc, fs, _ := newTestService(t)
	book := fs.addBook(&Book{Title: "B", Author: "A"})
	fs.addUser(1, NewMember("Ana", "Torres", "ana@campus.edu", "M-1"))

	loan, err := svc.CreateLoan(book.ID, 1)
	require.NoError(t, err)
	require.NoError(t, svc.RenewLoan(loan.ID, 5))

	// Renewed loans are returnable like active ones.
	require.NoError(t, svc.ReturnLoan(loan.ID))
	got, err := svc.GetLoan(loan.ID)
	require.NoError(t, err)
	assert.Equal(t, LoanReturned, got.Status)
	assert.Equal(t, BookAvailable, book.Status)
}

func TestReturnLoanNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	assert.ErrorIs(t, svc.ReturnLoan(99), ErrLoanNotFound)
}

func TestRenewLoan(t *testing.T) {
	svc, fs, _ := newTestService(t)
	book := fs.addBook(&Book{Title: "B", Author: "A"})
	fs.addUser(1, NewMember("Ana", "Torres", "ana@campus.edu", "M-1"))

	loan, err := svc.CreateLoan(book.ID, 1)
	require.NoError(t, err)
	origDue := loan.DueDate

	require.NoError(t, svc.RenewLoan(loan.ID, 7))
	got, err := svc.GetLoan(loan.ID)
	require.NoError(t, err)
	assert.Equal(t, LoanRenewed, got.Status)
	assert.Equal(t, origDue.AddDate(0, 0, 7), got.DueDate)

	// A renewal cannot be renewed again.
	assert.ErrorIs(t, svc.RenewLoan(loan.ID, 7), ErrLoanNotRenewable)
}

func TestRenewOverdueLoanFails(t *testing.T) {
	svc, fs, now := newTestService(t)
	book := fs.addBook(&Book{Title: "B", Author: "A"})
	fs.addUser(1, NewMember("Ana", "Torres", "ana@campus.edu", "M-1"))

	loan, err := svc.CreateLoan(book.ID, 1)
	require.NoError(t, err)
	origDue := loan.DueDate

	*now = origDue.AddDate(0, 0, 1)
	assert.ErrorIs(t, svc.RenewLoan(loan.ID, 7), ErrLoanNotRenewable)

	got, err := svc.GetLoan(loan.ID)
	require.NoError(t, err)
	assert.Equal(t, LoanActive, got.Status, "failed renewal must not change status")
	assert.Equal(t, origDue, got.DueDate, "failed renewal must not move the due date")
}

func TestRenewLoanNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	assert.ErrorIs(t, svc.RenewLoan(99, 7), ErrLoanNotFound)
}

func TestDeleteOpenLoanReleasesBook(t *testing.T) {
	svc, fs, _ := newTestService(t)
	book := fs.addBook(&Book{Title: "B", Author: "A"})
	fs.addUser(1, NewMember("Ana", "Torres", "ana@campus.edu", "M-1"))

	loan, err := svc.CreateLoan(book.ID, 1)
	require.NoError(t, err)
	require.Equal(t, BookLoaned, book.Status)

	require.NoError(t, svc.DeleteLoan(loan.ID))
	assert.Equal(t, BookAvailable, book.Status)
	assert.ErrorIs(t, svc.ReturnLoan(loan.ID), ErrLoanNotFound)
}

func TestAnnotateLoan(t *testing.T) {
	svc, fs, _ := newTestService(t)
	book := fs.addBook(&Book{Title: "B", Author: "A"})
	fs.addUser(1, NewMember("Ana", "Torres", "ana@campus.edu", "M-1"))

	loan, err := svc.CreateLoan(book.ID, 1)
	require.NoError(t, err)
	require.NoError(t, svc.AnnotateLoan(loan.ID, "damaged cover on checkout"))

	got, err := svc.GetLoan(loan.ID)
	require.NoError(t, err)
	assert.Equal(t, "damaged cover on checkout", got.Notes)

	assert.ErrorIs(t, svc.AnnotateLoan(99, "x"), ErrLoanNotFound)
}

func TestDerivedQueries(t *testing.T) {
	svc, fs, now := newTestService(t)
	fs.addUser(1, NewMember("Ana", "Torres", "ana@campus.edu", "M-1"))
	fs.addUser(2, NewStaffMember("Carla", "Reyes", "carla@campus.edu", "E-1", "CS"))

	b1 := fs.addBook(&Book{Title: "B1", Author: "A"})
	b2 := fs.addBook(&Book{Title: "B2", Author: "A"})
	b3 := fs.addBook(&Book{Title: "B3", Author: "A"})

	l1, err := svc.CreateLoan(b1.ID, 1) // member, due day 15
	require.NoError(t, err)
	l2, err := svc.CreateLoan(b2.ID, 1) // member, renewed below
	require.NoError(t, err)
	_, err = svc.CreateLoan(b3.ID, 2) // staff, due day 30
	require.NoError(t, err)
	require.NoError(t, svc.RenewLoan(l2.ID, 10))

	// ActiveLoansFor counts only status Active.
	active, err := svc.ActiveLoansFor(1)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, l1.ID, active[0].ID)

	// LoansForBook covers any status.
	require.NoError(t, svc.ReturnLoan(l1.ID))
	history, err := svc.LoansForBook(b1.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	// On day 16 the renewed member loan is due day 25, staff loan day 30.
	*now = day0.AddDate(0, 0, 16)
	overdue, err := svc.OverdueLoans()
	require.NoError(t, err)
	assert.Empty(t, overdue)

	// Due within 15 days from day 16: the staff loan (due day 30) only —
	// the renewed loan is not status Active.
	dueSoon, err := svc.LoansDueWithin(15)
	require.NoError(t, err)
	require.Len(t, dueSoon, 1)
	assert.Equal(t, b3.ID, dueSoon[0].BookID)
}

func TestOverdueLoansRecomputed(t *testing.T) {
	svc, fs, now := newTestService(t)
	fs.addUser(1, NewMember("Ana", "Torres", "ana@campus.edu", "M-1"))
	b := fs.addBook(&Book{Title: "B", Author: "A"})

	_, err := svc.CreateLoan(b.ID, 1)
	require.NoError(t, err)

	overdue, err := svc.OverdueLoans()
	require.NoError(t, err)
	assert.Empty(t, overdue)

	*now = day0.AddDate(0, 0, 16)
	overdue, err = svc.OverdueLoans()
	require.NoError(t, err)
	assert.Len(t, overdue, 1)
}

func TestTotalFines(t *testing.T) {
	svc, fs, now := newTestService(t)
	fs.addUser(1, NewMember("Ana", "Torres", "ana@campus.edu", "M-1"))
	b1 := fs.addBook(&Book{Title: "B1", Author: "A"})
	b2 := fs.addBook(&Book{Title: "B2", Author: "A"})

	l1, err := svc.CreateLoan(b1.ID, 1)
	require.NoError(t, err)
	l2, err := svc.CreateLoan(b2.ID, 1)
	require.NoError(t, err)

	*now = day0.AddDate(0, 0, 18) // 3 days late
	require.NoError(t, svc.ReturnLoan(l1.ID))
	*now = day0.AddDate(0, 0, 20) // 5 days late
	require.NoError(t, svc.ReturnLoan(l2.ID))

	total, err := svc.TotalFines(1)
	require.NoError(t, err)
	assert.Equal(t, 8000.0, total)

	none, err := svc.TotalFines(2)
	require.NoError(t, err)
	assert.Equal(t, 0.0, none)
}

func TestStats(t *testing.T) {
	svc, fs, now := newTestService(t)
	fs.addUser(1, NewStaffMember("Carla", "Reyes", "carla@campus.edu", "E-1", "CS"))

	b1 := fs.addBook(&Book{Title: "B1", Author: "A"})
	b2 := fs.addBook(&Book{Title: "B2", Author: "A"})
	b3 := fs.addBook(&Book{Title: "B3", Author: "A"})

	l1, err := svc.CreateLoan(b1.ID, 1) // will be returned
	require.NoError(t, err)
	_, err = svc.CreateLoan(b2.ID, 1) // stays active
	require.NoError(t, err)
	_, err = svc.CreateLoan(b3.ID, 1) // will become overdue
	require.NoError(t, err)

	require.NoError(t, svc.ReturnLoan(l1.ID))

	// Staff loans run 30 days; day 31 makes the open ones overdue.
	*now = day0.AddDate(0, 0, 31)
	st, err := svc.Stats()
	require.NoError(t, err)
	assert.Equal(t, LoanStats{Total: 3, Active: 0, Overdue: 2, Returned: 1}, st)

	// Before the due date both open loans count as active.
	*now = day0.AddDate(0, 0, 5)
	st, err = svc.Stats()
	require.NoError(t, err)
	assert.Equal(t, LoanStats{Total: 3, Active: 2, Overdue: 0, Returned: 1}, st)
}

func TestCanBorrow(t *testing.T) {
	svc, fs, _ := newTestService(t)
	fs.addUser(1, NewMember("Ana", "Torres", "ana@campus.edu", "M-1"))

	ok, err := svc.CanBorrow(1)
	require.NoError(t, err)
	assert.True(t, ok)

	for i := 0; i < 3; i++ {
		b := fs.addBook(&Book{Title: fmt.Sprintf("B%d", i), Author: "A"})
		_, err := svc.CreateLoan(b.ID, 1)
		require.NoError(t, err)
	}
	ok, err = svc.CanBorrow(1)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.CanBorrow(42)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
