package library

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Database provides high-level helpers around a SQLite connection. It
// implements BookStore, PersonStore and LoanStore for the loan service.
type Database struct {
	db *sql.DB

	addBookStmt   *sql.Stmt
	addPersonStmt *sql.Stmt
}

// NewDatabase opens (or creates) the SQLite database at dbPath, applies schema
// migrations, and prepares common statements.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// Enable busy_timeout and foreign keys.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	database := &Database{db: db}
	if err := database.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return database, nil
}

// Close releases prepared statements and closes the DB.
func (d *Database) Close() error {
	if d.addBookStmt != nil {
		d.addBookStmt.Close()
	}
	if d.addPersonStmt != nil {
		d.addPersonStmt.Close()
	}
	return d.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	// WAL improves write concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		// One row per person; kind-specific columns sit empty for the
		// kinds that do not use them.
		`CREATE TABLE IF NOT EXISTS persons (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            kind TEXT NOT NULL,
            given_names TEXT NOT NULL,
            family_names TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            phone TEXT NOT NULL DEFAULT '',
            password_hash TEXT NOT NULL DEFAULT '',
            code TEXT NOT NULL DEFAULT '',
            program TEXT NOT NULL DEFAULT '',
            term INTEGER NOT NULL DEFAULT 0,
            activity TEXT NOT NULL DEFAULT '',
            degree TEXT NOT NULL DEFAULT '',
            graduated_on TEXT NOT NULL DEFAULT '',
            postgrad TEXT NOT NULL DEFAULT '',
            employer TEXT NOT NULL DEFAULT '',
            employee_code TEXT NOT NULL DEFAULT '',
            department TEXT NOT NULL DEFAULT '',
            specialty TEXT NOT NULL DEFAULT '',
            contract TEXT NOT NULL DEFAULT '',
            academic_title TEXT NOT NULL DEFAULT '',
            experience INTEGER NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS books (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            isbn TEXT NOT NULL DEFAULT '',
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            publisher TEXT NOT NULL DEFAULT '',
            category TEXT NOT NULL DEFAULT '',
            year INTEGER NOT NULL DEFAULT 0,
            pages INTEGER NOT NULL DEFAULT 0,
            shelf TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'available',
            is_reference BOOLEAN NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS loans (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            book_id INTEGER NOT NULL REFERENCES books(id),
            user_id INTEGER NOT NULL REFERENCES persons(id),
            user_kind TEXT NOT NULL,
            loan_date DATETIME NOT NULL,
            due_date DATETIME NOT NULL,
            returned_at DATETIME,
            status TEXT NOT NULL,
            notes TEXT NOT NULL DEFAULT '',
            fine REAL NOT NULL DEFAULT 0
        );`,
		`CREATE INDEX IF NOT EXISTS idx_loans_user ON loans(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_loans_book ON loans(book_id);`,
		`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt, schemaVersion); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (d *Database) prepareStatements() error {
	var err error
	if d.addBookStmt, err = d.db.Prepare(`INSERT INTO books
        (isbn,title,author,publisher,category,year,pages,shelf,status,is_reference)
        VALUES(?,?,?,?,?,?,?,?,?,?)`); err != nil {
		return err
	}
	if d.addPersonStmt, err = d.db.Prepare(`INSERT INTO persons
        (kind,given_names,family_names,email,phone,code,program,term,activity,
         degree,graduated_on,postgrad,employer,
         employee_code,department,specialty,contract,academic_title,experience)
        VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Books
// ---------------------------------------------------------------------------

const bookCols = `id,isbn,title,author,publisher,category,year,pages,shelf,status,is_reference`

// AddBook inserts a catalog item. A zero Status defaults to Available.
func (d *Database) AddBook(b *Book) (int64, error) {
	if b.Status == "" {
		b.Status = BookAvailable
	}
	res, err := d.addBookStmt.Exec(b.ISBN, b.Title, b.Author, b.Publisher, b.Category,
		b.Year, b.Pages, b.Shelf, string(b.Status), b.Reference)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(r rowScanner) (*Book, error) {
	var b Book
	var status string
	if err := r.Scan(&b.ID, &b.ISBN, &b.Title, &b.Author, &b.Publisher, &b.Category,
		&b.Year, &b.Pages, &b.Shelf, &status, &b.Reference); err != nil {
		return nil, err
	}
	b.Status = BookStatus(status)
	return &b, nil
}

// GetBook fetches one book; (nil, nil) when the id does not exist.
func (d *Database) GetBook(id int64) (*Book, error) {
	b, err := scanBook(d.db.QueryRow(`SELECT `+bookCols+` FROM books WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

// ListBooks returns the whole catalog ordered by id.
func (d *Database) ListBooks() ([]*Book, error) {
	rows, err := d.db.Query(`SELECT ` + bookCols + ` FROM books ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []*Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// SearchBooks matches the query against title, author, ISBN and category.
func (d *Database) SearchBooks(q string) ([]*Book, error) {
	if strings.TrimSpace(q) == "" {
		return []*Book{}, nil
	}
	pat := "%" + q + "%"
	rows, err := d.db.Query(`SELECT `+bookCols+` FROM books
        WHERE title LIKE ? OR author LIKE ? OR isbn LIKE ? OR category LIKE ?
        ORDER BY title`, pat, pat, pat, pat)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, b)
	}
	return results, rows.Err()
}

// UpdateBook rewrites every editable column of the book.
func (d *Database) UpdateBook(b *Book) error {
	res, err := d.db.Exec(`UPDATE books SET isbn=?, title=?, author=?, publisher=?,
        category=?, year=?, pages=?, shelf=?, status=?, is_reference=? WHERE id=?`,
		b.ISBN, b.Title, b.Author, b.Publisher, b.Category, b.Year, b.Pages, b.Shelf,
		string(b.Status), b.Reference, b.ID)
	if err != nil {
		return err
	}
	return requireRow(res, "book", b.ID)
}

// SetBookStatus updates only the circulation state.
func (d *Database) SetBookStatus(id int64, status BookStatus) error {
	res, err := d.db.Exec(`UPDATE books SET status=? WHERE id=?`, string(status), id)
	if err != nil {
		return err
	}
	return requireRow(res, "book", id)
}

// DeleteBook removes a catalog item. Books with recorded loans are kept by
// the foreign key and the delete fails.
func (d *Database) DeleteBook(id int64) error {
	res, err := d.db.Exec(`DELETE FROM books WHERE id=?`, id)
	if err != nil {
		return err
	}
	return requireRow(res, "book", id)
}

// ---------------------------------------------------------------------------
// Persons
// ---------------------------------------------------------------------------

const personCols = `id,kind,given_names,family_names,email,phone,password_hash,
    code,program,term,activity,degree,graduated_on,postgrad,employer,
    employee_code,department,specialty,contract,academic_title,experience`

// AddPerson inserts a borrower of any concrete kind and returns the assigned
// id. Graduates are stored with activity forced to graduated.
func (d *Database) AddPerson(b Borrower) (int64, error) {
	p := b.Base()
	var (
		code, program                                      string
		term                                               int
		activity                                           ActivityStatus
		degree, graduatedOn, postgrad, employer            string
		employeeCode, department, specialty, academicTitle string
		contract                                           ContractType
		experience                                         int
	)

	switch v := b.(type) {
	case *GraduateMember:
		code, program, term = v.Code, v.Program, v.Term
		activity = StatusGraduated
		degree, graduatedOn, postgrad, employer = v.Degree, v.GraduatedOn, v.Postgrad, v.Employer
	case *Member:
		code, program, term = v.Code, v.Program, v.Term
		activity = v.Activity
		if activity == "" {
			activity = StatusActive
		}
	case *StaffMember:
		employeeCode, department, specialty = v.EmployeeCode, v.Department, v.Specialty
		contract = v.Contract
		if contract == "" {
			contract = ContractAdjunct
		}
		academicTitle, experience = v.AcademicTitle, v.Experience
	}

	res, err := d.addPersonStmt.Exec(string(b.Kind()), p.GivenNames, p.FamilyNames,
		p.Email, p.Phone, code, program, term, string(activity),
		degree, graduatedOn, postgrad, employer,
		employeeCode, department, specialty, string(contract), academicTitle, experience)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// scanPerson hydrates the concrete variant for the row's kind tag. Rows with
// an unrecognized tag come back as the bare Person fallback.
func scanPerson(r rowScanner) (Borrower, error) {
	var (
		p                                       Person
		kind, code, program, activity           string
		term                                    int
		degree, graduatedOn, postgrad, employer string
		employeeCode, department, specialty     string
		contract, academicTitle                 string
		experience                              int
	)
	if err := r.Scan(&p.ID, &kind, &p.GivenNames, &p.FamilyNames, &p.Email, &p.Phone,
		&p.PasswordHash, &code, &program, &term, &activity,
		&degree, &graduatedOn, &postgrad, &employer,
		&employeeCode, &department, &specialty, &contract, &academicTitle, &experience); err != nil {
		return nil, err
	}

	switch UserKind(kind) {
	case KindMember:
		return &Member{Person: p, Code: code, Program: program, Term: term,
			Activity: ActivityStatus(activity)}, nil
	case KindGraduate:
		return &GraduateMember{
			Member: Member{Person: p, Code: code, Program: program, Term: term,
				Activity: StatusGraduated},
			Degree: degree, GraduatedOn: graduatedOn, Postgrad: postgrad, Employer: employer,
		}, nil
	case KindStaff:
		return &StaffMember{Person: p, EmployeeCode: employeeCode, Department: department,
			Specialty: specialty, Contract: ContractType(contract),
			AcademicTitle: academicTitle, Experience: experience}, nil
	default:
		return &p, nil
	}
}

// GetPerson fetches one borrower; (nil, nil) when the id does not exist.
func (d *Database) GetPerson(id int64) (Borrower, error) {
	b, err := scanPerson(d.db.QueryRow(`SELECT `+personCols+` FROM persons WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

// GetPersonByEmail fetches one borrower by email; (nil, nil) when absent.
func (d *Database) GetPersonByEmail(email string) (Borrower, error) {
	b, err := scanPerson(d.db.QueryRow(`SELECT `+personCols+` FROM persons WHERE email=?`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

// ListPersons returns every borrower ordered by id.
func (d *Database) ListPersons() ([]Borrower, error) {
	rows, err := d.db.Query(`SELECT ` + personCols + ` FROM persons ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var persons []Borrower
	for rows.Next() {
		b, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		persons = append(persons, b)
	}
	return persons, rows.Err()
}

// UpdatePerson rewrites the identity and kind-specific columns for the
// borrower's id. The kind tag itself is immutable.
func (d *Database) UpdatePerson(b Borrower) error {
	p := b.Base()
	var (
		code, program                                      string
		term                                               int
		activity                                           ActivityStatus
		degree, graduatedOn, postgrad, employer            string
		employeeCode, department, specialty, academicTitle string
		contract                                           ContractType
		experience                                         int
	)
	switch v := b.(type) {
	case *GraduateMember:
		code, program, term = v.Code, v.Program, v.Term
		activity = StatusGraduated
		degree, graduatedOn, postgrad, employer = v.Degree, v.GraduatedOn, v.Postgrad, v.Employer
	case *Member:
		code, program, term, activity = v.Code, v.Program, v.Term, v.Activity
	case *StaffMember:
		employeeCode, department, specialty = v.EmployeeCode, v.Department, v.Specialty
		contract, academicTitle, experience = v.Contract, v.AcademicTitle, v.Experience
	}

	res, err := d.db.Exec(`UPDATE persons SET given_names=?, family_names=?, email=?,
        phone=?, code=?, program=?, term=?, activity=?, degree=?, graduated_on=?,
        postgrad=?, employer=?, employee_code=?, department=?, specialty=?, contract=?,
        academic_title=?, experience=? WHERE id=?`,
		p.GivenNames, p.FamilyNames, p.Email, p.Phone, code, program, term,
		string(activity), degree, graduatedOn, postgrad, employer,
		employeeCode, department, specialty, string(contract), academicTitle, experience,
		p.ID)
	if err != nil {
		return err
	}
	return requireRow(res, "person", p.ID)
}

// DeletePerson removes a borrower. Persons with recorded loans are kept by
// the foreign key and the delete fails.
func (d *Database) DeletePerson(id int64) error {
	res, err := d.db.Exec(`DELETE FROM persons WHERE id=?`, id)
	if err != nil {
		return err
	}
	return requireRow(res, "person", id)
}

// ---------------------------------------------------------------------------
// Loans
// ---------------------------------------------------------------------------

const loanCols = `id,book_id,user_id,user_kind,loan_date,due_date,returned_at,status,notes,fine`

func scanLoan(r rowScanner) (*Loan, error) {
	var (
		l          Loan
		kind       string
		status     string
		returnedAt sql.NullTime
	)
	if err := r.Scan(&l.ID, &l.BookID, &l.UserID, &kind, &l.LoanDate, &l.DueDate,
		&returnedAt, &status, &l.Notes, &l.Fine); err != nil {
		return nil, err
	}
	l.UserKind = UserKind(kind)
	l.Status = LoanStatus(status)
	if returnedAt.Valid {
		t := returnedAt.Time
		l.ReturnedAt = &t
	}
	return &l, nil
}

// GetLoan fetches one loan; (nil, nil) when the id does not exist.
func (d *Database) GetLoan(id int64) (*Loan, error) {
	l, err := scanLoan(d.db.QueryRow(`SELECT `+loanCols+` FROM loans WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return l, err
}

// ListLoans returns every loan ordered by id.
func (d *Database) ListLoans() ([]*Loan, error) {
	rows, err := d.db.Query(`SELECT ` + loanCols + ` FROM loans ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loans []*Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

// CreateLoan records the loan and flips the book to Loaned in one
// transaction. Availability is re-checked inside the transaction so a crash
// or race cannot leave a loaned book without its loan row.
func (d *Database) CreateLoan(l *Loan) (int64, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var status string
	var reference bool
	err = tx.QueryRow(`SELECT status, is_reference FROM books WHERE id=?`, l.BookID).
		Scan(&status, &reference)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("book %d does not exist", l.BookID)
	}
	if err != nil {
		return 0, err
	}
	if BookStatus(status) != BookAvailable || reference {
		return 0, fmt.Errorf("book %d is not available", l.BookID)
	}

	res, err := tx.Exec(`INSERT INTO loans
        (book_id,user_id,user_kind,loan_date,due_date,status,notes,fine)
        VALUES(?,?,?,?,?,?,?,?)`,
		l.BookID, l.UserID, string(l.UserKind), l.LoanDate, l.DueDate,
		string(l.Status), l.Notes, l.Fine)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if _, err := tx.Exec(`UPDATE books SET status=? WHERE id=?`,
		string(BookLoaned), l.BookID); err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// CloseLoan writes the return fields and flips the book back to Available in
// one transaction.
func (d *Database) CloseLoan(l *Loan) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE loans SET returned_at=?, status=?, fine=? WHERE id=?`,
		l.ReturnedAt, string(l.Status), l.Fine, l.ID)
	if err != nil {
		return err
	}
	if err := requireRow(res, "loan", l.ID); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE books SET status=? WHERE id=?`,
		string(BookAvailable), l.BookID); err != nil {
		return err
	}
	return tx.Commit()
}

// RenewLoan persists an extended due date and the Renewed status.
func (d *Database) RenewLoan(l *Loan) error {
	res, err := d.db.Exec(`UPDATE loans SET due_date=?, status=? WHERE id=?`,
		l.DueDate, string(l.Status), l.ID)
	if err != nil {
		return err
	}
	return requireRow(res, "loan", l.ID)
}

// UpdateLoanNotes replaces the free-text notes.
func (d *Database) UpdateLoanNotes(id int64, notes string) error {
	res, err := d.db.Exec(`UPDATE loans SET notes=? WHERE id=?`, notes, id)
	if err != nil {
		return err
	}
	return requireRow(res, "loan", id)
}

// DeleteLoan removes the loan row. An open loan releases its book back to
// Available in the same transaction.
func (d *Database) DeleteLoan(id int64) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var bookID int64
	var status string
	err = tx.QueryRow(`SELECT book_id, status FROM loans WHERE id=?`, id).
		Scan(&bookID, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("loan %d does not exist", id)
	}
	if err != nil {
		return err
	}

	st := LoanStatus(status)
	if st == LoanActive || st == LoanRenewed {
		if _, err := tx.Exec(`UPDATE books SET status=? WHERE id=?`,
			string(BookAvailable), bookID); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(`DELETE FROM loans WHERE id=?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// requireRow converts a zero-row update/delete into a not-found error.
func requireRow(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d does not exist", entity, id)
	}
	return nil
}
