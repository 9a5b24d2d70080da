package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"campus-library/library"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const defaultDBFile = "library.db"

var mgr *library.LibraryManager

// readPassword securely reads a password with masking.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println() // newline after masked input
	return strings.TrimSpace(string(bytePassword)), nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func openManager() error {
	// .env is optional; environment variables win either way.
	_ = godotenv.Load()

	dbPath := os.Getenv("LIBRARY_DB")
	if dbPath == "" {
		dbPath = defaultDBFile
	}
	var fineRate float64
	if v := os.Getenv("LIBRARY_FINE_RATE"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid LIBRARY_FINE_RATE %q: %w", v, err)
		}
		fineRate = r
	}

	var err error
	mgr, err = library.NewLibraryManager(dbPath, fineRate)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	return nil
}

func main() {
	root := &cobra.Command{
		Use:           "campus-library",
		Short:         "Campus library management: catalog, borrowers and loans",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return openManager()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if mgr != nil {
				mgr.Close()
			}
		},
	}

	root.AddCommand(bookCmd(), userCmd(), loanCmd(), loginCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// book commands
// ---------------------------------------------------------------------------

func bookFlags(cmd *cobra.Command, in *library.BookInput) {
	cmd.Flags().StringVar(&in.ISBN, "isbn", "", "ISBN")
	cmd.Flags().StringVar(&in.Title, "title", "", "title")
	cmd.Flags().StringVar(&in.Author, "author", "", "author")
	cmd.Flags().StringVar(&in.Publisher, "publisher", "", "publisher")
	cmd.Flags().StringVar(&in.Category, "category", "", "category")
	cmd.Flags().IntVar(&in.Year, "year", 0, "publication year")
	cmd.Flags().IntVar(&in.Pages, "pages", 0, "page count")
	cmd.Flags().StringVar(&in.Shelf, "shelf", "", "shelf location")
	cmd.Flags().BoolVar(&in.Reference, "reference", false, "reference-only (never lent)")
}

func bookCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "book", Short: "Manage the catalog"}

	var addIn library.BookInput
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a book to the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := mgr.AddBook(addIn)
			if err != nil {
				return err
			}
			fmt.Printf("Added book ID %d\n", id)
			return nil
		},
	}
	bookFlags(add, &addIn)

	list := &cobra.Command{
		Use:   "list",
		Short: "List the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			books, err := mgr.ListBooks()
			if err != nil {
				return err
			}
			printBooks(books)
			return nil
		},
	}

	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Search by title, author, ISBN or category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			books, err := mgr.SearchBooks(args[0])
			if err != nil {
				return err
			}
			if len(books) == 0 {
				fmt.Printf("No books found matching %q.\n", args[0])
				return nil
			}
			printBooks(books)
			return nil
		},
	}

	var editIn library.BookInput
	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a book's metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := mgr.EditBook(id, editIn); err != nil {
				return err
			}
			fmt.Printf("Updated book %d\n", id)
			return nil
		},
	}
	bookFlags(edit, &editIn)

	status := &cobra.Command{
		Use:   "status <id> <available|maintenance|lost>",
		Short: "Set a book's circulation status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := mgr.SetBookStatus(id, library.BookStatus(args[1])); err != nil {
				return err
			}
			fmt.Printf("Book %d is now %s\n", id, args[1])
			return nil
		},
	}

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a book from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := mgr.DeleteBook(id); err != nil {
				return err
			}
			fmt.Printf("Removed book %d\n", id)
			return nil
		},
	}

	cmd.AddCommand(add, list, search, edit, status, rm)
	return cmd
}

func printBooks(books []*library.Book) {
	if len(books) == 0 {
		fmt.Println("No books in the catalog.")
		return
	}
	fmt.Printf("%-5s %-15s %-35s %-25s %-12s %s\n", "ID", "ISBN", "Title", "Author", "Status", "Shelf")
	fmt.Println(strings.Repeat("-", 105))
	for _, b := range books {
		status := string(b.Status)
		if b.Reference {
			status += " (ref)"
		}
		fmt.Printf("%-5d %-15s %-35s %-25s %-12s %s\n",
			b.ID, b.ISBN, truncateString(b.Title, 35), truncateString(b.Author, 25), status, b.Shelf)
	}
}

// ---------------------------------------------------------------------------
// user commands
// ---------------------------------------------------------------------------

func userCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "Manage borrowers"}

	var mIn library.MemberInput
	addMember := &cobra.Command{
		Use:   "add-member",
		Short: "Register a campus member",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(fmt.Sprintf("Password for %s: ", mIn.Email))
			if err != nil {
				return err
			}
			mIn.Password = pw
			id, err := mgr.RegisterMember(mIn)
			if err != nil {
				return err
			}
			fmt.Printf("Registered member ID %d\n", id)
			return nil
		},
	}
	addMember.Flags().StringVar(&mIn.GivenNames, "given", "", "given names")
	addMember.Flags().StringVar(&mIn.FamilyNames, "family", "", "family names")
	addMember.Flags().StringVar(&mIn.Email, "email", "", "email")
	addMember.Flags().StringVar(&mIn.Phone, "phone", "", "phone")
	addMember.Flags().StringVar(&mIn.Code, "code", "", "membership code")
	addMember.Flags().StringVar(&mIn.Program, "program", "", "academic program")
	addMember.Flags().IntVar(&mIn.Term, "term", 0, "term number")

	var gIn library.GraduateInput
	addGraduate := &cobra.Command{
		Use:   "add-graduate",
		Short: "Register a graduated member",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(fmt.Sprintf("Password for %s: ", gIn.Email))
			if err != nil {
				return err
			}
			gIn.Password = pw
			id, err := mgr.RegisterGraduate(gIn)
			if err != nil {
				return err
			}
			fmt.Printf("Registered graduate ID %d\n", id)
			return nil
		},
	}
	addGraduate.Flags().StringVar(&gIn.GivenNames, "given", "", "given names")
	addGraduate.Flags().StringVar(&gIn.FamilyNames, "family", "", "family names")
	addGraduate.Flags().StringVar(&gIn.Email, "email", "", "email")
	addGraduate.Flags().StringVar(&gIn.Phone, "phone", "", "phone")
	addGraduate.Flags().StringVar(&gIn.Code, "code", "", "membership code")
	addGraduate.Flags().StringVar(&gIn.Program, "program", "", "completed program")
	addGraduate.Flags().StringVar(&gIn.Degree, "degree", "", "degree title")
	addGraduate.Flags().StringVar(&gIn.GraduatedOn, "graduated", "", "graduation date")
	addGraduate.Flags().StringVar(&gIn.Postgrad, "postgrad", "", "postgraduate program")
	addGraduate.Flags().StringVar(&gIn.Employer, "employer", "", "employer")

	var sIn library.StaffInput
	addStaff := &cobra.Command{
		Use:   "add-staff",
		Short: "Register a staff borrower",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(fmt.Sprintf("Password for %s: ", sIn.Email))
			if err != nil {
				return err
			}
			sIn.Password = pw
			id, err := mgr.RegisterStaff(sIn)
			if err != nil {
				return err
			}
			fmt.Printf("Registered staff member ID %d\n", id)
			return nil
		},
	}
	addStaff.Flags().StringVar(&sIn.GivenNames, "given", "", "given names")
	addStaff.Flags().StringVar(&sIn.FamilyNames, "family", "", "family names")
	addStaff.Flags().StringVar(&sIn.Email, "email", "", "email")
	addStaff.Flags().StringVar(&sIn.Phone, "phone", "", "phone")
	addStaff.Flags().StringVar(&sIn.EmployeeCode, "employee-code", "", "employment code")
	addStaff.Flags().StringVar(&sIn.Department, "department", "", "department")
	addStaff.Flags().StringVar(&sIn.Specialty, "specialty", "", "specialty")
	addStaff.Flags().StringVar(&sIn.Contract, "contract", "", "full-time, half-time or adjunct")
	addStaff.Flags().StringVar(&sIn.AcademicTitle, "title", "", "academic title")
	addStaff.Flags().IntVar(&sIn.Experience, "experience", 0, "years of experience")

	var listKind string
	list := &cobra.Command{
		Use:   "list",
		Short: "List borrowers",
		RunE: func(cmd *cobra.Command, args []string) error {
			persons, err := mgr.ListPersons()
			if err != nil {
				return err
			}
			var shown int
			fmt.Printf("%-5s %-10s %-30s %-30s %-6s %s\n", "ID", "Kind", "Name", "Email", "Limit", "Days")
			fmt.Println(strings.Repeat("-", 95))
			for _, b := range persons {
				if listKind != "" && string(b.Kind()) != listKind {
					continue
				}
				p := b.Base()
				fmt.Printf("%-5d %-10s %-30s %-30s %-6d %d\n",
					p.ID, b.Kind(), truncateString(p.FullName(), 30),
					truncateString(p.Email, 30), b.LoanLimit(), b.LoanDays())
				shown++
			}
			if shown == 0 {
				fmt.Println("No borrowers found.")
			}
			return nil
		},
	}
	list.Flags().StringVar(&listKind, "kind", "", "filter by kind (member, graduate, staff)")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a borrower",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := mgr.DeletePerson(id); err != nil {
				return err
			}
			fmt.Printf("Removed borrower %d\n", id)
			return nil
		},
	}

	resetPassword := &cobra.Command{
		Use:   "reset-password <id>",
		Short: "Reset a borrower's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			b, err := mgr.GetPerson(id)
			if err != nil {
				return err
			}
			if b == nil {
				return fmt.Errorf("person %d does not exist", id)
			}
			pw, err := readPassword(fmt.Sprintf("New password for %s: ", b.Base().FullName()))
			if err != nil {
				return err
			}
			if err := mgr.ResetPassword(id, pw); err != nil {
				return err
			}
			fmt.Printf("Password reset for %s (ID %d)\n", b.Base().FullName(), id)
			return nil
		},
	}

	cmd.AddCommand(addMember, addGraduate, addStaff, list, rm, resetPassword)
	return cmd
}

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <email>",
		Short: "Verify credentials",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword("Password: ")
			if err != nil {
				return err
			}
			b, err := mgr.Authenticate(args[0], pw)
			if err != nil {
				return err
			}
			fmt.Printf("Welcome, %s (%s)\n", b.Base().FullName(), b.Kind())
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// loan commands
// ---------------------------------------------------------------------------

func loanCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "loan", Short: "Manage loans"}

	create := &cobra.Command{
		Use:   "create <book-id> <user-id>",
		Short: "Lend a book to a borrower",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID(args[0])
			if err != nil {
				return err
			}
			userID, err := parseID(args[1])
			if err != nil {
				return err
			}
			loan, err := mgr.CreateLoan(bookID, userID)
			if err != nil {
				return err
			}
			fmt.Printf("Loan %d created, due %s\n", loan.ID, loan.DueDate.Format("2006-01-02"))
			return nil
		},
	}

	ret := &cobra.Command{
		Use:   "return <loan-id>",
		Short: "Process a return",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := mgr.ReturnLoan(id); err != nil {
				return err
			}
			loan, err := mgr.GetLoan(id)
			if err != nil {
				return err
			}
			if loan.Fine > 0 {
				fmt.Printf("Loan %d returned with a fine of %.0f\n", id, loan.Fine)
			} else {
				fmt.Printf("Loan %d returned\n", id)
			}
			return nil
		},
	}

	renew := &cobra.Command{
		Use:   "renew <loan-id> <extra-days>",
		Short: "Extend a loan's due date",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			days, err := strconv.Atoi(args[1])
			if err != nil || days <= 0 {
				return fmt.Errorf("invalid day count %q", args[1])
			}
			if err := mgr.RenewLoan(id, days); err != nil {
				return err
			}
			loan, err := mgr.GetLoan(id)
			if err != nil {
				return err
			}
			fmt.Printf("Loan %d renewed, now due %s\n", id, loan.DueDate.Format("2006-01-02"))
			return nil
		},
	}

	rm := &cobra.Command{
		Use:   "rm <loan-id>",
		Short: "Delete a loan record (open loans release their book)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := mgr.DeleteLoan(id); err != nil {
				return err
			}
			fmt.Printf("Loan %d deleted\n", id)
			return nil
		},
	}

	note := &cobra.Command{
		Use:   "note <loan-id> <text>",
		Short: "Set the notes on a loan",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return mgr.AnnotateLoan(id, strings.Join(args[1:], " "))
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every loan",
		RunE: func(cmd *cobra.Command, args []string) error {
			loans, err := mgr.ListLoans()
			if err != nil {
				return err
			}
			printLoans(loans)
			return nil
		},
	}

	byUser := &cobra.Command{
		Use:   "user <user-id>",
		Short: "Active loans for a borrower",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			loans, err := mgr.ActiveLoansFor(id)
			if err != nil {
				return err
			}
			printLoans(loans)
			return nil
		},
	}

	byBook := &cobra.Command{
		Use:   "book <book-id>",
		Short: "Loan history of a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			loans, err := mgr.LoansForBook(id)
			if err != nil {
				return err
			}
			printLoans(loans)
			return nil
		},
	}

	overdue := &cobra.Command{
		Use:   "overdue",
		Short: "List overdue loans",
		RunE: func(cmd *cobra.Command, args []string) error {
			loans, err := mgr.OverdueLoans()
			if err != nil {
				return err
			}
			printLoans(loans)
			return nil
		},
	}

	due := &cobra.Command{
		Use:   "due <days>",
		Short: "Loans due within N days",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			days, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid day count %q", args[0])
			}
			loans, err := mgr.LoansDueWithin(days)
			if err != nil {
				return err
			}
			printLoans(loans)
			return nil
		},
	}

	fines := &cobra.Command{
		Use:   "fines <user-id>",
		Short: "Total fines charged to a borrower",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			total, err := mgr.TotalFines(id)
			if err != nil {
				return err
			}
			fmt.Printf("Total fines for user %d: %.0f\n", id, total)
			return nil
		},
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Aggregate loan counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := mgr.Stats()
			if err != nil {
				return err
			}
			fmt.Printf("Total: %d  Active: %d  Overdue: %d  Returned: %d\n",
				st.Total, st.Active, st.Overdue, st.Returned)
			return nil
		},
	}

	cmd.AddCommand(create, ret, renew, rm, note, list, byUser, byBook, overdue, due, fines, stats)
	return cmd
}

func printLoans(loans []*library.Loan) {
	if len(loans) == 0 {
		fmt.Println("No loans.")
		return
	}
	now := time.Now()
	fmt.Printf("%-5s %-7s %-7s %-10s %-12s %-12s %-20s %s\n",
		"ID", "Book", "User", "Kind", "Loaned", "Due", "Status", "Fine")
	fmt.Println(strings.Repeat("-", 90))
	for _, l := range loans {
		fmt.Printf("%-5d %-7d %-7d %-10s %-12s %-12s %-20s %.0f\n",
			l.ID, l.BookID, l.UserID, l.UserKind,
			l.LoanDate.Format("2006-01-02"), l.DueDate.Format("2006-01-02"),
			l.Describe(now), l.Fine)
	}
}

func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength-3] + "..."
}
