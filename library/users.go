package library

// UserKind tags the concrete borrower variant on loans and person rows.
type UserKind string

const (
	KindMember   UserKind = "member"
	KindGraduate UserKind = "graduate"
	KindStaff    UserKind = "staff"
	KindUnknown  UserKind = "unknown"
)

// ActivityStatus is a member's standing with the institution.
type ActivityStatus string

const (
	StatusActive    ActivityStatus = "active"
	StatusInactive  ActivityStatus = "inactive"
	StatusGraduated ActivityStatus = "graduated"
)

// ContractType is a staff member's employment arrangement.
type ContractType string

const (
	ContractFullTime ContractType = "full-time"
	ContractHalfTime ContractType = "half-time"
	ContractAdjunct  ContractType = "adjunct"
)

// Fallback borrowing policy for rows whose kind tag is not recognized.
const (
	defaultLoanLimit = 2
	defaultLoanDays  = 7
)

// Borrower is the capability set the loan service needs from any user
// variant: identity plus the per-kind borrowing policy. Limits and durations
// are resolved here, never by type inspection in callers.
type Borrower interface {
	Base() *Person
	Kind() UserKind
	LoanLimit() int
	LoanDays() int
}

// Person holds the identity fields shared by every borrower kind. It also
// serves as the fallback variant for unrecognized kind tags.
type Person struct {
	ID           int64  `json:"id"`
	GivenNames   string `json:"given_names"`
	FamilyNames  string `json:"family_names"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	PasswordHash string `json:"-"` // never serialized
}

func (p *Person) Base() *Person { return p }

func (p *Person) FullName() string { return p.GivenNames + " " + p.FamilyNames }

func (p *Person) Kind() UserKind { return KindUnknown }

func (p *Person) LoanLimit() int { return defaultLoanLimit }

func (p *Person) LoanDays() int { return defaultLoanDays }

// Member is a campus member in an academic program.
type Member struct {
	Person
	Code     string         `json:"code"`
	Program  string         `json:"program"`
	Term     int            `json:"term"`
	Activity ActivityStatus `json:"activity"`
}

// NewMember creates a member in good standing.
func NewMember(given, family, email, code string) *Member {
	return &Member{
		Person:   Person{GivenNames: given, FamilyNames: family, Email: email},
		Code:     code,
		Activity: StatusActive,
	}
}

func (m *Member) Kind() UserKind { return KindMember }

func (m *Member) LoanLimit() int { return 3 }

func (m *Member) LoanDays() int { return 15 }

func (m *Member) IsActive() bool { return m.Activity == StatusActive }

// GraduateMember is a member who completed their program. Graduates keep
// borrowing rights with a higher limit; their activity status is always
// graduated.
type GraduateMember struct {
	Member
	Degree      string `json:"degree"`
	GraduatedOn string `json:"graduated_on"`
	Postgrad    string `json:"postgrad,omitempty"`
	Employer    string `json:"employer,omitempty"`
}

func NewGraduateMember(given, family, email, code, degree string) *GraduateMember {
	g := &GraduateMember{
		Member: Member{
			Person: Person{GivenNames: given, FamilyNames: family, Email: email},
			Code:   code,
		},
		Degree: degree,
	}
	g.Activity = StatusGraduated
	return g
}

func (g *GraduateMember) Kind() UserKind { return KindGraduate }

func (g *GraduateMember) LoanLimit() int { return 5 }

func (g *GraduateMember) HasPostgrad() bool { return g.Postgrad != "" }

// StaffMember is an instructor or staff borrower.
type StaffMember struct {
	Person
	EmployeeCode  string       `json:"employee_code"`
	Department    string       `json:"department"`
	Specialty     string       `json:"specialty"`
	Contract      ContractType `json:"contract"`
	AcademicTitle string       `json:"academic_title"`
	Experience    int          `json:"experience"` // years
}

// NewStaffMember creates a staff borrower with the default adjunct contract.
func NewStaffMember(given, family, email, employeeCode, department string) *StaffMember {
	return &StaffMember{
		Person:       Person{GivenNames: given, FamilyNames: family, Email: email},
		EmployeeCode: employeeCode,
		Department:   department,
		Contract:     ContractAdjunct,
	}
}

func (s *StaffMember) Kind() UserKind { return KindStaff }

// LoanLimit depends on the contract type. Unrecognized contracts borrow
// at the adjunct limit.
func (s *StaffMember) LoanLimit() int {
	switch s.Contract {
	case ContractFullTime:
		return 10
	case ContractHalfTime:
		return 7
	default:
		return 5
	}
}

func (s *StaffMember) LoanDays() int { return 30 }

func (s *StaffMember) IsFullTime() bool { return s.Contract == ContractFullTime }
