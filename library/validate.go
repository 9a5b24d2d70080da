package library

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// BookInput is the form payload for creating or editing a catalog item.
type BookInput struct {
	ISBN      string `validate:"required"`
	Title     string `validate:"required"`
	Author    string `validate:"required"`
	Publisher string
	Category  string
	Year      int `validate:"omitempty,gte=0,lte=2100"`
	Pages     int `validate:"omitempty,gte=0"`
	Shelf     string
	Reference bool
}

func (in *BookInput) Validate() error { return validate.Struct(in) }

func (in *BookInput) toBook() *Book {
	return &Book{
		ISBN:      in.ISBN,
		Title:     in.Title,
		Author:    in.Author,
		Publisher: in.Publisher,
		Category:  in.Category,
		Year:      in.Year,
		Pages:     in.Pages,
		Shelf:     in.Shelf,
		Status:    BookAvailable,
		Reference: in.Reference,
	}
}

// MemberInput is the form payload for registering a campus member.
type MemberInput struct {
	GivenNames  string `validate:"required"`
	FamilyNames string `validate:"required"`
	Email       string `validate:"required,email"`
	Phone       string
	Code        string `validate:"required"`
	Program     string
	Term        int    `validate:"omitempty,gte=1"`
	Password    string `validate:"required,min=6"`
}

func (in *MemberInput) Validate() error { return validate.Struct(in) }

// GraduateInput extends MemberInput with graduation metadata.
type GraduateInput struct {
	MemberInput
	Degree      string `validate:"required"`
	GraduatedOn string
	Postgrad    string
	Employer    string
}

func (in *GraduateInput) Validate() error { return validate.Struct(in) }

// StaffInput is the form payload for registering a staff borrower.
type StaffInput struct {
	GivenNames    string `validate:"required"`
	FamilyNames   string `validate:"required"`
	Email         string `validate:"required,email"`
	Phone         string
	EmployeeCode  string `validate:"required"`
	Department    string `validate:"required"`
	Specialty     string
	Contract      string `validate:"omitempty,oneof=full-time half-time adjunct"`
	AcademicTitle string
	Experience    int    `validate:"omitempty,gte=0"`
	Password      string `validate:"required,min=6"`
}

func (in *StaffInput) Validate() error { return validate.Struct(in) }
