package library

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for a bad email/password pair. The same
// error covers unknown emails so login failures do not leak which part was
// wrong.
var ErrInvalidCredentials = errors.New("invalid email or password")

// SetPassword hashes and stores a new password for the person.
func (d *Database) SetPassword(personID int64, password string) error {
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("password cannot be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	res, err := d.db.Exec(`UPDATE persons SET password_hash=? WHERE id=?`, string(hash), personID)
	if err != nil {
		return err
	}
	return requireRow(res, "person", personID)
}

// Authenticate verifies the email/password pair and returns the concrete
// borrower on success.
func (d *Database) Authenticate(email, password string) (Borrower, error) {
	b, err := d.GetPersonByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("look up %s: %w", email, err)
	}
	if b == nil || b.Base().PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(b.Base().PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return b, nil
}
