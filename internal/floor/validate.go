package floor

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// Limits on customer input.
const (
	MinPartySize = 1
	MaxPartySize = 20
	minNameLen   = 2
	maxNameLen   = 100
	minPhoneLen  = 10
)

var emailRE = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateName requires 2..100 characters after trimming.
func ValidateName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < minNameLen || n > maxNameLen {
		return fmt.Errorf("customer name must be %d to %d characters", minNameLen, maxNameLen)
	}
	return nil
}

// ValidatePhone requires at least 10 digits, ignoring formatting.
func ValidatePhone(phone string) error {
	if len(DigitsOnly(phone)) < minPhoneLen {
		return fmt.Errorf("phone number must have at least %d digits", minPhoneLen)
	}
	return nil
}

// ValidateEmail accepts an empty value.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" || emailRE.MatchString(email) {
		return nil
	}
	return errors.New("email address is not valid")
}

// ValidatePartySize requires 1..20 guests.
func ValidatePartySize(n int) error {
	if n < MinPartySize || n > MaxPartySize {
		return fmt.Errorf("party size must be between %d and %d", MinPartySize, MaxPartySize)
	}
	return nil
}

// ValidateDate requires YYYY-MM-DD.
func ValidateDate(d string) error {
	if _, err := time.Parse("2006-01-02", d); err != nil {
		return fmt.Errorf("date %q must be YYYY-MM-DD", d)
	}
	return nil
}

// ValidateTime requires HH:MM.
func ValidateTime(t string) error {
	_, err := ParseClock(t)
	return err
}

// Customer holds the contact fields shared by reservations and the waitlist.
type Customer struct {
	Name  string
	Phone string
	Email string
}

// Validate checks all contact fields and joins every failure.
func (c Customer) Validate() error {
	return errors.Join(ValidateName(c.Name), ValidatePhone(c.Phone), ValidateEmail(c.Email))
}
