// Package form holds the in-progress values of the credential form.
package form

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownField is returned for a field name outside the credential form.
var ErrUnknownField = errors.New("form: unknown field")

// Field identifies one input of the credential form.
type Field int

const (
	FieldEmail Field = iota
	FieldPassword
	FieldConfirmPassword
	FieldUsername
	FieldPhone
	FieldDateOfBirth
)

var fieldNames = map[Field]string{
	FieldEmail:           "email",
	FieldPassword:        "password",
	FieldConfirmPassword: "confirmPassword",
	FieldUsername:        "username",
	FieldPhone:           "phone",
	FieldDateOfBirth:     "dateOfBirth",
}

func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Field(%d)", int(f))
}

// ParseField maps a wire name such as "confirmPassword" to a Field.
func ParseField(name string) (Field, error) {
	for f, n := range fieldNames {
		if n == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownField, name)
}

// Data is the credential form record. Values are never validated here.
type Data struct {
	Email           string `json:"email"`
	Password        string `json:"-"`
	ConfirmPassword string `json:"-"`
	Username        string `json:"username"`
	Phone           string `json:"phone"`
	DateOfBirth     string `json:"dateOfBirth"`
}

// Get returns the value of f.
func (d Data) Get(f Field) string {
	switch f {
	case FieldEmail:
		return d.Email
	case FieldPassword:
		return d.Password
	case FieldConfirmPassword:
		return d.ConfirmPassword
	case FieldUsername:
		return d.Username
	case FieldPhone:
		return d.Phone
	case FieldDateOfBirth:
		return d.DateOfBirth
	default:
		panic(fmt.Sprintf("form: unhandled field %v", f))
	}
}

// With returns a copy of d with f set to value.
func (d Data) With(f Field, value string) Data {
	switch f {
	case FieldEmail:
		d.Email = value
	case FieldPassword:
		d.Password = value
	case FieldConfirmPassword:
		d.ConfirmPassword = value
	case FieldUsername:
		d.Username = value
	case FieldPhone:
		d.Phone = value
	case FieldDateOfBirth:
		d.DateOfBirth = value
	default:
		panic(fmt.Sprintf("form: unhandled field %v", f))
	}
	return d
}

// Store owns the current form record. Every mutation replaces the whole record.
type Store struct {
	mu   sync.RWMutex
	data Data
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Data returns a snapshot of the current record.
func (s *Store) Data() Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// Get returns the current value of f.
func (s *Store) Get(f Field) string {
	return s.Data().Get(f)
}

// Set replaces the record with one where f holds value, and returns the new record.
func (s *Store) Set(f Field, value string) Data {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = s.data.With(f, value)
	return s.data
}

// Apply sets several fields by wire name as a single replacement. Nothing changes if
// any name is unknown.
func (s *Store) Apply(edits map[string]string) (Data, error) {
	fields := make(map[Field]string, len(edits))
	for name, value := range edits {
		f, err := ParseField(name)
		if err != nil {
			return s.Data(), err
		}
		fields[f] = value
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.data
	for f, value := range fields {
		next = next.With(f, value)
	}
	s.data = next
	return next, nil
}

// Reset clears every field.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = Data{}
}
