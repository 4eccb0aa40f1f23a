package auth

import (
	"strings"

	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/identity/entity"
	"github.com/ovaphlow/pitchfork/service-task-tracker/internal/validation"
)

// RegisterRequest is the raw registration body.
type RegisterRequest struct {
	FirstName  string  `json:"firstName"`
	LastName   string  `json:"lastName"`
	MiddleName *string `json:"middleName"`
	Login      string  `json:"login"`
	Password   string  `json:"password"`
	ManagerID  *int64  `json:"managerId"`
}

// RegisterCommand is a validated registration.
type RegisterCommand struct {
	Identity entity.NewIdentity
	Password string
}

// Command trims and validates the request.
func (r RegisterRequest) Command() (RegisterCommand, error) {
	var ve validation.Error

	first := strings.TrimSpace(r.FirstName)
	switch {
	case first == "":
		ve.Add("firstName", "first name is required")
	case !validation.IsPersonName(first):
		ve.Add("firstName", "first name must contain only letters")
	}
	last := strings.TrimSpace(r.LastName)
	switch {
	case last == "":
		ve.Add("lastName", "last name is required")
	case !validation.IsPersonName(last):
		ve.Add("lastName", "last name must contain only letters")
	}
	var middle *string
	if r.MiddleName != nil {
		if m := strings.TrimSpace(*r.MiddleName); m != "" {
			if !validation.IsPersonName(m) {
				ve.Add("middleName", "middle name must contain only letters")
			}
			middle = &m
		}
	}
	login := strings.TrimSpace(r.Login)
	switch {
	case login == "":
		ve.Add("login", "login is required")
	case !validation.IsLogin(login):
		ve.Add("login", "login must be 4-16 letters, digits, '_' or '-'")
	}
	for _, p := range validation.PasswordProblems(r.Password) {
		ve.Add("password", "password "+p)
	}
	if r.ManagerID != nil && *r.ManagerID <= 0 {
		ve.Add("managerId", "manager not found")
	}
	if err := ve.Err(); err != nil {
		return RegisterCommand{}, err
	}
	return RegisterCommand{
		Identity: entity.NewIdentity{
			Login:      login,
			FirstName:  first,
			LastName:   last,
			MiddleName: middle,
			ManagerID:  r.ManagerID,
		},
		Password: r.Password,
	}, nil
}

// LoginRequest login payload.
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}
