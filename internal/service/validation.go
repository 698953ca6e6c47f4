package service

import (
	"net/mail"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"task-manager/internal/model"
)

const (
	maxNameLen       = 255
	maxEmailLen      = 255
	minPasswordLen   = 8
	maxCategoryName  = 255
	maxCategoryDesc  = 1000
	maxCategoryColor = 20
	maxTaskTitleLen  = 255
)

// RegisterInput is the payload of a registration.
type RegisterInput struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// LoginInput is the payload of a login.
type LoginInput struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	RevokePrevious bool   `json:"revoke_previous"`
}

// CategoryInput carries category fields. Nil pointers mean "not supplied"; the
// Clear* flags mark an explicit JSON null on update.
type CategoryInput struct {
	Name             *string `json:"name"`
	Description      *string `json:"description"`
	Color            *string `json:"color"`
	ClearDescription bool    `json:"-"`
	ClearColor       bool    `json:"-"`
}

// TaskInput carries task fields. Nil pointers mean "not supplied"; the Clear*
// flags distinguish an explicit JSON null from an absent key.
type TaskInput struct {
	Title         *string
	Description   *string
	Status        *string
	Priority      *string
	DueDate       *time.Time
	CategoryID    *uint
	ClearDueDate  bool
	ClearCategory bool
	ClearDesc     bool
}

func validateRegister(in RegisterInput) *ValidationError {
	v := &ValidationError{}
	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		v.Add("name", "The name field is required.")
	case utf8.RuneCountInString(name) > maxNameLen:
		v.Add("name", "The name may not be greater than 255 characters.")
	}

	email := strings.TrimSpace(in.Email)
	switch {
	case email == "":
		v.Add("email", "The email field is required.")
	case len(email) > maxEmailLen:
		v.Add("email", "The email may not be greater than 255 characters.")
	case !validEmail(email):
		v.Add("email", "The email must be a valid email address.")
	}

	switch {
	case in.Password == "":
		v.Add("password", "The password field is required.")
	case utf8.RuneCountInString(in.Password) < minPasswordLen:
		v.Add("password", "The password must be at least 8 characters.")
	case !hasLetterAndDigit(in.Password):
		v.Add("password", "The password must contain at least one letter and one number.")
	}
	if in.PasswordConfirmation == "" {
		v.Add("password_confirmation", "The password confirmation field is required.")
	} else if in.Password != in.PasswordConfirmation {
		v.Add("password", "The password confirmation does not match.")
	}
	return v
}

func validateLogin(in LoginInput) *ValidationError {
	v := &ValidationError{}
	email := strings.TrimSpace(in.Email)
	if email == "" {
		v.Add("email", "The email field is required.")
	} else if !validEmail(email) {
		v.Add("email", "The email must be a valid email address.")
	}
	if in.Password == "" {
		v.Add("password", "The password field is required.")
	}
	return v
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func hasLetterAndDigit(s string) bool {
	var letter, digit bool
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}

// validateCategory checks supplied fields; name is mandatory when creating.
func validateCategory(in CategoryInput, creating bool) *ValidationError {
	v := &ValidationError{}
	if in.Name == nil {
		if creating {
			v.Add("name", "The name field is required.")
		}
	} else {
		name := strings.TrimSpace(*in.Name)
		switch {
		case name == "":
			v.Add("name", "The name field is required.")
		case utf8.RuneCountInString(name) > maxCategoryName:
			v.Add("name", "The name may not be greater than 255 characters.")
		}
	}
	if in.Description != nil && utf8.RuneCountInString(*in.Description) > maxCategoryDesc {
		v.Add("description", "The description may not be greater than 1000 characters.")
	}
	if in.Color != nil && utf8.RuneCountInString(*in.Color) > maxCategoryColor {
		v.Add("color", "The color may not be greater than 20 characters.")
	}
	return v
}

// validateTask checks supplied fields; title is mandatory when creating.
func validateTask(in TaskInput, creating bool) *ValidationError {
	v := &ValidationError{}
	if in.Title == nil {
		if creating {
			v.Add("title", "The title field is required.")
		}
	} else {
		title := strings.TrimSpace(*in.Title)
		switch {
		case title == "":
			v.Add("title", "The title field is required.")
		case utf8.RuneCountInString(title) > maxTaskTitleLen:
			v.Add("title", "The title may not be greater than 255 characters.")
		}
	}
	if in.Status != nil && !model.Status(*in.Status).Valid() {
		v.Add("status", "The selected status is invalid.")
	}
	if in.Priority != nil && !model.Priority(*in.Priority).Valid() {
		v.Add("priority", "The selected priority is invalid.")
	}
	return v
}

func validateStatus(status string) *ValidationError {
	v := &ValidationError{}
	switch {
	case status == "":
		v.Add("status", "The status field is required.")
	case !model.Status(status).Valid():
		v.Add("status", "The selected status is invalid.")
	}
	return v
}
