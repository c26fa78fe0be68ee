package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// StatusActive is shown for users whose record carries no status.
const StatusActive = "ACTIVE"

// User is an account record owned by the backend. Password is write-only and
// never decoded from responses.
type User struct {
	ID           string `json:"_id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	FirstName    string `json:"firstname"`
	LastName     string `json:"lastname"`
	Status       string `json:"status,omitempty"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// Profile is the signed-in caller's own account.
type Profile = User

// UnmarshalJSON tolerates numeric ids and the plain "id" key.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var raw struct {
		plain
		ID    json.RawMessage `json:"_id"`
		AltID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding user: %w", err)
	}
	*u = User(raw.plain)
	u.ID = firstNonEmpty(flexString(raw.ID), flexString(raw.AltID))
	return nil
}

// FullName joins first and last name.
func (u User) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}

// Handle is the username prefixed with @.
func (u User) Handle() string {
	return "@" + u.Username
}

// DisplayStatus returns the status, defaulting to ACTIVE.
func (u User) DisplayStatus() string {
	if u.Status == "" {
		return StatusActive
	}
	return u.Status
}

// Initial is the avatar placeholder glyph for list rows: the first letter of
// the first name, then of the username, else "U".
func (u User) Initial() string {
	return firstRune(firstNonEmpty(u.FirstName, u.Username, "U"))
}

// FirstNameInitial is the profile avatar placeholder: the first letter of the
// first name or "U".
func (u User) FirstNameInitial() string {
	return firstRune(firstNonEmpty(u.FirstName, "U"))
}

// Merge returns u with every non-empty field of update applied.
func (u User) Merge(update User) User {
	if update.Username != "" {
		u.Username = update.Username
	}
	if update.Email != "" {
		u.Email = update.Email
	}
	if update.FirstName != "" {
		u.FirstName = update.FirstName
	}
	if update.LastName != "" {
		u.LastName = update.LastName
	}
	if update.Status != "" {
		u.Status = update.Status
	}
	if update.ProfileImage != "" {
		u.ProfileImage = update.ProfileImage
	}
	return u
}

// UserUpdate is the only payload accepted by user and profile PATCH calls.
type UserUpdate struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
}

// Trimmed returns the update with surrounding whitespace removed.
func (f UserUpdate) Trimmed() UserUpdate {
	return UserUpdate{
		FirstName: strings.TrimSpace(f.FirstName),
		LastName:  strings.TrimSpace(f.LastName),
		Email:     strings.TrimSpace(f.Email),
	}
}

// UpdateOf extracts the mutable fields of a user.
func UpdateOf(u User) UserUpdate {
	return UserUpdate{FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
}

// NewUserForm is the user creation form.
type NewUserForm struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
}

// ErrMissingCredentials is returned when a new user lacks username, email or password.
var ErrMissingCredentials = errors.New("username, email and password are required")

// Validate checks the fields the backend needs to create a login.
func (f NewUserForm) Validate() error {
	if f.Username == "" || f.Email == "" || f.Password == "" {
		return ErrMissingCredentials
	}
	return nil
}

// JoinImageURL resolves a backend image reference against the API base URL.
// Absolute references are returned unchanged.
func JoinImageURL(base, ref string) string {
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	base = strings.TrimRight(base, "/")
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return base + ref
}

func firstRune(s string) string {
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return ""
	}
	return string(r)
}
