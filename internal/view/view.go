// Package view holds the per-session state of the three admin screens: the
// item list, the user manager and the operator's own profile.
//
// Each screen is safe for concurrent use. Its mutex guards the state only and
// is released before any backend call; every shared piece of state carries a
// request token so a slow response cannot overwrite a newer one.
package view

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/erazemk/skrbnik/internal/backend"
	"github.com/erazemk/skrbnik/internal/imaging"
	"github.com/erazemk/skrbnik/internal/model"
)

var (
	// ErrNotConfirmed is returned by delete actions when the operator did not
	// confirm. Nothing was sent.
	ErrNotConfirmed = errors.New("action not confirmed")

	// ErrNoSelection is returned by modal actions when no user is open.
	ErrNoSelection = errors.New("no user selected")

	// ErrSessionExpired is returned after the backend answered 401 and the
	// session was logged out.
	ErrSessionExpired = errors.New("session expired")
)

// Kind classifies an inline message.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Message is an inline notice rendered above the form it belongs to.
type Message struct {
	Kind Kind
	Text string
}

func success(text string) *Message { return &Message{Kind: KindSuccess, Text: text} }
func failure(text string) *Message { return &Message{Kind: KindError, Text: text} }

// Confirm asks the operator a yes/no question.
type Confirm func(prompt string) bool

// Confirmation prompts.
const (
	PromptDeleteItem = "Delete this item?"
	PromptDeleteUser = "Are you sure you want to delete this user?"
)

// Session is the signed-in operator as the screens see it.
type Session interface {
	CurrentUser() *model.Profile
	SetCurrentUser(model.Profile)
	Logout()
}

// ItemAPI is the part of the backend the item list uses.
type ItemAPI interface {
	ListItems(ctx context.Context) ([]model.Item, error)
	CreateItem(ctx context.Context, form model.ItemForm) (*model.Item, error)
	DeleteItem(ctx context.Context, id string) error
}

// UserAPI is the part of the backend the user manager uses.
type UserAPI interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	CreateUser(ctx context.Context, form model.NewUserForm) (*model.User, error)
	UpdateUser(ctx context.Context, id string, update model.UserUpdate) (*model.User, error)
	DeleteUser(ctx context.Context, id string) error
	UploadUserImage(ctx context.Context, id string, f backend.File) (string, error)
	RemoveUserImage(ctx context.Context, id string) (string, error)
}

// ProfileAPI is the part of the backend the profile screen uses.
type ProfileAPI interface {
	GetProfile(ctx context.Context) (*model.Profile, error)
	UpdateProfile(ctx context.Context, update model.UserUpdate) (*model.Profile, error)
	UploadProfileImage(ctx context.Context, f backend.File) error
	RemoveProfileImage(ctx context.Context) error
}

// expire logs the session out if err is a 401. It reports whether it did.
func expire(sess Session, err error) bool {
	if !backend.IsUnauthorized(err) {
		return false
	}
	log.Info().Err(err).Msg("backend session expired, logging out")
	sess.Logout()
	return true
}

// statusMessage picks the text for a failed call: the backend's message for
// status errors (or fallback), and transport for everything else.
func statusMessage(err error, fallback, transport string) string {
	var se *backend.StatusError
	if errors.As(err, &se) {
		return backend.Message(err, fallback)
	}
	return transport
}

// checkUpload validates and prepares a file for upload. The returned text is
// the inline error when the file is rejected.
func checkUpload(u *imaging.Upload, noFile string) (*backend.File, string) {
	if err := imaging.Check(u); err != nil {
		if errors.Is(err, imaging.ErrNoFile) {
			return nil, noFile
		}
		return nil, "Only image file types are allowed."
	}

	prepared, err := imaging.Prepare(u)
	if err != nil {
		log.Warn().Err(err).Str("file", u.Name).Msg("could not downscale image, uploading original")
		prepared = u
	}
	return &backend.File{Name: prepared.Name, ContentType: prepared.MIME, Data: prepared.Data}, ""
}
