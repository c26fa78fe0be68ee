package view

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/erazemk/skrbnik/internal/backend"
	"github.com/erazemk/skrbnik/internal/imaging"
	"github.com/erazemk/skrbnik/internal/model"
)

// ErrUnknownUser is returned by OpenEdit when the id is not in the list.
var ErrUnknownUser = errors.New("user not in list")

// UserListState is a snapshot of the user manager for rendering.
type UserListState struct {
	Users    []model.User
	NewUser  model.NewUserForm
	Loading  bool
	Creating bool
	Deleting string
	Message  *Message

	ModalOpen    bool
	Editing      *model.User
	Saving       bool
	ImageBusy    bool
	ModalMessage *Message
}

// UserList manages user accounts: create, delete, and a modal editor for
// names, email and the profile image.
type UserList struct {
	api  UserAPI
	sess Session

	mu       sync.Mutex
	state    UserListState
	loadSeq  uint64
	listRev  uint64
	edits    []listEdit
	modalSeq uint64
	saveSeq  uint64
	imageSeq uint64
}

// listEdit is a confirmed local change to one row. apply returns false to
// drop the row.
type listEdit struct {
	rev   uint64
	id    string
	apply func(u *model.User) bool
}

// NewUserList creates an empty user manager.
func NewUserList(api UserAPI, sess Session) *UserList {
	return &UserList{api: api, sess: sess}
}

// State returns a copy of the current state.
func (l *UserList) State() UserListState {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := l.state
	st.Users = append([]model.User(nil), l.state.Users...)
	if l.state.Editing != nil {
		u := *l.state.Editing
		st.Editing = &u
	}
	return st
}

// Mount resets transient state, as when the screen is opened.
func (l *UserList) Mount() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.Message = nil
	l.closeModalLocked()
}

// Load fetches the user list. A response that is not a list, or a failed
// request, is logged and the previous list stays. Local changes confirmed
// while the request was in flight are applied again on top of the response.
func (l *UserList) Load(ctx context.Context) error {
	l.mu.Lock()
	l.loadSeq++
	seq := l.loadSeq
	rev := l.listRev
	l.state.Loading = true
	l.mu.Unlock()

	users, err := l.api.ListUsers(ctx)
	expired := err != nil && expire(l.sess, err)

	l.mu.Lock()
	defer l.mu.Unlock()
	if seq != l.loadSeq {
		log.Debug().Uint64("token", seq).Msg("discarding stale user list")
		if expired {
			return ErrSessionExpired
		}
		return nil
	}
	l.state.Loading = false
	edits := l.edits
	l.edits = nil
	if expired {
		return ErrSessionExpired
	}

	switch {
	case errors.Is(err, backend.ErrNotList):
		log.Warn().Err(err).Msg("user list response is not a list")
	case err != nil:
		log.Error().Err(err).Msg("failed to fetch users")
	default:
		l.state.Users = replay(users, edits, rev)
	}
	return nil
}

// replay applies the edits newer than rev to a fetched list.
func replay(users []model.User, edits []listEdit, rev uint64) []model.User {
	out := users[:0:0]
	for _, u := range users {
		keep := true
		for _, e := range edits {
			if e.rev > rev && e.id == u.ID && !e.apply(&u) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, u)
		}
	}
	return out
}

// editLocked applies a confirmed change to the listed row with id and
// records it for loads already in flight.
func (l *UserList) editLocked(id string, apply func(u *model.User) bool) {
	l.listRev++
	l.edits = append(l.edits, listEdit{rev: l.listRev, id: id, apply: apply})
	l.state.Users = replay(l.state.Users, l.edits[len(l.edits)-1:], l.listRev-1)
}

// Create adds a user. Username, email and password are required; nothing is
// sent without them. On success the list is refetched and the form cleared.
func (l *UserList) Create(ctx context.Context, form model.NewUserForm) error {
	kept := form
	kept.Password = ""

	if err := form.Validate(); err != nil {
		l.mu.Lock()
		l.state.NewUser = kept
		l.state.Message = failure("Username, email and password are required")
		l.mu.Unlock()
		return nil
	}

	l.mu.Lock()
	l.state.Creating = true
	l.state.Message = nil
	l.state.NewUser = kept
	l.mu.Unlock()

	_, err := l.api.CreateUser(ctx, form)

	l.mu.Lock()
	l.state.Creating = false
	l.mu.Unlock()

	if err != nil {
		if expire(l.sess, err) {
			return ErrSessionExpired
		}
		log.Error().Err(err).Str("username", form.Username).Msg("failed to create user")
		text := "Create failed"
		var se *backend.StatusError
		if errors.As(err, &se) {
			text = "Create failed: " + se.Body
		}
		l.mu.Lock()
		l.state.Message = failure(text)
		l.mu.Unlock()
		return nil
	}

	log.Info().Str("username", form.Username).Msg("user created")
	if err := l.Load(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	l.state.NewUser = model.NewUserForm{}
	l.state.Message = success("User created. They can now log in.")
	l.mu.Unlock()
	return nil
}

// Delete removes the user with id after confirmation. The row is dropped
// locally once the backend confirms, and the editor closes if it was open on
// that user.
func (l *UserList) Delete(ctx context.Context, id string, confirm Confirm) error {
	if confirm == nil || !confirm(PromptDeleteUser) {
		return ErrNotConfirmed
	}

	l.mu.Lock()
	l.state.Deleting = id
	l.state.Message = nil
	l.mu.Unlock()

	err := l.api.DeleteUser(ctx, id)
	expired := err != nil && expire(l.sess, err)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.Deleting == id {
		l.state.Deleting = ""
	}

	if err != nil {
		if expired {
			return ErrSessionExpired
		}
		log.Error().Err(err).Str("user", id).Msg("failed to delete user")
		l.state.Message = failure("Failed to delete user")
		return nil
	}

	log.Info().Str("user", id).Msg("user deleted")
	l.editLocked(id, func(*model.User) bool { return false })
	if l.state.Editing != nil && l.state.Editing.ID == id {
		l.closeModalLocked()
	}
	return nil
}

// OpenEdit opens the editor on a copy of the listed user with id, so edits
// do not touch the list until saved.
func (l *UserList) OpenEdit(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, u := range l.state.Users {
		if u.ID == id {
			clone := u
			l.modalSeq++
			l.state.ModalOpen = true
			l.state.Editing = &clone
			l.state.Saving = false
			l.state.ImageBusy = false
			l.state.ModalMessage = nil
			return nil
		}
	}
	return ErrUnknownUser
}

// CloseModal closes the editor and forgets its busy flags and message.
func (l *UserList) CloseModal() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closeModalLocked()
}

func (l *UserList) closeModalLocked() {
	l.modalSeq++
	l.state.ModalOpen = false
	l.state.Editing = nil
	l.state.Saving = false
	l.state.ImageBusy = false
	l.state.ModalMessage = nil
}

// Save sends the edited names and email for the open user. On success the
// backend's record replaces the row with the same id and the editor's copy;
// fields the backend left out fall back to what was submitted.
func (l *UserList) Save(ctx context.Context, fields model.UserUpdate) error {
	l.mu.Lock()
	if l.state.Editing == nil {
		l.mu.Unlock()
		return ErrNoSelection
	}
	id := l.state.Editing.ID
	modal := l.modalSeq
	l.saveSeq++
	seq := l.saveSeq
	l.state.Editing.FirstName = fields.FirstName
	l.state.Editing.LastName = fields.LastName
	l.state.Editing.Email = fields.Email
	base := *l.state.Editing
	l.state.Saving = true
	l.state.ModalMessage = nil
	l.mu.Unlock()

	returned, err := l.api.UpdateUser(ctx, id, fields)
	expired := err != nil && expire(l.sess, err)

	l.mu.Lock()
	defer l.mu.Unlock()
	current := modal == l.modalSeq && seq == l.saveSeq
	if current {
		l.state.Saving = false
	}

	if err != nil {
		if expired {
			return ErrSessionExpired
		}
		log.Error().Err(err).Str("user", id).Msg("failed to update user")
		if current {
			text := "Error updating user."
			var se *backend.StatusError
			if errors.As(err, &se) {
				text = "Failed to update user. " + se.Body
			}
			l.state.ModalMessage = failure(text)
		}
		return nil
	}

	updated := base
	if returned != nil {
		updated = updated.Merge(*returned)
	}
	updated.ID = id

	log.Info().Str("user", id).Msg("user updated")
	row := updated
	l.editLocked(id, func(u *model.User) bool {
		*u = row
		return true
	})
	if current {
		l.state.Editing = &updated
		l.state.ModalMessage = success("User updated successfully.")
	}
	return nil
}

// UpdateImage uploads a new profile image for the open user.
func (l *UserList) UpdateImage(ctx context.Context, upload *imaging.Upload) error {
	l.mu.Lock()
	if l.state.Editing == nil {
		l.mu.Unlock()
		return ErrNoSelection
	}
	id := l.state.Editing.ID
	modal := l.modalSeq
	l.mu.Unlock()

	file, reject := checkUpload(upload, "Please select an image file first.")

	l.mu.Lock()
	if reject != "" {
		if modal == l.modalSeq {
			l.state.ModalMessage = failure(reject)
		}
		l.mu.Unlock()
		return nil
	}
	seq := l.beginImageLocked()
	l.mu.Unlock()

	ref, err := l.api.UploadUserImage(ctx, id, *file)
	return l.finishImage(id, modal, seq, ref, err, "Failed to update image.", "Image updated successfully.")
}

// RemoveImage removes the open user's profile image.
func (l *UserList) RemoveImage(ctx context.Context) error {
	l.mu.Lock()
	if l.state.Editing == nil {
		l.mu.Unlock()
		return ErrNoSelection
	}
	id := l.state.Editing.ID
	modal := l.modalSeq
	seq := l.beginImageLocked()
	l.mu.Unlock()

	msg, err := l.api.RemoveUserImage(ctx, id)
	if msg == "" {
		msg = "Image removed successfully."
	}
	return l.finishImage(id, modal, seq, "", err, "Failed to remove image.", msg)
}

func (l *UserList) beginImageLocked() uint64 {
	l.imageSeq++
	l.state.ImageBusy = true
	l.state.ModalMessage = nil
	return l.imageSeq
}

// finishImage applies an image call's outcome. ref is the new image
// reference, empty after a removal.
func (l *UserList) finishImage(id string, modal, seq uint64, ref string, err error, fallback, done string) error {
	expired := err != nil && expire(l.sess, err)

	l.mu.Lock()
	defer l.mu.Unlock()
	current := modal == l.modalSeq && seq == l.imageSeq
	if current {
		l.state.ImageBusy = false
	}

	if err != nil {
		if expired {
			return ErrSessionExpired
		}
		log.Error().Err(err).Str("user", id).Msg("failed to change user image")
		if current {
			l.state.ModalMessage = failure(backend.Message(err, fallback))
		}
		return nil
	}

	l.editLocked(id, func(u *model.User) bool {
		u.ProfileImage = ref
		return true
	})
	if modal == l.modalSeq && l.state.Editing != nil && l.state.Editing.ID == id {
		l.state.Editing.ProfileImage = ref
	}
	if current {
		l.state.ModalMessage = success(done)
	}
	return nil
}

