package view

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/erazemk/skrbnik/internal/imaging"
	"github.com/erazemk/skrbnik/internal/model"
)

// ProfileState is a snapshot of the profile screen for rendering.
type ProfileState struct {
	Profile   *model.Profile
	Form      model.UserUpdate
	Loading   bool
	Saving    bool
	Uploading bool
	Deleting  bool
	Message   *Message
}

// Profile shows and edits the signed-in operator's own account.
type Profile struct {
	api  ProfileAPI
	sess Session

	mu      sync.Mutex
	state   ProfileState
	loadSeq uint64
	rev     uint64
}

// NewProfile creates a profile screen waiting for its first load.
func NewProfile(api ProfileAPI, sess Session) *Profile {
	return &Profile{api: api, sess: sess, state: ProfileState{Loading: true}}
}

// State returns a copy of the current state.
func (p *Profile) State() ProfileState {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.state
	if p.state.Profile != nil {
		rec := *p.state.Profile
		st.Profile = &rec
	}
	return st
}

// Mount resets transient state, as when the screen is opened.
func (p *Profile) Mount() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Message = nil
}

// Load fetches the operator's profile. A 401 logs the session out; other
// failures keep the previous record. Loading is cleared in every case.
func (p *Profile) Load(ctx context.Context) error {
	p.mu.Lock()
	p.loadSeq++
	seq := p.loadSeq
	rev := p.rev
	p.state.Loading = true
	p.mu.Unlock()

	rec, err := p.api.GetProfile(ctx)
	if err != nil && expire(p.sess, err) {
		p.mu.Lock()
		p.state.Loading = false
		p.mu.Unlock()
		return ErrSessionExpired
	}

	p.mu.Lock()
	if seq != p.loadSeq {
		p.mu.Unlock()
		log.Debug().Uint64("token", seq).Msg("discarding stale profile")
		return nil
	}
	p.state.Loading = false

	if err != nil {
		p.mu.Unlock()
		log.Error().Err(err).Msg("failed to load profile")
		return nil
	}
	if rev != p.rev {
		p.mu.Unlock()
		log.Debug().Uint64("token", seq).Msg("discarding profile older than last save")
		return nil
	}
	p.applyLocked(*rec)
	p.mu.Unlock()

	p.sess.SetCurrentUser(*rec)
	return nil
}

// Save trims and sends the edited names and email. On success the backend's
// record replaces the local one.
func (p *Profile) Save(ctx context.Context, form model.UserUpdate) error {
	update := form.Trimmed()

	p.mu.Lock()
	p.state.Saving = true
	p.state.Message = nil
	p.state.Form = form
	p.mu.Unlock()

	rec, err := p.api.UpdateProfile(ctx, update)
	expired := err != nil && expire(p.sess, err)

	p.mu.Lock()
	p.state.Saving = false
	if expired {
		p.mu.Unlock()
		return ErrSessionExpired
	}
	if err != nil {
		p.state.Message = failure(statusMessage(err, "Failed to update profile.", "Profile update failed."))
		p.mu.Unlock()
		log.Error().Err(err).Msg("failed to update profile")
		return nil
	}
	p.rev++
	p.applyLocked(*rec)
	p.state.Message = success("Profile updated.")
	p.mu.Unlock()

	log.Info().Str("user", rec.Username).Msg("profile updated")
	p.sess.SetCurrentUser(*rec)
	return nil
}

// UpdateImage uploads a new image for the operator and reloads the profile.
func (p *Profile) UpdateImage(ctx context.Context, upload *imaging.Upload) error {
	file, reject := checkUpload(upload, "Please select an image file.")
	if reject != "" {
		p.mu.Lock()
		p.state.Message = failure(reject)
		p.mu.Unlock()
		return nil
	}

	p.mu.Lock()
	p.state.Uploading = true
	p.state.Message = nil
	p.mu.Unlock()

	err := p.api.UploadProfileImage(ctx, *file)
	return p.finishImage(ctx, err, &p.state.Uploading,
		"Failed to update image.", "Error uploading image.", "Profile image updated.")
}

// DeleteImage removes the operator's image and reloads the profile.
func (p *Profile) DeleteImage(ctx context.Context) error {
	p.mu.Lock()
	p.state.Deleting = true
	p.state.Message = nil
	p.mu.Unlock()

	err := p.api.RemoveProfileImage(ctx)
	return p.finishImage(ctx, err, &p.state.Deleting,
		"Failed to remove image.", "Error removing image.", "Profile image removed.")
}

// finishImage clears busy, reports a failure inline, or reloads the profile
// and reports done.
func (p *Profile) finishImage(ctx context.Context, err error, busy *bool, fallback, transport, done string) error {
	if err != nil && expire(p.sess, err) {
		p.mu.Lock()
		*busy = false
		p.mu.Unlock()
		return ErrSessionExpired
	}

	if err != nil {
		log.Error().Err(err).Msg("failed to change profile image")
		p.mu.Lock()
		*busy = false
		p.state.Message = failure(statusMessage(err, fallback, transport))
		p.mu.Unlock()
		return nil
	}

	loadErr := p.Load(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	*busy = false
	if loadErr != nil {
		return loadErr
	}
	p.state.Message = success(done)
	return nil
}

func (p *Profile) applyLocked(rec model.Profile) {
	p.state.Profile = &rec
	p.state.Form = model.UpdateOf(rec)
}
