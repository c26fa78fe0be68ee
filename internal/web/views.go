package web

import (
	"sync"

	"github.com/erazemk/skrbnik/internal/backend"
	"github.com/erazemk/skrbnik/internal/session"
	"github.com/erazemk/skrbnik/internal/view"
)

// Screens is one session's view state.
type Screens struct {
	Items   *view.ItemList
	Users   *view.UserList
	Profile *view.Profile
}

// Registry keeps each live session's screens. Entries are dropped when the
// session ends.
type Registry struct {
	client *backend.Client

	mu     sync.Mutex
	bySess map[string]*Screens
}

// NewRegistry creates a registry whose screens call the backend through
// copies of client carrying each session's cookies.
func NewRegistry(client *backend.Client) *Registry {
	return &Registry{client: client, bySess: make(map[string]*Screens)}
}

// For returns the screens of sess, creating them on first use.
func (reg *Registry) For(sess *session.Session) *Screens {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if sc, ok := reg.bySess[sess.ID()]; ok {
		return sc
	}

	api := reg.client.WithJar(sess.Jar())
	sc := &Screens{
		Items:   view.NewItemList(api, sess),
		Users:   view.NewUserList(api, sess),
		Profile: view.NewProfile(api, sess),
	}
	reg.bySess[sess.ID()] = sc
	return sc
}

// Drop forgets the screens of the session with id.
func (reg *Registry) Drop(id string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.bySess, id)
}

// Len returns the number of sessions with screens.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.bySess)
}
