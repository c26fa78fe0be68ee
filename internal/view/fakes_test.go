package view

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/erazemk/skrbnik/internal/backend"
	"github.com/erazemk/skrbnik/internal/model"
)

var (
	errUnauthorized = &backend.StatusError{Method: "GET", Path: "/api", Status: http.StatusUnauthorized, Body: "Unauthorized"}
	errTransport    = errors.New("dial tcp: connection refused")
)

func statusErr(status int, message, body string) error {
	return &backend.StatusError{Method: "POST", Path: "/api", Status: status, Message: message, Body: body}
}

type fakeSession struct {
	mu      sync.Mutex
	current *model.Profile
	logouts int
}

func (s *fakeSession) CurrentUser() *model.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *fakeSession) SetCurrentUser(p model.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &p
}

func (s *fakeSession) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logouts++
	s.current = nil
}

func (s *fakeSession) loggedOut() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logouts > 0
}

// fakeItems is an in-memory item backend.
type fakeItems struct {
	mu        sync.Mutex
	items     []model.Item
	nextID    int
	listErr   error
	createErr error
	deleteErr error
	calls     []string
	// listHook runs before ListItems answers, outside the lock.
	listHook func(call int)
	lists    int
}

func (f *fakeItems) ListItems(ctx context.Context) ([]model.Item, error) {
	f.mu.Lock()
	f.lists++
	call := f.lists
	f.calls = append(f.calls, "list")
	snapshot := append([]model.Item(nil), f.items...)
	err := f.listErr
	hook := f.listHook
	f.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (f *fakeItems) CreateItem(ctx context.Context, form model.ItemForm) (*model.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "create")
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	item := model.Item{ID: string(rune('a' + f.nextID - 1)), Name: form.Name, Category: form.Category, Price: form.Price}
	f.items = append(f.items, item)
	return &item, nil
}

func (f *fakeItems) DeleteItem(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete "+id)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	kept := f.items[:0]
	for _, it := range f.items {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	f.items = kept
	return nil
}

func (f *fakeItems) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// fakeUsers is an in-memory user backend that records what it was sent.
type fakeUsers struct {
	mu       sync.Mutex
	users    []model.User
	lists    int
	listErr  error
	created  []model.NewUserForm
	updates  map[string]model.UserUpdate
	uploaded []backend.File

	createErr  error
	updateErr  error
	updateResp *model.User
	emptyBody  bool
	deleteErr  error
	imageErr   error
	imageURL   string
	removeMsg  string

	// listHook runs before ListUsers answers, outside the lock.
	listHook func(call int)
}

func (f *fakeUsers) ListUsers(ctx context.Context) ([]model.User, error) {
	f.mu.Lock()
	f.lists++
	call := f.lists
	snapshot := append([]model.User(nil), f.users...)
	err := f.listErr
	hook := f.listHook
	f.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (f *fakeUsers) CreateUser(ctx context.Context, form model.NewUserForm) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, form)
	if f.createErr != nil {
		return nil, f.createErr
	}
	u := model.User{ID: form.Username + "-id", Username: form.Username, Email: form.Email, FirstName: form.FirstName, LastName: form.LastName}
	f.users = append(f.users, u)
	return &u, nil
}

func (f *fakeUsers) UpdateUser(ctx context.Context, id string, update model.UserUpdate) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updates == nil {
		f.updates = make(map[string]model.UserUpdate)
	}
	f.updates[id] = update
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if f.emptyBody {
		return nil, nil
	}
	if f.updateResp != nil {
		u := *f.updateResp
		return &u, nil
	}
	for i, u := range f.users {
		if u.ID == id {
			u.FirstName, u.LastName, u.Email = update.FirstName, update.LastName, update.Email
			f.users[i] = u
			return &u, nil
		}
	}
	return nil, statusErr(http.StatusNotFound, "not found", `{"message":"not found"}`)
}

func (f *fakeUsers) DeleteUser(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleteErr
}

func (f *fakeUsers) UploadUserImage(ctx context.Context, id string, file backend.File) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploaded = append(f.uploaded, file)
	if f.imageErr != nil {
		return "", f.imageErr
	}
	return f.imageURL, nil
}

func (f *fakeUsers) RemoveUserImage(ctx context.Context, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.imageErr != nil {
		return "", f.imageErr
	}
	return f.removeMsg, nil
}

// fakeProfile serves a single profile record.
type fakeProfile struct {
	mu        sync.Mutex
	profile   model.Profile
	gets      int
	getErr    error
	updateErr error
	imageErr  error
	sent      []model.UserUpdate
	uploads   []backend.File
	// getHook runs before GetProfile answers, outside the lock.
	getHook func(call int)
}

func (f *fakeProfile) GetProfile(ctx context.Context) (*model.Profile, error) {
	f.mu.Lock()
	f.gets++
	call := f.gets
	p := f.profile
	err := f.getErr
	hook := f.getHook
	f.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (f *fakeProfile) UpdateProfile(ctx context.Context, update model.UserUpdate) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, update)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.profile.FirstName, f.profile.LastName, f.profile.Email = update.FirstName, update.LastName, update.Email
	p := f.profile
	return &p, nil
}

func (f *fakeProfile) UploadProfileImage(ctx context.Context, file backend.File) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, file)
	if f.imageErr != nil {
		return f.imageErr
	}
	f.profile.ProfileImage = "/uploads/" + file.Name
	return nil
}

func (f *fakeProfile) RemoveProfileImage(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.imageErr != nil {
		return f.imageErr
	}
	f.profile.ProfileImage = ""
	return nil
}

func yes(string) bool { return true }
func no(string) bool  { return false }
