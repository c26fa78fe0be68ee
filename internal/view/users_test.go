package view

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/skrbnik/internal/imaging"
	"github.com/erazemk/skrbnik/internal/model"
)

func ana() model.User {
	return model.User{ID: "1", Username: "ana", Email: "a@x.com", FirstName: "Ana", LastName: "Li"}
}

func loadedUserList(t *testing.T, api *fakeUsers) (*UserList, *fakeSession) {
	t.Helper()
	sess := &fakeSession{}
	l := NewUserList(api, sess)
	require.NoError(t, l.Load(context.Background()))
	return l, sess
}

func TestUserListLoad(t *testing.T) {
	api := &fakeUsers{users: []model.User{ana()}}
	l, _ := loadedUserList(t, api)

	st := l.State()
	require.Len(t, st.Users, 1)
	u := st.Users[0]
	assert.Equal(t, "Ana Li", u.FullName())
	assert.Equal(t, "@ana", u.Handle())
	assert.Equal(t, "a@x.com", u.Email)
	assert.Equal(t, "ACTIVE", u.DisplayStatus())
}

func TestUserListLoadFailureKeepsList(t *testing.T) {
	api := &fakeUsers{users: []model.User{ana()}}
	l, _ := loadedUserList(t, api)

	api.listErr = errTransport
	require.NoError(t, l.Load(context.Background()))
	assert.Len(t, l.State().Users, 1)
	assert.Nil(t, l.State().Message)
}

func TestUserListCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("missing fields", func(t *testing.T) {
		api := &fakeUsers{}
		l, _ := loadedUserList(t, api)

		require.NoError(t, l.Create(ctx, model.NewUserForm{Username: "bo", Email: "b@x.com"}))

		assert.Empty(t, api.created)
		st := l.State()
		require.NotNil(t, st.Message)
		assert.Equal(t, "Username, email and password are required", st.Message.Text)
		assert.Equal(t, "bo", st.NewUser.Username)
	})

	t.Run("success", func(t *testing.T) {
		api := &fakeUsers{users: []model.User{ana()}}
		l, _ := loadedUserList(t, api)

		form := model.NewUserForm{Username: "bo", Email: "b@x.com", Password: "pw", FirstName: "Bo"}
		require.NoError(t, l.Create(ctx, form))

		require.Len(t, api.created, 1)
		assert.Equal(t, "pw", api.created[0].Password)
		assert.Equal(t, 2, api.lists)

		st := l.State()
		assert.Len(t, st.Users, 2)
		assert.Equal(t, model.NewUserForm{}, st.NewUser)
		require.NotNil(t, st.Message)
		assert.Equal(t, KindSuccess, st.Message.Kind)
		assert.Equal(t, "User created. They can now log in.", st.Message.Text)
	})

	t.Run("backend refuses", func(t *testing.T) {
		api := &fakeUsers{createErr: statusErr(http.StatusConflict, "exists", "Username already taken")}
		l, _ := loadedUserList(t, api)

		form := model.NewUserForm{Username: "ana", Email: "a@x.com", Password: "pw"}
		require.NoError(t, l.Create(ctx, form))

		st := l.State()
		require.NotNil(t, st.Message)
		assert.Equal(t, "Create failed: Username already taken", st.Message.Text)
		assert.Equal(t, "ana", st.NewUser.Username)
		assert.Empty(t, st.NewUser.Password)
	})

	t.Run("transport failure", func(t *testing.T) {
		api := &fakeUsers{createErr: errTransport}
		l, _ := loadedUserList(t, api)

		require.NoError(t, l.Create(ctx, model.NewUserForm{Username: "a", Email: "e", Password: "p"}))
		assert.Equal(t, "Create failed", l.State().Message.Text)
	})
}

func TestUserListDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("confirmed removes locally", func(t *testing.T) {
		bo := model.User{ID: "2", Username: "bo"}
		api := &fakeUsers{users: []model.User{ana(), bo}}
		l, _ := loadedUserList(t, api)
		require.NoError(t, l.OpenEdit("1"))

		var asked string
		err := l.Delete(ctx, "1", func(p string) bool { asked = p; return true })
		require.NoError(t, err)
		assert.Equal(t, "Are you sure you want to delete this user?", asked)

		st := l.State()
		require.Len(t, st.Users, 1)
		assert.Equal(t, "2", st.Users[0].ID)
		assert.False(t, st.ModalOpen)
		assert.Nil(t, st.Editing)
		assert.Equal(t, 1, api.lists)
	})

	t.Run("declined", func(t *testing.T) {
		api := &fakeUsers{users: []model.User{ana()}}
		l, _ := loadedUserList(t, api)

		assert.ErrorIs(t, l.Delete(ctx, "1", no), ErrNotConfirmed)
		assert.Len(t, l.State().Users, 1)
	})

	t.Run("backend refuses", func(t *testing.T) {
		api := &fakeUsers{users: []model.User{ana()}, deleteErr: statusErr(http.StatusForbidden, "", "")}
		l, _ := loadedUserList(t, api)

		require.NoError(t, l.Delete(ctx, "1", yes))
		st := l.State()
		assert.Len(t, st.Users, 1)
		assert.Equal(t, "Failed to delete user", st.Message.Text)
	})
}

func TestUserListEditClones(t *testing.T) {
	api := &fakeUsers{users: []model.User{ana()}}
	l, _ := loadedUserList(t, api)

	assert.ErrorIs(t, l.OpenEdit("nope"), ErrUnknownUser)
	require.NoError(t, l.OpenEdit("1"))

	st := l.State()
	require.True(t, st.ModalOpen)
	st.Editing.FirstName = "changed"
	assert.Equal(t, "Ana", l.State().Editing.FirstName)
	assert.Equal(t, "Ana", l.State().Users[0].FirstName)

	l.CloseModal()
	st = l.State()
	assert.False(t, st.ModalOpen)
	assert.Nil(t, st.Editing)
	assert.Nil(t, st.ModalMessage)
}

func TestUserListSave(t *testing.T) {
	ctx := context.Background()

	t.Run("applies server record without refetch", func(t *testing.T) {
		api := &fakeUsers{users: []model.User{ana()}}
		l, _ := loadedUserList(t, api)
		require.NoError(t, l.OpenEdit("1"))

		require.NoError(t, l.Save(ctx, model.UserUpdate{FirstName: "Anna", LastName: "Li", Email: "a@x.com"}))

		assert.Equal(t, model.UserUpdate{FirstName: "Anna", LastName: "Li", Email: "a@x.com"}, api.updates["1"])
		assert.Equal(t, 1, api.lists)

		st := l.State()
		assert.Equal(t, "Anna Li", st.Users[0].FullName())
		assert.Equal(t, "Anna", st.Editing.FirstName)
		assert.Equal(t, "User updated successfully.", st.ModalMessage.Text)
		assert.False(t, st.Saving)
	})

	t.Run("server record wins", func(t *testing.T) {
		api := &fakeUsers{
			users:      []model.User{ana()},
			updateResp: &model.User{ID: "1", Username: "ana", FirstName: "Anna", LastName: "Li", Email: "anna@x.com"},
		}
		l, _ := loadedUserList(t, api)
		require.NoError(t, l.OpenEdit("1"))

		require.NoError(t, l.Save(ctx, model.UserUpdate{FirstName: "Anna", LastName: "Li", Email: "A@X.COM"}))
		assert.Equal(t, "anna@x.com", l.State().Users[0].Email)
	})

	t.Run("empty body falls back to submitted fields", func(t *testing.T) {
		api := &fakeUsers{users: []model.User{ana()}, emptyBody: true}
		l, _ := loadedUserList(t, api)
		require.NoError(t, l.OpenEdit("1"))

		require.NoError(t, l.Save(ctx, model.UserUpdate{FirstName: "Anna", LastName: "Lee", Email: "a@x.com"}))

		u := l.State().Users[0]
		assert.Equal(t, "Anna Lee", u.FullName())
		assert.Equal(t, "ana", u.Username)
	})

	t.Run("failure keeps list", func(t *testing.T) {
		api := &fakeUsers{users: []model.User{ana()}, updateErr: statusErr(http.StatusBadRequest, "bad", "Invalid email")}
		l, _ := loadedUserList(t, api)
		require.NoError(t, l.OpenEdit("1"))

		require.NoError(t, l.Save(ctx, model.UserUpdate{FirstName: "Anna", Email: "nope"}))

		st := l.State()
		assert.Equal(t, "Ana", st.Users[0].FirstName)
		assert.Equal(t, "Failed to update user. Invalid email", st.ModalMessage.Text)
		assert.Equal(t, "Anna", st.Editing.FirstName)
	})

	t.Run("nothing selected", func(t *testing.T) {
		api := &fakeUsers{users: []model.User{ana()}}
		l, _ := loadedUserList(t, api)
		assert.ErrorIs(t, l.Save(ctx, model.UserUpdate{}), ErrNoSelection)
		assert.Empty(t, api.updates)
	})
}

func TestUserListImage(t *testing.T) {
	ctx := context.Background()
	png := &imaging.Upload{Name: "a.png", MIME: "image/png", Data: []byte("not really a png")}

	t.Run("rejected before sending", func(t *testing.T) {
		api := &fakeUsers{users: []model.User{ana()}}
		l, _ := loadedUserList(t, api)
		require.NoError(t, l.OpenEdit("1"))

		require.NoError(t, l.UpdateImage(ctx, nil))
		assert.Equal(t, "Please select an image file first.", l.State().ModalMessage.Text)

		require.NoError(t, l.UpdateImage(ctx, &imaging.Upload{Name: "a.txt", MIME: "text/plain", Data: []byte("x")}))
		assert.Equal(t, "Only image file types are allowed.", l.State().ModalMessage.Text)

		assert.Empty(t, api.uploaded)
	})

	t.Run("upload updates list and editor", func(t *testing.T) {
		api := &fakeUsers{users: []model.User{ana()}, imageURL: "/uploads/1.png"}
		l, _ := loadedUserList(t, api)
		require.NoError(t, l.OpenEdit("1"))

		require.NoError(t, l.UpdateImage(ctx, png))

		require.Len(t, api.uploaded, 1)
		assert.Equal(t, "a.png", api.uploaded[0].Name)
		st := l.State()
		assert.Equal(t, "/uploads/1.png", st.Editing.ProfileImage)
		assert.Equal(t, "/uploads/1.png", st.Users[0].ProfileImage)
		assert.Equal(t, "Image updated successfully.", st.ModalMessage.Text)
		assert.False(t, st.ImageBusy)
	})

	t.Run("remove clears reference", func(t *testing.T) {
		withImage := ana()
		withImage.ProfileImage = "/uploads/1.png"
		api := &fakeUsers{users: []model.User{withImage}}
		l, _ := loadedUserList(t, api)
		require.NoError(t, l.OpenEdit("1"))

		require.NoError(t, l.RemoveImage(ctx))
		st := l.State()
		assert.Empty(t, st.Editing.ProfileImage)
		assert.Empty(t, st.Users[0].ProfileImage)
		assert.Equal(t, "Image removed successfully.", st.ModalMessage.Text)
	})

	t.Run("remove shows backend message", func(t *testing.T) {
		api := &fakeUsers{users: []model.User{ana()}, removeMsg: "Profile image deleted"}
		l, _ := loadedUserList(t, api)
		require.NoError(t, l.OpenEdit("1"))

		require.NoError(t, l.RemoveImage(ctx))
		assert.Equal(t, "Profile image deleted", l.State().ModalMessage.Text)
	})

	t.Run("backend message surfaces", func(t *testing.T) {
		api := &fakeUsers{users: []model.User{ana()}, imageErr: statusErr(http.StatusRequestEntityTooLarge, "File too large", "")}
		l, _ := loadedUserList(t, api)
		require.NoError(t, l.OpenEdit("1"))

		require.NoError(t, l.UpdateImage(ctx, png))
		assert.Equal(t, "File too large", l.State().ModalMessage.Text)

		api.imageErr = errTransport
		require.NoError(t, l.RemoveImage(ctx))
		assert.Equal(t, "Failed to remove image.", l.State().ModalMessage.Text)
	})

	t.Run("nothing selected", func(t *testing.T) {
		l, _ := loadedUserList(t, &fakeUsers{})
		assert.ErrorIs(t, l.UpdateImage(ctx, png), ErrNoSelection)
		assert.ErrorIs(t, l.RemoveImage(ctx), ErrNoSelection)
	})
}

func TestUserListUnauthorized(t *testing.T) {
	ctx := context.Background()

	t.Run("save", func(t *testing.T) {
		api := &fakeUsers{users: []model.User{ana()}}
		l, sess := loadedUserList(t, api)
		require.NoError(t, l.OpenEdit("1"))

		api.updateErr = errUnauthorized
		err := l.Save(ctx, model.UserUpdate{FirstName: "Anna"})
		assert.ErrorIs(t, err, ErrSessionExpired)
		assert.True(t, sess.loggedOut())

		st := l.State()
		assert.Equal(t, "Ana", st.Users[0].FirstName)
		assert.False(t, st.Saving)
		assert.Nil(t, st.ModalMessage)
	})

	t.Run("image", func(t *testing.T) {
		api := &fakeUsers{users: []model.User{ana()}, imageErr: errUnauthorized}
		l, sess := loadedUserList(t, api)
		require.NoError(t, l.OpenEdit("1"))

		assert.ErrorIs(t, l.RemoveImage(ctx), ErrSessionExpired)
		assert.True(t, sess.loggedOut())
		assert.False(t, l.State().ImageBusy)
	})

	t.Run("delete", func(t *testing.T) {
		api := &fakeUsers{users: []model.User{ana()}, deleteErr: errUnauthorized}
		l, sess := loadedUserList(t, api)

		assert.ErrorIs(t, l.Delete(ctx, "1", yes), ErrSessionExpired)
		assert.True(t, sess.loggedOut())
		st := l.State()
		assert.Empty(t, st.Deleting)
		assert.Len(t, st.Users, 1)
	})

	t.Run("load", func(t *testing.T) {
		api := &fakeUsers{users: []model.User{ana()}}
		l, sess := loadedUserList(t, api)

		api.listErr = errUnauthorized
		assert.ErrorIs(t, l.Load(ctx), ErrSessionExpired)
		assert.True(t, sess.loggedOut())
		st := l.State()
		assert.False(t, st.Loading)
		assert.Len(t, st.Users, 1)
	})
}

func TestUserListLoadKeepsDeleteConfirmedInFlight(t *testing.T) {
	api := &fakeUsers{users: []model.User{ana(), {ID: "2", Username: "bo"}}}
	l, _ := loadedUserList(t, api)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	api.mu.Lock()
	api.listHook = func(call int) {
		if call == 2 {
			close(started)
			<-release
		}
	}
	api.mu.Unlock()

	// A load issued before the delete answers after it.
	done := make(chan error)
	go func() { done <- l.Load(ctx) }()
	<-started

	require.NoError(t, l.Delete(ctx, "2", yes))
	close(release)
	require.NoError(t, <-done)

	st := l.State()
	require.Len(t, st.Users, 1)
	assert.Equal(t, "1", st.Users[0].ID)
	assert.False(t, st.Loading)
}

func TestUserListCreateRefetchSurvivesImageChange(t *testing.T) {
	withImage := ana()
	withImage.ProfileImage = "/uploads/1.png"
	api := &fakeUsers{users: []model.User{withImage}}
	l, _ := loadedUserList(t, api)
	ctx := context.Background()
	require.NoError(t, l.OpenEdit("1"))

	// The image is removed while the refetch after create is in flight.
	api.mu.Lock()
	api.listHook = func(call int) {
		if call == 2 {
			require.NoError(t, l.RemoveImage(ctx))
		}
	}
	api.mu.Unlock()

	require.NoError(t, l.Create(ctx, model.NewUserForm{Username: "bob", Email: "b@x.com", Password: "pw"}))

	st := l.State()
	require.Len(t, st.Users, 2)
	assert.Equal(t, "1", st.Users[0].ID)
	assert.Empty(t, st.Users[0].ProfileImage)
	assert.Equal(t, "bob", st.Users[1].Username)
	assert.Equal(t, "User created. They can now log in.", st.Message.Text)
	assert.Empty(t, st.Editing.ProfileImage)
	assert.False(t, st.Loading)
}
