package view

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/erazemk/skrbnik/internal/backend"
	"github.com/erazemk/skrbnik/internal/model"
)

// ItemListState is a snapshot of the item list for rendering.
type ItemListState struct {
	Items    []model.Item
	Form     model.ItemForm
	Loading  bool
	Saving   bool
	Deleting string
	Message  *Message
}

// ItemList lists inventory items and adds or deletes them. Items are never
// edited in place.
type ItemList struct {
	api  ItemAPI
	sess Session

	mu      sync.Mutex
	state   ItemListState
	loadSeq uint64
}

// NewItemList creates an empty item list.
func NewItemList(api ItemAPI, sess Session) *ItemList {
	return &ItemList{
		api:   api,
		sess:  sess,
		state: ItemListState{Form: model.ItemForm{Category: model.CategoryStationary}},
	}
}

// State returns a copy of the current state.
func (l *ItemList) State() ItemListState {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := l.state
	st.Items = append([]model.Item(nil), l.state.Items...)
	return st
}

// Mount resets transient state, as when the screen is opened.
func (l *ItemList) Mount() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.Message = nil
}

// Load fetches the item list. On failure the previous list stays.
func (l *ItemList) Load(ctx context.Context) error {
	l.mu.Lock()
	l.loadSeq++
	seq := l.loadSeq
	l.state.Loading = true
	l.mu.Unlock()

	items, err := l.api.ListItems(ctx)
	expired := err != nil && expire(l.sess, err)

	l.mu.Lock()
	defer l.mu.Unlock()
	if seq != l.loadSeq {
		log.Debug().Uint64("token", seq).Msg("discarding stale item list")
		if expired {
			return ErrSessionExpired
		}
		return nil
	}
	l.state.Loading = false

	if err != nil {
		if expired {
			return ErrSessionExpired
		}
		log.Error().Err(err).Msg("failed to load items")
		l.state.Message = failure("Loading items failed")
		return nil
	}
	l.state.Items = items
	return nil
}

// Save creates an item from form and reloads the list whatever the outcome.
// Empty fields are left for the backend to judge.
func (l *ItemList) Save(ctx context.Context, form model.ItemForm) error {
	l.mu.Lock()
	l.state.Saving = true
	l.state.Message = nil
	l.state.Form = form
	l.mu.Unlock()

	_, err := l.api.CreateItem(ctx, form)

	l.mu.Lock()
	l.state.Saving = false
	if err == nil {
		l.state.Form = model.ItemForm{Category: form.Category}
	}
	l.mu.Unlock()

	if err != nil {
		if expire(l.sess, err) {
			return ErrSessionExpired
		}
		log.Error().Err(err).Str("name", form.Name).Msg("failed to create item")
	} else {
		log.Info().Str("name", form.Name).Msg("item created")
	}

	if loadErr := l.Load(ctx); loadErr != nil {
		return loadErr
	}

	if err != nil {
		l.mu.Lock()
		l.state.Message = failure(backend.Message(err, "Saving item failed"))
		l.mu.Unlock()
	}
	return nil
}

// Delete removes the item with id after confirmation and reloads the list.
// On failure the row stays.
func (l *ItemList) Delete(ctx context.Context, id string, confirm Confirm) error {
	if confirm == nil || !confirm(PromptDeleteItem) {
		return ErrNotConfirmed
	}

	l.mu.Lock()
	l.state.Deleting = id
	l.state.Message = nil
	l.mu.Unlock()

	err := l.api.DeleteItem(ctx, id)

	l.mu.Lock()
	if l.state.Deleting == id {
		l.state.Deleting = ""
	}
	l.mu.Unlock()

	if err != nil {
		if expire(l.sess, err) {
			return ErrSessionExpired
		}
		log.Error().Err(err).Str("item", id).Msg("failed to delete item")
		l.mu.Lock()
		l.state.Message = failure("Delete failed")
		l.mu.Unlock()
		return nil
	}

	log.Info().Str("item", id).Msg("item deleted")
	return l.Load(ctx)
}
