// Package cart owns the authoritative in-memory cart state, one session per
// user. Sessions do not survive a restart; the accepted loss window is a
// product decision, matching the rest of the workflow's in-memory lifecycle.
package cart

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/deegraphics/melisse-backend/pkg/errors"
	"github.com/deegraphics/melisse-backend/pkg/platform"
)

// LineItem is one cart entry. Immutable once added; Title is the dedup key
// (case-sensitive exact match). ID is minted at add time so UI bindings can
// survive renumbering.
type LineItem struct {
	ID         uuid.UUID
	Title      string
	PriceText  string
	PriceValue decimal.Decimal
	ImageRef   string
}

type session struct {
	items      []LineItem
	channelRef string
}

// ChannelResolver is the external directory slice reconciliation needs.
type ChannelResolver interface {
	Channel(ctx context.Context, id string) (*platform.Channel, error)
}

// Store maps user identity to that user's cart session. Mutations for one
// user are serialized by the event loop; the mutex only guards the map
// against readers on other goroutines.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*session)}
}

// Reconcile checks the session's channel reference against the external
// directory and invalidates the whole session when the channel vanished
// out-of-band. Must run before any mutating cart operation.
func (s *Store) Reconcile(ctx context.Context, userID string, dir ChannelResolver) error {
	s.mu.Lock()
	sess, ok := s.sessions[userID]
	ref := ""
	if ok {
		ref = sess.channelRef
	}
	s.mu.Unlock()

	if !ok || ref == "" {
		return nil
	}

	_, err := dir.Channel(ctx, ref)
	if err == nil {
		return nil
	}
	if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		s.mu.Lock()
		delete(s.sessions, userID)
		s.mu.Unlock()
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolving cart channel")
}

// AddItem appends the item unless an item with the same title already
// exists. Rejection leaves the session untouched.
func (s *Store) AddItem(userID string, item LineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.sessions[userID]
	if sess == nil {
		sess = &session{}
		s.sessions[userID] = sess
	}
	for _, existing := range sess.items {
		if existing.Title == item.Title {
			return pkgerrors.New(pkgerrors.CodeConflict, "⚠️ This item is already in your cart.")
		}
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	sess.items = append(sess.items, item)
	return nil
}

// RemoveItemAt deletes the item at the positional index, preserving the
// order of the remainder. Indices of later items shift down by one.
func (s *Store) RemoveItemAt(userID string, index int) (LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.sessions[userID]
	if sess == nil || index < 0 || index >= len(sess.items) {
		return LineItem{}, pkgerrors.New(pkgerrors.CodeValidation, "❌ Couldn't remove item.")
	}
	removed := sess.items[index]
	sess.items = append(sess.items[:index], sess.items[index+1:]...)
	return removed, nil
}

// RemoveItem deletes the item with the given stable id, sidestepping the
// stale-index hazard of positional removal.
func (s *Store) RemoveItem(userID string, id uuid.UUID) (LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.sessions[userID]
	if sess != nil {
		for i, item := range sess.items {
			if item.ID == id {
				sess.items = append(sess.items[:i], sess.items[i+1:]...)
				return item, nil
			}
		}
	}
	return LineItem{}, pkgerrors.New(pkgerrors.CodeValidation, "❌ Couldn't remove item.")
}

// Items returns a copy of the user's items in insertion order.
func (s *Store) Items(userID string) []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.sessions[userID]
	if sess == nil {
		return nil
	}
	items := make([]LineItem, len(sess.items))
	copy(items, sess.items)
	return items
}

// Count returns the number of items in the user's cart.
func (s *Store) Count(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.sessions[userID]
	if sess == nil {
		return 0
	}
	return len(sess.items)
}

// Total sums PriceValue over the session's items; zero for an absent or
// empty session.
func (s *Store) Total(userID string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	sess := s.sessions[userID]
	if sess == nil {
		return total
	}
	for _, item := range sess.items {
		total = total.Add(item.PriceValue)
	}
	return total
}

// BindChannel records the cart channel backing the session.
func (s *Store) BindChannel(userID, channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.sessions[userID]
	if sess == nil {
		sess = &session{}
		s.sessions[userID] = sess
	}
	sess.channelRef = channelID
}

// ChannelRef returns the session's cart channel id, empty when unbound.
func (s *Store) ChannelRef(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.sessions[userID]
	if sess == nil {
		return ""
	}
	return sess.channelRef
}

// OwnerByChannel returns the user whose session is bound to the given cart
// channel, empty when none is.
func (s *Store) OwnerByChannel(channelID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	for userID, sess := range s.sessions {
		if sess.channelRef == channelID {
			return userID
		}
	}
	return ""
}

// Clear drops the session entirely: items and channel reference.
func (s *Store) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, userID)
}

// Reset replaces the session with a single item bound to no channel. Used
// when the cart channel was recreated and the old contents no longer have a
// home.
func (s *Store) Reset(userID string, item LineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	s.sessions[userID] = &session{items: []LineItem{item}}
}
