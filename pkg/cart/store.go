package cart

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrNoSavedCart is returned by an ItemStore when no cart has been persisted
// for the session yet.
var ErrNoSavedCart = errors.New("no saved cart for session")

// ItemStore persists the serialized line items of a session cart. Only the
// items cross this boundary; totals are always recomputed after a load.
type ItemStore interface {
	LoadItems(ctx context.Context, sessionID string) ([]byte, error)
	SaveItems(ctx context.Context, sessionID string, data []byte) error
	DeleteItems(ctx context.Context, sessionID string) error
}

// Sessions manages one durable cart per session id on top of an ItemStore.
// Each operation is load-mutate-save; the aggregate itself stays a pure
// in-memory state machine.
type Sessions struct {
	store    ItemStore
	notifier Notifier
	logger   *zap.Logger
	sfg      singleflight.Group // collapses concurrent loads per session
}

func NewSessions(store ItemStore, notifier Notifier, logger *zap.Logger) *Sessions {
	return &Sessions{
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// Load rehydrates the session's cart. A session with no saved cart gets a
// fresh empty one. Only the raw snapshot read is collapsed by singleflight;
// every caller rehydrates its own aggregate, so concurrent requests for the
// same session never share cart state.
func (s *Sessions) Load(ctx context.Context, sessionID string) (*Cart, error) {
	v, err, _ := s.sfg.Do(sessionID, func() (interface{}, error) {
		data, err := s.store.LoadItems(ctx, sessionID)
		if errors.Is(err, ErrNoSavedCart) {
			return []byte(nil), nil
		}
		if err != nil {
			return nil, err
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}

	c := New(s.notifier)
	data := v.([]byte)
	if len(data) == 0 {
		return c, nil
	}

	if err := c.RestoreItems(data); err != nil {
		// A corrupt snapshot is unrecoverable; start over rather than
		// failing every cart operation for the session.
		s.logger.Warn("Discarding corrupt cart snapshot",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return New(s.notifier), nil
	}
	return c, nil
}

func (s *Sessions) save(ctx context.Context, sessionID string, c *Cart) error {
	data, err := c.MarshalItems()
	if err != nil {
		return err
	}
	return s.store.SaveItems(ctx, sessionID, data)
}

func (s *Sessions) AddItem(ctx context.Context, sessionID string, product ProductSnapshot, quantity int32, variant *Variant) (*Cart, error) {
	c, err := s.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	c.AddItem(product, quantity, variant)
	if err := s.save(ctx, sessionID, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Sessions) UpdateQuantity(ctx context.Context, sessionID, itemID string, quantity int32) (*Cart, error) {
	c, err := s.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	c.UpdateQuantity(itemID, quantity)
	if err := s.save(ctx, sessionID, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Sessions) RemoveItem(ctx context.Context, sessionID, itemID string) (*Cart, error) {
	c, err := s.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	c.RemoveItem(itemID)
	if err := s.save(ctx, sessionID, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Sessions) Clear(ctx context.Context, sessionID string) error {
	c, err := s.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	c.Clear()
	return s.store.DeleteItems(ctx, sessionID)
}
