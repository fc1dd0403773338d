package cart

import (
	"context"
	"fmt"

	"github.com/irsalhamdi/lms-client/core/course"
)

// Backend is the server-side cart.
type Backend interface {
	AddToCart(ctx context.Context, courseID string) error
	RemoveFromCart(ctx context.Context, courseID string) error
	CartItems(ctx context.Context) ([]course.Course, error)
}

// Remote treats the local Store as a cache of the server cart: mutations go
// to the server first and the cache is refreshed from the server's answer.
type Remote struct {
	*Store
	backend Backend
}

func NewRemote(s *Store, b Backend) *Remote {
	return &Remote{Store: s, backend: b}
}

// Refresh hydrates the cache from the server.
func (r *Remote) Refresh(ctx context.Context) error {
	items, err := r.backend.CartItems(ctx)
	if err != nil {
		return fmt.Errorf("fetching server cart: %w", err)
	}

	if err := r.Store.Set(ctx, items); err != nil {
		return fmt.Errorf("caching server cart: %w", err)
	}
	return nil
}

func (r *Remote) Add(ctx context.Context, c course.Course) error {
	if r.Store.Contains(c.ID) {
		return nil
	}

	if err := r.backend.AddToCart(ctx, c.ID); err != nil {
		return fmt.Errorf("adding course[%s] to server cart: %w", c.ID, err)
	}

	if err := r.Refresh(ctx); err != nil {
		r.log.WithField("course_id", c.ID).Warnf("server accepted item but refresh failed: %v", err)
		return r.Store.Add(ctx, c)
	}
	return nil
}

func (r *Remote) Remove(ctx context.Context, courseID string) error {
	if err := r.backend.RemoveFromCart(ctx, courseID); err != nil {
		return fmt.Errorf("removing course[%s] from server cart: %w", courseID, err)
	}

	if err := r.Refresh(ctx); err != nil {
		r.log.WithField("course_id", courseID).Warnf("server removed item but refresh failed: %v", err)
		return r.Store.Remove(ctx, courseID)
	}
	return nil
}

// Clear removes every item from the server cart, then empties the cache.
// It stops at the first server rejection.
func (r *Remote) Clear(ctx context.Context) error {
	for _, c := range r.Store.Items() {
		if err := r.backend.RemoveFromCart(ctx, c.ID); err != nil {
			if rerr := r.Refresh(ctx); rerr != nil {
				r.log.Warnf("refresh after failed clear: %v", rerr)
			}
			return fmt.Errorf("removing course[%s] from server cart: %w", c.ID, err)
		}
	}
	return r.Store.Clear(ctx)
}

// Drop takes a purchased course out of the cart. The server may have dropped
// it along with the order already, so a server refusal is only logged and
// the cached entry goes anyway.
func (r *Remote) Drop(ctx context.Context, courseID string) error {
	if !r.Store.Contains(courseID) {
		return nil
	}

	if err := r.Remove(ctx, courseID); err != nil {
		r.log.WithField("course_id", courseID).Warnf("server cart kept purchased course: %v", err)
		return r.Store.Remove(ctx, courseID)
	}
	return nil
}
