// Package cart holds the courses a student intends to purchase.
package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/irsalhamdi/lms-client/core/course"
	"github.com/irsalhamdi/lms-client/storage"
	"github.com/sirupsen/logrus"
)

// Cart is the persisted slice.
type Cart struct {
	Items []course.Course `json:"items"`
}

// Store is the local cart. A course id appears at most once.
type Store struct {
	mu      sync.RWMutex
	cart    Cart
	storage storage.Storage
	log     logrus.FieldLogger
}

func Open(ctx context.Context, st storage.Storage, log logrus.FieldLogger) (*Store, error) {
	s := &Store{
		storage: st,
		log:     log.WithField("store", storage.CartKey),
	}

	if err := storage.Load(ctx, st, s.log, storage.CartKey, &s.cart); err != nil {
		return nil, fmt.Errorf("loading cart: %w", err)
	}
	return s, nil
}

// save must be called with mu held.
func (s *Store) save(ctx context.Context) error {
	return storage.Save(ctx, s.storage, storage.CartKey, s.cart)
}

func (s *Store) indexOf(courseID string) int {
	for i, c := range s.cart.Items {
		if c.ID == courseID {
			return i
		}
	}
	return -1
}

// Add inserts c unless a course with the same id is already present.
func (s *Store) Add(ctx context.Context, c course.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(c.ID) >= 0 {
		return nil
	}

	s.cart.Items = append(s.cart.Items, c)
	return s.save(ctx)
}

// Remove drops the course with courseID, if present.
func (s *Store) Remove(ctx context.Context, courseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(courseID)
	if i < 0 {
		return nil
	}

	items := make([]course.Course, 0, len(s.cart.Items)-1)
	items = append(items, s.cart.Items[:i]...)
	items = append(items, s.cart.Items[i+1:]...)
	s.cart.Items = items
	return s.save(ctx)
}

// Set replaces the whole cart. Duplicate ids in courses keep their first
// occurrence.
func (s *Store) Set(ctx context.Context, courses []course.Course) error {
	items := make([]course.Course, 0, len(courses))
	seen := make(map[string]struct{}, len(courses))
	for _, c := range courses {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		items = append(items, c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart.Items = items
	return s.save(ctx)
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart.Items = []course.Course{}
	return s.save(ctx)
}

func (s *Store) Contains(courseID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.indexOf(courseID) >= 0
}

// Total is the undiscounted sum of the item prices.
func (s *Store) Total() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tot int
	for _, c := range s.cart.Items {
		tot += c.Price
	}
	return tot
}

func (s *Store) Items() []course.Course {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]course.Course, len(s.cart.Items))
	copy(items, s.cart.Items)
	return items
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.cart.Items)
}
