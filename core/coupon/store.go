package coupon

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/irsalhamdi/lms-client/storage"
	"github.com/irsalhamdi/lms-client/validate"
	"github.com/sirupsen/logrus"
)

type state struct {
	Coupons []Coupon `json:"coupons"`
}

// Store is the client-authoritative coupon book: instructors author coupons
// and checkout validates against them locally.
type Store struct {
	mu      sync.RWMutex
	state   state
	storage storage.Storage
	log     logrus.FieldLogger
	now     func() time.Time
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func Open(ctx context.Context, st storage.Storage, log logrus.FieldLogger, opts ...Option) (*Store, error) {
	s := &Store{
		storage: st,
		log:     log.WithField("store", storage.CouponKey),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := storage.Load(ctx, st, s.log, storage.CouponKey, &s.state); err != nil {
		return nil, fmt.Errorf("loading coupons: %w", err)
	}
	return s, nil
}

// save must be called with mu held.
func (s *Store) save(ctx context.Context) error {
	return storage.Save(ctx, s.storage, storage.CouponKey, s.state)
}

func (s *Store) indexOf(id string) int {
	for i, c := range s.state.Coupons {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// find returns the coupon matching code for courseID. Must be called with
// mu held.
func (s *Store) find(code, courseID string) (int, bool) {
	code = Normalize(code)
	for i, c := range s.state.Coupons {
		if c.Code == code && c.CourseID == courseID {
			return i, true
		}
	}
	return -1, false
}

// Add creates an active coupon with no uses.
func (s *Store) Add(ctx context.Context, cn CouponNew) (Coupon, error) {
	cn.Code = Normalize(cn.Code)
	if err := validate.Check(cn); err != nil {
		return Coupon{}, err
	}
	if err := validate.Var("courseName", cn.CourseName, "required"); err != nil {
		return Coupon{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.find(cn.Code, cn.CourseID); ok {
		return Coupon{}, fmt.Errorf("code[%s] course[%s]: %w", cn.Code, cn.CourseID, ErrDuplicateCode)
	}

	c := Coupon{
		ID:              validate.GenerateID(),
		Code:            cn.Code,
		CourseID:        cn.CourseID,
		CourseName:      cn.CourseName,
		DiscountPercent: cn.DiscountPercent,
		ValidFrom:       cn.ValidFrom.UTC(),
		ValidUntil:      cn.ValidUntil.UTC(),
		MaxUses:         cn.MaxUses,
		IsActive:        true,
		CreatedBy:       cn.CreatedBy,
		CreatedAt:       s.now().UTC(),
	}

	s.state.Coupons = append(s.state.Coupons, c)
	if err := s.save(ctx); err != nil {
		return c, err
	}
	return c, nil
}

func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("coupon[%s]: %w", id, ErrNotFound)
	}

	coupons := make([]Coupon, 0, len(s.state.Coupons)-1)
	coupons = append(coupons, s.state.Coupons[:i]...)
	coupons = append(coupons, s.state.Coupons[i+1:]...)
	s.state.Coupons = coupons
	return s.save(ctx)
}

// ToggleStatus flips the active flag and returns the updated coupon.
func (s *Store) ToggleStatus(ctx context.Context, id string) (Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Coupon{}, fmt.Errorf("coupon[%s]: %w", id, ErrNotFound)
	}

	s.state.Coupons[i].IsActive = !s.state.Coupons[i].IsActive
	c := s.state.Coupons[i]
	if err := s.save(ctx); err != nil {
		return c, err
	}
	return c, nil
}

// Validate returns the coupon matching code (case-insensitively) for
// courseID when it is redeemable now. It never changes state.
func (s *Store) Validate(code, courseID string) (Coupon, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.find(code, courseID)
	if !ok {
		return Coupon{}, false
	}

	c := s.state.Coupons[i]
	if !c.Redeemable(s.now()) {
		return Coupon{}, false
	}
	return c, true
}

// Redeem counts one use of a redeemable coupon. Any failed rule yields
// ErrInvalid.
func (s *Store) Redeem(ctx context.Context, code, courseID string) (Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.find(code, courseID)
	if !ok || !s.state.Coupons[i].Redeemable(s.now()) {
		return Coupon{}, ErrInvalid
	}

	s.state.Coupons[i].CurrentUses++
	c := s.state.Coupons[i]
	if err := s.save(ctx); err != nil {
		return c, err
	}
	return c, nil
}

// Active lists the coupons a student could redeem right now.
func (s *Store) Active() []Coupon {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	var out []Coupon
	for _, c := range s.state.Coupons {
		if c.Redeemable(now) {
			out = append(out, c)
		}
	}
	return out
}

// ByInstructor lists the coupons authored by instructorID.
func (s *Store) ByInstructor(instructorID string) []Coupon {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Coupon
	for _, c := range s.state.Coupons {
		if c.CreatedBy == instructorID {
			out = append(out, c)
		}
	}
	return out
}

func (s *Store) Get(id string) (Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return Coupon{}, fmt.Errorf("coupon[%s]: %w", id, ErrNotFound)
	}
	return s.state.Coupons[i], nil
}
