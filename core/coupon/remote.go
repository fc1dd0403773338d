package coupon

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/irsalhamdi/lms-client/validate"
	"github.com/sirupsen/logrus"
)

// Backend is the server-authoritative coupon service.
type Backend interface {
	CheckCoupon(ctx context.Context, code, courseID string) (Applied, error)
	AvailableCoupons(ctx context.Context) ([]Coupon, error)
	InstructorCoupons(ctx context.Context) ([]Coupon, error)
	CreateCoupon(ctx context.Context, cn CouponNew) (Coupon, error)
	UpdateCouponStatus(ctx context.Context, id string, active bool) error
	DeleteCoupon(ctx context.Context, id string) error
}

const defaultReason = "Invalid Coupon"

// RejectedError is a coupon refused by the backend. Reason is the backend's
// message, passed on verbatim.
type RejectedError struct {
	Reason string
	Err    error
}

func (e *RejectedError) Error() string { return e.Reason }

func (e *RejectedError) Unwrap() error { return e.Err }

type reasoner interface{ Reason() string }

// Remote proxies coupon validation to the backend and keeps the coupon
// applied to the current checkout.
type Remote struct {
	backend Backend
	log     logrus.FieldLogger

	mu        sync.RWMutex
	applied   *Applied
	available []Coupon
	own       []Coupon
}

func NewRemote(b Backend, log logrus.FieldLogger) *Remote {
	return &Remote{
		backend: b,
		log:     log.WithField("component", "coupon_remote"),
	}
}

// Apply asks the backend to validate code for courseID. On success the
// coupon becomes the applied one; on any failure no coupon stays applied.
func (r *Remote) Apply(ctx context.Context, code, courseID string) (Applied, error) {
	code = Normalize(code)
	if err := validate.Var("code", code, "required,max=32,couponcode"); err != nil {
		return Applied{}, fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}

	a, err := r.backend.CheckCoupon(ctx, code, courseID)
	if err != nil {
		r.ClearApplied()

		rej := &RejectedError{Reason: defaultReason, Err: err}
		var rs reasoner
		if errors.As(err, &rs) && rs.Reason() != "" {
			rej.Reason = rs.Reason()
		}
		return Applied{}, rej
	}

	if a.Code == "" {
		a.Code = code
	}
	if a.CourseID == "" {
		a.CourseID = courseID
	}

	r.mu.Lock()
	r.applied = &a
	r.mu.Unlock()

	r.log.WithFields(logrus.Fields{
		"code":      a.Code,
		"course_id": a.CourseID,
		"discount":  a.DiscountPercent,
	}).Info("coupon applied")

	return a, nil
}

func (r *Remote) Applied() (Applied, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.applied == nil {
		return Applied{}, false
	}
	return *r.applied, true
}

func (r *Remote) ClearApplied() {
	r.mu.Lock()
	r.applied = nil
	r.mu.Unlock()
}

// FetchAvailable loads the public deals.
func (r *Remote) FetchAvailable(ctx context.Context) ([]Coupon, error) {
	cs, err := r.backend.AvailableCoupons(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching available coupons: %w", err)
	}

	r.mu.Lock()
	r.available = cs
	r.mu.Unlock()
	return cs, nil
}

// Available returns the cached public deals.
func (r *Remote) Available() []Coupon {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Coupon, len(r.available))
	copy(out, r.available)
	return out
}

// FetchOwn loads the coupons of the logged-in instructor.
func (r *Remote) FetchOwn(ctx context.Context) ([]Coupon, error) {
	cs, err := r.backend.InstructorCoupons(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching instructor coupons: %w", err)
	}

	r.mu.Lock()
	r.own = cs
	r.mu.Unlock()
	return r.Own(), nil
}

// Own returns the cached instructor coupons.
func (r *Remote) Own() []Coupon {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Coupon, len(r.own))
	copy(out, r.own)
	return out
}

func (r *Remote) Create(ctx context.Context, cn CouponNew) (Coupon, error) {
	cn.Code = Normalize(cn.Code)
	if err := validate.Check(cn); err != nil {
		return Coupon{}, err
	}

	c, err := r.backend.CreateCoupon(ctx, cn)
	if err != nil {
		return Coupon{}, fmt.Errorf("creating coupon %s: %w", cn.Code, err)
	}

	r.mu.Lock()
	r.own = append(r.own, c)
	r.mu.Unlock()
	return c, nil
}

// ToggleStatus flips the active flag in the cache right away and reverts it
// when the backend refuses the change.
func (r *Remote) ToggleStatus(ctx context.Context, id string) (Coupon, error) {
	r.mu.Lock()
	i := indexOf(r.own, id)
	if i < 0 {
		r.mu.Unlock()
		return Coupon{}, fmt.Errorf("coupon[%s]: %w", id, ErrNotFound)
	}
	r.own[i].IsActive = !r.own[i].IsActive
	c := r.own[i]
	r.mu.Unlock()

	if err := r.backend.UpdateCouponStatus(ctx, id, c.IsActive); err != nil {
		r.mu.Lock()
		if i := indexOf(r.own, id); i >= 0 {
			r.own[i].IsActive = !c.IsActive
		}
		r.mu.Unlock()

		r.log.WithField("coupon_id", id).Warnf("status change reverted: %v", err)
		return Coupon{}, fmt.Errorf("updating status of coupon[%s]: %w", id, err)
	}

	return c, nil
}

func (r *Remote) Delete(ctx context.Context, id string) error {
	r.mu.RLock()
	known := indexOf(r.own, id) >= 0
	r.mu.RUnlock()
	if !known {
		return fmt.Errorf("coupon[%s]: %w", id, ErrNotFound)
	}

	if err := r.backend.DeleteCoupon(ctx, id); err != nil {
		return fmt.Errorf("deleting coupon[%s]: %w", id, err)
	}

	r.mu.Lock()
	if i := indexOf(r.own, id); i >= 0 {
		r.own = append(r.own[:i:i], r.own[i+1:]...)
	}
	r.mu.Unlock()
	return nil
}

func indexOf(cs []Coupon, id string) int {
	for i, c := range cs {
		if c.ID == id {
			return i
		}
	}
	return -1
}
