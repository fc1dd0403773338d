package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/lms-client/api/web"
	"github.com/irsalhamdi/lms-client/api/weberr"
	"github.com/irsalhamdi/lms-client/core/cart"
	"github.com/irsalhamdi/lms-client/core/claims"
	"github.com/irsalhamdi/lms-client/core/coupon"
	"github.com/irsalhamdi/lms-client/core/course"
	"github.com/irsalhamdi/lms-client/validate"
)

// Catalog resolves a course id to its details.
type Catalog interface {
	CourseDetails(ctx context.Context, courseID string) (course.Course, error)
}

// Applier exposes the coupon applied to the cart, if any.
type Applier interface {
	Applied() (coupon.Applied, bool)
}

type partialResponse struct {
	Error     string   `json:"error"`
	Purchased []string `json:"purchased"`
	Failed    string   `json:"failed"`
	Remaining []string `json:"remaining"`
}

type statuser interface{ StatusCode() int }

func HandleCheckout(s *Service, c *cart.Store, a Applier) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("student not authenticated"))
		}

		var b Billing
		if err := web.Decode(w, r, &b); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		req := Request{
			Student: clm,
			Courses: c.Items(),
			Billing: b,
		}
		if ap, ok := a.Applied(); ok {
			req.Coupon = &ap
		}

		res, err := s.Checkout(ctx, req)
		if err != nil {
			return Error(err)
		}

		return web.Respond(ctx, w, res, http.StatusOK)
	}
}

// HandleBuyNow buys a single course from its page at the price of the
// coupon applied to it. The cart is not involved.
func HandleBuyNow(s *Service, cat Catalog, a Applier) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("student not authenticated"))
		}

		id := web.Param(r, "course_id")
		if s.progress.IsPurchased(id) {
			return weberr.NewError(fmt.Errorf("course[%s] already purchased", id), "course already purchased", http.StatusConflict)
		}

		var b Billing
		if err := web.Decode(w, r, &b); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		c, err := cat.CourseDetails(ctx, id)
		if err != nil {
			return weberr.Upstream(fmt.Errorf("fetching course[%s]: %w", id, err))
		}
		if c.ID == "" {
			return weberr.NotFound(fmt.Errorf("course[%s] has no details", id))
		}

		req := Request{
			Student: clm,
			Courses: []course.Course{c},
			Billing: b,
			Direct:  true,
		}
		if ap, ok := a.Applied(); ok && ap.CourseID == c.ID {
			req.Coupon = &ap
		}

		res, err := s.Checkout(ctx, req)
		if err != nil {
			return Error(err)
		}

		return web.Respond(ctx, w, res, http.StatusOK)
	}
}

// Error maps checkout failures to API errors.
func Error(err error) error {
	var perr *PartialError
	switch {
	case errors.Is(err, ErrEmptyCart):
		return weberr.UnprocessableEntity(err, "no items to checkout")
	case validate.IsFieldError(err):
		return weberr.NewError(err, err.Error(), http.StatusBadRequest)
	case errors.As(err, &perr):
		status := http.StatusBadGateway
		var st statuser
		if errors.As(perr.Err, &st) && st.StatusCode() >= 400 && st.StatusCode() < 500 {
			status = st.StatusCode()
		}
		body := partialResponse{
			Error:     "Payment failed. Please try again.",
			Purchased: perr.Purchased,
			Failed:    perr.Failed,
			Remaining: perr.Remaining,
		}
		return weberr.Wrap(err, weberr.WithResponse(body, status))
	}
	return fmt.Errorf("checking out: %w", err)
}
