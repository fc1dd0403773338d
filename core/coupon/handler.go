package coupon

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/lms-client/api/web"
	"github.com/irsalhamdi/lms-client/api/weberr"
	"github.com/irsalhamdi/lms-client/core/claims"
	"github.com/irsalhamdi/lms-client/validate"
)

type ApplyNew struct {
	Code     string `json:"code"`
	CourseID string `json:"courseId" validate:"required"`
}

// =============================================================================
// Server-authoritative coupons

func HandleApply(r *Remote) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, req *http.Request) error {
		var in ApplyNew
		if err := web.Decode(w, req, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(in); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		a, err := r.Apply(ctx, in.Code, in.CourseID)
		if err != nil {
			var rej *RejectedError
			switch {
			case errors.Is(err, ErrInvalidCode):
				return weberr.NewError(err, ErrInvalidCode.Error(), http.StatusBadRequest)
			case errors.As(err, &rej):
				return weberr.NewError(err, rej.Reason, http.StatusBadRequest)
			}
			return err
		}

		return web.Respond(ctx, w, a, http.StatusOK)
	}
}

func HandleShowApplied(r *Remote) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, req *http.Request) error {
		a, ok := r.Applied()
		if !ok {
			return weberr.NotFound(errors.New("no coupon applied"))
		}
		return web.Respond(ctx, w, a, http.StatusOK)
	}
}

func HandleClearApplied(r *Remote) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, req *http.Request) error {
		r.ClearApplied()
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleListAvailable(r *Remote) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, req *http.Request) error {
		cs, err := r.FetchAvailable(ctx)
		if err != nil {
			return weberr.Upstream(err)
		}
		return web.Respond(ctx, w, cs, http.StatusOK)
	}
}

func HandleListOwn(r *Remote) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, req *http.Request) error {
		cs, err := r.FetchOwn(ctx)
		if err != nil {
			return weberr.Upstream(err)
		}
		return web.Respond(ctx, w, cs, http.StatusOK)
	}
}

func HandleCreateRemote(r *Remote) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, req *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("instructor not authenticated"))
		}

		var cn CouponNew
		if err := web.Decode(w, req, &cn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}
		cn.CreatedBy = clm.StudentID

		c, err := r.Create(ctx, cn)
		if err != nil {
			if validate.IsFieldError(err) {
				return weberr.NewError(err, err.Error(), http.StatusBadRequest)
			}
			return weberr.Upstream(err)
		}

		return web.Respond(ctx, w, c, http.StatusCreated)
	}
}

func HandleToggleRemote(r *Remote) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, req *http.Request) error {
		id := web.Param(req, "id")

		c, err := r.ToggleStatus(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return weberr.Upstream(err)
		}

		return web.Respond(ctx, w, c, http.StatusOK)
	}
}

func HandleDeleteRemote(r *Remote) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, req *http.Request) error {
		id := web.Param(req, "id")

		if err := r.Delete(ctx, id); err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return weberr.Upstream(err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// =============================================================================
// Local coupon book

func HandleList(s *Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, req *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("instructor not authenticated"))
		}

		return web.Respond(ctx, w, s.ByInstructor(clm.StudentID), http.StatusOK)
	}
}

func HandleCreate(s *Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, req *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("instructor not authenticated"))
		}

		var cn CouponNew
		if err := web.Decode(w, req, &cn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}
		cn.CreatedBy = clm.StudentID

		c, err := s.Add(ctx, cn)
		if err != nil {
			switch {
			case validate.IsFieldError(err):
				return weberr.NewError(err, err.Error(), http.StatusBadRequest)
			case errors.Is(err, ErrDuplicateCode):
				return weberr.NewError(err, ErrDuplicateCode.Error(), http.StatusConflict)
			}
			return fmt.Errorf("adding coupon: %w", err)
		}

		return web.Respond(ctx, w, c, http.StatusCreated)
	}
}

func HandleToggle(s *Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, req *http.Request) error {
		id := web.Param(req, "id")

		if err := validate.CheckID(id); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		c, err := s.ToggleStatus(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("toggling coupon[%s]: %w", id, err)
		}

		return web.Respond(ctx, w, c, http.StatusOK)
	}
}

func HandleDelete(s *Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, req *http.Request) error {
		id := web.Param(req, "id")

		if err := validate.CheckID(id); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		if err := s.Remove(ctx, id); err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("removing coupon[%s]: %w", id, err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// HandleValidate checks a code against the local coupon book without
// using it.
func HandleValidate(s *Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, req *http.Request) error {
		qs := web.Query(req, "code", "courseId")
		code, courseID := qs[0], qs[1]

		c, ok := s.Validate(code, courseID)
		if !ok {
			return weberr.NewError(ErrInvalid, "Invalid Coupon", http.StatusNotFound)
		}

		return web.Respond(ctx, w, c, http.StatusOK)
	}
}
