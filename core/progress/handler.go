package progress

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/lms-client/api/web"
	"github.com/irsalhamdi/lms-client/api/weberr"
	"github.com/irsalhamdi/lms-client/core/course"
)

// Catalog resolves a course id to its details.
type Catalog interface {
	CourseDetails(ctx context.Context, courseID string) (course.Course, error)
}

func HandleListPurchased(s *Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.Respond(ctx, w, s.Courses(), http.StatusOK)
	}
}

func HandleShowProgress(s *Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "course_id")

		p, ok := s.Progress(id)
		if !ok {
			return weberr.NotFound(fmt.Errorf("course[%s]: %w", id, ErrNotPurchased))
		}

		return web.Respond(ctx, w, p, http.StatusOK)
	}
}

// HandleOpen fetches the course content and makes sure the course can be
// followed locally.
func HandleOpen(s *Store, cat Catalog) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "course_id")

		c, err := cat.CourseDetails(ctx, id)
		if err != nil {
			return weberr.Upstream(fmt.Errorf("fetching course[%s]: %w", id, err))
		}
		if c.ID == "" {
			return weberr.NotFound(fmt.Errorf("course[%s] has no details", id))
		}

		if err := s.Load(ctx, c); err != nil {
			return fmt.Errorf("loading course[%s]: %w", id, err)
		}

		pc, _ := s.Purchased(id)
		return web.Respond(ctx, w, pc, http.StatusOK)
	}
}

// Error maps the store errors to API errors.
func Error(err error) error {
	switch {
	case errors.Is(err, ErrNotPurchased):
		return weberr.NotFound(err)
	case errors.Is(err, ErrUnknownLecture):
		return weberr.NewError(err, err.Error(), http.StatusBadRequest)
	}
	return err
}
