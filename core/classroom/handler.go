package classroom

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/lms-client/api/web"
	"github.com/irsalhamdi/lms-client/api/weberr"
	"github.com/irsalhamdi/lms-client/core/claims"
	"github.com/irsalhamdi/lms-client/core/progress"
)

func HandleComplete(s *Service) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("student not authenticated"))
		}

		courseID := web.Param(r, "course_id")
		lectureID := web.Param(r, "lecture_id")

		cmpl, err := s.CompleteLecture(ctx, clm, courseID, lectureID)
		if err != nil {
			return progress.Error(err)
		}

		return web.Respond(ctx, w, cmpl, http.StatusOK)
	}
}

func HandleWatch(s *Service) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courseID := web.Param(r, "course_id")
		lectureID := web.Param(r, "lecture_id")

		if err := s.OpenLecture(ctx, courseID, lectureID); err != nil {
			return progress.Error(err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleResume(s *Service) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courseID := web.Param(r, "course_id")

		l, err := s.Resume(courseID)
		if err != nil {
			if errors.Is(err, ErrNoLectures) {
				return weberr.NotFound(fmt.Errorf("resuming: %w", err))
			}
			return progress.Error(err)
		}

		return web.Respond(ctx, w, l, http.StatusOK)
	}
}
