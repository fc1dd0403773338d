package note

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/lms-client/api/web"
	"github.com/irsalhamdi/lms-client/api/weberr"
	"github.com/irsalhamdi/lms-client/validate"
)

type NoteUp struct {
	Content string `json:"content"`
}

// HandleList returns the notes of a lecture when lectureId is given, or of
// the whole course.
func HandleList(s *Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		qs := web.Query(r, "courseId", "lectureId")
		courseID, lectureID := qs[0], qs[1]
		if courseID == "" {
			err := errors.New("courseId query parameter is required")
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		if lectureID != "" {
			return web.Respond(ctx, w, s.ByLecture(courseID, lectureID), http.StatusOK)
		}
		return web.Respond(ctx, w, s.ByCourse(courseID), http.StatusOK)
	}
}

func HandleCreate(s *Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var nn NoteNew
		if err := web.Decode(w, r, &nn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		n, err := s.Add(ctx, nn)
		if err != nil {
			if validate.IsFieldError(err) {
				return weberr.NewError(err, err.Error(), http.StatusBadRequest)
			}
			return fmt.Errorf("adding note: %w", err)
		}

		return web.Respond(ctx, w, n, http.StatusCreated)
	}
}

func HandleUpdate(s *Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")

		if err := validate.CheckID(id); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		var up NoteUp
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		n, err := s.Update(ctx, id, up.Content)
		if err != nil {
			switch {
			case validate.IsFieldError(err):
				return weberr.NewError(err, err.Error(), http.StatusBadRequest)
			case errors.Is(err, ErrNotFound):
				return weberr.NotFound(err)
			}
			return fmt.Errorf("updating note[%s]: %w", id, err)
		}

		return web.Respond(ctx, w, n, http.StatusOK)
	}
}

func HandleDelete(s *Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")

		if err := validate.CheckID(id); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		if err := s.Delete(ctx, id); err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("deleting note[%s]: %w", id, err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
