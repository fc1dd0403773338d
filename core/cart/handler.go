package cart

import (
	"context"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/lms-client/api/web"
	"github.com/irsalhamdi/lms-client/api/weberr"
	"github.com/irsalhamdi/lms-client/core/course"
	"github.com/irsalhamdi/lms-client/validate"
)

// Catalog resolves a course id to its details.
type Catalog interface {
	CourseDetails(ctx context.Context, courseID string) (course.Course, error)
}

type ItemNew struct {
	CourseID string `json:"courseId" validate:"required"`
}

type view struct {
	Items []course.Course `json:"items"`
	Total int             `json:"total"`
}

func HandleShow(r *Remote) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, req *http.Request) error {
		return web.Respond(ctx, w, view{Items: r.Items(), Total: r.Total()}, http.StatusOK)
	}
}

func HandleCreateItem(r *Remote, cat Catalog) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, req *http.Request) error {
		var in ItemNew
		if err := web.Decode(w, req, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(in); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		c, err := cat.CourseDetails(ctx, in.CourseID)
		if err != nil {
			return weberr.Upstream(fmt.Errorf("fetching course[%s]: %w", in.CourseID, err))
		}

		if err := r.Add(ctx, c); err != nil {
			return weberr.Upstream(err)
		}

		return web.Respond(ctx, w, view{Items: r.Items(), Total: r.Total()}, http.StatusOK)
	}
}

func HandleDeleteItem(r *Remote) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, req *http.Request) error {
		id := web.Param(req, "course_id")

		if !r.Contains(id) {
			return weberr.NotFound(fmt.Errorf("course[%s] not in cart", id))
		}

		if err := r.Remove(ctx, id); err != nil {
			return weberr.Upstream(err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleDelete(r *Remote) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, req *http.Request) error {
		if err := r.Clear(ctx); err != nil {
			return weberr.Upstream(err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
