package certificate

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/lms-client/api/web"
	"github.com/irsalhamdi/lms-client/api/weberr"
	"github.com/irsalhamdi/lms-client/core/claims"
)

func HandleListMine(s *Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("student not authenticated"))
		}

		return web.Respond(ctx, w, s.ByStudent(clm.Email), http.StatusOK)
	}
}

func HandleShowByCourse(s *Store) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("student not authenticated"))
		}

		id := web.Param(r, "course_id")
		c, ok := s.Get(id, clm.Email)
		if !ok {
			return weberr.NotFound(fmt.Errorf("certificate of course[%s] for %s", id, clm.Email))
		}

		return web.Respond(ctx, w, c, http.StatusOK)
	}
}
