// Package auth keeps the local API session of the logged in student.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/lms-client/api/web"
	"github.com/irsalhamdi/lms-client/api/weberr"
	"github.com/irsalhamdi/lms-client/backend"
	"github.com/irsalhamdi/lms-client/core/claims"
	"github.com/irsalhamdi/lms-client/core/classroom"
	"github.com/irsalhamdi/lms-client/validate"
	"github.com/sirupsen/logrus"
)

const (
	studentIDKey = "student_id"
	nameKey      = "name"
	emailKey     = "email"
	roleKey      = "role"
)

// Authenticator logs the student in and out of the backend.
type Authenticator interface {
	Login(ctx context.Context, cred backend.Credentials) (backend.User, error)
	Logout(ctx context.Context) error
}

func LoadAndSave(session *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			var err error
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				err = handler(r.Context(), w, r)
			})
			session.LoadAndSave(next).ServeHTTP(w, r.WithContext(ctx))
			return err
		}
		return h
	}
	return m
}

func sessionClaims(ctx context.Context, session *scs.SessionManager) (claims.Claims, bool) {
	id := session.GetString(ctx, studentIDKey)
	if id == "" {
		return claims.Claims{}, false
	}
	return claims.Claims{
		StudentID: id,
		Name:      session.GetString(ctx, nameKey),
		Email:     session.GetString(ctx, emailKey),
		Role:      session.GetString(ctx, roleKey),
	}, true
}

func Authenticate(session *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			clm, ok := sessionClaims(ctx, session)
			if !ok {
				return weberr.NotAuthorized(errors.New("student not logged in"))
			}

			return handler(claims.Set(ctx, clm), w, r)
		}
		return h
	}
	return m
}

func Instructor(session *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			clm, ok := sessionClaims(ctx, session)
			if !ok {
				return weberr.NotAuthorized(errors.New("student not logged in"))
			}

			if clm.Role != claims.RoleInstructor {
				err := fmt.Errorf("account[%s] with role[%s] is not an instructor", clm.StudentID, clm.Role)
				return weberr.NewError(err, "instructor access required", http.StatusForbidden)
			}

			return handler(claims.Set(ctx, clm), w, r)
		}
		return h
	}
	return m
}

// HandleLogin logs in on the backend, synchronizes the enrollment and opens
// a local session.
func HandleLogin(a Authenticator, cls *classroom.Service, session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var cred backend.Credentials
		if err := web.Decode(w, r, &cred); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(cred); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		u, err := a.Login(ctx, cred)
		if err != nil {
			if st := backend.StatusOf(err); st == http.StatusUnauthorized || st == http.StatusBadRequest || st == http.StatusNotFound {
				return weberr.NotAuthorized(err)
			}
			return fmt.Errorf("logging in on backend: %w", err)
		}

		clm := claims.Claims{
			StudentID: u.ID,
			Name:      u.Name,
			Email:     u.Email,
			Role:      u.Role,
		}
		if clm.Role == "" {
			clm.Role = claims.RoleStudent
		}

		if err := cls.Login(ctx, clm, u.EnrolledCourses); err != nil {
			return fmt.Errorf("starting classroom: %w", err)
		}

		if err := session.RenewToken(ctx); err != nil {
			return fmt.Errorf("renewing session token: %w", err)
		}
		session.Put(ctx, studentIDKey, clm.StudentID)
		session.Put(ctx, nameKey, clm.Name)
		session.Put(ctx, emailKey, clm.Email)
		session.Put(ctx, roleKey, clm.Role)

		return web.Respond(ctx, w, clm, http.StatusOK)
	}
}

// HandleLogout resets the local state even when the backend cannot be
// reached.
func HandleLogout(a Authenticator, cls *classroom.Service, session *scs.SessionManager, log logrus.FieldLogger) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := a.Logout(ctx); err != nil {
			log.WithField("message", err).Warn("backend logout failed")
		}

		if err := cls.Logout(ctx); err != nil {
			return fmt.Errorf("resetting classroom: %w", err)
		}

		if err := session.Destroy(ctx); err != nil {
			return fmt.Errorf("destroying session: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
