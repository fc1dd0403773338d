package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/irsalhamdi/lms-client/api/web"
	"github.com/irsalhamdi/lms-client/core/claims"
	"github.com/sirupsen/logrus"
	"github.com/zenazn/goji/web/mutil"
)

// Logger logs every request once it completes, with the account that made
// it when the route required a session.
func Logger(log logrus.FieldLogger) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			log := log

			if rid := ContextRequestID(ctx); rid != "" {
				log = log.WithField("req_id", rid)
			}

			log = log.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"remoteaddr": r.RemoteAddr,
			})

			log.Debug("started")
			startTime := time.Now().UTC()

			ctx = claims.Watch(ctx)
			lw := mutil.WrapWriter(w)
			err := handler(ctx, lw, r)

			if clm, ok := claims.Seen(ctx); ok {
				log = log.WithFields(logrus.Fields{
					"student_id": clm.StudentID,
					"role":       clm.Role,
				})
			}

			log = log.WithFields(logrus.Fields{
				"statuscode": lw.Status(),
				"bytes":      lw.BytesWritten(),
				"since":      time.Since(startTime).Nanoseconds(),
			})
			if lw.Status() >= http.StatusInternalServerError {
				log.Warn("completed")
			} else {
				log.Info("completed")
			}
			return err
		}
		return h
	}
	return m
}
