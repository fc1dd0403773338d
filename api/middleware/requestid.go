package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/irsalhamdi/lms-client/api/web"
)

const RequestIDHeader = "X-Request-Id"

const maxRequestIDLen = 128

type reqIDKeyCtx int

const reqIDKey reqIDKeyCtx = 1

var (
	reqSeq    atomic.Int64
	reqPrefix = newPrefix()
)

func newPrefix() string {
	var buf [5]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "lmsd"
	}
	return hex.EncodeToString(buf[:])
}

// cleanID keeps the characters that are safe to log and echo back.
func cleanID(id string) string {
	id = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		}
		return -1
	}, id)
	if len(id) > maxRequestIDLen {
		id = id[:maxRequestIDLen]
	}
	return id
}

// RequestID tags the request with the caller's X-Request-Id, or a generated
// one, and echoes it in the response.
func RequestID() web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			id := cleanID(r.Header.Get(RequestIDHeader))
			if id == "" {
				id = fmt.Sprintf("%s-%d", reqPrefix, reqSeq.Add(1))
			}

			ctx = context.WithValue(ctx, reqIDKey, id)
			w.Header().Set(RequestIDHeader, id)

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

func ContextRequestID(ctx context.Context) string {
	id, _ := ctx.Value(reqIDKey).(string)
	return id
}
