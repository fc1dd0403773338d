package weberr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type remoteErr struct {
	status int
	reason string
}

func (e *remoteErr) Error() string   { return fmt.Sprintf("remote %d", e.status) }
func (e *remoteErr) StatusCode() int { return e.status }
func (e *remoteErr) Reason() string  { return e.reason }

func TestNewError(t *testing.T) {
	base := errors.New("boom")
	err := NewError(base, "nope", http.StatusConflict, WithFields(map[string]interface{}{"id": 7}))

	if !errors.Is(err, base) {
		t.Fatal("expected the cause to stay reachable")
	}

	body, status, ok := Response(err)
	if !ok || status != http.StatusConflict {
		t.Fatalf("expected a 409 response, got %d %v", status, ok)
	}
	if diff := cmp.Diff(&ErrorResponse{"nope"}, body); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}

	f, ok := Fields(err)
	if !ok || f["id"] != 7 {
		t.Fatalf("expected fields kept, got %v", f)
	}

	if _, _, ok := Response(base); ok {
		t.Fatal("expected a bare error to carry no response")
	}
}

func TestUpstream(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"client error", &remoteErr{404, "Course not found"}, 404, "Course not found"},
		{"client error without reason", &remoteErr{409, ""}, 409, "Conflict"},
		{"server error", &remoteErr{503, "db down"}, 502, "the backend could not process the request"},
		{"wrapped", fmt.Errorf("fetching: %w", &remoteErr{400, "bad id"}), 400, "bad id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, status, ok := Response(Upstream(tt.err))
			if !ok || status != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, status)
			}
			if got := body.(*ErrorResponse).Error; got != tt.msg {
				t.Fatalf("expected message %q, got %q", tt.msg, got)
			}
		})
	}

	plain := errors.New("dial tcp: refused")
	if err := Upstream(plain); err != plain {
		t.Fatalf("expected a plain error returned as is, got %v", err)
	}
}

func TestHeaders(t *testing.T) {
	err := NewError(errors.New("slow down"), "too many requests", http.StatusTooManyRequests,
		WithHeader("Retry-After", "1"),
	)

	if got := Headers(err).Get("Retry-After"); got != "1" {
		t.Fatalf("expected Retry-After 1, got %q", got)
	}
	if len(Headers(errors.New("x"))) != 0 {
		t.Fatal("expected no headers on a bare error")
	}
}
