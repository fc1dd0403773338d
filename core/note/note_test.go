package note

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/irsalhamdi/lms-client/storage"
	"github.com/irsalhamdi/lms-client/validate"
	"github.com/sirupsen/logrus"
)

func TestNotes(t *testing.T) {
	ctx := context.Background()
	log := logrus.New()
	log.SetOutput(io.Discard)

	clk := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	s, err := Open(ctx, storage.NewMemory(), log, WithClock(func() time.Time { return clk }))
	if err != nil {
		t.Fatal(err)
	}

	late, err := s.Add(ctx, NoteNew{CourseID: "c1", LectureID: "l1", Content: "closures", Timestamp: 300})
	if err != nil {
		t.Fatal(err)
	}
	early, err := s.Add(ctx, NoteNew{CourseID: "c1", LectureID: "l1", Content: "intro", Timestamp: 12.5})
	if err != nil {
		t.Fatal(err)
	}
	other, err := s.Add(ctx, NoteNew{CourseID: "c1", LectureID: "l2", Content: "maps", Timestamp: 1})
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	for _, n := range s.ByLecture("c1", "l1") {
		got = append(got, n.ID)
	}
	if diff := cmp.Diff([]string{early.ID, late.ID}, got); diff != "" {
		t.Fatalf("lecture notes mismatch (-want +got):\n%s", diff)
	}
	if n := len(s.ByCourse("c1")); n != 3 {
		t.Fatalf("expected 3 course notes, got %d", n)
	}

	clk = clk.Add(time.Minute)
	up, err := s.Update(ctx, late.ID, "closures capture variables")
	if err != nil {
		t.Fatal(err)
	}
	if up.Content != "closures capture variables" || !up.UpdatedAt.After(up.CreatedAt) {
		t.Fatalf("unexpected updated note %+v", up)
	}

	if err := s.Delete(ctx, other.ID); err != nil {
		t.Fatal(err)
	}
	if n := len(s.ByLecture("c1", "l2")); n != 0 {
		t.Fatalf("expected deleted note gone, got %d", n)
	}

	if _, err := s.Update(ctx, other.ID, "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Delete(ctx, other.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Add(ctx, NoteNew{CourseID: "c1", LectureID: "l1"}); !validate.IsFieldError(err) {
		t.Fatalf("expected validation error for empty content, got %v", err)
	}
	if _, err := s.Update(ctx, late.ID, ""); !validate.IsFieldError(err) {
		t.Fatalf("expected validation error for empty update, got %v", err)
	}
}
