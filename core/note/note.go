// Package note keeps the notes a student takes against lecture timestamps.
package note

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/irsalhamdi/lms-client/storage"
	"github.com/irsalhamdi/lms-client/validate"
	"github.com/sirupsen/logrus"
)

var ErrNotFound = errors.New("note not found")

type Note struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"courseId"`
	LectureID string    `json:"lectureId"`
	Content   string    `json:"content"`
	Timestamp float64   `json:"timestamp"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type NoteNew struct {
	CourseID  string  `json:"courseId" validate:"required"`
	LectureID string  `json:"lectureId" validate:"required"`
	Content   string  `json:"content" validate:"required,max=5000"`
	Timestamp float64 `json:"timestamp" validate:"gte=0"`
}

type state struct {
	Notes []Note `json:"notes"`
}

type Store struct {
	mu      sync.RWMutex
	state   state
	storage storage.Storage
	log     logrus.FieldLogger
	now     func() time.Time
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func Open(ctx context.Context, st storage.Storage, log logrus.FieldLogger, opts ...Option) (*Store, error) {
	s := &Store{
		storage: st,
		log:     log.WithField("store", storage.NotesKey),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := storage.Load(ctx, st, s.log, storage.NotesKey, &s.state); err != nil {
		return nil, fmt.Errorf("loading notes: %w", err)
	}
	return s, nil
}

func (s *Store) save(ctx context.Context) error {
	return storage.Save(ctx, s.storage, storage.NotesKey, s.state)
}

func (s *Store) indexOf(id string) int {
	for i, n := range s.state.Notes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) Add(ctx context.Context, nn NoteNew) (Note, error) {
	if err := validate.Check(nn); err != nil {
		return Note{}, err
	}

	now := s.now().UTC()
	n := Note{
		ID:        validate.GenerateID(),
		CourseID:  nn.CourseID,
		LectureID: nn.LectureID,
		Content:   nn.Content,
		Timestamp: nn.Timestamp,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Notes = append(s.state.Notes, n)
	if err := s.save(ctx); err != nil {
		return n, err
	}
	return n, nil
}

func (s *Store) Update(ctx context.Context, id string, content string) (Note, error) {
	if err := validate.Var("content", content, "required,max=5000"); err != nil {
		return Note{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Note{}, fmt.Errorf("note[%s]: %w", id, ErrNotFound)
	}

	s.state.Notes[i].Content = content
	s.state.Notes[i].UpdatedAt = s.now().UTC()
	n := s.state.Notes[i]
	if err := s.save(ctx); err != nil {
		return n, err
	}
	return n, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("note[%s]: %w", id, ErrNotFound)
	}

	notes := make([]Note, 0, len(s.state.Notes)-1)
	notes = append(notes, s.state.Notes[:i]...)
	notes = append(notes, s.state.Notes[i+1:]...)
	s.state.Notes = notes
	return s.save(ctx)
}

// ByLecture returns the notes of one lecture ordered by video position.
func (s *Store) ByLecture(courseID, lectureID string) []Note {
	out := s.filter(func(n Note) bool {
		return n.CourseID == courseID && n.LectureID == lectureID
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

// ByCourse returns the notes of a course in creation order.
func (s *Store) ByCourse(courseID string) []Note {
	return s.filter(func(n Note) bool { return n.CourseID == courseID })
}

func (s *Store) filter(keep func(Note) bool) []Note {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Note{}
	for _, n := range s.state.Notes {
		if keep(n) {
			out = append(out, n)
		}
	}
	return out
}
