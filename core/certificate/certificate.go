// Package certificate mints one completion certificate per course and
// student.
package certificate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/irsalhamdi/lms-client/random"
	"github.com/irsalhamdi/lms-client/storage"
	"github.com/irsalhamdi/lms-client/validate"
	"github.com/sirupsen/logrus"
)

const (
	NumberPrefix = "LMS-"
	NumberLength = 8

	maxNumberAttempts = 10
)

var ErrNumberExhausted = errors.New("could not generate a unique certificate number")

type Certificate struct {
	ID             string    `json:"id"`
	CourseID       string    `json:"courseId"`
	CourseName     string    `json:"courseName"`
	StudentName    string    `json:"studentName"`
	StudentEmail   string    `json:"studentEmail"`
	InstructorName string    `json:"instructorName"`
	CompletedAt    time.Time `json:"completedAt"`
	Number         string    `json:"certificateNumber"`
}

// Request carries the snapshots written on the certificate.
type Request struct {
	CourseID       string `validate:"required"`
	CourseName     string `validate:"required"`
	StudentName    string `validate:"required"`
	StudentEmail   string `validate:"required,email"`
	InstructorName string
}

type state struct {
	Certificates []Certificate `json:"certificates"`
}

type Store struct {
	mu      sync.RWMutex
	state   state
	storage storage.Storage
	log     logrus.FieldLogger
	now     func() time.Time
	number  func() (string, error)
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithNumbers replaces the certificate number generator.
func WithNumbers(f func() (string, error)) Option {
	return func(s *Store) { s.number = f }
}

func Open(ctx context.Context, st storage.Storage, log logrus.FieldLogger, opts ...Option) (*Store, error) {
	s := &Store{
		storage: st,
		log:     log.WithField("store", storage.CertificateKey),
		now:     time.Now,
		number:  NewNumber,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := storage.Load(ctx, st, s.log, storage.CertificateKey, &s.state); err != nil {
		return nil, fmt.Errorf("loading certificates: %w", err)
	}
	return s, nil
}

// NewNumber returns a fresh LMS-XXXXXXXX certificate number.
func NewNumber() (string, error) {
	suffix, err := random.StringSecure(random.Upper, NumberLength)
	if err != nil {
		return "", err
	}
	return NumberPrefix + suffix, nil
}

// sameStudent compares emails case-insensitively.
func sameStudent(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// find must be called with mu held.
func (s *Store) find(courseID, email string) (Certificate, bool) {
	for _, c := range s.state.Certificates {
		if c.CourseID == courseID && sameStudent(c.StudentEmail, email) {
			return c, true
		}
	}
	return Certificate{}, false
}

// uniqueNumber must be called with mu held.
func (s *Store) uniqueNumber() (string, error) {
	taken := make(map[string]struct{}, len(s.state.Certificates))
	for _, c := range s.state.Certificates {
		taken[c.Number] = struct{}{}
	}

	for i := 0; i < maxNumberAttempts; i++ {
		n, err := s.number()
		if err != nil {
			return "", fmt.Errorf("generating certificate number: %w", err)
		}
		if _, dup := taken[n]; !dup {
			return n, nil
		}
	}
	return "", ErrNumberExhausted
}

// Generate returns the certificate of r.StudentEmail for r.CourseID,
// creating it on first call. Later calls return the stored certificate
// unchanged, whatever snapshots they carry. The bool reports creation.
func (s *Store) Generate(ctx context.Context, r Request) (Certificate, bool, error) {
	if err := validate.Check(r); err != nil {
		return Certificate{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.find(r.CourseID, r.StudentEmail); ok {
		return c, false, nil
	}

	n, err := s.uniqueNumber()
	if err != nil {
		return Certificate{}, false, err
	}

	c := Certificate{
		ID:             validate.GenerateID(),
		CourseID:       r.CourseID,
		CourseName:     r.CourseName,
		StudentName:    r.StudentName,
		StudentEmail:   strings.TrimSpace(r.StudentEmail),
		InstructorName: r.InstructorName,
		CompletedAt:    s.now().UTC(),
		Number:         n,
	}
	s.state.Certificates = append(s.state.Certificates, c)

	s.log.WithFields(logrus.Fields{
		"course_id": c.CourseID,
		"number":    c.Number,
	}).Info("certificate issued")

	if err := s.save(ctx); err != nil {
		return c, true, err
	}
	return c, true, nil
}

func (s *Store) Get(courseID, studentEmail string) (Certificate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.find(courseID, studentEmail)
}

func (s *Store) Has(courseID, studentEmail string) bool {
	_, ok := s.Get(courseID, studentEmail)
	return ok
}

// ByStudent lists every certificate of studentEmail in issue order.
func (s *Store) ByStudent(studentEmail string) []Certificate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Certificate
	for _, c := range s.state.Certificates {
		if sameStudent(c.StudentEmail, studentEmail) {
			out = append(out, c)
		}
	}
	return out
}

func (s *Store) save(ctx context.Context) error {
	return storage.Save(ctx, s.storage, storage.CertificateKey, s.state)
}
