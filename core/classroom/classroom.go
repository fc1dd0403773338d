// Package classroom ties the stores together for a logged in student:
// enrollment sync on login, lecture completion with remote reporting and
// certificate issuing, and reset on logout.
package classroom

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/irsalhamdi/lms-client/backend"
	"github.com/irsalhamdi/lms-client/config"
	"github.com/irsalhamdi/lms-client/core/cart"
	"github.com/irsalhamdi/lms-client/core/certificate"
	"github.com/irsalhamdi/lms-client/core/claims"
	"github.com/irsalhamdi/lms-client/core/course"
	"github.com/irsalhamdi/lms-client/core/progress"
	"github.com/irsalhamdi/lms-client/metrics"
	"github.com/sirupsen/logrus"
)

var ErrNoLectures = errors.New("course has no lectures")

// Reporter persists a lecture completion on the backend.
type Reporter interface {
	MarkLectureComplete(ctx context.Context, courseID, lectureID string) error
}

// Runner starts a task that outlives the request.
type Runner interface {
	Go(fn func()) bool
}

// AppliedCoupon is the holder of the coupon applied to the cart.
type AppliedCoupon interface {
	ClearApplied()
}

// CartSyncer reloads the cart cache from the backend.
type CartSyncer interface {
	Refresh(ctx context.Context) error
}

// Completion is the outcome of marking a lecture complete.
type Completion struct {
	Progress    progress.CourseProgress  `json:"progress"`
	Changed     bool                     `json:"changed"`
	Certificate *certificate.Certificate `json:"certificate,omitempty"`
}

type Service struct {
	progress *progress.Store
	certs    *certificate.Store
	cart     *cart.Store
	cartSync CartSyncer
	coupons  AppliedCoupon
	reporter Reporter
	bg       Runner
	cfg      config.Progress
	log      logrus.FieldLogger
}

type Config struct {
	Progress     *progress.Store
	Certificates *certificate.Store
	Cart         *cart.Store
	CartSync     CartSyncer
	Coupons      AppliedCoupon
	Reporter     Reporter
	Background   Runner
	Retry        config.Progress
	Log          logrus.FieldLogger
}

func New(cfg Config) *Service {
	return &Service{
		progress: cfg.Progress,
		certs:    cfg.Certificates,
		cart:     cfg.Cart,
		cartSync: cfg.CartSync,
		coupons:  cfg.Coupons,
		reporter: cfg.Reporter,
		bg:       cfg.Background,
		cfg:      cfg.Retry,
		log:      cfg.Log.WithField("component", "classroom"),
	}
}

// Login replaces the local enrollment with the courses the backend knows
// and reloads the cart. A cart that cannot be reloaded keeps its cache.
func (s *Service) Login(ctx context.Context, student claims.Claims, enrolled []course.Course) error {
	err := s.progress.Sync(ctx, enrolled)
	metrics.RecordEnrollmentSync(err)
	if err != nil {
		return fmt.Errorf("syncing enrollment of student[%s]: %w", student.StudentID, err)
	}

	if s.cartSync != nil {
		if err := s.cartSync.Refresh(ctx); err != nil {
			s.log.WithFields(logrus.Fields{
				"student_id": student.StudentID,
				"message":    err,
			}).Warn("cart not refreshed")
		}
	}
	return nil
}

// Logout forgets everything the session accumulated.
func (s *Service) Logout(ctx context.Context) error {
	if s.coupons != nil {
		s.coupons.ClearApplied()
	}
	if err := s.progress.Reset(ctx); err != nil {
		return fmt.Errorf("resetting progress: %w", err)
	}
	if err := s.cart.Clear(ctx); err != nil {
		return fmt.Errorf("clearing cart: %w", err)
	}
	return nil
}

// CompleteLecture marks lectureID complete locally, reports it to the
// backend in the background and issues the certificate once the course is
// finished. A failed report is logged and never undoes the local mark.
func (s *Service) CompleteLecture(ctx context.Context, student claims.Claims, courseID, lectureID string) (Completion, error) {
	p, changed, err := s.progress.MarkLectureComplete(ctx, courseID, lectureID)
	if err != nil && (errors.Is(err, progress.ErrNotPurchased) || errors.Is(err, progress.ErrUnknownLecture)) {
		return Completion{}, err
	}

	s.report(courseID, lectureID)

	cmp := Completion{Progress: p, Changed: changed}
	if err != nil {
		return cmp, fmt.Errorf("saving progress: %w", err)
	}

	if p.Progress < progress.Complete {
		return cmp, nil
	}

	cert, err := s.issue(ctx, student, courseID)
	if err != nil {
		return cmp, err
	}
	cmp.Certificate = &cert
	return cmp, nil
}

func (s *Service) issue(ctx context.Context, student claims.Claims, courseID string) (certificate.Certificate, error) {
	pc, ok := s.progress.Purchased(courseID)
	if !ok {
		return certificate.Certificate{}, fmt.Errorf("course[%s]: %w", courseID, progress.ErrNotPurchased)
	}

	cert, created, err := s.certs.Generate(ctx, certificate.Request{
		CourseID:       courseID,
		CourseName:     pc.Title,
		StudentName:    student.Name,
		StudentEmail:   student.Email,
		InstructorName: pc.Instructor.Name,
	})
	if err != nil {
		return cert, fmt.Errorf("issuing certificate for course[%s]: %w", courseID, err)
	}
	if created {
		metrics.RecordCertificate()
	}
	return cert, nil
}

// report sends the completion with exponential backoff. Client errors other
// than timeouts and throttling are not retried.
func (s *Service) report(courseID, lectureID string) {
	log := s.log.WithFields(logrus.Fields{
		"course_id":  courseID,
		"lecture_id": lectureID,
	})

	task := func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.MaxElapsed+time.Second)
		defer cancel()

		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = s.cfg.InitialBackoff
		eb.MaxElapsedTime = s.cfg.MaxElapsed
		b := backoff.WithContext(backoff.WithMaxRetries(eb, s.cfg.MaxRetries), ctx)

		op := func() error {
			err := s.reporter.MarkLectureComplete(ctx, courseID, lectureID)
			if err != nil && permanent(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		notify := func(err error, wait time.Duration) {
			log.WithField("message", err).Debugf("progress report failed, retrying in %s", wait)
		}

		err := backoff.RetryNotify(op, b, notify)
		metrics.RecordProgressReport(err)
		if err != nil {
			log.WithField("message", err).Warn("progress report abandoned")
			return
		}
		log.Debug("progress reported")
	}

	if !s.bg.Go(task) {
		metrics.RecordProgressReport(errors.New("dropped"))
	}
}

func permanent(err error) bool {
	st := backend.StatusOf(err)
	if st < 400 || st > 499 {
		return false
	}
	return st != http.StatusRequestTimeout && st != http.StatusTooManyRequests
}

// OpenLecture remembers lectureID as the place to resume courseID from.
func (s *Service) OpenLecture(ctx context.Context, courseID, lectureID string) error {
	return s.progress.SetLastWatched(ctx, courseID, lectureID)
}

// Resume returns the lecture to continue courseID with: the last watched
// one, or the first lecture of the course.
func (s *Service) Resume(courseID string) (course.Lecture, error) {
	pc, ok := s.progress.Purchased(courseID)
	if !ok {
		return course.Lecture{}, fmt.Errorf("course[%s]: %w", courseID, progress.ErrNotPurchased)
	}

	if p, ok := s.progress.Progress(courseID); ok && p.LastWatchedLecture != "" {
		if l, ok := pc.Lecture(p.LastWatchedLecture); ok {
			return l, nil
		}
	}

	l, ok := pc.First()
	if !ok {
		return course.Lecture{}, fmt.Errorf("course[%s]: %w", courseID, ErrNoLectures)
	}
	return l, nil
}
