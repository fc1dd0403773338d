package progress

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/irsalhamdi/lms-client/core/course"
	"github.com/irsalhamdi/lms-client/storage"
	"github.com/sirupsen/logrus"
)

type state struct {
	PurchasedCourses []PurchasedCourse        `json:"purchasedCourses"`
	CourseProgress   map[string]CourseProgress `json:"courseProgress"`
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
		log:     log.WithField("store", storage.CourseKey),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := storage.Load(ctx, st, s.log, storage.CourseKey, &s.state); err != nil {
		return nil, fmt.Errorf("loading course progress: %w", err)
	}
	if s.state.CourseProgress == nil {
		s.state.CourseProgress = make(map[string]CourseProgress)
	}
	return s, nil
}

// save must be called with mu held.
func (s *Store) save(ctx context.Context) error {
	return storage.Save(ctx, s.storage, storage.CourseKey, s.state)
}

func (s *Store) indexOf(courseID string) int {
	for i, pc := range s.state.PurchasedCourses {
		if pc.ID == courseID {
			return i
		}
	}
	return -1
}

func (s *Store) newPurchase(c course.Course) PurchasedCourse {
	return PurchasedCourse{
		Course:            c,
		PurchasedAt:       s.now().UTC(),
		CompletedLectures: []string{},
	}
}

func newProgress(courseID string) CourseProgress {
	return CourseProgress{
		CourseID:          courseID,
		CompletedLectures: []string{},
	}
}

// refresh recomputes the percentage of courseID and mirrors it onto the
// purchased course. The percentage never goes down, even when fresh content
// adds lectures. Must be called with mu held.
func (s *Store) refresh(courseID string) {
	p, ok := s.state.CourseProgress[courseID]
	if !ok {
		return
	}

	i := s.indexOf(courseID)
	total := 0
	if i >= 0 {
		total = s.state.PurchasedCourses[i].TotalLectures()
	}

	if pct := Percent(len(p.CompletedLectures), total); pct > p.Progress {
		p.Progress = pct
	}
	s.state.CourseProgress[courseID] = p

	if i >= 0 {
		pc := s.state.PurchasedCourses[i]
		pc.Progress = p.Progress
		pc.CompletedLectures = append([]string{}, p.CompletedLectures...)
		s.state.PurchasedCourses[i] = pc
	}
}

// Load makes sure c has a purchased entry and a progress entry, as when a
// student lands on a learning page through a deep link. An existing entry
// keeps its purchase date and progress; its course data is replaced when c
// carries lecture content.
func (s *Store) Load(ctx context.Context, c course.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(c.ID)
	_, hasProgress := s.state.CourseProgress[c.ID]

	refreshContent := i >= 0 && c.TotalLectures() > 0
	if i >= 0 && hasProgress && !refreshContent {
		return nil
	}

	switch {
	case i < 0:
		s.state.PurchasedCourses = append(s.state.PurchasedCourses, s.newPurchase(c))
	case refreshContent:
		s.state.PurchasedCourses[i].Course = c
	}

	if !hasProgress {
		s.state.CourseProgress[c.ID] = newProgress(c.ID)
	}

	s.refresh(c.ID)
	return s.save(ctx)
}

// Purchase records every course of courses that is not purchased yet.
// Already purchased courses are skipped and keep their purchase date.
// It returns the courses that were newly recorded.
func (s *Store) Purchase(ctx context.Context, courses []course.Course) ([]PurchasedCourse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var added []PurchasedCourse
	for _, c := range courses {
		if s.indexOf(c.ID) >= 0 {
			continue
		}

		pc := s.newPurchase(c)
		s.state.PurchasedCourses = append(s.state.PurchasedCourses, pc)
		s.state.CourseProgress[c.ID] = newProgress(c.ID)
		added = append(added, pc.clone())
	}

	if len(added) == 0 {
		return nil, nil
	}

	if err := s.save(ctx); err != nil {
		return added, err
	}
	return added, nil
}

// Sync replaces the purchased list with the server's enrollment. Progress
// of courses already known locally is preserved and recomputed against the
// server's course content; new courses start at zero.
func (s *Store) Sync(ctx context.Context, courses []course.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	purchased := make([]PurchasedCourse, 0, len(courses))
	progress := make(map[string]CourseProgress, len(courses))

	for _, c := range courses {
		if _, dup := progress[c.ID]; dup {
			continue
		}

		pc := s.newPurchase(c)
		if i := s.indexOf(c.ID); i >= 0 {
			pc.PurchasedAt = s.state.PurchasedCourses[i].PurchasedAt
			if c.TotalLectures() == 0 {
				pc.Course.Content = s.state.PurchasedCourses[i].Content
			}
		}
		purchased = append(purchased, pc)

		if p, ok := s.state.CourseProgress[c.ID]; ok {
			progress[c.ID] = p
		} else {
			progress[c.ID] = newProgress(c.ID)
		}
	}

	dropped := 0
	for id := range s.state.CourseProgress {
		if _, ok := progress[id]; !ok {
			dropped++
		}
	}

	s.state.PurchasedCourses = purchased
	s.state.CourseProgress = progress
	for _, pc := range purchased {
		s.refresh(pc.ID)
	}

	s.log.WithFields(logrus.Fields{
		"courses": len(purchased),
		"dropped": dropped,
	}).Info("synchronized enrollment")

	return s.save(ctx)
}

// MarkLectureComplete adds lectureID to the completed set of courseID and
// returns the resulting progress. Marking an already completed lecture
// changes nothing and reports changed=false.
func (s *Store) MarkLectureComplete(ctx context.Context, courseID, lectureID string) (p CourseProgress, changed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.state.CourseProgress[courseID]
	if !ok {
		return CourseProgress{}, false, fmt.Errorf("course[%s]: %w", courseID, ErrNotPurchased)
	}

	if i := s.indexOf(courseID); i >= 0 {
		c := s.state.PurchasedCourses[i].Course
		if c.TotalLectures() > 0 && !c.HasLecture(lectureID) {
			return p.clone(), false, fmt.Errorf("lecture[%s] of course[%s]: %w", lectureID, courseID, ErrUnknownLecture)
		}
	}

	if p.Done(lectureID) {
		return p.clone(), false, nil
	}

	p.CompletedLectures = append(append([]string{}, p.CompletedLectures...), lectureID)
	s.state.CourseProgress[courseID] = p
	s.refresh(courseID)

	p = s.state.CourseProgress[courseID].clone()
	if err := s.save(ctx); err != nil {
		return p, true, err
	}
	return p, true, nil
}

// SetLastWatched records the lecture to resume courseID from. It does
// nothing for a course without a progress entry.
func (s *Store) SetLastWatched(ctx context.Context, courseID, lectureID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.state.CourseProgress[courseID]
	if !ok {
		return nil
	}

	if i := s.indexOf(courseID); i >= 0 {
		c := s.state.PurchasedCourses[i].Course
		if c.TotalLectures() > 0 && !c.HasLecture(lectureID) {
			return fmt.Errorf("lecture[%s] of course[%s]: %w", lectureID, courseID, ErrUnknownLecture)
		}
	}

	if p.LastWatchedLecture == lectureID {
		return nil
	}

	p.LastWatchedLecture = lectureID
	s.state.CourseProgress[courseID] = p
	return s.save(ctx)
}

func (s *Store) Progress(courseID string) (CourseProgress, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.state.CourseProgress[courseID]
	if !ok {
		return CourseProgress{}, false
	}
	return p.clone(), true
}

func (s *Store) Purchased(courseID string) (PurchasedCourse, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(courseID)
	if i < 0 {
		return PurchasedCourse{}, false
	}
	return s.state.PurchasedCourses[i].clone(), true
}

// Courses lists the purchased courses in purchase order.
func (s *Store) Courses() []PurchasedCourse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]PurchasedCourse, 0, len(s.state.PurchasedCourses))
	for _, pc := range s.state.PurchasedCourses {
		out = append(out, pc.clone())
	}
	return out
}

func (s *Store) IsPurchased(courseID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.indexOf(courseID) >= 0
}

// IsCompleted reports whether courseID is at exactly 100 percent.
func (s *Store) IsCompleted(courseID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.state.CourseProgress[courseID]
	return ok && p.Progress == Complete
}

// Reset forgets every purchase and all progress, as on logout.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = state{
		PurchasedCourses: []PurchasedCourse{},
		CourseProgress:   make(map[string]CourseProgress),
	}
	return s.save(ctx)
}
