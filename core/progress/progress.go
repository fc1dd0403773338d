// Package progress tracks purchased courses and per-course lecture
// completion. Percentages are always derived from the completed set and the
// course content; the copy kept on PurchasedCourse is a read cache refreshed
// on every mutation.
package progress

import (
	"errors"
	"time"

	"github.com/irsalhamdi/lms-client/core/course"
)

var (
	ErrNotPurchased   = errors.New("course not purchased")
	ErrUnknownLecture = errors.New("lecture not part of course")
)

// Complete is the percentage of a finished course.
const Complete = 100.0

type PurchasedCourse struct {
	course.Course
	PurchasedAt       time.Time `json:"purchasedAt"`
	Progress          float64   `json:"progress"`
	CompletedLectures []string  `json:"completedLectures"`
}

type CourseProgress struct {
	CourseID           string   `json:"courseId"`
	CompletedLectures  []string `json:"completedLectures"`
	LastWatchedLecture string   `json:"lastWatchedLecture,omitempty"`
	Progress           float64  `json:"progress"`
}

// Done reports whether lectureID is in the completed set.
func (p CourseProgress) Done(lectureID string) bool {
	for _, id := range p.CompletedLectures {
		if id == lectureID {
			return true
		}
	}
	return false
}

func (p CourseProgress) clone() CourseProgress {
	p.CompletedLectures = append([]string{}, p.CompletedLectures...)
	return p
}

func (p PurchasedCourse) clone() PurchasedCourse {
	p.CompletedLectures = append([]string{}, p.CompletedLectures...)
	return p
}

// Percent computes 100*completed/total clamped to [0,100]. An unknown total
// counts as a single lecture.
func Percent(completed, total int) float64 {
	if total <= 0 {
		total = 1
	}
	p := float64(completed*100) / float64(total)
	switch {
	case p < 0:
		return 0
	case p > Complete:
		return Complete
	}
	return p
}
