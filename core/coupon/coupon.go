package coupon

import (
	"errors"
	"strings"
	"time"

	"github.com/irsalhamdi/lms-client/core/course"
)

var (
	// ErrInvalid is the single answer given to a student for a coupon that
	// fails any redemption rule.
	ErrInvalid       = errors.New("invalid coupon")
	ErrInvalidCode   = errors.New("please enter a valid coupon code")
	ErrNotFound      = errors.New("coupon not found")
	ErrDuplicateCode = errors.New("coupon code already exists for this course")
)

type Coupon struct {
	ID              string    `json:"id"`
	Code            string    `json:"code"`
	CourseID        string    `json:"courseId"`
	CourseName      string    `json:"courseName"`
	DiscountPercent int       `json:"discountPercent"`
	ValidFrom       time.Time `json:"validFrom"`
	ValidUntil      time.Time `json:"validUntil"`
	MaxUses         int       `json:"maxUses"`
	CurrentUses     int       `json:"currentUses"`
	IsActive        bool      `json:"isActive"`
	CreatedBy       string    `json:"createdBy"`
	CreatedAt       time.Time `json:"createdAt"`
}

// CouponNew is a coupon to create. The backend resolves the course name on
// its own; the local store needs one.
type CouponNew struct {
	Code            string    `json:"code" validate:"required,max=32,couponcode"`
	CourseID        string    `json:"courseId" validate:"required"`
	CourseName      string    `json:"courseName"`
	DiscountPercent int       `json:"discountPercent" validate:"required,gte=1,lte=100"`
	ValidFrom       time.Time `json:"validFrom" validate:"required"`
	ValidUntil      time.Time `json:"validUntil" validate:"required,gtefield=ValidFrom"`
	MaxUses         int       `json:"maxUses" validate:"required,gte=1"`
	CreatedBy       string    `json:"createdBy"`
}

// Normalize returns the canonical, upper-cased form of a code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Redeemable reports whether c can be used at now: active, within its
// validity window and under its usage cap.
func (c Coupon) Redeemable(now time.Time) bool {
	return c.IsActive &&
		!now.Before(c.ValidFrom) &&
		!now.After(c.ValidUntil) &&
		c.CurrentUses < c.MaxUses
}

// Applied is a coupon accepted for the current checkout.
type Applied struct {
	CouponID        string `json:"couponId,omitempty"`
	Code            string `json:"code"`
	CourseID        string `json:"courseId"`
	DiscountPercent int    `json:"discountPercentage"`
}

// Price returns the price of a course after the discount, which only
// applies to the coupon's own course.
func (a Applied) Price(courseID string, price int) int {
	if a.CourseID != courseID {
		return price
	}
	return course.Discounted(price, a.DiscountPercent)
}
