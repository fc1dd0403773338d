package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/irsalhamdi/lms-client/core/checkout"
	"github.com/irsalhamdi/lms-client/core/coupon"
	"github.com/irsalhamdi/lms-client/core/course"
)

// User is the account returned by login.
type User struct {
	ID              string          `json:"_id"`
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	Role            string          `json:"role"`
	Avatar          string          `json:"avatar,omitempty"`
	Token           string          `json:"token,omitempty"`
	EnrolledCourses []course.Course `json:"enrolledCourses"`
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (c *Client) Login(ctx context.Context, cred Credentials) (User, error) {
	var u User
	if err := c.do(ctx, http.MethodPost, "auth/login", nil, cred, &u); err != nil {
		return User{}, err
	}
	if u.Token != "" {
		c.setToken(u.Token)
	}
	return u, nil
}

func (c *Client) Logout(ctx context.Context) error {
	defer c.setToken("")
	return c.do(ctx, http.MethodPost, "auth/logout", nil, nil, nil)
}

func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "auth/check", nil, nil, &u); err != nil {
		return User{}, err
	}
	return u, nil
}

// =============================================================================
// Cart

func (c *Client) AddToCart(ctx context.Context, courseID string) error {
	in := struct {
		CourseID string `json:"courseId"`
	}{courseID}
	return c.do(ctx, http.MethodPost, "cart/add", nil, in, nil)
}

func (c *Client) RemoveFromCart(ctx context.Context, courseID string) error {
	return c.do(ctx, http.MethodDelete, "cart/remove/"+url.PathEscape(courseID), nil, nil, nil)
}

func (c *Client) CartItems(ctx context.Context) ([]course.Course, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "cart/get", nil, nil, &raw); err != nil {
		return nil, err
	}

	items, err := list[course.Course](raw, "items", "cart", "data")
	if err != nil {
		return nil, fmt.Errorf("decoding cart items: %w", err)
	}
	return items, nil
}

// =============================================================================
// Courses

// CourseDetails fetches a course with its sections and lectures.
func (c *Client) CourseDetails(ctx context.Context, courseID string) (course.Course, error) {
	q := url.Values{"id": {courseID}}

	var raw struct {
		CourseDetails *course.Course `json:"courseDetails"`
		Data          *course.Course `json:"data"`
		course.Course
	}
	if err := c.do(ctx, http.MethodGet, "student/get/details", q, nil, &raw); err != nil {
		return course.Course{}, err
	}

	switch {
	case raw.CourseDetails != nil:
		return *raw.CourseDetails, nil
	case raw.Data != nil:
		return *raw.Data, nil
	}
	return raw.Course, nil
}

// =============================================================================
// Progress

func (c *Client) MarkLectureComplete(ctx context.Context, courseID, lectureID string) error {
	in := struct {
		CourseID  string `json:"courseId"`
		LectureID string `json:"lectureId"`
	}{courseID, lectureID}
	return c.do(ctx, http.MethodPost, "student/course/progress/mark-complete", nil, in, nil)
}

// =============================================================================
// Orders

func (c *Client) MakePayment(ctx context.Context, ord checkout.Order) error {
	return c.do(ctx, http.MethodPost, "order/make-payment", nil, ord, nil)
}

// =============================================================================
// Coupons

// wireCoupon is the backend's coupon document. courseId is either an id or
// a populated course.
type wireCoupon struct {
	ID                 string          `json:"_id"`
	Code               string          `json:"code"`
	CourseID           json.RawMessage `json:"courseId"`
	DiscountPercentage int             `json:"discountPercentage"`
	ValidFrom          time.Time       `json:"validFrom"`
	ValidUntil         time.Time       `json:"validUntil"`
	MaxUses            int             `json:"maxUses"`
	CurrentUses        int             `json:"currentUses"`
	IsActive           bool            `json:"isActive"`
	CreatedBy          string          `json:"createdBy"`
	CreatedAt          time.Time       `json:"createdAt"`
}

func (w wireCoupon) coupon() coupon.Coupon {
	c := coupon.Coupon{
		ID:              w.ID,
		Code:            w.Code,
		DiscountPercent: w.DiscountPercentage,
		ValidFrom:       w.ValidFrom,
		ValidUntil:      w.ValidUntil,
		MaxUses:         w.MaxUses,
		CurrentUses:     w.CurrentUses,
		IsActive:        w.IsActive,
		CreatedBy:       w.CreatedBy,
		CreatedAt:       w.CreatedAt,
	}

	var id string
	if err := json.Unmarshal(w.CourseID, &id); err == nil {
		c.CourseID = id
		return c
	}

	var crs struct {
		ID    string `json:"_id"`
		Title string `json:"courseTitle"`
	}
	if err := json.Unmarshal(w.CourseID, &crs); err == nil {
		c.CourseID = crs.ID
		c.CourseName = crs.Title
	}
	return c
}

func coupons(raw json.RawMessage) ([]coupon.Coupon, error) {
	ws, err := list[wireCoupon](raw, "coupons", "data")
	if err != nil {
		return nil, fmt.Errorf("decoding coupons: %w", err)
	}

	out := make([]coupon.Coupon, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.coupon())
	}
	return out, nil
}

func (c *Client) CheckCoupon(ctx context.Context, code, courseID string) (coupon.Applied, error) {
	q := url.Values{"code": {code}, "courseId": {courseID}}

	var out struct {
		CouponID           string `json:"couponId"`
		Code               string `json:"code"`
		CourseID           string `json:"courseId"`
		DiscountPercentage int    `json:"discountPercentage"`
	}
	if err := c.do(ctx, http.MethodPost, "coupons/check-coupon", q, nil, &out); err != nil {
		return coupon.Applied{}, err
	}

	return coupon.Applied{
		CouponID:        out.CouponID,
		Code:            out.Code,
		CourseID:        out.CourseID,
		DiscountPercent: out.DiscountPercentage,
	}, nil
}

func (c *Client) AvailableCoupons(ctx context.Context) ([]coupon.Coupon, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "coupons/get-available-coupons", nil, nil, &raw); err != nil {
		return nil, err
	}
	return coupons(raw)
}

func (c *Client) InstructorCoupons(ctx context.Context) ([]coupon.Coupon, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "coupons", nil, nil, &raw); err != nil {
		return nil, err
	}
	return coupons(raw)
}

func (c *Client) CreateCoupon(ctx context.Context, cn coupon.CouponNew) (coupon.Coupon, error) {
	in := struct {
		Code               string    `json:"code"`
		CourseID           string    `json:"courseId"`
		DiscountPercentage int       `json:"discountPercentage"`
		ValidFrom          time.Time `json:"validFrom"`
		ValidUntil         time.Time `json:"validUntil"`
		MaxUses            int       `json:"maxUses"`
	}{cn.Code, cn.CourseID, cn.DiscountPercent, cn.ValidFrom, cn.ValidUntil, cn.MaxUses}

	var raw struct {
		Coupon *wireCoupon `json:"coupon"`
		wireCoupon
	}
	if err := c.do(ctx, http.MethodPost, "coupons", nil, in, &raw); err != nil {
		return coupon.Coupon{}, err
	}

	w := raw.wireCoupon
	if raw.Coupon != nil {
		w = *raw.Coupon
	}
	cp := w.coupon()
	if cp.CourseName == "" {
		cp.CourseName = cn.CourseName
	}
	return cp, nil
}

func (c *Client) UpdateCouponStatus(ctx context.Context, id string, active bool) error {
	in := struct {
		IsActive bool `json:"isActive"`
	}{active}
	return c.do(ctx, http.MethodPut, "coupons/"+url.PathEscape(id)+"/status", nil, in, nil)
}

func (c *Client) DeleteCoupon(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "coupons/"+url.PathEscape(id), nil, nil, nil)
}
