// Package checkout buys courses, either the whole cart or a single course
// bought straight from its page, one backend order per course.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/irsalhamdi/lms-client/core/claims"
	"github.com/irsalhamdi/lms-client/core/coupon"
	"github.com/irsalhamdi/lms-client/core/course"
	"github.com/irsalhamdi/lms-client/core/progress"
	"github.com/irsalhamdi/lms-client/metrics"
	"github.com/irsalhamdi/lms-client/random"
	"github.com/irsalhamdi/lms-client/validate"
	"github.com/sirupsen/logrus"
)

var ErrEmptyCart = errors.New("cart is empty")

const (
	StatusConfirmed = "confirmed"
	PaymentPaid     = "paid"
	PaymentMethod   = "Credit Card (Dummy)"
)

// Order is the payload of a single course purchase.
type Order struct {
	UserID         string    `json:"userId"`
	UserName       string    `json:"userName"`
	UserEmail      string    `json:"userEmail"`
	OrderStatus    string    `json:"orderStatus"`
	PaymentMethod  string    `json:"paymentMethod"`
	PaymentStatus  string    `json:"paymentStatus"`
	OrderDate      time.Time `json:"orderDate"`
	PaymentID      string    `json:"paymentId"`
	InstructorID   string    `json:"instructorId"`
	InstructorName string    `json:"instructorName"`
	CourseImage    string    `json:"courseImage"`
	CourseTitle    string    `json:"courseTitle"`
	CourseID       string    `json:"courseId"`
	CoursePricing  int       `json:"coursePricing"`
}

// Billing is the form filled at checkout. Card fields are checked for shape
// only and never leave the process. Spaces in the card number are ignored.
type Billing struct {
	FullName   string `json:"fullName" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	CardNumber string `json:"cardNumber" validate:"required,len=16,numeric"`
	ExpiryDate string `json:"expiryDate" validate:"required,datetime=01/06"`
	CVV        string `json:"cvv" validate:"required,len=3,numeric"`
}

type Request struct {
	Student claims.Claims
	Courses []course.Course
	Coupon  *coupon.Applied
	Billing Billing

	// Direct marks a purchase made outside the cart. The cart is left as is.
	Direct bool
}

// Result lists what a checkout bought.
type Result struct {
	Orders    []Order                    `json:"orders"`
	Purchased []progress.PurchasedCourse `json:"purchased"`
	Total     int                        `json:"total"`
}

// PartialError is returned when an order fails after earlier ones went
// through. Paid orders are not rolled back.
type PartialError struct {
	Purchased []string
	Failed    string
	Remaining []string
	Err       error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("checkout stopped at course[%s] after %d purchased, %d remaining: %v",
		e.Failed, len(e.Purchased), len(e.Remaining), e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// Payer places a single order.
type Payer interface {
	MakePayment(ctx context.Context, ord Order) error
}

// Redeemer counts a coupon use against a local coupon ledger.
type Redeemer interface {
	Redeem(ctx context.Context, code, courseID string) (coupon.Coupon, error)
}

// Cart is the cart paid courses leave.
type Cart interface {
	Drop(ctx context.Context, courseID string) error
}

// AppliedCoupon is the holder of the coupon applied to this checkout.
type AppliedCoupon interface {
	ClearApplied()
}

type Service struct {
	payer    Payer
	cart     Cart
	progress *progress.Store
	log      logrus.FieldLogger

	redeemer Redeemer
	applied  AppliedCoupon
	now      func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithRedeemer(r Redeemer) Option {
	return func(s *Service) { s.redeemer = r }
}

func WithAppliedCoupon(a AppliedCoupon) Option {
	return func(s *Service) { s.applied = a }
}

func New(p Payer, c Cart, pr *progress.Store, log logrus.FieldLogger, opts ...Option) *Service {
	s := &Service{
		payer:    p,
		cart:     c,
		progress: pr,
		log:      log.WithField("component", "checkout"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PaymentID returns a placeholder transaction id for an order placed at t.
func PaymentID(t time.Time) string {
	return fmt.Sprintf("DUMMY-%d-%s", t.UnixMilli(), random.String(9))
}

func (s *Service) order(req Request, c course.Course) Order {
	name := req.Student.Name
	if name == "" {
		name = req.Billing.FullName
	}
	email := req.Student.Email
	if email == "" {
		email = req.Billing.Email
	}

	price := c.Price
	if req.Coupon != nil {
		price = req.Coupon.Price(c.ID, price)
	}

	now := s.now().UTC()
	return Order{
		UserID:         req.Student.StudentID,
		UserName:       name,
		UserEmail:      email,
		OrderStatus:    StatusConfirmed,
		PaymentMethod:  PaymentMethod,
		PaymentStatus:  PaymentPaid,
		OrderDate:      now,
		PaymentID:      PaymentID(now),
		InstructorID:   c.Instructor.ID,
		InstructorName: c.Instructor.Name,
		CourseImage:    c.Thumbnail,
		CourseTitle:    c.Title,
		CourseID:       c.ID,
		CoursePricing:  price,
	}
}

// Checkout places one order per course in the given order and stops at the
// first failure. Courses paid before a failure are still recorded as
// purchased and, unless the purchase is direct, leave the cart.
func (s *Service) Checkout(ctx context.Context, req Request) (res Result, err error) {
	if len(req.Courses) == 0 {
		return Result{}, ErrEmptyCart
	}
	req.Billing.CardNumber = strings.ReplaceAll(req.Billing.CardNumber, " ", "")
	if err := validate.Check(req.Billing); err != nil {
		return Result{}, err
	}

	start := time.Now()
	defer func() {
		metrics.RecordCheckoutDuration(err, time.Since(start).Seconds())
	}()

	var paid []course.Course
	for i, c := range req.Courses {
		ord := s.order(req, c)

		perr := s.payer.MakePayment(ctx, ord)
		metrics.RecordCheckoutOrder(perr)
		if perr != nil {
			s.log.WithFields(logrus.Fields{
				"course_id": c.ID,
				"paid":      len(paid),
			}).Warn("order failed, checkout stopped")

			purchased, aerr := s.absorb(ctx, paid, req.Direct)
			res.Purchased = purchased
			perr = &PartialError{
				Purchased: ids(paid),
				Failed:    c.ID,
				Remaining: ids(req.Courses[i+1:]),
				Err:       perr,
			}
			if aerr != nil {
				return res, errors.Join(perr, aerr)
			}
			return res, perr
		}

		res.Orders = append(res.Orders, ord)
		res.Total += ord.CoursePricing
		paid = append(paid, c)
	}

	purchased, err := s.absorb(ctx, paid, req.Direct)
	res.Purchased = purchased
	if err != nil {
		return res, err
	}

	if req.Coupon != nil {
		s.spend(ctx, *req.Coupon)
	}

	s.log.WithFields(logrus.Fields{
		"student_id": req.Student.StudentID,
		"courses":    len(paid),
		"total":      res.Total,
		"direct":     req.Direct,
	}).Info("checkout completed")

	return res, nil
}

// absorb records paid courses as purchased and takes them out of the cart.
func (s *Service) absorb(ctx context.Context, paid []course.Course, direct bool) ([]progress.PurchasedCourse, error) {
	if len(paid) == 0 {
		return nil, nil
	}

	purchased, err := s.progress.Purchase(ctx, paid)
	if err != nil {
		return purchased, fmt.Errorf("recording purchases: %w", err)
	}

	if direct {
		return purchased, nil
	}
	for _, c := range paid {
		if err := s.cart.Drop(ctx, c.ID); err != nil {
			return purchased, fmt.Errorf("removing course[%s] from cart: %w", c.ID, err)
		}
	}
	return purchased, nil
}

func (s *Service) spend(ctx context.Context, a coupon.Applied) {
	if s.redeemer != nil {
		if _, err := s.redeemer.Redeem(ctx, a.Code, a.CourseID); err != nil {
			s.log.WithFields(logrus.Fields{
				"code":      a.Code,
				"course_id": a.CourseID,
				"message":   err,
			}).Debug("coupon not redeemed locally")
		}
	}
	if s.applied != nil {
		s.applied.ClearApplied()
	}
}

func ids(cs []course.Course) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.ID)
	}
	return out
}
