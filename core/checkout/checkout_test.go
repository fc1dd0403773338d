package checkout

import (
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/irsalhamdi/lms-client/core/cart"
	"github.com/irsalhamdi/lms-client/core/claims"
	"github.com/irsalhamdi/lms-client/core/coupon"
	"github.com/irsalhamdi/lms-client/core/course"
	"github.com/irsalhamdi/lms-client/core/progress"
	"github.com/irsalhamdi/lms-client/storage"
	"github.com/irsalhamdi/lms-client/validate"
	"github.com/sirupsen/logrus"
)

type fakePayer struct {
	orders []Order
	fail   map[string]error
}

func (f *fakePayer) MakePayment(ctx context.Context, ord Order) error {
	if err := f.fail[ord.CourseID]; err != nil {
		return err
	}
	f.orders = append(f.orders, ord)
	return nil
}

type fakeCoupons struct {
	redeemed []string
	cleared  bool
}

func (f *fakeCoupons) Redeem(ctx context.Context, code, courseID string) (coupon.Coupon, error) {
	f.redeemed = append(f.redeemed, code+"/"+courseID)
	return coupon.Coupon{Code: code, CourseID: courseID}, nil
}

func (f *fakeCoupons) ClearApplied() { f.cleared = true }

type fakeCartServer struct {
	items   []course.Course
	removed []string
	fail    error
}

func (f *fakeCartServer) AddToCart(ctx context.Context, courseID string) error { return nil }

func (f *fakeCartServer) RemoveFromCart(ctx context.Context, courseID string) error {
	if f.fail != nil {
		return f.fail
	}
	f.removed = append(f.removed, courseID)
	for i, c := range f.items {
		if c.ID == courseID {
			f.items = append(f.items[:i:i], f.items[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeCartServer) CartItems(ctx context.Context) ([]course.Course, error) {
	return append([]course.Course{}, f.items...), nil
}

type fixture struct {
	svc      *Service
	payer    *fakePayer
	coupons  *fakeCoupons
	server   *fakeCartServer
	cart     *cart.Store
	progress *progress.Store
	courses  []course.Course
}

func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	log := logrus.New()
	log.SetOutput(io.Discard)
	st := storage.NewMemory()

	c, err := cart.Open(ctx, st, log)
	if err != nil {
		t.Fatal(err)
	}
	p, err := progress.Open(ctx, st, log)
	if err != nil {
		t.Fatal(err)
	}

	courses := []course.Course{
		{ID: "c1", Title: "Go", Price: 1000, Instructor: course.Instructor{ID: "i1", Name: "Bob"}},
		{ID: "c2", Title: "SQL", Price: 500, Instructor: course.Instructor{ID: "i2", Name: "Eve"}},
		{ID: "c3", Title: "K8s", Price: 700, Instructor: course.Instructor{ID: "i1", Name: "Bob"}},
	}
	if err := c.Set(ctx, courses); err != nil {
		t.Fatal(err)
	}

	server := &fakeCartServer{items: append([]course.Course{}, courses...)}
	payer := &fakePayer{fail: map[string]error{}}
	cps := &fakeCoupons{}
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := New(payer, cart.NewRemote(c, server), p, log,
		WithClock(func() time.Time { return now }),
		WithRedeemer(cps),
		WithAppliedCoupon(cps),
	)

	return fixture{svc: svc, payer: payer, coupons: cps, server: server, cart: c, progress: p, courses: courses}
}

func billing() Billing {
	return Billing{
		FullName:   "Alice",
		Email:      "alice@x.com",
		CardNumber: "4242424242424242",
		ExpiryDate: "12/29",
		CVV:        "123",
	}
}

var student = claims.Claims{StudentID: "u1", Name: "Alice", Email: "alice@x.com", Role: claims.RoleStudent}

func TestCheckoutEmptyCart(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Checkout(context.Background(), Request{Student: student, Billing: billing()})
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
	if len(f.payer.orders) != 0 {
		t.Fatal("expected no orders")
	}
}

func TestCheckoutValidatesBilling(t *testing.T) {
	f := setup(t)

	b := billing()
	b.CVV = "12"
	_, err := f.svc.Checkout(context.Background(), Request{Student: student, Courses: f.courses, Billing: b})
	if !validate.IsFieldError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(f.payer.orders) != 0 {
		t.Fatal("expected no orders")
	}
	if f.cart.Len() != 3 {
		t.Fatalf("expected cart untouched, got %d items", f.cart.Len())
	}
}

func TestCheckout(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	applied := &coupon.Applied{Code: "SAVE20", CourseID: "c2", DiscountPercent: 20}
	res, err := f.svc.Checkout(ctx, Request{Student: student, Courses: f.courses, Coupon: applied, Billing: billing()})
	if err != nil {
		t.Fatal(err)
	}

	var prices []int
	for _, o := range f.payer.orders {
		prices = append(prices, o.CoursePricing)
	}
	if diff := cmp.Diff([]int{1000, 400, 700}, prices); diff != "" {
		t.Fatalf("order prices mismatch (-want +got):\n%s", diff)
	}
	if res.Total != 2100 {
		t.Fatalf("expected total 2100, got %d", res.Total)
	}

	o := f.payer.orders[0]
	if o.UserID != "u1" || o.OrderStatus != StatusConfirmed || o.PaymentStatus != PaymentPaid || o.InstructorName != "Bob" {
		t.Fatalf("unexpected order payload %+v", o)
	}
	if !regexp.MustCompile(`^DUMMY-\d+-[a-z0-9]{9}$`).MatchString(o.PaymentID) {
		t.Fatalf("unexpected payment id %q", o.PaymentID)
	}

	for _, c := range f.courses {
		if !f.progress.IsPurchased(c.ID) {
			t.Fatalf("expected course %s purchased", c.ID)
		}
	}
	if f.cart.Len() != 0 {
		t.Fatalf("expected empty cart, got %d items", f.cart.Len())
	}
	if diff := cmp.Diff([]string{"c1", "c2", "c3"}, f.server.removed); diff != "" {
		t.Fatalf("server cart removals mismatch (-want +got):\n%s", diff)
	}
	if !f.coupons.cleared {
		t.Fatal("expected applied coupon cleared")
	}
	if diff := cmp.Diff([]string{"SAVE20/c2"}, f.coupons.redeemed); diff != "" {
		t.Fatalf("redeemed mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckoutStopsAtFirstFailure(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.payer.fail["c2"] = errors.New("payment declined")

	applied := &coupon.Applied{Code: "SAVE20", CourseID: "c2", DiscountPercent: 20}
	res, err := f.svc.Checkout(ctx, Request{Student: student, Courses: f.courses, Coupon: applied, Billing: billing()})

	var perr *PartialError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PartialError, got %v", err)
	}
	want := &PartialError{Purchased: []string{"c1"}, Failed: "c2", Remaining: []string{"c3"}}
	if diff := cmp.Diff(want, perr, cmp.FilterPath(func(p cmp.Path) bool {
		return p.Last().String() == ".Err"
	}, cmp.Ignore())); diff != "" {
		t.Fatalf("partial error mismatch (-want +got):\n%s", diff)
	}

	if len(f.payer.orders) != 1 {
		t.Fatalf("expected no order after the failure, got %d", len(f.payer.orders))
	}
	if len(res.Purchased) != 1 || res.Purchased[0].ID != "c1" {
		t.Fatalf("expected c1 absorbed, got %+v", res.Purchased)
	}
	if !f.progress.IsPurchased("c1") || f.progress.IsPurchased("c2") || f.progress.IsPurchased("c3") {
		t.Fatal("unexpected purchased set")
	}

	var left []string
	for _, c := range f.cart.Items() {
		left = append(left, c.ID)
	}
	if diff := cmp.Diff([]string{"c2", "c3"}, left); diff != "" {
		t.Fatalf("cart mismatch (-want +got):\n%s", diff)
	}
	if f.coupons.cleared || len(f.coupons.redeemed) != 0 {
		t.Fatal("coupon must survive a failed checkout")
	}
}

func TestOrderFallsBackToBilling(t *testing.T) {
	f := setup(t)

	o := f.svc.order(Request{Billing: billing()}, f.courses[0])
	if o.UserName != "Alice" || o.UserEmail != "alice@x.com" {
		t.Fatalf("expected billing identity, got %+v", o)
	}
}

func TestCheckoutAcceptsSpacedCardNumber(t *testing.T) {
	f := setup(t)

	b := billing()
	b.CardNumber = "4242 4242 4242 4242"
	if _, err := f.svc.Checkout(context.Background(), Request{Student: student, Courses: f.courses[:1], Billing: b}); err != nil {
		t.Fatalf("expected a card number formatted in groups accepted, got %v", err)
	}

	b.CardNumber = "4242 4242 4242"
	if _, err := f.svc.Checkout(context.Background(), Request{Student: student, Courses: f.courses[1:2], Billing: b}); !validate.IsFieldError(err) {
		t.Fatalf("expected a short card number refused, got %v", err)
	}
}

func TestCheckoutWhenServerKeepsCart(t *testing.T) {
	f := setup(t)
	f.server.fail = errors.New("item not in cart")

	if _, err := f.svc.Checkout(context.Background(), Request{Student: student, Courses: f.courses, Billing: billing()}); err != nil {
		t.Fatalf("expected checkout to succeed once paid, got %v", err)
	}
	if f.cart.Len() != 0 {
		t.Fatalf("expected paid courses gone from the cache, got %d", f.cart.Len())
	}
}

func TestDirectCheckoutLeavesCart(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	applied := &coupon.Applied{Code: "SAVE20", CourseID: "c2", DiscountPercent: 20}
	res, err := f.svc.Checkout(ctx, Request{
		Student: student,
		Courses: f.courses[1:2],
		Coupon:  applied,
		Billing: billing(),
		Direct:  true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 400 {
		t.Fatalf("expected the coupon price 400, got %d", res.Total)
	}
	if !f.progress.IsPurchased("c2") {
		t.Fatal("expected c2 purchased")
	}
	if f.cart.Len() != 3 || len(f.server.removed) != 0 {
		t.Fatalf("expected cart untouched, got %d items and removals %v", f.cart.Len(), f.server.removed)
	}
	if !f.coupons.cleared {
		t.Fatal("expected applied coupon cleared")
	}
}
