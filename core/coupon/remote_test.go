package coupon

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type reasonErr struct{ msg string }

func (e *reasonErr) Error() string  { return "backend: " + e.msg }
func (e *reasonErr) Reason() string { return e.msg }

type fakeBackend struct {
	checkErr  error
	statusErr error
	coupons   []Coupon
	checks    int
}

func (f *fakeBackend) CheckCoupon(ctx context.Context, code, courseID string) (Applied, error) {
	f.checks++
	if f.checkErr != nil {
		return Applied{}, f.checkErr
	}
	return Applied{CouponID: "c1", Code: code, DiscountPercent: 30}, nil
}

func (f *fakeBackend) AvailableCoupons(ctx context.Context) ([]Coupon, error) {
	return f.coupons, nil
}

func (f *fakeBackend) InstructorCoupons(ctx context.Context) ([]Coupon, error) {
	return f.coupons, nil
}

func (f *fakeBackend) CreateCoupon(ctx context.Context, cn CouponNew) (Coupon, error) {
	return Coupon{ID: "new", Code: cn.Code, CourseID: cn.CourseID, IsActive: true}, nil
}

func (f *fakeBackend) UpdateCouponStatus(ctx context.Context, id string, active bool) error {
	return f.statusErr
}

func (f *fakeBackend) DeleteCoupon(ctx context.Context, id string) error { return nil }

func TestApply(t *testing.T) {
	b := &fakeBackend{}
	r := NewRemote(b, newLog())

	a, err := r.Apply(context.Background(), "web50", "course-1")
	if err != nil {
		t.Fatal(err)
	}
	if a.Code != "WEB50" || a.CourseID != "course-1" || a.DiscountPercent != 30 {
		t.Fatalf("unexpected applied coupon %+v", a)
	}

	got, ok := r.Applied()
	if !ok || got != a {
		t.Fatalf("expected applied coupon kept, got %+v %v", got, ok)
	}
	if p := got.Price("course-1", 1000); p != 700 {
		t.Fatalf("expected discounted price 700, got %d", p)
	}
	if p := got.Price("course-2", 1000); p != 1000 {
		t.Fatalf("expected other course undiscounted, got %d", p)
	}
}

func TestApplyRejectsMalformedWithoutCall(t *testing.T) {
	b := &fakeBackend{}
	r := NewRemote(b, newLog())

	for _, code := range []string{"", "   ", "WEB 50", "WEB\t50", "WEB\x0050", strings.Repeat("A", 33)} {
		if _, err := r.Apply(context.Background(), code, "course-1"); !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("code %q: expected ErrInvalidCode, got %v", code, err)
		}
	}
	if b.checks != 0 {
		t.Fatalf("expected no backend call, got %d", b.checks)
	}
}

func TestApplyLeavesCodeFormatToBackend(t *testing.T) {
	b := &fakeBackend{}
	r := NewRemote(b, newLog())

	for _, code := range []string{"new-year25", "50%OFF", "BLACK_FRIDAY.2024"} {
		a, err := r.Apply(context.Background(), code, "course-1")
		if err != nil {
			t.Fatalf("code %q: expected the backend to decide, got %v", code, err)
		}
		if a.Code != Normalize(code) {
			t.Fatalf("code %q: expected %q applied, got %q", code, Normalize(code), a.Code)
		}
	}
	if b.checks != 3 {
		t.Fatalf("expected every code sent to the backend, got %d calls", b.checks)
	}
}

func TestApplyRejectionKeepsBackendReason(t *testing.T) {
	b := &fakeBackend{}
	r := NewRemote(b, newLog())

	if _, err := r.Apply(context.Background(), "WEB50", "course-1"); err != nil {
		t.Fatal(err)
	}

	b.checkErr = &reasonErr{msg: "Coupon has expired"}
	_, err := r.Apply(context.Background(), "OLD10", "course-1")

	var rej *RejectedError
	if !errors.As(err, &rej) {
		t.Fatalf("expected RejectedError, got %v", err)
	}
	if rej.Reason != "Coupon has expired" {
		t.Fatalf("expected backend reason verbatim, got %q", rej.Reason)
	}
	if _, ok := r.Applied(); ok {
		t.Fatal("expected no coupon applied after a rejection")
	}

	b.checkErr = errors.New("connection refused")
	_, err = r.Apply(context.Background(), "OLD10", "course-1")
	if !errors.As(err, &rej) || rej.Reason != "Invalid Coupon" {
		t.Fatalf("expected generic reason for transport failure, got %v", err)
	}
}

func TestToggleStatusRollback(t *testing.T) {
	ctx := context.Background()
	b := &fakeBackend{coupons: []Coupon{{ID: "c1", Code: "WEB50", IsActive: true}}}
	r := NewRemote(b, newLog())

	if _, err := r.FetchOwn(ctx); err != nil {
		t.Fatal(err)
	}

	c, err := r.ToggleStatus(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if c.IsActive {
		t.Fatal("expected coupon deactivated")
	}

	b.statusErr = errors.New("server down")
	if _, err := r.ToggleStatus(ctx, "c1"); err == nil {
		t.Fatal("expected toggle failure")
	}
	if own := r.Own(); own[0].IsActive {
		t.Fatal("expected failed toggle reverted to inactive")
	}

	if _, err := r.ToggleStatus(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateAndDelete(t *testing.T) {
	ctx := context.Background()
	r := NewRemote(&fakeBackend{}, newLog())

	c, err := r.Create(ctx, couponNew("new10"))
	if err != nil {
		t.Fatal(err)
	}
	if c.Code != "NEW10" {
		t.Fatalf("expected normalized code, got %q", c.Code)
	}

	if err := r.Delete(ctx, c.ID); err != nil {
		t.Fatal(err)
	}
	if len(r.Own()) != 0 {
		t.Fatal("expected deleted coupon gone from cache")
	}
	if err := r.Delete(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestCreateWithoutCourseName(t *testing.T) {
	r := NewRemote(&fakeBackend{}, newLog())

	cn := couponNew("spring-sale")
	cn.CourseName = ""
	c, err := r.Create(context.Background(), cn)
	if err != nil {
		t.Fatalf("expected the backend to resolve the course name, got %v", err)
	}
	if c.Code != "SPRING-SALE" {
		t.Fatalf("expected normalized code, got %q", c.Code)
	}

	cn.Code = "SPRING SALE"
	if _, err := r.Create(context.Background(), cn); err == nil {
		t.Fatal("expected a code with a space refused")
	}
}
