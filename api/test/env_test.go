package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/irsalhamdi/lms-client/api"
	"github.com/irsalhamdi/lms-client/api/background"
	"github.com/irsalhamdi/lms-client/api/web"
	"github.com/irsalhamdi/lms-client/backend"
	"github.com/irsalhamdi/lms-client/config"
	"github.com/irsalhamdi/lms-client/core/cart"
	"github.com/irsalhamdi/lms-client/core/certificate"
	"github.com/irsalhamdi/lms-client/core/checkout"
	"github.com/irsalhamdi/lms-client/core/classroom"
	"github.com/irsalhamdi/lms-client/core/coupon"
	"github.com/irsalhamdi/lms-client/core/course"
	"github.com/irsalhamdi/lms-client/core/note"
	"github.com/irsalhamdi/lms-client/core/progress"
	"github.com/irsalhamdi/lms-client/rate"
	"github.com/irsalhamdi/lms-client/storage"
	"github.com/sirupsen/logrus"
)

const (
	studentEmail    = "ana@example.com"
	instructorEmail = "ivo@example.com"
	password        = "secret"
)

type report struct {
	CourseID  string `json:"courseId"`
	LectureID string `json:"lectureId"`
}

// mockBackend plays the platform API. Every course is in the catalog with
// its content; paid courses join the enrollment of the student.
type mockBackend struct {
	mu       sync.Mutex
	catalog  map[string]course.Course
	cart     []string
	enrolled []string
	payments []checkout.Order
	reports  []report
	declined string
}

func newMockBackend(courses ...course.Course) *mockBackend {
	m := mockBackend{catalog: make(map[string]course.Course)}
	for _, c := range courses {
		m.catalog[c.ID] = c
	}
	return &m
}

func (m *mockBackend) fail(w http.ResponseWriter, msg string, status int) {
	web.Respond(context.Background(), w, map[string]string{"message": msg}, status)
}

func (m *mockBackend) handle() http.Handler {
	login := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var cred backend.Credentials
		if err := json.NewDecoder(r.Body).Decode(&cred); err != nil {
			m.fail(w, "bad request", 400)
			return
		}
		if cred.Password != password {
			m.fail(w, "Invalid credentials", 401)
			return
		}

		m.mu.Lock()
		defer m.mu.Unlock()

		u := backend.User{ID: "student-1", Name: "Ana Student", Email: cred.Email, Role: "student"}
		if cred.Email == instructorEmail {
			u = backend.User{ID: "instructor-1", Name: "Ivo Instructor", Email: cred.Email, Role: "instructor"}
		}
		for _, id := range m.enrolled {
			u.EnrolledCourses = append(u.EnrolledCourses, m.catalog[id])
		}
		web.Respond(context.Background(), w, u, 200)
	})

	logout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		web.Respond(context.Background(), w, map[string]bool{"success": true}, 200)
	})

	cartAdd := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			CourseID string `json:"courseId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			m.fail(w, "bad request", 400)
			return
		}

		m.mu.Lock()
		defer m.mu.Unlock()

		if _, ok := m.catalog[in.CourseID]; !ok {
			m.fail(w, "Course not found", 404)
			return
		}
		m.cart = append(m.cart, in.CourseID)
		web.Respond(context.Background(), w, map[string]bool{"success": true}, 200)
	})

	cartRemove := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		m.mu.Lock()
		defer m.mu.Unlock()

		m.cart = without(m.cart, id)
		web.Respond(context.Background(), w, map[string]bool{"success": true}, 200)
	})

	cartGet := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()

		items := []course.Course{}
		for _, id := range m.cart {
			items = append(items, m.catalog[id])
		}
		web.Respond(context.Background(), w, map[string]any{"items": items}, 200)
	})

	details := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()

		c, ok := m.catalog[r.URL.Query().Get("id")]
		if !ok {
			m.fail(w, "Course not found", 404)
			return
		}
		web.Respond(context.Background(), w, map[string]any{"courseDetails": c}, 200)
	})

	markComplete := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var rep report
		if err := json.NewDecoder(r.Body).Decode(&rep); err != nil {
			m.fail(w, "bad request", 400)
			return
		}

		m.mu.Lock()
		m.reports = append(m.reports, rep)
		m.mu.Unlock()

		web.Respond(context.Background(), w, map[string]bool{"success": true}, 200)
	})

	payment := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ord checkout.Order
		if err := json.NewDecoder(r.Body).Decode(&ord); err != nil {
			m.fail(w, "bad request", 400)
			return
		}

		m.mu.Lock()
		defer m.mu.Unlock()

		if ord.CourseID == m.declined {
			m.fail(w, "Card declined", 402)
			return
		}
		m.payments = append(m.payments, ord)
		m.enrolled = append(m.enrolled, ord.CourseID)
		web.Respond(context.Background(), w, map[string]bool{"success": true}, 201)
	})

	checkCoupon := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("code") != "SAVE20" {
			m.fail(w, "Coupon expired", 400)
			return
		}
		out := map[string]any{
			"couponId":           "coupon-1",
			"code":               "SAVE20",
			"courseId":           q.Get("courseId"),
			"discountPercentage": 20,
		}
		web.Respond(context.Background(), w, out, 200)
	})

	available := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs := []map[string]any{{
			"_id":                "coupon-1",
			"code":               "SAVE20",
			"courseId":           map[string]string{"_id": "go-101", "courseTitle": "Go 101"},
			"discountPercentage": 20,
			"isActive":           true,
		}}
		web.Respond(context.Background(), w, map[string]any{"coupons": cs}, 200)
	})

	r := mux.NewRouter()
	sr := r.PathPrefix("/api").Subrouter()
	sr.Handle("/auth/login", login).Methods("POST")
	sr.Handle("/auth/logout", logout).Methods("POST")
	sr.Handle("/cart/add", cartAdd).Methods("POST")
	sr.Handle("/cart/remove/{id}", cartRemove).Methods("DELETE")
	sr.Handle("/cart/get", cartGet).Methods("GET")
	sr.Handle("/student/get/details", details).Methods("GET")
	sr.Handle("/student/course/progress/mark-complete", markComplete).Methods("POST")
	sr.Handle("/order/make-payment", payment).Methods("POST")
	sr.Handle("/coupons/check-coupon", checkCoupon).Methods("POST")
	sr.Handle("/coupons/get-available-coupons", available).Methods("GET")
	return r
}

func (m *mockBackend) decline(courseID string) {
	m.mu.Lock()
	m.declined = courseID
	m.mu.Unlock()
}

func (m *mockBackend) paid() []checkout.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]checkout.Order{}, m.payments...)
}

func (m *mockBackend) serverCart() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.cart...)
}

func (m *mockBackend) reported() []report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]report{}, m.reports...)
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// TestEnv is the API under test wired to a mock backend over memory
// storage.
type TestEnv struct {
	*httptest.Server
	Backend    *mockBackend
	Background *background.Background
}

func NewTestEnv(t *testing.T, courses ...course.Course) *TestEnv {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	mb := newMockBackend(courses...)
	bs := httptest.NewServer(mb.handle())
	t.Cleanup(bs.Close)

	be, err := backend.New(bs.URL+"/api/", 5*time.Second, log)
	if err != nil {
		t.Fatalf("building backend client: %v", err)
	}

	ctx := context.Background()
	st := storage.NewMemory()

	cartStore, err := cart.Open(ctx, st, log)
	if err != nil {
		t.Fatal(err)
	}
	progressStore, err := progress.Open(ctx, st, log)
	if err != nil {
		t.Fatal(err)
	}
	couponStore, err := coupon.Open(ctx, st, log)
	if err != nil {
		t.Fatal(err)
	}
	certStore, err := certificate.Open(ctx, st, log)
	if err != nil {
		t.Fatal(err)
	}
	noteStore, err := note.Open(ctx, st, log)
	if err != nil {
		t.Fatal(err)
	}

	cartRemote := cart.NewRemote(cartStore, be)
	couponRemote := coupon.NewRemote(be, log)
	bg := background.New(log)

	co := checkout.New(be, cartRemote, progressStore, log,
		checkout.WithRedeemer(couponStore),
		checkout.WithAppliedCoupon(couponRemote),
	)

	cls := classroom.New(classroom.Config{
		Progress:     progressStore,
		Certificates: certStore,
		Cart:         cartStore,
		CartSync:     cartRemote,
		Coupons:      couponRemote,
		Reporter:     be,
		Background:   bg,
		Retry:        config.Progress{MaxRetries: 0, InitialBackoff: time.Millisecond, MaxElapsed: time.Second},
		Log:          log,
	})

	h := api.APIMux(api.APIConfig{
		CorsOrigin:   "*",
		Log:          log,
		Session:      scs.New(),
		Limiter:      rate.NewLimiter(1000, time.Millisecond, time.Minute),
		Backend:      be,
		Cart:         cartRemote,
		Progress:     progressStore,
		Coupons:      couponStore,
		CouponRemote: couponRemote,
		Certificates: certStore,
		Notes:        noteStore,
		Checkout:     co,
		Classroom:    cls,
	})

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	srv.Client().Jar = jar

	return &TestEnv{Server: srv, Backend: mb, Background: bg}
}

// Login opens a session for email.
func Login(t *testing.T, env *TestEnv, email string) {
	t.Helper()
	env.do(t, http.MethodPost, "/session", backend.Credentials{Email: email, Password: password}, http.StatusOK, nil)
}

func Logout(t *testing.T, env *TestEnv) {
	t.Helper()
	env.do(t, http.MethodDelete, "/session", nil, http.StatusNoContent, nil)
}

// Drain waits for every background progress report.
func (env *TestEnv) Drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := env.Background.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
}

// do sends in as JSON to path, checks the status code and decodes the
// answer into out when it is not nil.
func (env *TestEnv) do(t *testing.T, method, path string, in any, status int, out any) {
	t.Helper()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			t.Fatal(err)
		}
		body = bytes.NewReader(b)
	}

	r, err := http.NewRequest(method, env.URL+path, body)
	if err != nil {
		t.Fatal(err)
	}

	w, err := env.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != status {
		b, _ := io.ReadAll(w.Body)
		t.Fatalf("%s %s: expected status %d, got %s: %s", method, path, status, w.Status, b)
	}

	if out != nil {
		if err := json.NewDecoder(w.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decoding response: %v", method, path, err)
		}
	}
}

func fixture(id, title string, price int, lectures ...string) course.Course {
	c := course.Course{
		ID:         id,
		Title:      title,
		Price:      price,
		Instructor: course.Instructor{ID: "instructor-1", Name: "Ivo Instructor"},
	}
	if len(lectures) == 0 {
		return c
	}

	sec := course.Section{ID: id + "-s1", Title: "Basics"}
	for _, l := range lectures {
		sec.Lectures = append(sec.Lectures, course.Lecture{
			ID:       l,
			Title:    fmt.Sprintf("Lecture %s", l),
			VideoURL: "https://videos.example.com/" + l,
		})
	}
	c.Content = []course.Section{sec}
	return c
}
