package api

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/irsalhamdi/lms-client/api/middleware"
	"github.com/irsalhamdi/lms-client/api/web"
	"github.com/irsalhamdi/lms-client/backend"
	"github.com/irsalhamdi/lms-client/core/auth"
	"github.com/irsalhamdi/lms-client/core/cart"
	"github.com/irsalhamdi/lms-client/core/certificate"
	"github.com/irsalhamdi/lms-client/core/checkout"
	"github.com/irsalhamdi/lms-client/core/classroom"
	"github.com/irsalhamdi/lms-client/core/coupon"
	"github.com/irsalhamdi/lms-client/core/note"
	"github.com/irsalhamdi/lms-client/core/progress"
	"github.com/irsalhamdi/lms-client/rate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type APIConfig struct {
	CorsOrigin   string
	Log          logrus.FieldLogger
	Session      *scs.SessionManager
	Limiter      *rate.Limiter
	Backend      *backend.Client
	Cart         *cart.Remote
	Progress     *progress.Store
	Coupons      *coupon.Store
	CouponRemote *coupon.Remote
	Certificates *certificate.Store
	Notes        *note.Store
	Checkout     *checkout.Service
	Classroom    *classroom.Service
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, auth.LoadAndSave(cfg.Session))
	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.Limiter != nil {
		a.mw = append(a.mw, middleware.RateLimit(cfg.Limiter))
	}

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	authen := auth.Authenticate(cfg.Session)
	instructor := auth.Instructor(cfg.Session)

	a.Handle(http.MethodPost, "/session", auth.HandleLogin(cfg.Backend, cfg.Classroom, cfg.Session))
	a.Handle(http.MethodDelete, "/session", auth.HandleLogout(cfg.Backend, cfg.Classroom, cfg.Session, cfg.Log), authen)

	a.Handle(http.MethodGet, "/cart", cart.HandleShow(cfg.Cart), authen)
	a.Handle(http.MethodDelete, "/cart", cart.HandleDelete(cfg.Cart), authen)
	a.Handle(http.MethodPut, "/cart/items", cart.HandleCreateItem(cfg.Cart, cfg.Backend), authen)
	a.Handle(http.MethodDelete, "/cart/items/{course_id}", cart.HandleDeleteItem(cfg.Cart), authen)

	a.Handle(http.MethodPost, "/checkout", checkout.HandleCheckout(cfg.Checkout, cfg.Cart.Store, cfg.CouponRemote), authen)
	a.Handle(http.MethodPost, "/courses/{course_id}/checkout", checkout.HandleBuyNow(cfg.Checkout, cfg.Backend, cfg.CouponRemote), authen)

	a.Handle(http.MethodGet, "/courses/purchased", progress.HandleListPurchased(cfg.Progress), authen)
	a.Handle(http.MethodPut, "/courses/{course_id}/open", progress.HandleOpen(cfg.Progress, cfg.Backend), authen)
	a.Handle(http.MethodGet, "/courses/{course_id}/progress", progress.HandleShowProgress(cfg.Progress), authen)
	a.Handle(http.MethodPut, "/courses/{course_id}/lectures/{lecture_id}/complete", classroom.HandleComplete(cfg.Classroom), authen)
	a.Handle(http.MethodPut, "/courses/{course_id}/lectures/{lecture_id}/watch", classroom.HandleWatch(cfg.Classroom), authen)
	a.Handle(http.MethodGet, "/courses/{course_id}/resume", classroom.HandleResume(cfg.Classroom), authen)
	a.Handle(http.MethodGet, "/courses/{course_id}/certificate", certificate.HandleShowByCourse(cfg.Certificates), authen)
	a.Handle(http.MethodGet, "/certificates", certificate.HandleListMine(cfg.Certificates), authen)

	a.Handle(http.MethodGet, "/coupons/apply", coupon.HandleShowApplied(cfg.CouponRemote), authen)
	a.Handle(http.MethodPost, "/coupons/apply", coupon.HandleApply(cfg.CouponRemote), authen)
	a.Handle(http.MethodDelete, "/coupons/apply", coupon.HandleClearApplied(cfg.CouponRemote), authen)
	a.Handle(http.MethodGet, "/coupons/available", coupon.HandleListAvailable(cfg.CouponRemote), authen)
	a.Handle(http.MethodGet, "/coupons/validate", coupon.HandleValidate(cfg.Coupons), authen)
	a.Handle(http.MethodGet, "/coupons", coupon.HandleList(cfg.Coupons), instructor)
	a.Handle(http.MethodPost, "/coupons", coupon.HandleCreate(cfg.Coupons), instructor)
	a.Handle(http.MethodPut, "/coupons/{id}/status", coupon.HandleToggle(cfg.Coupons), instructor)
	a.Handle(http.MethodDelete, "/coupons/{id}", coupon.HandleDelete(cfg.Coupons), instructor)

	a.Handle(http.MethodGet, "/instructor/coupons", coupon.HandleListOwn(cfg.CouponRemote), instructor)
	a.Handle(http.MethodPost, "/instructor/coupons", coupon.HandleCreateRemote(cfg.CouponRemote), instructor)
	a.Handle(http.MethodPut, "/instructor/coupons/{id}/status", coupon.HandleToggleRemote(cfg.CouponRemote), instructor)
	a.Handle(http.MethodDelete, "/instructor/coupons/{id}", coupon.HandleDeleteRemote(cfg.CouponRemote), instructor)

	a.Handle(http.MethodGet, "/notes", note.HandleList(cfg.Notes), authen)
	a.Handle(http.MethodPost, "/notes", note.HandleCreate(cfg.Notes), authen)
	a.Handle(http.MethodPut, "/notes/{id}", note.HandleUpdate(cfg.Notes), authen)
	a.Handle(http.MethodDelete, "/notes/{id}", note.HandleDelete(cfg.Notes), authen)

	a.Router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}
