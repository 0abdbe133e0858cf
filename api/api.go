package api

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
	"github.com/skillsphere/api/api/middleware"
	"github.com/skillsphere/api/api/web"
	"github.com/skillsphere/api/config"
	"github.com/skillsphere/api/core/auth"
	"github.com/skillsphere/api/core/certificate"
	"github.com/skillsphere/api/core/course"
	"github.com/skillsphere/api/core/enrollment"
	"github.com/skillsphere/api/core/lesson"
	"github.com/skillsphere/api/core/progress"
	"github.com/skillsphere/api/core/quiz"
	"github.com/skillsphere/api/core/user"
	"github.com/skillsphere/api/database"
	"github.com/skillsphere/api/rate"
	stripecl "github.com/stripe/stripe-go/v74/client"
)

type APIConfig struct {
	CorsOrigin       string
	Log              logrus.FieldLogger
	DB               *sqlx.DB
	Session          *scs.SessionManager
	Paypal           *paypal.Client
	Stripe           *stripecl.API
	StripeCfg        config.Stripe
	Providers        map[string]auth.Provider
	LoginRedirectURL string
	Limiter          *rate.Limiter
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

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	authen := auth.Authenticate(cfg.Session)
	admin := auth.Admin(cfg.Session)
	limited := middleware.RateLimit(cfg.Limiter)

	a.Handle(http.MethodGet, "/health", handleHealth(cfg.DB))

	a.Handle(http.MethodPost, "/auth/signup", auth.HandleSignup(cfg.DB, cfg.Session))
	a.Handle(http.MethodPost, "/auth/login", auth.HandleLogin(cfg.DB, cfg.Session), limited)
	a.Handle(http.MethodPost, "/auth/logout", auth.HandleLogout(cfg.Session))
	a.Handle(http.MethodGet, "/auth/oauth-login/{provider}", auth.HandleOauthLogin(cfg.Session, cfg.Providers))
	a.Handle(http.MethodGet, "/auth/oauth-callback/{provider}", auth.HandleOauthCallback(cfg.DB, cfg.Session, cfg.Providers, cfg.LoginRedirectURL))

	a.Handle(http.MethodGet, "/users/current", user.HandleShowCurrent(cfg.DB), authen)
	a.Handle(http.MethodGet, "/users/{id}", user.HandleShow(cfg.DB), authen)

	a.Handle(http.MethodGet, "/courses/{id}", course.HandleShow(cfg.DB))
	a.Handle(http.MethodGet, "/courses", course.HandleList(cfg.DB))
	a.Handle(http.MethodPost, "/courses", course.HandleCreate(cfg.DB), admin)
	a.Handle(http.MethodGet, "/my-courses/{user_id}", enrollment.HandleListPaidCourses(cfg.DB))

	a.Handle(http.MethodGet, "/lessons/{course_id}", lesson.HandleListByCourse(cfg.DB))
	a.Handle(http.MethodPost, "/lessons", lesson.HandleCreate(cfg.DB), admin)

	a.Handle(http.MethodGet, "/enrollments/{user_id}/{course_id}", enrollment.HandleShow(cfg.DB))
	a.Handle(http.MethodPost, "/stripe/create-checkout-session", enrollment.HandleStripeCheckout(cfg.DB, cfg.Stripe, cfg.StripeCfg))
	a.Handle(http.MethodPost, "/stripe/webhook", enrollment.HandleStripeWebhook(cfg.DB, cfg.Log, cfg.StripeCfg))
	a.Handle(http.MethodPost, "/paypal/create-order", enrollment.HandlePaypalCheckout(cfg.DB, cfg.Paypal))
	a.Handle(http.MethodPost, "/paypal/orders/{id}/capture", enrollment.HandlePaypalCapture(cfg.DB, cfg.Log, cfg.Paypal))

	a.Handle(http.MethodGet, "/progress/{user_id}/{course_id}", progress.HandleShow(cfg.DB))
	a.Handle(http.MethodPost, "/progress/update", progress.HandleUpdate(cfg.DB))
	a.Handle(http.MethodPost, "/progress/advance", progress.HandleAdvance(cfg.DB))

	a.Handle(http.MethodGet, "/quiz/{course_id}", quiz.HandleListByCourse(cfg.DB))
	a.Handle(http.MethodPost, "/quiz/submit", quiz.HandleSubmit(cfg.DB), limited)
	a.Handle(http.MethodPost, "/quiz", quiz.HandleCreate(cfg.DB), admin)

	a.Handle(http.MethodPost, "/certificate/issue", certificate.HandleIssue(cfg.DB))
	a.Handle(http.MethodGet, "/certificates/{user_id}", certificate.HandleListByUser(cfg.DB))

	return a.Router
}

func handleHealth(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := database.StatusCheck(ctx, db); err != nil {
			return err
		}

		status := struct {
			Status string `json:"status"`
		}{"ok"}
		return web.Respond(ctx, w, status, http.StatusOK)
	}
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
