package enrollment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
	"github.com/skillsphere/api/api/web"
	"github.com/skillsphere/api/api/weberr"
	"github.com/skillsphere/api/config"
	"github.com/skillsphere/api/core/course"
	"github.com/skillsphere/api/validate"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"
)

// prepare records a pending enrollment bound to a freshly created
// checkout session. The payment id uniquely identifies the attempt.
func prepare(ctx context.Context, db *sqlx.DB, chk CheckoutNew, provider string, paymentID string) error {
	now := time.Now().UTC()
	enr := Enrollment{
		ID:              validate.GenerateID(),
		UserID:          chk.UserID,
		CourseID:        chk.CourseID,
		PaymentProvider: provider,
		PaymentID:       paymentID,
		Amount:          chk.Amount,
		Status:          Pending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := Create(ctx, db, enr); err != nil {
		return fmt.Errorf("creating the enrollment bound to payment[%s] for user[%s]: %w", paymentID, chk.UserID, err)
	}

	return nil
}

// fulfill marks the enrollment bound to paymentID as paid. Payment
// processors deliver events at least once, so this must stay safe to
// call repeatedly for the same payment.
func fulfill(ctx context.Context, db *sqlx.DB, log logrus.FieldLogger, paymentID string) error {
	up := StatusUp{
		PaymentID: paymentID,
		Status:    Paid,
		UpdatedAt: time.Now().UTC(),
	}

	n, err := MarkPaid(ctx, db, up)
	if err != nil {
		return fmt.Errorf("fulfilling the enrollment bound to payment[%s]: %w", paymentID, err)
	}

	if n == 0 {
		log.WithField("payment_id", paymentID).Warn("payment event matched no enrollment")
	}

	return nil
}

// HandleShow returns the user's enrollment on a course, or a JSON null
// when the user never started a checkout. Not being enrolled is a
// valid state, not an error.
func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		userID := web.Param(r, "user_id")
		courseID := web.Param(r, "course_id")
		for _, id := range []string{userID, courseID} {
			if err := validate.CheckID(id); err != nil {
				return weberr.NewError(err, err.Error(), http.StatusBadRequest)
			}
		}

		enr, err := Fetch(ctx, db, userID, courseID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return web.RespondNull(ctx, w)
			}
			return fmt.Errorf("fetching enrollment: %w", err)
		}

		return web.Respond(ctx, w, enr, http.StatusOK)
	}
}

func HandleListPaidCourses(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		userID := web.Param(r, "user_id")
		if err := validate.CheckID(userID); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		courses, err := FetchPaidCourses(ctx, db, userID)
		if err != nil {
			return fmt.Errorf("fetching paid courses: %w", err)
		}

		return web.Respond(ctx, w, courses, http.StatusOK)
	}
}

func HandleStripeCheckout(db *sqlx.DB, strp *stripecl.API, cfg config.Stripe) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var chk CheckoutNew
		if err := web.Decode(w, r, &chk); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(chk); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		crs, err := course.Fetch(ctx, db, chk.CourseID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching course[%s]: %w", chk.CourseID, err)
		}

		params := &stripe.CheckoutSessionParams{
			SuccessURL: stripe.String(cfg.SuccessURL),
			CancelURL:  stripe.String(cfg.CancelURL),
			Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),

			LineItems: []*stripe.CheckoutSessionLineItemParams{{
				Quantity: stripe.Int64(1),

				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String("usd"),
					UnitAmount: stripe.Int64(int64(chk.Amount) * 100),

					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(crs.Title),
						Description: stripe.String(crs.Description),
					},
				},
			}},

			Params: stripe.Params{Metadata: map[string]string{
				"userId":   chk.UserID,
				"courseId": chk.CourseID,
			}},
		}

		s, err := strp.CheckoutSessions.New(params)
		if err != nil {
			return fmt.Errorf("creating stripe session: %w", err)
		}

		if err := prepare(ctx, db, chk, ProviderStripe, s.ID); err != nil {
			return fmt.Errorf("creating the enrollment on the database: %w", err)
		}

		resp := struct {
			URL string `json:"url"`
		}{s.URL}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

// HandleStripeWebhook consumes signed checkout events. The body must
// stay raw: the signature covers the exact bytes Stripe sent.
func HandleStripeWebhook(db *sqlx.DB, log logrus.FieldLogger, cfg config.Stripe) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("cannot read the request body: %w", err))
		}

		sig := r.Header.Get("Stripe-Signature")
		if sig == "" {
			err := errors.New("received stripe event is not signed")
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		event, err := webhook.ConstructEvent(b, sig, cfg.WebhookSecret)
		if err != nil {
			// The reason goes back to Stripe so it can tell permanent
			// failures from retry-worthy ones.
			err = fmt.Errorf("cannot construct stripe event: %w", err)
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		received := struct {
			Received bool `json:"received"`
		}{true}

		if event.Type != "checkout.session.completed" {
			return web.Respond(ctx, w, received, http.StatusOK)
		}

		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			err = fmt.Errorf("unable to decode stripe event: %w", err)
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		if err := fulfill(ctx, db, log, session.ID); err != nil {
			return fmt.Errorf("the payment succeeded but its fulfillment failed: %w", err)
		}

		return web.Respond(ctx, w, received, http.StatusOK)
	}
}

func HandlePaypalCheckout(db *sqlx.DB, pp *paypal.Client) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var chk CheckoutNew
		if err := web.Decode(w, r, &chk); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(chk); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		crs, err := course.Fetch(ctx, db, chk.CourseID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching course[%s]: %w", chk.CourseID, err)
		}

		units := []paypal.PurchaseUnitRequest{{
			Items: []paypal.Item{{
				Quantity:    "1",
				Name:        crs.Title,
				Description: crs.Description,

				UnitAmount: &paypal.Money{
					Currency: "USD",
					Value:    strconv.Itoa(chk.Amount),
				},
			}},

			Amount: &paypal.PurchaseUnitAmount{
				Currency: "USD",
				Value:    strconv.Itoa(chk.Amount),

				Breakdown: &paypal.PurchaseUnitAmountBreakdown{ItemTotal: &paypal.Money{
					Currency: "USD",
					Value:    strconv.Itoa(chk.Amount),
				}},
			},
		}}

		ord, err := pp.CreateOrder(ctx, "CAPTURE", units, nil, &paypal.ApplicationContext{})
		if err != nil {
			return fmt.Errorf("creating paypal order: %w", err)
		}

		if err := prepare(ctx, db, chk, ProviderPaypal, ord.ID); err != nil {
			return fmt.Errorf("creating the enrollment on the database: %w", err)
		}

		return web.Respond(ctx, w, ord, http.StatusOK)
	}
}

func HandlePaypalCapture(db *sqlx.DB, log logrus.FieldLogger, pp *paypal.Client) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		paymentID := web.Param(r, "id")

		// Only orders we prepared an enrollment for get captured.
		if _, err := FetchByPaymentID(ctx, db, paymentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching enrollment bound to payment[%s]: %w", paymentID, err)
		}

		resp, err := pp.CaptureOrder(ctx, paymentID, paypal.CaptureOrderRequest{})
		if err != nil {
			return fmt.Errorf("capturing paypal order[%s]: %w", paymentID, err)
		}

		if resp.Status != "COMPLETED" {
			return fmt.Errorf("captured order[%s] with status[%s] different from 'COMPLETED'", paymentID, resp.Status)
		}

		if err := fulfill(ctx, db, log, paymentID); err != nil {
			return fmt.Errorf("the payment succeeded but its fulfillment failed: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
