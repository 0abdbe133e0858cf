package test

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/plutov/paypal/v4"
	"github.com/skillsphere/api/api/web"
	"github.com/skillsphere/api/core/course"
	mock "github.com/stripe/stripe-mock/param"
)

type mockStripe struct {
	expectedCourse course.Course
	expectedAmount int
}

func (m *mockStripe) handle() http.Handler {
	checkout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params, _ := mock.ParseParams(r)

		lines, ok := params["line_items"].(map[string]any)
		if !ok || len(lines) != 1 {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		for _, li := range lines {
			it := li.(map[string]any)

			if it["quantity"] != "1" {
				web.Respond(context.Background(), w, nil, 400)
				return
			}

			pd := it["price_data"].(map[string]any)
			s := pd["unit_amount"].(string)
			amount, err := strconv.ParseInt(s, 10, 0)
			if err != nil {
				web.Respond(context.Background(), w, err, 400)
				return
			}

			if int(amount/100) != m.expectedAmount {
				web.Respond(context.Background(), w, nil, 400)
				return
			}

			prod := pd["product_data"].(map[string]any)
			if prod["name"] != m.expectedCourse.Title {
				web.Respond(context.Background(), w, nil, 400)
				return
			}
		}

		id := fmt.Sprintf("cs_test_%d", rand.Intn(100000))
		session := map[string]any{
			"id":  id,
			"url": "http://stripe.test/pay/" + id,
		}
		web.Respond(context.Background(), w, session, 200)
	})

	r := mux.NewRouter()
	r.Handle("/v1/checkout/sessions", checkout).Methods("POST")
	return r
}

type mockPaypal struct {
	expectedCourse course.Course
	expectedAmount int
}

func (m *mockPaypal) handle() http.Handler {
	token := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := map[string]any{
			"access_token": "test-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		}
		web.Respond(context.Background(), w, tok, 200)
	})

	checkout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var pu struct {
			Units []paypal.PurchaseUnitRequest `json:"purchase_units"`
		}
		if err := json.NewDecoder(r.Body).Decode(&pu); err != nil {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		if len(pu.Units) != 1 || len(pu.Units[0].Items) != 1 {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		if pu.Units[0].Amount.Value != strconv.Itoa(m.expectedAmount) {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		if pu.Units[0].Items[0].Name != m.expectedCourse.Title {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		ord := paypal.Order{ID: fmt.Sprintf("paypal-%d", rand.Intn(100000))}
		web.Respond(context.Background(), w, ord, 200)
	})

	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ord := paypal.Order{ID: web.Param(r, "id"), Status: "COMPLETED"}
		web.Respond(context.Background(), w, ord, 200)
	})

	r := mux.NewRouter()
	r.Handle("/v1/oauth2/token", token).Methods("POST")
	r.Handle("/v2/checkout/orders", checkout).Methods("POST")
	r.Handle("/v2/checkout/orders/{id}/capture", capture).Methods("POST")
	return r
}
