package test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"testing"
	"time"

	"github.com/skillsphere/api/core/course"
	"github.com/skillsphere/api/core/enrollment"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"
)

type enrollmentTest struct {
	*TestEnv
}

func TestStripeEnrollment(t *testing.T) {
	env, err := NewTestEnv(t, "stripe_enrollment_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	et := &enrollmentTest{env}
	ct := &courseTest{env}

	c := ct.createCourseOK(t, 49)
	env.Stripe.expectedCourse = c
	env.Stripe.expectedAmount = 49

	// Before any checkout the enrollment lookup answers null.
	et.enrollmentIsNull(t, c.ID)

	sessionID := et.stripeCheckoutOK(t, c.ID, 49)

	enr := et.fetchEnrollmentOK(t, c.ID)
	if enr.Status != enrollment.Pending {
		t.Fatalf("enrollment status after checkout = %s, want pending", enr.Status)
	}
	if enr.PaymentID != sessionID {
		t.Fatalf("enrollment payment_id = %s, want %s", enr.PaymentID, sessionID)
	}

	et.myCoursesOK(t, []course.Course{})

	payload, sig := et.signedCheckoutEvent(t, sessionID)
	et.webhookOK(t, payload, sig)

	enr = et.fetchEnrollmentOK(t, c.ID)
	if enr.Status != enrollment.Paid {
		t.Fatalf("enrollment status after webhook = %s, want paid", enr.Status)
	}

	// Processors deliver at least once: a replay re-applies the same
	// state and leaves a single row.
	et.webhookOK(t, payload, sig)

	enr = et.fetchEnrollmentOK(t, c.ID)
	if enr.Status != enrollment.Paid {
		t.Fatalf("enrollment status after replay = %s, want paid", enr.Status)
	}

	var n int
	if err := env.DB.Get(&n, `SELECT COUNT(*) FROM enrollments WHERE payment_id = $1`, sessionID); err != nil {
		t.Fatalf("counting enrollments: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 enrollment row, got %d", n)
	}

	et.myCoursesOK(t, []course.Course{c})
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	env, err := NewTestEnv(t, "stripe_webhook_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	et := &enrollmentTest{env}

	payload, _ := et.signedCheckoutEvent(t, "cs_test_unknown")

	r, err := http.NewRequest(http.MethodPost, env.URL+"/stripe/webhook", bytes.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	r.Header.Set("Stripe-Signature", "t=123,v1=deadbeef")

	w, err := env.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusBadRequest {
		t.Fatalf("tampered signature: status code %s, want 400", w.Status)
	}

	// Unsigned events are rejected too.
	r, err = http.NewRequest(http.MethodPost, env.URL+"/stripe/webhook", bytes.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}

	w, err = env.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusBadRequest {
		t.Fatalf("unsigned event: status code %s, want 400", w.Status)
	}
}

func TestPaypalEnrollment(t *testing.T) {
	env, err := NewTestEnv(t, "paypal_enrollment_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	et := &enrollmentTest{env}
	ct := &courseTest{env}

	c := ct.createCourseOK(t, 30)
	env.Paypal.expectedCourse = c
	env.Paypal.expectedAmount = 30

	body := map[string]any{"userId": env.UserID, "courseId": c.ID, "amount": 30}
	var ord struct {
		ID string `json:"id"`
	}
	if w := env.postJSON(t, "/paypal/create-order", body, &ord); w.StatusCode != http.StatusOK {
		t.Fatalf("can't create paypal order: status code %s", w.Status)
	}

	enr := et.fetchEnrollmentOK(t, c.ID)
	if enr.Status != enrollment.Pending || enr.PaymentProvider != enrollment.ProviderPaypal {
		t.Fatalf("unexpected enrollment after paypal checkout: %+v", enr)
	}

	capturePath := fmt.Sprintf("/paypal/orders/%s/capture", ord.ID)
	if w := env.postJSON(t, capturePath, nil, nil); w.StatusCode != http.StatusNoContent {
		t.Fatalf("can't capture paypal order: status code %s", w.Status)
	}

	enr = et.fetchEnrollmentOK(t, c.ID)
	if enr.Status != enrollment.Paid {
		t.Fatalf("enrollment status after capture = %s, want paid", enr.Status)
	}

	et.myCoursesOK(t, []course.Course{c})
}

func (et *enrollmentTest) stripeCheckoutOK(t *testing.T, courseID string, amount int) string {
	t.Helper()

	body := map[string]any{"userId": et.UserID, "courseId": courseID, "amount": amount}
	var resp struct {
		URL string `json:"url"`
	}
	if w := et.postJSON(t, "/stripe/create-checkout-session", body, &resp); w.StatusCode != http.StatusOK {
		t.Fatalf("can't create stripe checkout session: status code %s", w.Status)
	}

	return path.Base(resp.URL)
}

func (et *enrollmentTest) enrollmentIsNull(t *testing.T, courseID string) {
	t.Helper()

	w, err := et.Client().Get(fmt.Sprintf("%s/enrollments/%s/%s", et.URL, et.UserID, courseID))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("enrollment lookup: status code %s, want 200", w.Status)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
		t.Fatal(err)
	}
	if string(raw) != "null" {
		t.Fatalf("missing enrollment serialized as %s, want null", raw)
	}
}

func (et *enrollmentTest) fetchEnrollmentOK(t *testing.T, courseID string) enrollment.Enrollment {
	t.Helper()

	var enr enrollment.Enrollment
	p := fmt.Sprintf("/enrollments/%s/%s", et.UserID, courseID)
	if w := et.getJSON(t, p, &enr); w.StatusCode != http.StatusOK {
		t.Fatalf("can't fetch enrollment: status code %s", w.Status)
	}

	return enr
}

func (et *enrollmentTest) myCoursesOK(t *testing.T, want []course.Course) {
	t.Helper()

	var got []course.Course
	if w := et.getJSON(t, "/my-courses/"+et.UserID, &got); w.StatusCode != http.StatusOK {
		t.Fatalf("can't list owned courses: status code %s", w.Status)
	}

	if len(got) != len(want) {
		t.Fatalf("owned %d courses, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID {
			t.Fatalf("owned course[%d] = %s, want %s", i, got[i].ID, want[i].ID)
		}
	}
}

func (et *enrollmentTest) signedCheckoutEvent(t *testing.T, sessionID string) ([]byte, string) {
	t.Helper()

	raw, err := json.Marshal(map[string]any{"id": sessionID})
	if err != nil {
		t.Fatal(err)
	}

	evt := stripe.Event{
		APIVersion: "2022-11-15",
		Type:       "checkout.session.completed",
		Data: &stripe.EventData{
			Raw: json.RawMessage(raw),
		},
	}

	b, err := json.Marshal(evt)
	if err != nil {
		t.Fatal(err)
	}

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   b,
		Secret:    et.WebhookSecret,
		Timestamp: time.Now(),
	})

	return b, signed.Header
}

func (et *enrollmentTest) webhookOK(t *testing.T, payload []byte, sig string) {
	t.Helper()

	r, err := http.NewRequest(http.MethodPost, et.URL+"/stripe/webhook", bytes.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	r.Header.Set("Stripe-Signature", sig)

	w, err := et.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("webhook delivery: status code %s, want 200", w.Status)
	}

	var resp struct {
		Received bool `json:"received"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Received {
		t.Fatal("webhook response should acknowledge receipt")
	}
}
