package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"github.com/ory/dockertest/v3"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
	"github.com/skillsphere/api/api"
	"github.com/skillsphere/api/config"
	"github.com/skillsphere/api/core/auth"
	"github.com/skillsphere/api/core/user"
	"github.com/skillsphere/api/database"
	"github.com/skillsphere/api/rate"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
)

const (
	adminEmail = "admin@test.io"
	adminPass  = "admin-pass-123"
	userEmail  = "user@test.io"
	userPass   = "user-pass-123"

	webhookSecret = "whsec_test_secret"
)

var pgCfg config.DB

func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("connecting to docker: %v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "15-alpine",
		Env: []string{
			"POSTGRES_USER=postgres",
			"POSTGRES_PASSWORD=postgres",
			"POSTGRES_DB=postgres",
		},
	})
	if err != nil {
		log.Fatalf("starting postgres container: %v", err)
	}
	resource.Expire(600)

	pgCfg = config.DB{
		User:       "postgres",
		Password:   "postgres",
		Host:       resource.GetHostPort("5432/tcp"),
		Name:       "postgres",
		DisableTLS: true,
	}

	if err := pool.Retry(func() error {
		db, err := database.Open(pgCfg)
		if err != nil {
			return err
		}
		defer db.Close()
		return db.Ping()
	}); err != nil {
		log.Fatalf("waiting for postgres: %v", err)
	}

	code := m.Run()

	if err := pool.Purge(resource); err != nil {
		log.Printf("purging postgres container: %v", err)
	}

	os.Exit(code)
}

type TestEnv struct {
	DB  *sqlx.DB
	URL string

	AdminID string
	UserID  string

	WebhookSecret string
	Stripe        *mockStripe
	Paypal        *mockPaypal

	client *http.Client
}

// NewTestEnv boots the whole API against a throwaway database named
// after the test, with the payment providers replaced by local mocks.
func NewTestEnv(t *testing.T, name string) (*TestEnv, error) {
	admin, err := database.Open(pgCfg)
	if err != nil {
		return nil, fmt.Errorf("opening admin connection: %w", err)
	}
	defer admin.Close()

	if _, err := admin.Exec("CREATE DATABASE " + name); err != nil {
		return nil, fmt.Errorf("creating database %s: %w", name, err)
	}

	cfg := pgCfg
	cfg.Name = name
	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening test database: %w", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrating test database: %w", err)
	}

	ms := &mockStripe{}
	stripeSrv := httptest.NewServer(ms.handle())
	t.Cleanup(stripeSrv.Close)

	mp := &mockPaypal{}
	paypalSrv := httptest.NewServer(mp.handle())
	t.Cleanup(paypalSrv.Close)

	pp, err := paypal.NewClient("test-client", "test-secret", paypalSrv.URL)
	if err != nil {
		return nil, fmt.Errorf("building paypal client: %w", err)
	}
	if _, err := pp.GetAccessToken(context.Background()); err != nil {
		return nil, fmt.Errorf("getting paypal token from mock: %w", err)
	}

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL: stripe.String(stripeSrv.URL),
	})
	strp := &stripecl.API{}
	strp.Init("sk_test_123", &stripe.Backends{API: backend, Connect: backend, Uploads: backend})

	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	session := scs.New()
	session.Lifetime = time.Hour

	mux := api.APIMux(api.APIConfig{
		Log:       logger,
		DB:        db,
		Session:   session,
		Paypal:    pp,
		Stripe:    strp,
		StripeCfg: config.Stripe{WebhookSecret: webhookSecret, SuccessURL: "http://success", CancelURL: "http://cancel"},
		Providers: map[string]auth.Provider{},
		Limiter:   rate.NewLimiter(10000, 100, rate.Every(time.Microsecond)),
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("building cookie jar: %w", err)
	}

	env := &TestEnv{
		DB:            db,
		URL:           srv.URL,
		WebhookSecret: webhookSecret,
		Stripe:        ms,
		Paypal:        mp,
		client:        &http.Client{Jar: jar},
	}

	env.AdminID, err = env.signup(t, "Admin", adminEmail, adminPass)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`UPDATE users SET role = 'ADMIN' WHERE email = $1`, adminEmail); err != nil {
		return nil, fmt.Errorf("promoting admin user: %w", err)
	}

	env.UserID, err = env.signup(t, "User", userEmail, userPass)
	if err != nil {
		return nil, err
	}
	env.Logout(t)

	return env, nil
}

func (e *TestEnv) Client() *http.Client { return e.client }

func (e *TestEnv) signup(t *testing.T, name string, email string, pass string) (string, error) {
	body := map[string]string{"name": name, "email": email, "password": pass}
	b, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	w, err := e.client.Post(e.URL+"/auth/signup", "application/json", bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("signing up %s: %w", email, err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("signing up %s: status code %s", email, w.Status)
	}

	var usr user.User
	if err := json.NewDecoder(w.Body).Decode(&usr); err != nil {
		return "", fmt.Errorf("decoding signup response: %w", err)
	}

	return usr.ID, nil
}

func (e *TestEnv) Login(t *testing.T, email string, pass string) {
	t.Helper()

	body := map[string]string{"email": email, "password": pass}
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}

	w, err := e.client.Post(e.URL+"/auth/login", "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("logging in %s: %v", email, err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("logging in %s: status code %s", email, w.Status)
	}
}

func (e *TestEnv) Logout(t *testing.T) {
	t.Helper()

	w, err := e.client.Post(e.URL+"/auth/logout", "application/json", nil)
	if err != nil {
		t.Fatalf("logging out: %v", err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusNoContent {
		t.Fatalf("logging out: status code %s", w.Status)
	}
}

// postJSON is shared plumbing for the test suites: it sends val as a
// JSON body and decodes the response into out when out is non-nil.
func (e *TestEnv) postJSON(t *testing.T, path string, val any, out any) *http.Response {
	t.Helper()

	b, err := json.Marshal(val)
	if err != nil {
		t.Fatal(err)
	}

	w, err := e.client.Post(e.URL+path, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer w.Body.Close()

	if out != nil {
		if err := json.NewDecoder(w.Body).Decode(out); err != nil {
			t.Fatalf("decoding POST %s response: %v", path, err)
		}
	}

	return w
}

func (e *TestEnv) getJSON(t *testing.T, path string, out any) *http.Response {
	t.Helper()

	w, err := e.client.Get(e.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer w.Body.Close()

	if out != nil {
		if err := json.NewDecoder(w.Body).Decode(out); err != nil {
			t.Fatalf("decoding GET %s response: %v", path, err)
		}
	}

	return w
}
