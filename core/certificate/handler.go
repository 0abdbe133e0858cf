package certificate

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/skillsphere/api/api/web"
	"github.com/skillsphere/api/api/weberr"
	"github.com/skillsphere/api/random"
	"github.com/skillsphere/api/validate"
)

func HandleIssue(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var cn CertificateNew
		if err := web.Decode(w, r, &cn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(cn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		url := cn.CertificateURL
		if url == "" {
			url = fmt.Sprintf("https://certificates.skillsphere.dev/%s.pdf", random.String(12))
		}

		c := Certificate{
			ID:             validate.GenerateID(),
			UserID:         cn.UserID,
			CourseID:       cn.CourseID,
			CertificateURL: url,
			CreatedAt:      time.Now().UTC(),
		}

		issued, err := Issue(ctx, db, c)
		if err != nil {
			return fmt.Errorf("issuing certificate: %w", err)
		}

		return web.Respond(ctx, w, issued, http.StatusOK)
	}
}

func HandleListByUser(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		userID := web.Param(r, "user_id")
		if err := validate.CheckID(userID); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		certs, err := FetchByUser(ctx, db, userID)
		if err != nil {
			return fmt.Errorf("fetching certificates: %w", err)
		}

		return web.Respond(ctx, w, certs, http.StatusOK)
	}
}
