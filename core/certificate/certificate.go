package certificate

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/skillsphere/api/database"
)

type Certificate struct {
	ID             string    `json:"id" db:"certificate_id"`
	UserID         string    `json:"user_id" db:"user_id"`
	CourseID       string    `json:"course_id" db:"course_id"`
	CertificateURL string    `json:"certificate_url" db:"certificate_url"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// UserCertificate is a certificate joined with its course title for
// display.
type UserCertificate struct {
	Certificate
	CourseTitle string `json:"course_title" db:"course_title"`
}

type CertificateNew struct {
	UserID         string `json:"userId" validate:"required,uuid"`
	CourseID       string `json:"courseId" validate:"required,uuid"`
	CertificateURL string `json:"certificateUrl" validate:"omitempty,url"`
}

// Issue creates the certificate for a (user, course) pair exactly
// once. A client retrying the completion flow hits the uniqueness
// constraint and gets the already issued certificate back instead of a
// duplicate row. Callers are trusted to have checked completion.
func Issue(ctx context.Context, db *sqlx.DB, c Certificate) (Certificate, error) {
	if err := Create(ctx, db, c); err != nil {
		if database.IsUniqueViolation(err) {
			existing, err := Fetch(ctx, db, c.UserID, c.CourseID)
			if err != nil {
				return Certificate{}, fmt.Errorf("fetching already issued certificate: %w", err)
			}
			return existing, nil
		}
		return Certificate{}, fmt.Errorf("issuing certificate: %w", err)
	}

	return c, nil
}
