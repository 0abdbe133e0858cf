package certificate

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, c Certificate) error {
	const q = `
	INSERT INTO certificates
		(certificate_id, user_id, course_id, certificate_url, created_at)
	VALUES
		(:certificate_id, :user_id, :course_id, :certificate_url, :created_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, c); err != nil {
		return fmt.Errorf("inserting certificate: %w", err)
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, userID string, courseID string) (Certificate, error) {
	const q = `SELECT * FROM certificates WHERE user_id = $1 AND course_id = $2`

	var c Certificate
	if err := sqlx.GetContext(ctx, db, &c, q, userID, courseID); err != nil {
		return Certificate{}, fmt.Errorf("selecting certificate of user[%s] on course[%s]: %w", userID, courseID, err)
	}

	return c, nil
}

// FetchByUser lists a user's certificates joined with course titles.
func FetchByUser(ctx context.Context, db sqlx.ExtContext, userID string) ([]UserCertificate, error) {
	const q = `
	SELECT ct.*, c.title AS course_title FROM certificates AS ct
	JOIN courses AS c ON c.course_id = ct.course_id
	WHERE ct.user_id = $1
	ORDER BY ct.created_at`

	cs := []UserCertificate{}
	if err := sqlx.SelectContext(ctx, db, &cs, q, userID); err != nil {
		return nil, fmt.Errorf("selecting certificates of user[%s]: %w", userID, err)
	}

	return cs, nil
}
