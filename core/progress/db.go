package progress

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Upsert stores the completion percentage for a (user, course) pair in
// a single round trip. Re-sending the same percent is a no-op apart
// from updated_at; concurrent writers are last-write-wins.
func Upsert(ctx context.Context, db sqlx.ExtContext, p Progress) (Progress, error) {
	const q = `
	INSERT INTO progress
		(user_id, course_id, completed_percent, created_at, updated_at)
	VALUES
		(:user_id, :course_id, :completed_percent, :created_at, :updated_at)
	ON CONFLICT (user_id, course_id) DO UPDATE SET
		completed_percent = EXCLUDED.completed_percent,
		updated_at = EXCLUDED.updated_at
	RETURNING *`

	rows, err := sqlx.NamedQueryContext(ctx, db, q, p)
	if err != nil {
		return Progress{}, fmt.Errorf("upserting progress: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return Progress{}, fmt.Errorf("upserting progress: no row returned")
	}

	var stored Progress
	if err := rows.StructScan(&stored); err != nil {
		return Progress{}, fmt.Errorf("scanning upserted progress: %w", err)
	}

	return stored, nil
}

// Fetch returns the stored progress row. Absence surfaces as
// sql.ErrNoRows wrapped in the returned error; callers treat it as
// zero completion, not a failure.
func Fetch(ctx context.Context, db sqlx.ExtContext, userID string, courseID string) (Progress, error) {
	const q = `SELECT * FROM progress WHERE user_id = $1 AND course_id = $2`

	var p Progress
	if err := sqlx.GetContext(ctx, db, &p, q, userID, courseID); err != nil {
		return Progress{}, fmt.Errorf("selecting progress of user[%s] on course[%s]: %w", userID, courseID, err)
	}

	return p, nil
}
