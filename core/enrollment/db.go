package enrollment

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/skillsphere/api/core/course"
)

func Create(ctx context.Context, db sqlx.ExtContext, e Enrollment) error {
	const q = `
	INSERT INTO enrollments
		(enrollment_id, user_id, course_id, payment_provider, payment_id, amount, status, created_at, updated_at)
	VALUES
		(:enrollment_id, :user_id, :course_id, :payment_provider, :payment_id, :amount, :status, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, e); err != nil {
		return fmt.Errorf("inserting enrollment: %w", err)
	}

	return nil
}

// Fetch returns the newest enrollment for a (user, course) pair. A
// user retrying checkout leaves older pending rows behind; the latest
// one reflects the current attempt.
func Fetch(ctx context.Context, db sqlx.ExtContext, userID string, courseID string) (Enrollment, error) {
	const q = `
	SELECT * FROM enrollments
	WHERE user_id = $1 AND course_id = $2
	ORDER BY created_at DESC, enrollment_id DESC
	LIMIT 1`

	var e Enrollment
	if err := sqlx.GetContext(ctx, db, &e, q, userID, courseID); err != nil {
		return Enrollment{}, fmt.Errorf("selecting enrollment of user[%s] on course[%s]: %w", userID, courseID, err)
	}

	return e, nil
}

func FetchByPaymentID(ctx context.Context, db sqlx.ExtContext, paymentID string) (Enrollment, error) {
	const q = `SELECT * FROM enrollments WHERE payment_id = $1`

	var e Enrollment
	if err := sqlx.GetContext(ctx, db, &e, q, paymentID); err != nil {
		return Enrollment{}, fmt.Errorf("selecting enrollment bound to payment[%s]: %w", paymentID, err)
	}

	return e, nil
}

// MarkPaid flips the enrollment keyed by payment_id to paid. Replays
// of the same payment event re-apply the same state, so the operation
// is idempotent. An unknown payment_id matches zero rows and is not an
// error; the count lets callers log it.
func MarkPaid(ctx context.Context, db sqlx.ExtContext, up StatusUp) (int64, error) {
	const q = `
	UPDATE enrollments SET
		status = :status,
		updated_at = :updated_at
	WHERE payment_id = :payment_id`

	res, err := sqlx.NamedExecContext(ctx, db, q, up)
	if err != nil {
		return 0, fmt.Errorf("updating enrollment status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading affected rows: %w", err)
	}

	return n, nil
}

// FetchPaidCourses lists the courses a user has paid for.
func FetchPaidCourses(ctx context.Context, db sqlx.ExtContext, userID string) ([]course.Course, error) {
	const q = `
	SELECT DISTINCT c.* FROM courses AS c
	JOIN enrollments AS e ON e.course_id = c.course_id
	WHERE e.user_id = $1 AND e.status = 'paid'
	ORDER BY c.created_at, c.course_id`

	cs := []course.Course{}
	if err := sqlx.SelectContext(ctx, db, &cs, q, userID); err != nil {
		return nil, fmt.Errorf("selecting paid courses of user[%s]: %w", userID, err)
	}

	return cs, nil
}
