package lesson

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, l Lesson) error {
	const q = `
	INSERT INTO lessons
		(lesson_id, course_id, index, title, video_url, created_at)
	VALUES
		(:lesson_id, :course_id, :index, :title, :video_url, :created_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, l); err != nil {
		return fmt.Errorf("inserting lesson: %w", err)
	}

	return nil
}

// FetchByCourse returns a course's lessons in playback order.
func FetchByCourse(ctx context.Context, db sqlx.ExtContext, courseID string) ([]Lesson, error) {
	const q = `SELECT * FROM lessons WHERE course_id = $1 ORDER BY index`

	ls := []Lesson{}
	if err := sqlx.SelectContext(ctx, db, &ls, q, courseID); err != nil {
		return nil, fmt.Errorf("selecting lessons of course[%s]: %w", courseID, err)
	}

	return ls, nil
}

func Count(ctx context.Context, db sqlx.ExtContext, courseID string) (int, error) {
	const q = `SELECT COUNT(*) FROM lessons WHERE course_id = $1`

	var n int
	if err := sqlx.GetContext(ctx, db, &n, q, courseID); err != nil {
		return 0, fmt.Errorf("counting lessons of course[%s]: %w", courseID, err)
	}

	return n, nil
}
