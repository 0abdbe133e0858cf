package quiz

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, q Question) error {
	const qr = `
	INSERT INTO quizzes
		(question_id, course_id, question, options, correct_answer, created_at)
	VALUES
		(:question_id, :course_id, :question, :options, :correct_answer, :created_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, qr, q); err != nil {
		return fmt.Errorf("inserting question: %w", err)
	}

	return nil
}

// FetchByCourse returns a course's questions in storage order, which
// positional submissions align with.
func FetchByCourse(ctx context.Context, db sqlx.ExtContext, courseID string) ([]Question, error) {
	const q = `SELECT * FROM quizzes WHERE course_id = $1 ORDER BY created_at, question_id`

	qs := []Question{}
	if err := sqlx.SelectContext(ctx, db, &qs, q, courseID); err != nil {
		return nil, fmt.Errorf("selecting questions of course[%s]: %w", courseID, err)
	}

	return qs, nil
}

func FetchQuestion(ctx context.Context, db sqlx.ExtContext, id string) (Question, error) {
	const q = `SELECT * FROM quizzes WHERE question_id = $1`

	var question Question
	if err := sqlx.GetContext(ctx, db, &question, q, id); err != nil {
		return Question{}, fmt.Errorf("selecting question[%s]: %w", id, err)
	}

	return question, nil
}
