package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/skillsphere/api/api/web"
	"github.com/skillsphere/api/api/weberr"
	"github.com/skillsphere/api/validate"
)

// HandleListByCourse lists a course's questions for taking the quiz.
// The answer key is excluded from the serialized form.
func HandleListByCourse(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		questions, err := FetchByCourse(ctx, db, courseID)
		if err != nil {
			return fmt.Errorf("fetching questions: %w", err)
		}

		return web.Respond(ctx, w, questions, http.StatusOK)
	}
}

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var qn QuestionNew
		if err := web.Decode(w, r, &qn); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(qn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		q := Question{
			ID:            validate.GenerateID(),
			CourseID:      qn.CourseID,
			Question:      qn.Question,
			Options:       qn.Options,
			CorrectAnswer: qn.CorrectAnswer,
			CreatedAt:     time.Now().UTC(),
		}

		if err := Create(ctx, db, q); err != nil {
			return fmt.Errorf("creating question: %w", err)
		}

		return web.Respond(ctx, w, q, http.StatusCreated)
	}
}

// HandleSubmit scores a submission in either wire shape. Positional
// answers score against the whole course as a percentage; keyed
// answers score one point per match over the submitted total.
func HandleSubmit(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var body struct {
			CourseID string          `json:"courseId"`
			Answers  json.RawMessage `json:"answers"`
		}
		if err := web.Decode(w, r, &body); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		sub, err := ParseSubmission(body.CourseID, body.Answers)
		if err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		if sub.IsKeyed() {
			return scoreKeyed(ctx, w, db, sub)
		}
		return scorePositional(ctx, w, db, sub)
	}
}

func scorePositional(ctx context.Context, w http.ResponseWriter, db *sqlx.DB, sub Submission) error {
	if err := validate.CheckID(sub.CourseID); err != nil {
		return weberr.NewError(err, err.Error(), http.StatusBadRequest)
	}

	questions, err := FetchByCourse(ctx, db, sub.CourseID)
	if err != nil {
		return fmt.Errorf("fetching questions: %w", err)
	}

	resp := struct {
		Score int `json:"score"`
	}{PositionalScore(questions, sub.Positional)}
	return web.Respond(ctx, w, resp, http.StatusOK)
}

// scoreKeyed looks each answer's question up individually: answers are
// independent of each other and of the course's question set. Answers
// naming an unknown or malformed question id count toward the total
// but score no point.
func scoreKeyed(ctx context.Context, w http.ResponseWriter, db *sqlx.DB, sub Submission) error {
	key := make(map[string]string, len(sub.Keyed))
	for _, a := range sub.Keyed {
		if err := validate.CheckID(a.QuestionID); err != nil {
			continue
		}

		q, err := FetchQuestion(ctx, db, a.QuestionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return fmt.Errorf("fetching question[%s]: %w", a.QuestionID, err)
		}
		key[q.ID] = q.CorrectAnswer
	}

	resp := struct {
		Score int `json:"score"`
		Total int `json:"total"`
	}{KeyedScore(key, sub.Keyed), len(sub.Keyed)}
	return web.Respond(ctx, w, resp, http.StatusOK)
}
