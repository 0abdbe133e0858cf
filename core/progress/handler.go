package progress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/skillsphere/api/api/web"
	"github.com/skillsphere/api/api/weberr"
	"github.com/skillsphere/api/core/lesson"
	"github.com/skillsphere/api/validate"
)

// HandleShow returns the completion percentage of a user on a course.
// A missing row is a valid state and reads as zero completion.
func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		userID := web.Param(r, "user_id")
		courseID := web.Param(r, "course_id")
		for _, id := range []string{userID, courseID} {
			if err := validate.CheckID(id); err != nil {
				return weberr.NewError(err, err.Error(), http.StatusBadRequest)
			}
		}

		p, err := Fetch(ctx, db, userID, courseID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				empty := struct {
					CompletedPercent float64 `json:"completed_percent"`
				}{0}
				return web.Respond(ctx, w, empty, http.StatusOK)
			}
			return fmt.Errorf("fetching progress: %w", err)
		}

		return web.Respond(ctx, w, p, http.StatusOK)
	}
}

func HandleUpdate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var up ProgressUp
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(up); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		now := time.Now().UTC()
		p := Progress{
			UserID:           up.UserID,
			CourseID:         up.CourseID,
			CompletedPercent: up.Percent,
			CreatedAt:        now,
			UpdatedAt:        now,
		}

		stored, err := Upsert(ctx, db, p)
		if err != nil {
			return fmt.Errorf("updating progress: %w", err)
		}

		return web.Respond(ctx, w, stored, http.StatusOK)
	}
}

// HandleAdvance computes the percentage server-side from the finished
// lesson's index and the course's lesson count, then upserts it.
func HandleAdvance(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var adv ProgressAdvance
		if err := web.Decode(w, r, &adv); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(adv); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		total, err := lesson.Count(ctx, db, adv.CourseID)
		if err != nil {
			return fmt.Errorf("counting lessons: %w", err)
		}

		now := time.Now().UTC()
		p := Progress{
			UserID:           adv.UserID,
			CourseID:         adv.CourseID,
			CompletedPercent: CompletionPercent(adv.LessonIndex, total),
			CreatedAt:        now,
			UpdatedAt:        now,
		}

		stored, err := Upsert(ctx, db, p)
		if err != nil {
			return fmt.Errorf("updating progress: %w", err)
		}

		return web.Respond(ctx, w, stored, http.StatusOK)
	}
}
