package quiz

import (
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/lib/pq"
)

type Question struct {
	ID       string         `json:"id" db:"question_id"`
	CourseID string         `json:"course_id" db:"course_id"`
	Question string         `json:"question" db:"question"`
	Options  pq.StringArray `json:"options" db:"options"`

	// Never serialized: the answer key stays server-side and is only
	// read by the scoring routines.
	CorrectAnswer string `json:"-" db:"correct_answer"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type QuestionNew struct {
	CourseID      string   `json:"course_id" validate:"required,uuid"`
	Question      string   `json:"question" validate:"required"`
	Options       []string `json:"options" validate:"required,min=2"`
	CorrectAnswer string   `json:"correct_answer" validate:"required"`
}

type KeyedAnswer struct {
	QuestionID string `json:"questionId" validate:"required,uuid"`
	Selected   string `json:"selected"`
}

// Submission is the decoded form of a quiz submission. The two wire
// shapes are incompatible contracts and stay separate: positional
// answers align by index with the course's questions, keyed answers
// name their question explicitly. Exactly one of the two is set.
type Submission struct {
	CourseID   string
	Positional []string
	Keyed      []KeyedAnswer
}

func (s Submission) IsKeyed() bool { return s.Keyed != nil }

var ErrMalformedAnswers = errors.New("answers must be an array of strings or of {questionId, selected} objects")

// ParseSubmission classifies the raw answers payload into one of the
// two submission variants instead of guessing shapes downstream.
func ParseSubmission(courseID string, raw json.RawMessage) (Submission, error) {
	if len(raw) == 0 {
		return Submission{}, ErrMalformedAnswers
	}

	var positional []string
	if err := json.Unmarshal(raw, &positional); err == nil {
		if courseID == "" {
			return Submission{}, errors.New("courseId is required for positional answers")
		}
		return Submission{CourseID: courseID, Positional: positional}, nil
	}

	var keyed []KeyedAnswer
	if err := json.Unmarshal(raw, &keyed); err == nil {
		return Submission{CourseID: courseID, Keyed: keyed}, nil
	}

	return Submission{}, ErrMalformedAnswers
}

// PositionalScore compares answers by index against the course's
// questions and returns the rounded match percentage. A course without
// questions scores zero rather than dividing by it.
func PositionalScore(questions []Question, answers []string) int {
	if len(questions) == 0 {
		return 0
	}

	matches := 0
	for i, q := range questions {
		if i < len(answers) && answers[i] == q.CorrectAnswer {
			matches++
		}
	}

	return int(math.Round(float64(matches) / float64(len(questions)) * 100))
}

// KeyedScore counts matching answers against the answer key. Unknown
// question ids simply score no point.
func KeyedScore(key map[string]string, answers []KeyedAnswer) int {
	score := 0
	for _, a := range answers {
		if correct, ok := key[a.QuestionID]; ok && correct == a.Selected {
			score++
		}
	}
	return score
}
