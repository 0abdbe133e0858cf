package progress

import "time"

type Progress struct {
	UserID           string    `json:"user_id" db:"user_id"`
	CourseID         string    `json:"course_id" db:"course_id"`
	CompletedPercent float64   `json:"completed_percent" db:"completed_percent"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// Percent is fractional: clients compute (lesson+1)/total*100 and send
// the raw number.
type ProgressUp struct {
	UserID   string  `json:"userId" validate:"required,uuid"`
	CourseID string  `json:"courseId" validate:"required,uuid"`
	Percent  float64 `json:"percent" validate:"gte=0,lte=100"`
}

type ProgressAdvance struct {
	UserID      string `json:"userId" validate:"required,uuid"`
	CourseID    string `json:"courseId" validate:"required,uuid"`
	LessonIndex int    `json:"lessonIndex" validate:"gte=0"`
}

// CompletionPercent maps a just-finished lesson index to an overall
// completion percentage, clamped to [0,100]. The value stays
// fractional. A course without lessons counts as fully completed.
func CompletionPercent(lessonIndex int, totalLessons int) float64 {
	if totalLessons <= 0 {
		return 100
	}

	p := float64(lessonIndex+1) / float64(totalLessons) * 100
	if p > 100 {
		p = 100
	}
	if p < 0 {
		p = 0
	}
	return p
}
