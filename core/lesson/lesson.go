package lesson

import "time"

type Lesson struct {
	ID        string    `json:"id" db:"lesson_id"`
	CourseID  string    `json:"course_id" db:"course_id"`
	Index     int       `json:"index" db:"index"`
	Title     string    `json:"title" db:"title"`
	VideoURL  string    `json:"video_url" db:"video_url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type LessonNew struct {
	CourseID string `json:"course_id" validate:"required,uuid"`
	Index    int    `json:"index" validate:"gte=0"`
	Title    string `json:"title" validate:"required"`
	VideoURL string `json:"video_url" validate:"omitempty,url"`
}
