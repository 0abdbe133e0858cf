package course

import "time"

type Course struct {
	ID          string    `json:"id" db:"course_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Instructor  string    `json:"instructor" db:"instructor"`
	Price       int       `json:"price" db:"price"`
	ImageURL    string    `json:"image_url" db:"image_url"`
	VideoURL    string    `json:"video_url" db:"video_url"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type CourseNew struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Instructor  string `json:"instructor" validate:"required"`
	Price       int    `json:"price" validate:"gte=0,lte=100000"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
	VideoURL    string `json:"video_url" validate:"omitempty,url"`
}
