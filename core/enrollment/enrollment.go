package enrollment

import "time"

type Status string

const (
	// Pending is set when the checkout session is created. Paid is the
	// only other state; abandoned checkouts stay pending forever.
	Pending Status = "pending"
	Paid    Status = "paid"
)

const (
	ProviderStripe = "stripe"
	ProviderPaypal = "paypal"
)

type Enrollment struct {
	ID              string    `json:"id" db:"enrollment_id"`
	UserID          string    `json:"user_id" db:"user_id"`
	CourseID        string    `json:"course_id" db:"course_id"`
	PaymentProvider string    `json:"payment_provider" db:"payment_provider"`
	PaymentID       string    `json:"payment_id" db:"payment_id"`
	Amount          int       `json:"amount" db:"amount"`
	Status          Status    `json:"status" db:"status"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

type StatusUp struct {
	PaymentID string    `db:"payment_id"`
	Status    Status    `db:"status"`
	UpdatedAt time.Time `db:"updated_at"`
}

type CheckoutNew struct {
	UserID   string `json:"userId" validate:"required,uuid"`
	CourseID string `json:"courseId" validate:"required,uuid"`
	Amount   int    `json:"amount" validate:"required,gt=0"`
}
