package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FeedbackStatus type for the feedback handling lifecycle
type FeedbackStatus string

const (
	FeedbackSubmitted FeedbackStatus = "submitted" // Initial state
	FeedbackInReview  FeedbackStatus = "in_review"
	FeedbackResolved  FeedbackStatus = "resolved"
	FeedbackRejected  FeedbackStatus = "rejected"
)

// Feedback is a rated text submission from a student. At most one
// Feedback per account per UTC calendar day is allowed; the rule is
// enforced at creation time in the service layer.
//
// Status and AdminResponse are orthogonal: an admin can attach a
// response without changing status and vice versa.
type Feedback struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID  `bson:"userId" json:"userId"` // Owning account
	Category      string              `bson:"category" json:"category"`
	Subject       string              `bson:"subject" json:"subject"`
	Message       string              `bson:"message" json:"message"`
	Rating        float64             `bson:"rating" json:"rating"` // 1.0..5.0 in 0.5 increments
	Attachments   []string            `bson:"attachments,omitempty" json:"attachments,omitempty"` // Ordered served URLs
	Status        FeedbackStatus      `bson:"status" json:"status"`
	AdminResponse string              `bson:"adminResponse,omitempty" json:"adminResponse,omitempty"`
	RespondedBy   *primitive.ObjectID `bson:"respondedBy,omitempty" json:"respondedBy,omitempty"`
	RespondedAt   *time.Time          `bson:"respondedAt,omitempty" json:"respondedAt,omitempty"`
	CreatedAt     time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time           `bson:"updatedAt" json:"updatedAt"`
}
