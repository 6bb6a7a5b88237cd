package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UploadStatus type for the upload review lifecycle
type UploadStatus string

const (
	UploadPending  UploadStatus = "pending"  // Initial state on creation
	UploadReviewed UploadStatus = "reviewed" // Admin looked at it, no verdict
	UploadApproved UploadStatus = "approved"
	UploadRejected UploadStatus = "rejected"
)

// Upload stores metadata about a file submitted by a student.
// The bytes themselves live in the blob store under StoragePath,
// which is a forward-slash relative path served as /uploads/<path>.
type Upload struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID  `bson:"userId" json:"userId"`           // Owning account
	FileName      string              `bson:"fileName" json:"fileName"`       // Original filename provided by the student
	StoragePath   string              `bson:"storagePath" json:"-"`           // Allocator-produced key, internal use
	ContentType   string              `bson:"contentType" json:"contentType"` // Declared MIME type (may be empty)
	Size          int64               `bson:"size" json:"size"`               // File size in bytes
	Description   string              `bson:"description,omitempty" json:"description,omitempty"`
	Status        UploadStatus        `bson:"status" json:"status"`
	AdminFeedback string              `bson:"adminFeedback,omitempty" json:"adminFeedback,omitempty"`
	ReviewedBy    *primitive.ObjectID `bson:"reviewedBy,omitempty" json:"reviewedBy,omitempty"`
	ReviewedAt    *time.Time          `bson:"reviewedAt,omitempty" json:"reviewedAt,omitempty"`
	CreatedAt     time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time           `bson:"updatedAt" json:"updatedAt"`
}
