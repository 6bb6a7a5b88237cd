package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProfileStatus type for the account approval lifecycle
type ProfileStatus string

const (
	ProfilePending   ProfileStatus = "pending"   // Awaiting admin approval
	ProfileActive    ProfileStatus = "active"    // Approved, may log in
	ProfileSuspended ProfileStatus = "suspended" // Blocked by an admin
)

// Profile is the public-facing student record, tied 1:1 to a User.
// It is created alongside the User at signup with status "pending";
// the username is only assigned when an admin approves the account.
type Profile struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID `bson:"userId" json:"userId"`
	Username      string             `bson:"username,omitempty" json:"username,omitempty"` // Unique, empty until approval
	FullName      string             `bson:"fullName" json:"fullName"`
	Email         string             `bson:"email" json:"email"` // Denormalized from User for listings
	ContactNumber string             `bson:"contactNumber,omitempty" json:"contactNumber,omitempty"`
	CollegeName   string             `bson:"collegeName,omitempty" json:"collegeName,omitempty"`
	CollegeID     string             `bson:"collegeId,omitempty" json:"collegeId,omitempty"`
	CollegeEmail  string             `bson:"collegeEmail,omitempty" json:"collegeEmail,omitempty"`
	City          string             `bson:"city,omitempty" json:"city,omitempty"`
	Pincode       string             `bson:"pincode,omitempty" json:"pincode,omitempty"`
	AvatarURL     string             `bson:"avatarUrl,omitempty" json:"avatarUrl,omitempty"`
	Status        ProfileStatus      `bson:"status" json:"status"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}
