package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AccessType controls which secret/expiry fields accompany a record.
type AccessType string

const (
	AccessNoPin            AccessType = "no-pin"
	AccessFixedPinExpiry   AccessType = "fixed-pin-expiry"
	AccessFixedPinNoExpiry AccessType = "fixed-pin-no-expiry"
	AccessOTPExpiry        AccessType = "otp-expiry"
)

// Valid reports whether t is one of the four known access types.
func (t AccessType) Valid() bool {
	switch t {
	case AccessNoPin, AccessFixedPinExpiry, AccessFixedPinNoExpiry, AccessOTPExpiry:
		return true
	}
	return false
}

// RequiresPIN reports whether a user-supplied 6-digit PIN must be present.
func (t AccessType) RequiresPIN() bool {
	return t == AccessFixedPinExpiry || t == AccessFixedPinNoExpiry
}

// RequiresExpiry reports whether an expiration timestamp must be present.
func (t AccessType) RequiresExpiry() bool {
	return t == AccessFixedPinExpiry || t == AccessOTPExpiry
}

// GeneratesOTP reports whether a one-time 6-digit code is generated server-side.
func (t AccessType) GeneratesOTP() bool {
	return t == AccessOTPExpiry
}

// Label returns the short badge label shown on record cards.
func (t AccessType) Label() string {
	switch t {
	case AccessNoPin:
		return "Public"
	case AccessFixedPinExpiry:
		return "PIN + Expiry"
	case AccessFixedPinNoExpiry:
		return "PIN"
	case AccessOTPExpiry:
		return "OTP"
	}
	return string(t)
}

// DetailLabel returns the long label shown in the detail view.
func (t AccessType) DetailLabel() string {
	switch t {
	case AccessNoPin:
		return "No PIN (Public)"
	case AccessFixedPinExpiry:
		return "Fixed PIN with Expiration"
	case AccessFixedPinNoExpiry:
		return "Fixed PIN without Expiration"
	case AccessOTPExpiry:
		return "OTP with Expiration"
	}
	return string(t)
}

// Record is a user-owned configuration entry stored in the configs collection.
type Record struct {
	ID        primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	Name      string                 `bson:"name" json:"name"`
	Config    map[string]interface{} `bson:"config" json:"config"`
	AccessTyp AccessType             `bson:"access_type" json:"access_type"`

	// Present only for the access types that require them.
	Pin       string     `bson:"pin,omitempty" json:"pin,omitempty"`
	Otp       string     `bson:"otp,omitempty" json:"otp,omitempty"`
	OtpUsed   *bool      `bson:"otp_used,omitempty" json:"otp_used,omitempty"`
	ExpiresAt *time.Time `bson:"expires_at,omitempty" json:"expires_at,omitempty"`

	// Owner identity, set at creation, never mutated.
	UserID    string `bson:"user_id" json:"user_id"`
	UserEmail string `bson:"user_email" json:"user_email"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ValidateAccessFields checks the access-type field table and clears fields
// the variant forbids, so stored documents never carry stale secrets.
func (r *Record) ValidateAccessFields() error {
	if !r.AccessTyp.Valid() {
		return fmt.Errorf("unknown access type %q", r.AccessTyp)
	}
	if r.AccessTyp.RequiresPIN() && r.Pin == "" {
		return fmt.Errorf("access type %q requires a PIN", r.AccessTyp)
	}
	if r.AccessTyp.RequiresExpiry() && r.ExpiresAt == nil {
		return fmt.Errorf("access type %q requires an expiration date", r.AccessTyp)
	}
	if r.AccessTyp.GeneratesOTP() && r.Otp == "" {
		return fmt.Errorf("access type %q requires a generated OTP", r.AccessTyp)
	}

	if !r.AccessTyp.RequiresPIN() {
		r.Pin = ""
	}
	if !r.AccessTyp.RequiresExpiry() {
		r.ExpiresAt = nil
	}
	if !r.AccessTyp.GeneratesOTP() {
		r.Otp = ""
		r.OtpUsed = nil
	}
	return nil
}

// HasSecret reports whether the record carries a plaintext PIN or OTP.
func (r *Record) HasSecret() bool {
	return r.Pin != "" || r.Otp != ""
}

// Secret returns the PIN or OTP, whichever is present.
func (r *Record) Secret() string {
	if r.Pin != "" {
		return r.Pin
	}
	return r.Otp
}
