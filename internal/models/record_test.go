package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestAccessTypeValid(t *testing.T) {
	assert.True(t, AccessNoPin.Valid())
	assert.True(t, AccessFixedPinExpiry.Valid())
	assert.True(t, AccessFixedPinNoExpiry.Valid())
	assert.True(t, AccessOTPExpiry.Valid())
	assert.False(t, AccessType("").Valid())
	assert.False(t, AccessType("pin").Valid())
}

func TestAccessTypeFieldTable(t *testing.T) {
	tests := []struct {
		typ         AccessType
		requiresPIN bool
		requiresExp bool
		otp         bool
	}{
		{AccessNoPin, false, false, false},
		{AccessFixedPinExpiry, true, true, false},
		{AccessFixedPinNoExpiry, true, false, false},
		{AccessOTPExpiry, false, true, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			assert.Equal(t, tt.requiresPIN, tt.typ.RequiresPIN())
			assert.Equal(t, tt.requiresExp, tt.typ.RequiresExpiry())
			assert.Equal(t, tt.otp, tt.typ.GeneratesOTP())
		})
	}
}

func TestAccessTypeLabels(t *testing.T) {
	assert.Equal(t, "Public", AccessNoPin.Label())
	assert.Equal(t, "PIN + Expiry", AccessFixedPinExpiry.Label())
	assert.Equal(t, "PIN", AccessFixedPinNoExpiry.Label())
	assert.Equal(t, "OTP", AccessOTPExpiry.Label())

	assert.Equal(t, "No PIN (Public)", AccessNoPin.DetailLabel())
	assert.Equal(t, "OTP with Expiration", AccessOTPExpiry.DetailLabel())
}

func TestValidateAccessFieldsClearsForbiddenFields(t *testing.T) {
	exp := time.Now().Add(24 * time.Hour)
	rec := &Record{
		Name:      "staging",
		Config:    map[string]interface{}{"env": "staging"},
		AccessTyp: AccessNoPin,
		Pin:       "123456",
		Otp:       "654321",
		OtpUsed:   boolPtr(false),
		ExpiresAt: &exp,
	}

	require.NoError(t, rec.ValidateAccessFields())
	assert.Empty(t, rec.Pin)
	assert.Empty(t, rec.Otp)
	assert.Nil(t, rec.OtpUsed)
	assert.Nil(t, rec.ExpiresAt)
	assert.False(t, rec.HasSecret())
}

func TestValidateAccessFieldsRequiredFields(t *testing.T) {
	exp := time.Now().Add(time.Hour)

	t.Run("pin missing", func(t *testing.T) {
		rec := &Record{AccessTyp: AccessFixedPinNoExpiry}
		assert.Error(t, rec.ValidateAccessFields())
	})

	t.Run("expiry missing", func(t *testing.T) {
		rec := &Record{AccessTyp: AccessFixedPinExpiry, Pin: "123456"}
		assert.Error(t, rec.ValidateAccessFields())
	})

	t.Run("otp missing", func(t *testing.T) {
		rec := &Record{AccessTyp: AccessOTPExpiry, ExpiresAt: &exp}
		assert.Error(t, rec.ValidateAccessFields())
	})

	t.Run("unknown type", func(t *testing.T) {
		rec := &Record{AccessTyp: "password"}
		assert.Error(t, rec.ValidateAccessFields())
	})
}

func TestValidateAccessFieldsKeepsAllowedFields(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	rec := &Record{
		AccessTyp: AccessOTPExpiry,
		Otp:       "424242",
		OtpUsed:   boolPtr(false),
		ExpiresAt: &exp,
		Pin:       "123456", // forbidden for otp-expiry, must be dropped
	}

	require.NoError(t, rec.ValidateAccessFields())
	assert.Empty(t, rec.Pin)
	assert.Equal(t, "424242", rec.Otp)
	require.NotNil(t, rec.OtpUsed)
	assert.False(t, *rec.OtpUsed)
	assert.NotNil(t, rec.ExpiresAt)
}

func TestSecretPrefersPin(t *testing.T) {
	rec := &Record{Pin: "123456"}
	assert.True(t, rec.HasSecret())
	assert.Equal(t, "123456", rec.Secret())

	rec = &Record{Otp: "654321"}
	assert.True(t, rec.HasSecret())
	assert.Equal(t, "654321", rec.Secret())

	rec = &Record{}
	assert.False(t, rec.HasSecret())
	assert.Empty(t, rec.Secret())
}
