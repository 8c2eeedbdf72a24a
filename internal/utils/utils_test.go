package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")

	token, err := GenerateSessionToken(secret, "abc123", time.Hour)
	require.NoError(t, err)

	key, err := ValidateSessionToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "abc123", key)
}

func TestSessionTokenRejectsForeignSecret(t *testing.T) {
	token, err := GenerateSessionToken([]byte("one"), "abc123", time.Hour)
	require.NoError(t, err)

	_, err = ValidateSessionToken([]byte("two"), token)
	assert.Error(t, err)
}

func TestSessionTokenRejectsExpired(t *testing.T) {
	secret := []byte("test-secret")
	token, err := GenerateSessionToken(secret, "abc123", -time.Minute)
	require.NoError(t, err)

	_, err = ValidateSessionToken(secret, token)
	assert.Error(t, err)
}

func TestSessionTokenRejectsGarbage(t *testing.T) {
	_, err := ValidateSessionToken([]byte("test-secret"), "not-a-token")
	assert.Error(t, err)
}

func TestGenerateSessionKey(t *testing.T) {
	a, err := GenerateSessionKey()
	require.NoError(t, err)
	b, err := GenerateSessionKey()
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

type shippingForm struct {
	FirstName       string `validate:"required,max=5"`
	Email           string `validate:"required,email"`
	Phone           string `validate:"phone"`
	PaymentProvider string `validate:"required,payment_provider"`
}

func TestValidationErrors(t *testing.T) {
	errs := GetValidationErrors(ValidateStruct(&shippingForm{
		FirstName:       "Alexander",
		Email:           "nope",
		Phone:           "call me",
		PaymentProvider: "paypal",
	}))

	fields := map[string]string{}
	for _, e := range errs {
		fields[e.Field] = e.Tag
	}
	assert.Equal(t, map[string]string{
		"first_name":       "max",
		"email":            "email",
		"phone":            "phone",
		"payment_provider": "payment_provider",
	}, fields)
}

func TestValidationPasses(t *testing.T) {
	err := ValidateStruct(&shippingForm{
		FirstName:       "Nino",
		Email:           "nino@example.com",
		PaymentProvider: "stripe",
	})
	assert.NoError(t, err)
	assert.Empty(t, GetValidationErrors(err))
}
