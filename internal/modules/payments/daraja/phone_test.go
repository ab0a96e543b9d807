package daraja_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/57nyambu/dima-backend-sub000/internal/modules/payments/daraja"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"254712345678", "254712345678"},
		{"+254712345678", "254712345678"},
		{"0712345678", "254712345678"},
		{"0112345678", "254112345678"},
		{"712345678", "254712345678"},
		{"112345678", "254112345678"},
		{"  0712 345-678 ", "254712345678"},
		{"(254) 712 345 678", "254712345678"},
	}
	for _, tc := range tests {
		got, err := daraja.NormalizePhone(tc.in)
		assert.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestNormalizePhoneRejects(t *testing.T) {
	for _, in := range []string{
		"",
		"abc",
		"25471234567",    // too short
		"2547123456789",  // too long
		"254812345678",   // not a 7/1 subscriber prefix
		"07123456789999", // garbage length
		"07123a5678",     // non-digit
		"447912345678",   // wrong country
	} {
		_, err := daraja.NormalizePhone(in)
		assert.ErrorIs(t, err, daraja.ErrInvalidPhone, in)
	}
}
