package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckAccountFields(t *testing.T) {
	tests := []struct {
		name          string
		userName      string
		email         string
		password      string
		expectedError string
	}{
		{
			name:     "valid_account",
			userName: "Ada Lovelace",
			email:    "ada@example.com",
			password: "s3cure-enough",
		},
		{
			name:          "blank_name",
			userName:      "   ",
			email:         "ada@example.com",
			password:      "s3cure-enough",
			expectedError: "name is required",
		},
		{
			name:          "malformed_email",
			userName:      "Ada",
			email:         "not-an-email",
			password:      "s3cure-enough",
			expectedError: "invalid email format",
		},
		{
			name:          "short_password",
			userName:      "Ada",
			email:         "ada@example.com",
			password:      "ab1",
			expectedError: "at least 8 characters",
		},
		{
			name:          "password_without_digit",
			userName:      "Ada",
			email:         "ada@example.com",
			password:      "lettersonly",
			expectedError: "letter and one digit",
		},
		{
			name:          "password_without_letter",
			userName:      "Ada",
			email:         "ada@example.com",
			password:      "12345678",
			expectedError: "letter and one digit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkAccountFields(tt.userName, tt.email, tt.password)

			if tt.expectedError != "" {
				assert.ErrorContains(t, err, tt.expectedError)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ada@example.com", normalizeEmail("  Ada@Example.COM "))
}
