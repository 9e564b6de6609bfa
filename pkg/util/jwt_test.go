package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-testing"

func TestGenerateToken(t *testing.T) {
	tests := []struct {
		name        string
		userID      uint
		workspaceID uint
		email       string
	}{
		{name: "Personal workspace", userID: 1, workspaceID: 10, email: "owner@example.com"},
		{name: "Without email", userID: 2, workspaceID: 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := GenerateToken(tt.userID, tt.workspaceID, tt.email, testSecret, 15*time.Minute)
			require.NoError(t, err)
			assert.NotEmpty(t, token)

			claims, err := ValidateToken(token, testSecret)
			require.NoError(t, err)
			assert.Equal(t, tt.userID, claims.UserID)
			assert.Equal(t, tt.workspaceID, claims.WorkspaceID)
			assert.Equal(t, tt.email, claims.Email)
		})
	}
}

func TestValidateToken_Errors(t *testing.T) {
	valid, err := GenerateToken(1, 10, "", testSecret, time.Minute)
	require.NoError(t, err)

	expired, err := GenerateToken(1, 10, "", testSecret, -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		secret  string
		wantErr error
	}{
		{name: "Expired", token: expired, secret: testSecret, wantErr: ErrExpiredToken},
		{name: "Wrong secret", token: valid, secret: "other-secret", wantErr: ErrInvalidToken},
		{name: "Garbage", token: "not.a.token", secret: testSecret, wantErr: ErrInvalidToken},
		{name: "Empty", token: "", secret: testSecret, wantErr: ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ValidateToken(tt.token, tt.secret)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, claims)
		})
	}
}
