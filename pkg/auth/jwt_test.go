package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerifyAccess(t *testing.T) {
	j := New("secret")

	tok, err := j.Sign("user-1", time.Hour)
	require.NoError(t, err)

	uid, err := j.VerifyAccess(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", uid)
}

func TestVerifyAccess_Rejections(t *testing.T) {
	j := New("secret")

	refresh := func() string {
		claims := jwt.MapClaims{
			"sub":  "user-1",
			"type": "refresh",
			"exp":  time.Now().Add(time.Hour).Unix(),
		}
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)
		return tok
	}

	tests := []struct {
		name    string
		token   func() string
		wantErr error
	}{
		{
			name:    "garbage",
			token:   func() string { return "not.a.jwt" },
			wantErr: ErrInvalidToken,
		},
		{
			name: "expired",
			token: func() string {
				tok, err := j.Sign("user-1", -time.Minute)
				require.NoError(t, err)
				return tok
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "wrong secret",
			token: func() string {
				tok, err := New("other").Sign("user-1", time.Hour)
				require.NoError(t, err)
				return tok
			},
			wantErr: ErrInvalidToken,
		},
		{
			name:    "refresh token where access required",
			token:   refresh,
			wantErr: ErrNotAccessToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := j.VerifyAccess(tt.token())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSign_EmptyUID(t *testing.T) {
	_, err := New("secret").Sign("", time.Hour)
	assert.Error(t, err)
}

func TestUserContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "anon", UserID(ctx))

	ctx = WithUser(ctx, "user-1")
	assert.Equal(t, "user-1", UserID(ctx))
}
