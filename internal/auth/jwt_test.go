package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return s
}

func TestVerifier_Verify(t *testing.T) {
	v := NewVerifier(testSecret)
	now := time.Now()

	valid := signToken(t, testSecret, Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})

	uid, err := v.Verify(valid)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if uid != "u1" {
		t.Errorf("Verify() = %q, want u1", uid)
	}
}

func TestVerifier_RejectsBadTokens(t *testing.T) {
	v := NewVerifier(testSecret)
	now := time.Now()

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{
			name:    "garbage",
			token:   "not.a.token",
			wantErr: ErrInvalidToken,
		},
		{
			name: "wrong secret",
			token: signToken(t, "other-secret", Claims{
				UserID:           "u1",
				RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
			}),
			wantErr: ErrInvalidToken,
		},
		{
			name: "expired",
			token: signToken(t, testSecret, Claims{
				UserID:           "u1",
				RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour))},
			}),
			wantErr: ErrExpiredToken,
		},
		{
			name: "missing user id",
			token: signToken(t, testSecret, Claims{
				RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
			}),
			wantErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.Verify(tt.token); !errors.Is(err, tt.wantErr) {
				t.Errorf("Verify() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
