package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTUtil_GenerateToken(t *testing.T) {
	jwtUtil := NewJWTUtil("secret", 1)
	userID := int64(1)
	role := "user"

	tokenString, err := jwtUtil.GenerateToken(userID, role)

	assert.NoError(t, err)
	assert.NotEmpty(t, tokenString)
	assert.NotContains(t, tokenString, "secret")

	claims, err := jwtUtil.ValidateToken(tokenString)
	assert.NoError(t, err)
	assert.NotNil(t, claims)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, role, claims.Role)
	assert.Equal(t, "1", claims.Subject)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestJWTUtil_ValidateToken(t *testing.T) {
	jwtUtil := NewJWTUtil("secret", 24)

	tokenString, _ := jwtUtil.GenerateToken(42, "admin")

	claims, err := jwtUtil.ValidateToken(tokenString)

	assert.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "admin", claims.Role)
}

func TestJWTUtil_ValidateToken_MalformedToken(t *testing.T) {
	jwtUtil := NewJWTUtil("secret", 1)

	for _, raw := range []string{"", "not-a-jwt", "invalid.token.string"} {
		_, err := jwtUtil.ValidateToken(raw)
		assert.ErrorIs(t, err, ErrMalformedToken, raw)
	}
}

func TestJWTUtil_ValidateToken_ExpiredToken(t *testing.T) {
	jwtUtil := NewJWTUtil("secret", -1) // Token expires in the past

	tokenString, err := jwtUtil.GenerateToken(1, "user")
	require.NoError(t, err)

	_, err = jwtUtil.ValidateToken(tokenString)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTUtil_ValidateToken_ExpiresWithClock(t *testing.T) {
	jwtUtil := NewJWTUtil("secret", 1)
	issued := time.Now()
	jwtUtil.now = func() time.Time { return issued }

	tokenString, err := jwtUtil.GenerateToken(1, "user")
	require.NoError(t, err)

	jwtUtil.now = func() time.Time { return issued.Add(59 * time.Minute) }
	_, err = jwtUtil.ValidateToken(tokenString)
	assert.NoError(t, err)

	jwtUtil.now = func() time.Time { return issued.Add(61 * time.Minute) }
	_, err = jwtUtil.ValidateToken(tokenString)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTUtil_ValidateToken_WrongSecret(t *testing.T) {
	jwtUtil1 := NewJWTUtil("secret1", 1)
	jwtUtil2 := NewJWTUtil("secret2", 1)

	tokenString, _ := jwtUtil1.GenerateToken(1, "user")

	_, err := jwtUtil2.ValidateToken(tokenString)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTUtil_ValidateToken_TamperedSignature(t *testing.T) {
	jwtUtil := NewJWTUtil("secret", 1)
	tokenString, err := jwtUtil.GenerateToken(1, "user")
	require.NoError(t, err)

	parts := strings.Split(tokenString, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = jwtUtil.ValidateToken(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTUtil_ValidateToken_TamperedClaims(t *testing.T) {
	jwtUtil := NewJWTUtil("secret", 1)
	userToken, err := jwtUtil.GenerateToken(2, "user")
	require.NoError(t, err)
	adminToken, err := jwtUtil.GenerateToken(2, "admin")
	require.NoError(t, err)

	// Admin payload spliced onto the user token's signature
	u := strings.Split(userToken, ".")
	a := strings.Split(adminToken, ".")
	forged := u[0] + "." + a[1] + "." + u[2]

	_, err = jwtUtil.ValidateToken(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTUtil_ValidateToken_InvalidSigningMethod(t *testing.T) {
	jwtUtil := NewJWTUtil("secret", 1)
	claims := &JWTClaims{
		UserID: 1,
		Role:   "user",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS384, claims)
	tokenString, _ := token.SignedString([]byte("secret"))

	_, err := jwtUtil.ValidateToken(tokenString)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTUtil_ValidateToken_MissingClaims(t *testing.T) {
	jwtUtil := NewJWTUtil("secret", 1)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	tokenString, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = jwtUtil.ValidateToken(tokenString)
	assert.ErrorIs(t, err, ErrMalformedToken)
}
