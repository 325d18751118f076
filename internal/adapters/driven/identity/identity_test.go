package identity

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic(t *testing.T) {
	id, ok := Static("local").CurrentUserID(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "local", id)

	_, ok = Static("").CurrentUserID(context.Background())
	assert.False(t, ok)
}

func TestContext(t *testing.T) {
	_, ok := Context{}.CurrentUserID(context.Background())
	assert.False(t, ok)

	ctx := WithUser(context.Background(), "u-42")
	id, ok := Context{}.CurrentUserID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "u-42", id)

	_, ok = UserFromContext(WithUser(context.Background(), ""))
	assert.False(t, ok)
}

func TestChain(t *testing.T) {
	chain := Chain{Context{}, Static("local")}

	id, ok := chain.CurrentUserID(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "local", id)

	id, ok = chain.CurrentUserID(WithUser(context.Background(), "alice"))
	assert.True(t, ok)
	assert.Equal(t, "alice", id)

	_, ok = Chain{Context{}, Static("")}.CurrentUserID(context.Background())
	assert.False(t, ok)
}

func TestJWTValidator_IssueAndValidate(t *testing.T) {
	v := NewJWTValidator("secret", "pdfchat")

	token, err := v.Issue("user-1", time.Hour)
	require.NoError(t, err)

	sub, err := v.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub)
}

func TestJWTValidator_Rejects(t *testing.T) {
	v := NewJWTValidator("secret", "pdfchat")

	t.Run("empty token", func(t *testing.T) {
		_, err := v.Validate("")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := NewJWTValidator("other", "pdfchat").Issue("user-1", time.Hour)
		require.NoError(t, err)
		_, err = v.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		token, err := NewJWTValidator("secret", "someone-else").Issue("user-1", time.Hour)
		require.NoError(t, err)
		_, err = v.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		issuer := NewJWTValidator("secret", "pdfchat")
		issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := issuer.Issue("user-1", time.Hour)
		require.NoError(t, err)
		_, err = v.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("no expiry", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:  "user-1",
			Issuer:   "pdfchat",
			IssuedAt: jwt.NewNumericDate(time.Now()),
		}).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = v.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
		assert.ErrorContains(t, err, "missing expiry")
	})

	t.Run("missing subject", func(t *testing.T) {
		token, err := v.Issue("", time.Hour)
		require.NoError(t, err)
		_, err = v.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("non-HMAC algorithm", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "user-1"}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = v.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestJWTValidator_AnyIssuer(t *testing.T) {
	token, err := NewJWTValidator("secret", "anyone").Issue("user-1", time.Hour)
	require.NoError(t, err)

	sub, err := NewJWTValidator("secret", "").Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub)
}

func TestJWTValidator_NoSecret(t *testing.T) {
	v := NewJWTValidator("", "")
	_, err := v.Validate("x")
	assert.ErrorIs(t, err, ErrNoSecret)
	_, err = v.Issue("u", time.Minute)
	assert.ErrorIs(t, err, ErrNoSecret)
}
