package token_test

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churchly/backend/pkg/token"
)

type claim struct {
	TenantID int64  `json:"tid"`
	Hostname string `json:"host"`
}

func signer(t *testing.T, secret string) *token.Signer {
	t.Helper()
	s, err := token.NewSigner(secret, "test")
	require.NoError(t, err)
	return s
}

func TestSignVerify(t *testing.T) {
	t.Parallel()

	s := signer(t, "domain-secret")
	in := claim{TenantID: 7, Hostname: "grace.example.org"}

	tok, err := token.Sign(s, in)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(tok, "."))

	out, err := token.Verify[claim](s, tok)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestVerifyFailures(t *testing.T) {
	t.Parallel()

	s := signer(t, "domain-secret")
	tok, err := token.Sign(s, claim{TenantID: 7, Hostname: "grace.example.org"})
	require.NoError(t, err)

	payload, sig, _ := strings.Cut(tok, ".")
	forged := base64.RawURLEncoding.EncodeToString([]byte(`{"tid":8,"host":"grace.example.org"}`))

	tests := []struct {
		name string
		tok  string
		err  error
	}{
		{name: "no separator", tok: payload, err: token.ErrInvalidToken},
		{name: "extra separator", tok: tok + ".x", err: token.ErrInvalidToken},
		{name: "bad base64", tok: "!!!." + sig, err: token.ErrInvalidToken},
		{name: "forged payload", tok: forged + "." + sig, err: token.ErrSignatureInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := token.Verify[claim](s, tt.tok)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	t.Run("other secret", func(t *testing.T) {
		t.Parallel()

		_, err := token.Verify[claim](signer(t, "another-secret"), tok)
		assert.ErrorIs(t, err, token.ErrSignatureInvalid)
	})
}

func TestNewSignerRequiresSecret(t *testing.T) {
	t.Parallel()

	_, err := token.NewSigner("", "test")
	assert.ErrorIs(t, err, token.ErrEmptySecret)
}

func TestPurposesAreSeparated(t *testing.T) {
	t.Parallel()

	a, err := token.NewSigner("shared", "domain-verification")
	require.NoError(t, err)
	b, err := token.NewSigner("shared", "invitation")
	require.NoError(t, err)

	tok, err := token.Sign(a, claim{TenantID: 1, Hostname: "grace.example.org"})
	require.NoError(t, err)

	_, err = token.Verify[claim](b, tok)
	assert.ErrorIs(t, err, token.ErrSignatureInvalid)

	_, err = token.Verify[claim](a, tok)
	assert.NoError(t, err)
}
