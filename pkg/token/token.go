package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	// SignatureSize is the number of HMAC-SHA256 bytes kept in a token.
	SignatureSize = 16

	keySize  = 32
	infoBase = "churchly-token-v1:"
)

// Signer issues and verifies tokens carrying a JSON payload.
type Signer struct {
	secret []byte
}

// NewSigner creates a Signer whose key is derived from secret with HKDF.
// Signers sharing a secret but not a purpose reject each other's tokens.
// An empty secret fails with ErrEmptySecret.
func NewSigner(secret, purpose string) (*Signer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(infoBase+purpose)), key); err != nil {
		return nil, errors.Join(ErrKeyDerivation, err)
	}
	return &Signer{secret: key}, nil
}

// Sign encodes payload as base64url(json).base64url(signature).
func Sign[T any](s *Signer, payload T) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data) + "." +
		base64.RawURLEncoding.EncodeToString(s.sum(data)), nil
}

// Verify checks the signature of tok and decodes its payload.
func Verify[T any](s *Signer, tok string) (T, error) {
	var payload T

	encData, encSig, ok := strings.Cut(tok, ".")
	if !ok || strings.Contains(encSig, ".") {
		return payload, ErrInvalidToken
	}
	data, err := base64.RawURLEncoding.DecodeString(encData)
	if err != nil {
		return payload, ErrInvalidToken
	}
	sig, err := base64.RawURLEncoding.DecodeString(encSig)
	if err != nil {
		return payload, ErrInvalidToken
	}

	if subtle.ConstantTimeCompare(sig, s.sum(data)) != 1 {
		return payload, ErrSignatureInvalid
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, ErrInvalidToken
	}
	return payload, nil
}

func (s *Signer) sum(data []byte) []byte {
	h := hmac.New(sha256.New, s.secret)
	h.Write(data)
	return h.Sum(nil)[:SignatureSize]
}
