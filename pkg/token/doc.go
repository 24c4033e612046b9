// Package token issues compact signed tokens carrying a JSON payload.
//
// The format is base64url(payload).base64url(signature), where the
// signature is HMAC-SHA256 truncated to SignatureSize bytes, keyed with a
// per-purpose key derived from the configured secret. Custom domain
// verification uses it so the token published in DNS can be checked
// without a lookup:
//
//	signer, err := token.NewSigner(cfg.DomainSecret, "domain-verification")
//	tok, err := token.Sign(signer, claim{TenantID: 7, Hostname: "grace.example.org"})
//	c, err := token.Verify[claim](signer, tok)
//
// Verify returns ErrInvalidToken for malformed input and
// ErrSignatureInvalid when the signature does not match.
package token
