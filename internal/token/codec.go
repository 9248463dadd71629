// Package token mints and verifies license tokens.
//
// A license token is a PASETO v4.local message: the claims are encrypted and
// authenticated under a 32-byte symmetric key, and the footer carries a fixed
// context tag that pins the token to this application. The token text is
// opaque to everyone except this package.
package token

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	paseto "aidanwoods.dev/go-paseto"
)

// DefaultFooter is the context tag bound into every license token.
const DefaultFooter = "license-v1"

const (
	keySize   = 32
	header    = "v4.local."
	claimPlan = "plan"
	segments  = 4
)

// ErrInvalidToken is returned for every decode failure. The cause (bad key,
// tampering, wrong context, malformed text) is deliberately not exposed.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the signed payload of a license token.
type Claims struct {
	Subject   string
	Plan      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Codec encodes and decodes license tokens under one key and footer.
type Codec struct {
	key    paseto.V4SymmetricKey
	footer []byte
	now    func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock overrides the clock used for the iat claim.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// NewCodec builds a Codec from a raw 32-byte key and a context footer.
func NewCodec(key []byte, footer string, opts ...Option) (*Codec, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("license key must be %d bytes, got %d", keySize, len(key))
	}
	if footer == "" {
		return nil, errors.New("token footer must not be empty")
	}

	k, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("load license key: %w", err)
	}

	c := &Codec{
		key:    k,
		footer: []byte(footer),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GenerateKeyHex returns a fresh random key in the hex form accepted by the
// LICENSE.SECRET_KEY_HEX setting.
func GenerateKeyHex() string {
	return paseto.NewV4SymmetricKey().ExportHex()
}

// Encode signs and encrypts the claims. Nonces are generated by the PASETO
// library on every call. Timestamps are carried with second precision, so
// expiresAt is truncated to whole seconds.
func (c *Codec) Encode(subject, plan string, expiresAt time.Time) (string, error) {
	if subject == "" {
		return "", errors.New("token subject must not be empty")
	}

	tok := paseto.NewToken()
	tok.SetSubject(subject)
	tok.SetIssuedAt(c.now().UTC())
	tok.SetExpiration(expiresAt.UTC().Truncate(time.Second))
	_ = tok.Set(claimPlan, plan)
	tok.SetFooter(c.footer)

	return tok.V4Encrypt(c.key, nil), nil
}

// Decode verifies the token and returns its claims. The embedded expiry is
// returned as-is and not enforced here.
func (c *Codec) Decode(text string) (Claims, error) {
	if !canonical(text) {
		return Claims{}, ErrInvalidToken
	}

	parser := paseto.NewParserWithoutExpiryCheck()
	parsed, err := parser.ParseV4Local(c.key, text, nil)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	if !bytes.Equal(parsed.Footer(), c.footer) {
		return Claims{}, ErrInvalidToken
	}

	sub, err := parsed.GetSubject()
	if err != nil || sub == "" {
		return Claims{}, ErrInvalidToken
	}
	plan, err := parsed.GetString(claimPlan)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	exp, err := parsed.GetExpiration()
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	iat, err := parsed.GetIssuedAt()
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	return Claims{
		Subject:   sub,
		Plan:      plan,
		IssuedAt:  iat.UTC(),
		ExpiresAt: exp.UTC(),
	}, nil
}

// canonical rejects any text that base64 decoding would silently normalize,
// so that every bit of the token text is covered by the authentication tag.
func canonical(text string) bool {
	if !strings.HasPrefix(text, header) {
		return false
	}
	for i := 0; i < len(text); i++ {
		ch := text[i]
		switch {
		case ch >= 'A' && ch <= 'Z', ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9':
		case ch == '-', ch == '_', ch == '.':
		default:
			return false
		}
	}

	parts := strings.Split(text, ".")
	if len(parts) != segments {
		return false
	}
	for _, part := range parts[2:] {
		if _, err := base64.RawURLEncoding.Strict().DecodeString(part); err != nil {
			return false
		}
	}
	return true
}
