package tokens

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"poolpack/internal/services"
)

// ErrInvalid is returned for malformed tokens and signature mismatches.
var ErrInvalid = services.ErrTokenInvalid

var encoding = base64.RawURLEncoding.Strict()

// Claims is the payload bound into a token.
type Claims struct {
	Locator  string    `json:"locator"`
	Filename string    `json:"filename"`
	IssuedAt time.Time `json:"issuedAt"`
}

// Signer mints and verifies capability tokens with a single server secret.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// Option customizes a Signer.
type Option func(*Signer)

// WithClock overrides the time source used for issuedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSigner constructs a Signer. The secret must be non-empty.
func NewSigner(secret string, opts ...Option) (*Signer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "tokens", "init", "signing secret is empty", nil)
	}
	s := &Signer{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue returns a token binding locator and filename.
func (s *Signer) Issue(locator, filename string) (string, error) {
	if locator == "" {
		return "", services.Wrap(services.ErrValidation, "tokens", "issue", "locator is required", nil)
	}
	payload, err := json.Marshal(Claims{
		Locator:  locator,
		Filename: filename,
		IssuedAt: s.now().UTC().Truncate(time.Second),
	})
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "tokens", "issue", "encode claims", err)
	}
	encoded := encoding.EncodeToString(payload)
	return encoded + "." + encoding.EncodeToString(s.sign(encoded)), nil
}

// Verify checks the token signature and returns its claims.
func (s *Signer) Verify(token string) (Claims, error) {
	encoded, sig, ok := strings.Cut(strings.TrimSpace(token), ".")
	if !ok || encoded == "" || sig == "" {
		return Claims{}, services.Wrap(ErrInvalid, "tokens", "verify", "malformed token", nil)
	}
	got, err := encoding.DecodeString(sig)
	if err != nil {
		return Claims{}, services.Wrap(ErrInvalid, "tokens", "verify", "malformed signature", err)
	}
	if !hmac.Equal(got, s.sign(encoded)) {
		return Claims{}, services.Wrap(ErrInvalid, "tokens", "verify", "signature mismatch", nil)
	}
	payload, err := encoding.DecodeString(encoded)
	if err != nil {
		return Claims{}, services.Wrap(ErrInvalid, "tokens", "verify", "malformed payload", err)
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Claims{}, services.Wrap(ErrInvalid, "tokens", "verify", "decode claims", err)
	}
	if claims.Locator == "" {
		return Claims{}, services.Wrap(ErrInvalid, "tokens", "verify", "missing locator", nil)
	}
	return claims, nil
}

func (s *Signer) sign(encoded string) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(encoded))
	return mac.Sum(nil)
}

// IsInvalid reports whether err is a token verification failure.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalid)
}
