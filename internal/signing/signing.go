// Package signing issues and verifies expiring stream URL tokens.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

var (
	// ErrInvalidToken reports a token that does not match the signed payload.
	ErrInvalidToken = errors.New("invalid stream token")
	// ErrTokenExpired reports a token whose expiry timestamp has passed.
	ErrTokenExpired = errors.New("stream token expired")
)

const (
	keyIterations = 4096
	keyLength     = 32
)

// keySalt separates stream-token keys from any other use of the same secret.
var keySalt = []byte("wavegate.stream.v1")

// Signer signs and verifies (file, expires) pairs with a key derived from the
// configured secret.
type Signer struct {
	key []byte
	now func() time.Time
}

// New derives a signing key from the secret. An empty secret yields a nil
// Signer, which disables enforcement.
func New(secret string) *Signer {
	if secret == "" {
		return nil
	}
	return &Signer{
		key: pbkdf2.Key([]byte(secret), keySalt, keyIterations, keyLength, sha256.New),
		now: time.Now,
	}
}

// Enabled reports whether tokens are enforced.
func (s *Signer) Enabled() bool {
	return s != nil
}

// Sign produces the token for a file and expiry. Callers embed the token and
// the expiry's unix seconds in the stream URL.
func (s *Signer) Sign(file string, expires time.Time) string {
	return s.sign(file, strconv.FormatInt(expires.Unix(), 10))
}

// Verify checks a token against the file name and the expires query value
// (unix seconds). A nil Signer accepts everything.
func (s *Signer) Verify(file, token, expires string) error {
	if s == nil {
		return nil
	}
	seconds, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return ErrInvalidToken
	}
	expected := s.sign(file, expires)
	if !hmac.Equal([]byte(expected), []byte(token)) {
		return ErrInvalidToken
	}
	if s.now().After(time.Unix(seconds, 0)) {
		return ErrTokenExpired
	}
	return nil
}

func (s *Signer) sign(file, expires string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(file))
	mac.Write([]byte{'\n'})
	mac.Write([]byte(expires))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
