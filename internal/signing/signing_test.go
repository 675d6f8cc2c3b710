package signing

import (
	"errors"
	"strconv"
	"testing"
	"time"
)

func newTestSigner(t *testing.T, secret string, now time.Time) *Signer {
	t.Helper()
	s := New(secret)
	if s == nil {
		t.Fatalf("New(%q) returned nil", secret)
	}
	s.now = func() time.Time { return now }
	return s
}

func TestSignAndVerify(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	s := newTestSigner(t, "secret", now)

	expires := now.Add(time.Hour)
	token := s.Sign("track.mp3", expires)
	if token == "" {
		t.Fatal("Sign() returned an empty token")
	}

	expiresParam := strconv.FormatInt(expires.Unix(), 10)
	if err := s.Verify("track.mp3", token, expiresParam); err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
}

func TestVerifyRejectsTamperedInputs(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	s := newTestSigner(t, "secret", now)
	expires := now.Add(time.Hour)
	token := s.Sign("track.mp3", expires)
	expiresParam := strconv.FormatInt(expires.Unix(), 10)

	cases := []struct {
		name    string
		file    string
		token   string
		expires string
	}{
		{"different file", "other.mp3", token, expiresParam},
		{"forged token", "track.mp3", "bogus", expiresParam},
		{"empty token", "track.mp3", "", expiresParam},
		{"shifted expiry", "track.mp3", token, strconv.FormatInt(expires.Unix()+1, 10)},
		{"non-numeric expiry", "track.mp3", token, "soon"},
		{"empty expiry", "track.mp3", token, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := s.Verify(tc.file, tc.token, tc.expires); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("Verify() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	s := newTestSigner(t, "secret", now)

	expires := now.Add(-time.Minute)
	token := s.Sign("track.mp3", expires)
	err := s.Verify("track.mp3", token, strconv.FormatInt(expires.Unix(), 10))
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("Verify() error = %v, want ErrTokenExpired", err)
	}
}

func TestDifferentSecretsProduceDifferentTokens(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	a := newTestSigner(t, "secret-a", now)
	b := newTestSigner(t, "secret-b", now)

	expires := now.Add(time.Hour)
	token := a.Sign("track.mp3", expires)
	if err := b.Verify("track.mp3", token, strconv.FormatInt(expires.Unix(), 10)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify() accepted a token signed with another secret: %v", err)
	}
}

func TestNilSignerDisablesEnforcement(t *testing.T) {
	t.Parallel()

	s := New("")
	if s.Enabled() {
		t.Fatal("empty secret must disable signing")
	}
	if err := s.Verify("track.mp3", "anything", "garbage"); err != nil {
		t.Fatalf("nil Signer must accept every request, got %v", err)
	}
}
