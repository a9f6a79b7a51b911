package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"lifelog/internal/domain"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.Issue("my-app/device-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Partition != "my-app/device-1" {
		t.Errorf("partition = %q, want %q", claims.Partition, "my-app/device-1")
	}
}

func TestTokenIssuer_Expiry(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	issued := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return issued }

	token, err := issuer.Issue("my-app/device-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Still inside the TTL.
	issuer.now = func() time.Time { return issued.Add(59 * time.Minute) }
	if _, err := issuer.Verify(token); err != nil {
		t.Fatalf("Verify before expiry: %v", err)
	}

	// Past it.
	issuer.now = func() time.Time { return issued.Add(61 * time.Minute) }
	if _, err := issuer.Verify(token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("Verify after expiry = %v, want ErrUnauthorized", err)
	}
}

func TestTokenIssuer_RejectsBadTokens(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	token, err := issuer.Issue("my-app/device-1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenIssuer("other-secret", time.Hour)
		if _, err := other.Verify(token); !errors.Is(err, domain.ErrUnauthorized) {
			t.Errorf("Verify = %v, want ErrUnauthorized", err)
		}
	})

	t.Run("tampered payload", func(t *testing.T) {
		parts := strings.Split(token, ".")
		tampered := parts[0] + "." + parts[1][:len(parts[1])-2] + "xx." + parts[2]
		if _, err := issuer.Verify(tampered); !errors.Is(err, domain.ErrUnauthorized) {
			t.Errorf("Verify = %v, want ErrUnauthorized", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := issuer.Verify("not.a.token"); !errors.Is(err, domain.ErrUnauthorized) {
			t.Errorf("Verify = %v, want ErrUnauthorized", err)
		}
	})

	t.Run("empty partition", func(t *testing.T) {
		empty, err := issuer.Issue("")
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		if _, err := issuer.Verify(empty); !errors.Is(err, domain.ErrUnauthorized) {
			t.Errorf("Verify = %v, want ErrUnauthorized", err)
		}
	})
}
