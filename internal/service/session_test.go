package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"lifelog/internal/domain"
	"lifelog/internal/domain/models"
	"lifelog/internal/remote"
)

func newTestGate(t *testing.T) (*SessionGate, *countingStore) {
	t.Helper()
	store := newCountingStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSessionGate(store, logger), store
}

func storeCredential(t *testing.T, store *countingStore, pin string) {
	t.Helper()
	settings := models.SecuritySettings{PIN: pin}
	err := store.Set(context.Background(), remote.CollectionSettings, models.SecurityDocID, settings.SecurityDoc())
	if err != nil {
		t.Fatalf("seed credential: %v", err)
	}
}

func TestSessionGate_StartResolvesLoading(t *testing.T) {
	t.Run("no credential goes to setup", func(t *testing.T) {
		gate, _ := newTestGate(t)
		if err := gate.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		if got := gate.State(); got != StateSetup {
			t.Errorf("state = %s, want %s", got, StateSetup)
		}
	})

	t.Run("stored credential goes to lock", func(t *testing.T) {
		gate, store := newTestGate(t)
		storeCredential(t, store, "123456")
		if err := gate.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		if got := gate.State(); got != StateLock {
			t.Errorf("state = %s, want %s", got, StateLock)
		}
	})

	t.Run("double start is a conflict", func(t *testing.T) {
		gate, _ := newTestGate(t)
		if err := gate.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		if err := gate.Start(context.Background()); !errors.Is(err, domain.ErrConflict) {
			t.Errorf("second Start = %v, want ErrConflict", err)
		}
	})
}

func TestSessionGate_SubmitSetup(t *testing.T) {
	t.Run("matching pins store credential and authenticate", func(t *testing.T) {
		gate, store := newTestGate(t)
		if err := gate.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}

		if err := gate.SubmitSetup(context.Background(), "123456", "123456"); err != nil {
			t.Fatalf("SubmitSetup: %v", err)
		}
		if got := gate.State(); got != StateAuthenticated {
			t.Errorf("state = %s, want %s", got, StateAuthenticated)
		}

		doc, err := store.Get(context.Background(), remote.CollectionSettings, models.SecurityDocID)
		if err != nil {
			t.Fatalf("credential not stored: %v", err)
		}
		if stored := models.SecurityFromDoc(doc.Data, doc.CreatedAt); stored.PIN != "123456" {
			t.Errorf("stored pin = %q, want %q", stored.PIN, "123456")
		}
	})

	t.Run("mismatched confirmation fails locally", func(t *testing.T) {
		gate, store := newTestGate(t)
		if err := gate.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		before := store.remoteCalls()

		err := gate.SubmitSetup(context.Background(), "123456", "654321")
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("SubmitSetup = %v, want ErrValidation", err)
		}
		if got := gate.State(); got != StateSetup {
			t.Errorf("state = %s, want %s", got, StateSetup)
		}
		if calls := store.remoteCalls(); calls != before {
			t.Errorf("remote calls = %d, want %d (validation must not hit the store)", calls, before)
		}
	})

	invalidPINs := []struct {
		name string
		pin  string
	}{
		{"too short", "12345"},
		{"too long", "1234567"},
		{"non-numeric", "12a456"},
		{"empty", ""},
	}
	for _, tc := range invalidPINs {
		t.Run("rejects pin "+tc.name, func(t *testing.T) {
			gate, store := newTestGate(t)
			if err := gate.Start(context.Background()); err != nil {
				t.Fatalf("Start: %v", err)
			}
			before := store.remoteCalls()

			if err := gate.SubmitSetup(context.Background(), tc.pin, tc.pin); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("SubmitSetup(%q) = %v, want ErrValidation", tc.pin, err)
			}
			if calls := store.remoteCalls(); calls != before {
				t.Errorf("remote calls = %d, want %d", calls, before)
			}
		})
	}

	t.Run("setup is illegal once locked", func(t *testing.T) {
		gate, store := newTestGate(t)
		storeCredential(t, store, "123456")
		if err := gate.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}

		if err := gate.SubmitSetup(context.Background(), "111111", "111111"); !errors.Is(err, domain.ErrConflict) {
			t.Errorf("SubmitSetup in lock = %v, want ErrConflict", err)
		}
	})
}

func TestSessionGate_SubmitUnlock(t *testing.T) {
	t.Run("correct pin authenticates", func(t *testing.T) {
		gate, store := newTestGate(t)
		storeCredential(t, store, "123456")
		if err := gate.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}

		if err := gate.SubmitUnlock(context.Background(), "123456"); err != nil {
			t.Fatalf("SubmitUnlock: %v", err)
		}
		if got := gate.State(); got != StateAuthenticated {
			t.Errorf("state = %s, want %s", got, StateAuthenticated)
		}
	})

	t.Run("wrong pin stays locked", func(t *testing.T) {
		gate, store := newTestGate(t)
		storeCredential(t, store, "123456")
		if err := gate.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}

		err := gate.SubmitUnlock(context.Background(), "999999")
		if !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("SubmitUnlock = %v, want ErrUnauthorized", err)
		}
		if got := gate.State(); got != StateLock {
			t.Errorf("state = %s, want %s", got, StateLock)
		}

		// The gate is not poisoned: the right pin still works.
		if err := gate.SubmitUnlock(context.Background(), "123456"); err != nil {
			t.Fatalf("retry SubmitUnlock: %v", err)
		}
	})

	t.Run("bad format fails before reading the store", func(t *testing.T) {
		gate, store := newTestGate(t)
		storeCredential(t, store, "123456")
		if err := gate.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		before := store.remoteCalls()

		if err := gate.SubmitUnlock(context.Background(), "12x"); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("SubmitUnlock = %v, want ErrValidation", err)
		}
		if calls := store.remoteCalls(); calls != before {
			t.Errorf("remote calls = %d, want %d", calls, before)
		}
	})
}

func TestSessionGate_LockAndTransitions(t *testing.T) {
	gate, store := newTestGate(t)
	storeCredential(t, store, "123456")

	var transitions []SessionState
	gate.OnTransition(func(from, to SessionState) {
		transitions = append(transitions, to)
	})

	if err := gate.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := gate.SubmitUnlock(context.Background(), "123456"); err != nil {
		t.Fatalf("SubmitUnlock: %v", err)
	}

	// Explicit lock returns to Lock; locking twice is a no-op.
	gate.Lock()
	gate.Lock()
	if got := gate.State(); got != StateLock {
		t.Errorf("state = %s, want %s", got, StateLock)
	}

	want := []SessionState{StateLock, StateAuthenticated, StateLock}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition[%d] = %s, want %s", i, transitions[i], want[i])
		}
	}
}
