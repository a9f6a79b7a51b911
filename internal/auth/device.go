// Package auth provides the anonymous device identity that names the
// session partition, and the HMAC session tokens handed out once the gate
// opens.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// DeviceAuth is a file-backed remote.AuthProvider: an opaque uuid identity
// minted on first use and stable for the device afterwards. No account, no
// credentials - the PIN gate is the only access control.
type DeviceAuth struct {
	path   string
	logger *slog.Logger

	mu       sync.Mutex
	identity string
	watchers map[int]func(string)
	nextKey  int
}

func NewDeviceAuth(path string, logger *slog.Logger) *DeviceAuth {
	return &DeviceAuth{
		path:     path,
		logger:   logger,
		watchers: make(map[int]func(string)),
	}
}

// Identity returns the stored identity, creating and persisting one on
// first use.
func (d *DeviceAuth) Identity(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.identity != "" {
		return d.identity, nil
	}

	raw, err := os.ReadFile(d.path)
	if err == nil {
		if id := strings.TrimSpace(string(raw)); id != "" {
			d.identity = id
			return id, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("read device identity: %w", err)
	}

	id := uuid.NewString()
	if err := d.write(id); err != nil {
		return "", err
	}
	d.identity = id
	d.logger.Info("device identity created", "path", d.path)
	return id, nil
}

// Reset discards the stored identity and mints a fresh one, notifying
// registered watchers. All previously partitioned data becomes unreachable.
func (d *DeviceAuth) Reset(ctx context.Context) (string, error) {
	d.mu.Lock()
	id := uuid.NewString()
	if err := d.write(id); err != nil {
		d.mu.Unlock()
		return "", err
	}
	d.identity = id
	watchers := make([]func(string), 0, len(d.watchers))
	for _, fn := range d.watchers {
		watchers = append(watchers, fn)
	}
	d.mu.Unlock()

	for _, fn := range watchers {
		fn(id)
	}
	return id, nil
}

func (d *DeviceAuth) OnIdentityChange(fn func(identity string)) (cancel func()) {
	d.mu.Lock()
	key := d.nextKey
	d.nextKey++
	d.watchers[key] = fn
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		delete(d.watchers, key)
		d.mu.Unlock()
	}
}

func (d *DeviceAuth) write(id string) error {
	if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil {
		return fmt.Errorf("create identity directory: %w", err)
	}
	if err := os.WriteFile(d.path, []byte(id+"\n"), 0o600); err != nil {
		return fmt.Errorf("write device identity: %w", err)
	}
	return nil
}
