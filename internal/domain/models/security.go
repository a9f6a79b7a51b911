package models

import (
	"time"
)

// SecuritySettings is the per-session credential document, stored at
// settings/security in the session partition. The PIN is stored as a plain
// value; this mirrors the deployed data and is a documented weakness, not
// an accident (see DESIGN.md).
type SecuritySettings struct {
	PIN       string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// SecurityDocID is the fixed document id of the credential inside the
// settings collection.
const SecurityDocID = "security"

func (s *SecuritySettings) SecurityDoc() map[string]any {
	return map[string]any{"pin": s.PIN}
}

func SecurityFromDoc(data map[string]any, createdAt time.Time) SecuritySettings {
	s := SecuritySettings{CreatedAt: createdAt}
	s.PIN, _ = data["pin"].(string)
	return s
}

// SetupRequest and UnlockRequest drive the session gate.
type SetupRequest struct {
	PIN     string `json:"pin"`
	Confirm string `json:"confirm"`
}

type UnlockRequest struct {
	PIN string `json:"pin"`
}
