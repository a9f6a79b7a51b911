package models

import (
	"bytes"
	"encoding/json"
)

// OptionalString tracks presence and value for JSON merge-patch semantics,
// which *string alone cannot express:
//   - Present=false: field absent (preserve current value)
//   - Present=true, Value=nil: field is JSON null (clear)
//   - Present=true, Value!=nil: field set to the given string
type OptionalString struct {
	Present bool
	Value   *string
}

// UnmarshalJSON implements json.Unmarshaler. Being called at all means the
// field was present in the JSON.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Present = true

	if string(bytes.TrimSpace(data)) == "null" {
		o.Value = nil
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}
