package httputil

import (
	"bytes"
	"encoding/json"
)

// OptionalString is a PATCH field (RFC 7396): absent leaves the value alone,
// null clears it, a string sets it.
type OptionalString struct {
	Present bool
	Value   *string
}

// UnmarshalJSON only runs for fields present in the payload.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Present = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
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
