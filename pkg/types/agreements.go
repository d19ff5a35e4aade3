package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Agreements maps contract term ids to the client's consent, persisted as JSONB.
type Agreements map[string]bool

// Value marshals the map into JSON for Postgres.
func (a Agreements) Value() (driver.Value, error) {
	if a == nil {
		return "{}", nil
	}
	buf, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// Scan decodes JSONB into the map.
func (a *Agreements) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("agreements: unsupported scan type %T", value)
	}

	result := make(Agreements)
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}
	*a = result
	return nil
}

// Clone returns an independent copy.
func (a Agreements) Clone() Agreements {
	out := make(Agreements, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}
