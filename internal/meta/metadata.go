// Package meta implements the bounded key/value attributes carried by domain events.
package meta

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tinoosan/groupledger/internal/errs"
)

// Metadata is a small string map with validation and stable JSON encoding,
// so identical events always produce identical broker payloads.
type Metadata map[string]string

const (
	MaxPairs     = 16
	MaxKeyLen    = 64
	MaxValLen    = 256
	MaxTotalJSON = 4096
)

func New(m map[string]string) Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (m Metadata) Clone() Metadata { return New(m) }

func (m Metadata) Get(k string) (string, bool) {
	v, ok := m[k]
	return v, ok
}

// With returns a copy of m with k set to v. m is left untouched.
func (m Metadata) With(k, v string) Metadata {
	out := make(Metadata, len(m)+1)
	for key, val := range m {
		out[key] = val
	}
	out[k] = v
	return out
}

// Keys returns the keys in sorted order.
func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks the pair, key, value and total size limits.
func (m Metadata) Validate() error {
	if len(m) > MaxPairs {
		return fmt.Errorf("metadata has %d pairs, max %d: %w", len(m), MaxPairs, errs.ErrInvalid)
	}
	for k, v := range m {
		if k == "" || len(k) > MaxKeyLen {
			return fmt.Errorf("metadata key %q empty or longer than %d: %w", k, MaxKeyLen, errs.ErrInvalid)
		}
		if len(v) > MaxValLen {
			return fmt.Errorf("metadata value for %q longer than %d: %w", k, MaxValLen, errs.ErrInvalid)
		}
	}
	b, err := m.MarshalJSON()
	if err != nil {
		return err
	}
	if len(b) > MaxTotalJSON {
		return fmt.Errorf("metadata exceeds %d bytes of JSON: %w", MaxTotalJSON, errs.ErrInvalid)
	}
	return nil
}

// MarshalJSON encodes keys in sorted order.
func (m Metadata) MarshalJSON() ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *Metadata) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*m = Metadata{}
		return nil
	}
	var tmp map[string]string
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*m = New(tmp)
	return nil
}
