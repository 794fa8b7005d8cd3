package field

import (
	"bytes"
	"sync"

	json "github.com/goccy/go-json"
)

// Raw carries an undecoded payload. Decoded blobs populate groups with Raw
// fields; reconciliation then copies them onto the typed canonical fields.
type Raw struct {
	code string

	mu      sync.RWMutex
	payload []byte
}

// NewRaw wraps payload under code.
func NewRaw(code string, payload []byte) *Raw {
	return &Raw{code: code, payload: bytes.Clone(payload)}
}

func (r *Raw) Code() string { return r.code }

// Value decodes the payload generically. It is nil for an absent payload,
// a JSON null, or bytes that do not decode.
func (r *Raw) Value() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if isNull(r.payload) {
		return nil
	}
	var out any
	if err := json.Unmarshal(r.payload, &out); err != nil {
		return nil
	}
	return out
}

func (r *Raw) Reset() {
	r.mu.Lock()
	r.payload = nil
	r.mu.Unlock()
}

func (r *Raw) New() Field { return &Raw{code: r.code} }

func (r *Raw) MarshalJSON() ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if isNull(r.payload) {
		return []byte("null"), nil
	}
	return bytes.Clone(r.payload), nil
}

func (r *Raw) UnmarshalJSON(payload []byte) error {
	r.mu.Lock()
	r.payload = bytes.Clone(payload)
	r.mu.Unlock()
	return nil
}
