package sessionstate

import "time"

// SessionValues is the in-memory session payload: a string-keyed mapping
// that preserves insertion order, so the serialized item sequence is stable
// across encode passes.
type SessionValues struct {
	keys []string
	data map[string]any
}

// NewValues returns an empty SessionValues.
func NewValues() *SessionValues {
	return &SessionValues{data: make(map[string]any)}
}

// Set stores a value under key, keeping the key's original position if it
// already exists.
func (v *SessionValues) Set(key string, val any) {
	if _, ok := v.data[key]; !ok {
		v.keys = append(v.keys, key)
	}
	v.data[key] = val
}

// Get retrieves the value stored under key.
func (v *SessionValues) Get(key string) (any, bool) {
	val, ok := v.data[key]
	return val, ok
}

// Delete removes the value stored under key.
func (v *SessionValues) Delete(key string) {
	if _, ok := v.data[key]; !ok {
		return
	}
	delete(v.data, key)
	for i, k := range v.keys {
		if k == key {
			v.keys = append(v.keys[:i], v.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (v *SessionValues) Keys() []string {
	out := make([]string, len(v.keys))
	copy(out, v.keys)
	return out
}

// Len returns the number of stored entries.
func (v *SessionValues) Len() int {
	return len(v.data)
}

// StoreData is the session value a caller holds between an exclusive fetch
// and the matching save: the decoded payload plus the session's TTL.
type StoreData struct {
	Values  *SessionValues
	Timeout time.Duration
}
