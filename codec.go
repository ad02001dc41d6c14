package sessionstate

import (
	"encoding/json"
	"fmt"
)

// EncodeValues serializes the payload into an ordered sequence of
// (key, encoded-value) items. Values must be JSON-representable.
func EncodeValues(v *SessionValues) ([]Item, error) {
	if v == nil {
		return []Item{}, nil
	}
	items := make([]Item, 0, v.Len())
	for _, key := range v.keys {
		b, err := json.Marshal(v.data[key])
		if err != nil {
			return nil, fmt.Errorf("sessionstate: failed to encode %q: %w", key, err)
		}
		items = append(items, Item{Key: key, Value: b})
	}
	return items, nil
}

// DecodeValues reconstructs the payload from stored items. A value that
// cannot be reconstructed fails with ErrDecode rather than being silently
// dropped.
func DecodeValues(items []Item) (*SessionValues, error) {
	v := NewValues()
	for _, item := range items {
		var val any
		if err := json.Unmarshal(item.Value, &val); err != nil {
			return nil, fmt.Errorf("%w: key %q: %v", ErrDecode, item.Key, err)
		}
		v.Set(item.Key, val)
	}
	return v, nil
}
