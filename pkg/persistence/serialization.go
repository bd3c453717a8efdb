package persistence

import (
	"encoding/json"
	"fmt"
)

// MarshalSnapshot serializes an AllowlistSnapshot to JSON bytes.
func MarshalSnapshot(snapshot *AllowlistSnapshot) ([]byte, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("cannot marshal nil AllowlistSnapshot")
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal AllowlistSnapshot to JSON: %w", err)
	}

	return data, nil
}

// UnmarshalSnapshot deserializes an AllowlistSnapshot from JSON bytes.
func UnmarshalSnapshot(data []byte) (*AllowlistSnapshot, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var snapshot AllowlistSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to AllowlistSnapshot: %w", err)
	}

	return &snapshot, nil
}
