package journal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// marshalMembers converts a member name list to JSON TEXT for storage.
// Uses json.Encoder with HTML escaping disabled so the stored text
// matches the canonical JSON emitted everywhere else.
func marshalMembers(members []string) (string, error) {
	if members == nil {
		members = []string{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(members); err != nil {
		return "", fmt.Errorf("marshal members: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalMembers parses JSON TEXT back to a member name list.
// Returns an empty slice (not nil) for empty input.
func unmarshalMembers(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return []string{}, nil
	}
	var members []string
	if err := json.Unmarshal([]byte(data), &members); err != nil {
		return nil, fmt.Errorf("unmarshal members: %w", err)
	}
	return members, nil
}
