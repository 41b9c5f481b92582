package facematch

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// EncodeTemplates serialises a template list as base64(JSON array of arrays).
func EncodeTemplates(templates []Template) (string, error) {
	if templates == nil {
		templates = []Template{}
	}
	raw, err := json.Marshal(templates)
	if err != nil {
		return "", fmt.Errorf("marshal templates: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeTemplates parses stored face data. Errors wrap ErrDecode.
func DecodeTemplates(encoded string) ([]Template, error) {
	var templates []Template
	if err := decodeJSON(encoded, &templates); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return templates, nil
}

// ParseTemplateList parses a caller-submitted template list for registration.
// The list must be non-empty; errors wrap ErrInputFormat.
func ParseTemplateList(encoded string) ([]Template, error) {
	var templates []Template
	if err := decodeJSON(encoded, &templates); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInputFormat, err)
	}
	if len(templates) == 0 {
		return nil, fmt.Errorf("%w: empty template list", ErrInputFormat)
	}
	return templates, nil
}

// ParseTemplate parses a single caller-submitted descriptor for verification.
func ParseTemplate(encoded string) (Template, error) {
	var tpl Template
	if err := decodeJSON(encoded, &tpl); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInputFormat, err)
	}
	if len(tpl) == 0 {
		return nil, fmt.Errorf("%w: empty descriptor", ErrInputFormat)
	}
	return tpl, nil
}

func decodeJSON(encoded string, dst any) error {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return fmt.Errorf("no data")
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("base64: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("json: %w", err)
	}
	return nil
}
