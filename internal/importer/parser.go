package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

var requiredKeys = []string{"id", "name_en", "categories"}

// ParseError is returned for input that is not a usable menu. Keys lists the
// top-level keys that were found, to help spot a wrong wrapper or typo.
type ParseError struct {
	Reason string
	Keys   []string
}

func (e *ParseError) Error() string {
	found := "none"
	if len(e.Keys) > 0 {
		found = strings.Join(e.Keys, ", ")
	}
	return fmt.Sprintf("invalid menu file: %s (top-level keys found: %s)", e.Reason, found)
}

// Parse accepts either {"menu": {...}} or the menu object itself.
func Parse(data []byte) (*Menu, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, &ParseError{Reason: "not a JSON object: " + err.Error()}
	}

	candidate := top
	if raw, ok := top["menu"]; ok {
		var inner map[string]json.RawMessage
		// null decodes without error into a nil map
		if err := json.Unmarshal(raw, &inner); err != nil || inner == nil {
			return nil, &ParseError{Reason: `"menu" is not an object`, Keys: sortedKeys(top)}
		}
		candidate = inner
	}

	var missing []string
	for _, k := range requiredKeys {
		if _, ok := candidate[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, &ParseError{
			Reason: "missing " + strings.Join(missing, ", "),
			Keys:   sortedKeys(candidate),
		}
	}

	body, err := json.Marshal(candidate)
	if err != nil {
		return nil, err
	}

	var m Menu
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&m); err != nil {
		return nil, &ParseError{Reason: err.Error(), Keys: sortedKeys(candidate)}
	}
	return &m, nil
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var allowedExt = map[string]bool{
	".json": true,
}

// ValidateFileExtension checks an uploaded menu file name.
func ValidateFileExtension(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))

	if ext == "" {
		return errors.New("file extension missing")
	}

	if !allowedExt[ext] {
		return errors.New("file type not allowed, expected .json")
	}

	return nil
}
