package providers

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSONObject is returned when model output holds no decodable JSON object
var ErrNoJSONObject = errors.New("no JSON object in model output")

// ExtractJSON pulls the first JSON object out of free-form model output.
// Markdown code fences are removed and anything after the object is ignored.
func ExtractJSON(text string) (json.RawMessage, error) {
	cleaned := strings.ReplaceAll(text, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```JSON", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	start := strings.IndexByte(cleaned, '{')
	if start < 0 {
		return nil, ErrNoJSONObject
	}

	var raw json.RawMessage
	dec := json.NewDecoder(strings.NewReader(cleaned[start:]))
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Join(ErrNoJSONObject, err)
	}
	return bytes.TrimSpace(raw), nil
}

// DecodeJSON extracts the first JSON object from text into v
func DecodeJSON(text string, v interface{}) error {
	raw, err := ExtractJSON(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Join(ErrNoJSONObject, err)
	}
	return nil
}
