package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// ParsePairs parses repeated key=value entries (query params, cookies).
// Only the first separator occurrence splits; keys and values are trimmed;
// blank entries are skipped; a later entry for the same key wins.
func ParsePairs(entries []string, sep string) (map[string]string, error) {
	result := map[string]string{}
	for _, entry := range entries {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		if !strings.Contains(entry, sep) {
			return nil, NewValidationError(fmt.Sprintf("invalid pair %q: expected format key%svalue", entry, sep))
		}
		parts := strings.SplitN(entry, sep, 2)
		key := strings.TrimSpace(parts[0])
		if key == "" {
			return nil, NewValidationError(fmt.Sprintf("invalid pair %q: key is empty", entry))
		}
		result[key] = strings.TrimSpace(parts[1])
	}
	return result, nil
}

// ParseHeaders parses repeated "Name: Value" entries. The name is split on the
// first colon only, so values may contain colons.
func ParseHeaders(entries []string) (map[string]string, error) {
	result := map[string]string{}
	for _, entry := range entries {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		if !strings.Contains(entry, ":") {
			return nil, NewValidationError(fmt.Sprintf("invalid header %q: expected format 'Name: Value'", entry))
		}
		parts := strings.SplitN(entry, ":", 2)
		name := strings.TrimSpace(parts[0])
		if name == "" {
			return nil, NewValidationError(fmt.Sprintf("invalid header %q: name is empty", entry))
		}
		result[name] = strings.TrimSpace(parts[1])
	}
	return result, nil
}

// ResolveBody turns the json/data source strings into the final body bytes.
// A source naming an existing file is read from disk; otherwise it is treated
// as literal content. JSON bodies are parsed and re-serialized once to a
// canonical byte form so every attempt sends identical bytes.
func (c *Config) ResolveBody() error {
	jsonSource := strings.TrimSpace(c.JSONSource)
	dataSource := c.DataSource

	if jsonSource != "" && strings.TrimSpace(dataSource) != "" {
		return NewValidationError("json and data are mutually exclusive body sources")
	}

	if jsonSource != "" {
		raw := []byte(jsonSource)
		if content, ok := readIfFile(jsonSource); ok {
			raw = content
		}
		var parsed interface{}
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return NewValidationError(fmt.Sprintf("json body is not valid JSON: %v", err))
		}
		canonical, err := json.Marshal(parsed)
		if err != nil {
			return NewValidationError(fmt.Sprintf("json body cannot be serialized: %v", err))
		}
		c.Body = canonical
		c.BodyIsJSON = true
		return nil
	}

	if dataSource != "" {
		if content, ok := readIfFile(dataSource); ok {
			c.Body = content
		} else {
			c.Body = []byte(dataSource)
		}
		c.BodyIsJSON = false
	}
	return nil
}

// readIfFile returns the file content when the source string names an
// existing regular file.
func readIfFile(source string) ([]byte, bool) {
	info, err := os.Stat(source)
	if err != nil || info.IsDir() {
		return nil, false
	}
	content, err := os.ReadFile(source)
	if err != nil {
		return nil, false
	}
	return content, true
}
