package pollster

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// unquote strips Clarity rendering from a string value:
// "text", u"text" and 'SP... principals.
func unquote(s string) string {
	switch {
	case len(s) >= 3 && strings.HasPrefix(s, `u"`) && strings.HasSuffix(s, `"`):
		return unescape(s[2 : len(s)-1])
	case len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`):
		return unescape(s[1 : len(s)-1])
	case len(s) >= 2 && strings.HasPrefix(s, "'"):
		return s[1:]
	default:
		return s
	}
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	return strings.NewReplacer(`\"`, `"`, `\\`, `\`).Replace(s)
}

// discriminator renders any discriminator value as an EventKind-comparable string.
func discriminator(v any) string {
	if s, ok := v.(string); ok {
		return unquote(s)
	}
	return fmt.Sprint(v)
}

func fieldString(fields map[string]any, key string) (string, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return "", fmt.Errorf("missing field %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q: expected string, got %T", key, v)
	}
	return unquote(s), nil
}

func fieldUint(fields map[string]any, key string) (uint64, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("missing field %q", key)
	}
	switch typed := v.(type) {
	case json.Number:
		return parseUint(key, typed.String())
	case string:
		return parseUint(key, strings.TrimPrefix(strings.TrimSpace(typed), "u"))
	case bool:
		return 0, fmt.Errorf("field %q: expected integer, got bool", key)
	}
	n, err := cast.ToUint64E(v)
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", key, err)
	}
	return n, nil
}

// parseUint reads decimal digits only; Clarity never renders uints in octal or hex.
func parseUint(key, s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", key, err)
	}
	return n, nil
}
