// Package validation checks free-text values before they are written into
// fixed-size record fields, and the dotted names settings are addressed by.
package validation

import (
	"fmt"
	"strings"
)

// =============================================================================
// Text Validation
// =============================================================================

// TextRules defines what a text field may hold.
type TextRules struct {
	MinLength int
	MaxLength int

	// Printable restricts the value to printable ASCII. Node names are
	// shown on displays and sent in protocol packets that carry no
	// encoding information.
	Printable bool
}

// LabelRules returns the rules for a display name of at most max bytes.
func LabelRules(max int) TextRules {
	return TextRules{
		MinLength: 0,
		MaxLength: max,
		Printable: true,
	}
}

// ValidateText validates a value according to the given rules.
func ValidateText(s string, rules TextRules) error {
	if len(s) < rules.MinLength {
		return fmt.Errorf("too short: minimum %d bytes required", rules.MinLength)
	}
	if rules.MaxLength > 0 && len(s) > rules.MaxLength {
		return fmt.Errorf("too long: maximum %d bytes allowed", rules.MaxLength)
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == 0 {
			return fmt.Errorf("contains NUL at position %d", i)
		}
		if rules.Printable && (c < 0x20 || c > 0x7E) {
			return fmt.Errorf("invalid byte %#02x at position %d", c, i)
		}
	}
	return nil
}

// ValidateLabel validates a display name with LabelRules.
func ValidateLabel(s string, max int) error {
	return ValidateText(s, LabelRules(max))
}

// =============================================================================
// Hostname Validation
// =============================================================================

// ValidateHostname checks s against the RFC 1123 host name syntax. An
// empty name is accepted and leaves the node on its built-in default.
func ValidateHostname(s string) error {
	if s == "" {
		return nil
	}
	if len(s) > 253 {
		return fmt.Errorf("hostname too long: maximum 253 characters")
	}

	for _, label := range strings.Split(s, ".") {
		if err := validateHostLabel(label); err != nil {
			return err
		}
	}
	return nil
}

func validateHostLabel(label string) error {
	if label == "" {
		return fmt.Errorf("hostname has an empty label")
	}
	if len(label) > 63 {
		return fmt.Errorf("hostname label %q longer than 63 characters", label)
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return fmt.Errorf("hostname label %q starts or ends with '-'", label)
	}

	for i := 0; i < len(label); i++ {
		c := label[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-':
		default:
			return fmt.Errorf("invalid character '%c' in hostname label %q", c, label)
		}
	}
	return nil
}

// =============================================================================
// Setting Names
// =============================================================================

// SettingName is a parsed "section.field" setting name.
type SettingName struct {
	Section string
	Field   string
}

// ParseSettingName parses a "section.field" name. Both parts consist of
// lower-case letters, digits and underscores.
func ParseSettingName(name string) (*SettingName, error) {
	if name == "" {
		return nil, fmt.Errorf("empty setting name")
	}

	section, field, ok := strings.Cut(name, ".")
	if !ok {
		return nil, fmt.Errorf("invalid setting name format: expected 'section.field', got '%s'", name)
	}
	if err := validateIdent(section); err != nil {
		return nil, fmt.Errorf("invalid section in setting name '%s': %w", name, err)
	}
	if err := validateIdent(field); err != nil {
		return nil, fmt.Errorf("invalid field in setting name '%s': %w", name, err)
	}

	return &SettingName{Section: section, Field: field}, nil
}

// String returns the dotted form.
func (n *SettingName) String() string {
	return n.Section + "." + n.Field
}

func validateIdent(s string) error {
	if s == "" {
		return fmt.Errorf("empty")
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '_':
		default:
			return fmt.Errorf("invalid character '%c' at position %d", c, i)
		}
	}
	return nil
}
