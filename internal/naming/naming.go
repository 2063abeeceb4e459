// Package naming derives output category and instance names from asset
// directory names.
//
// A raw name such as "Model_Noodle_1.0" becomes the instance "Noodle1.0"
// (UpperCamelCase, leading "model" dropped, digits kept) filed under the
// category "Noodle" (digits removed, dangling separators trimmed).
package naming

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const modelPrefix = "model"

// Name is the normalized identity of one asset directory.
type Name struct {
	Instance string
	Category string
}

// Empty reports whether the name cannot be used as an output path segment.
func (n Name) Empty() bool {
	return n.Instance == "" || n.Category == ""
}

// Normalize converts a raw archive or directory name into its instance and
// category names. The result is Empty when nothing usable remains.
func Normalize(raw string) Name {
	instance := StripModelPrefix(SnakeToUpperCamel(strings.TrimSpace(raw)))
	if strings.Trim(instance, ".") == "" {
		return Name{}
	}
	return Name{Instance: instance, Category: Category(instance)}
}

// SnakeToUpperCamel splits s on underscores and spaces, drops empty segments,
// upper-cases the first rune of each segment, and joins them.
// "quoted_printable_encode" becomes "QuotedPrintableEncode".
func SnakeToUpperCamel(s string) string {
	if s == "" {
		return s
	}
	segments := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == ' ' })
	var b strings.Builder
	b.Grow(len(s))
	for _, segment := range segments {
		first, size := utf8.DecodeRuneInString(segment)
		if first == utf8.RuneError && size == 1 {
			// Not UTF-8; keep the bytes as they are.
			b.WriteString(segment)
			continue
		}
		b.WriteRune(unicode.ToUpper(first))
		b.WriteString(segment[size:])
	}
	return b.String()
}

// StripModelPrefix removes a leading case-insensitive "model". Names that are
// nothing but the prefix are returned unchanged.
func StripModelPrefix(s string) string {
	if len(s) <= len(modelPrefix) {
		return s
	}
	if !strings.EqualFold(s[:len(modelPrefix)], modelPrefix) {
		return s
	}
	return s[len(modelPrefix):]
}

// Category removes every ASCII digit from instance and trims separators left
// dangling at either end. When nothing remains the instance itself is used.
func Category(instance string) string {
	stripped := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return -1
		}
		return r
	}, instance)
	stripped = strings.Trim(stripped, ".- ")
	if stripped == "" {
		return instance
	}
	return stripped
}
