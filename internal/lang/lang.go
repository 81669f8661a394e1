// Package lang wraps golang.org/x/text for the language-code chores shared by
// the prompt builder and the language catalog: canonical BCP 47 codes, English
// and native display names, and text direction.
package lang

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Canonicalize parses code as a BCP 47 tag and returns its canonical form
// ("pt_br" -> "pt-BR", "EN" -> "en").
func Canonicalize(code string) (string, error) {
	c := strings.ReplaceAll(strings.TrimSpace(code), "_", "-")
	if c == "" {
		return "", fmt.Errorf("empty language code")
	}
	tag, err := language.Parse(c)
	if err != nil {
		return "", fmt.Errorf("invalid language code %q: %w", code, err)
	}
	return tag.String(), nil
}

// Same reports whether a and b denote the same language tag.
func Same(a, b string) bool {
	ca, errA := Canonicalize(a)
	cb, errB := Canonicalize(b)
	if errA != nil || errB != nil {
		return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
	}
	return ca == cb
}

// EnglishName returns the English display name ("ar" -> "Arabic"). Unknown
// codes are returned unchanged.
func EnglishName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if n := display.English.Tags().Name(tag); n != "" {
		return n
	}
	return code
}

// NativeName returns the language's name in itself, title-cased for that
// language ("fr" -> "Français").
func NativeName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	n := display.Self.Name(tag)
	if n == "" {
		return EnglishName(code)
	}
	return cases.Title(tag).String(n)
}

var rtlScripts = map[string]bool{
	"Arab": true, "Hebr": true, "Thaa": true, "Syrc": true,
	"Nkoo": true, "Adlm": true, "Rohg": true, "Mand": true,
}

// IsRTL reports whether the language's likely script is written right to left.
func IsRTL(code string) bool {
	tag, err := language.Parse(code)
	if err != nil {
		return false
	}
	script, _ := tag.Script()
	return rtlScripts[script.String()]
}
