// Package normalize reconciles an unreliable provider payload with the shape
// of the content that was sent for translation.
//
// The output always keeps the original's shape: a text original yields a text
// value and a structured original yields a map. Structured content is never
// replaced by a string because a provider reply could not be parsed; such
// replies degrade to no_content with the original returned untouched.
package normalize

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tbourn/go-translate-backend/internal/content"
)

// Status classifies a normalization outcome.
type Status string

const (
	StatusOK           Status = "ok"
	StatusNoContent    Status = "no_content"
	StatusOnlyURLs     Status = "only_urls"
	StatusTextFallback Status = "text_fallback"
	StatusUnparseable  Status = "unparseable"
)

// Usable reports whether the outcome carries a translation that may be
// persisted and charged for.
func (s Status) Usable() bool { return s == StatusOK || s == StatusTextFallback }

// Cacheable reports whether the outcome is well-formed enough to be reused
// for identical requests.
func (s Status) Cacheable() bool { return s == StatusOK }

// Result is a normalized translation.
type Result struct {
	Status Status
	Data   content.Value
}

// Options tune normalization.
type Options struct {
	// TargetLang is tried as a candidate key when a text original comes back
	// as an object ({"fr": "Bonjour"}).
	TargetLang string
}

// plainTextMax is the rune length under which a reply matching the plain
// natural-language pattern is accepted as-is.
const plainTextMax = 200

var (
	plainTextRE = regexp.MustCompile(`^[\p{L}\p{M}\p{N}\s.,;:!?¡¿'"’“”«»()\-–—…%]+$`)
	bareURLRE   = regexp.MustCompile(`(?i)^(https?://|www\.)\S+$`)
)

// candidateKeys are probed, in order, when a text original is answered with
// an object.
var candidateKeys = []string{
	"text", "content", "translated_text", "translation", "translated", "result", "output",
}

// Normalize classifies raw against original and returns the shape-safe data.
func Normalize(raw, original content.Value, opts Options) Result {
	switch raw.Kind() {
	case content.KindStructured:
		return fromStructured(unwrapEcho(raw.Fields()), original, opts)
	case content.KindText:
		return fromText(raw.Text(), original, opts)
	default:
		return nothing("", original)
	}
}

// fromStructured applies the rules for an object payload. An echoed prompt
// may unwrap to a string, which is then handled as text.
func fromStructured(payload content.Value, original content.Value, opts Options) Result {
	if payload.IsText() {
		return fromText(payload.Text(), original, opts)
	}
	m := payload.Fields()
	if isEmptyMap(m) {
		return Result{Status: StatusNoContent, Data: original}
	}
	if onlyURLs(m) {
		return Result{Status: StatusOnlyURLs, Data: original}
	}
	if original.IsStructured() {
		return Result{Status: StatusOK, Data: payload}
	}
	return Result{Status: StatusOK, Data: content.Text(textFromObject(m, opts.TargetLang))}
}

func fromText(raw string, original content.Value, opts Options) Result {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nothing(s, original)
	}
	if inner, ok := unquote(s); ok {
		return fromText(inner, original, opts)
	}

	if utf8.RuneCountInString(s) < plainTextMax && plainTextRE.MatchString(s) {
		if original.IsStructured() {
			return Result{Status: StatusNoContent, Data: original}
		}
		return Result{Status: StatusTextFallback, Data: content.Text(s)}
	}

	unfenced := stripFences(s)
	if block, ok := locateObject(unfenced); ok {
		if m, ok := decodeObject(block); ok {
			return fromStructured(unwrapEcho(m), original, opts)
		}
	}

	if line, ok := firstMeaningfulLine(unfenced); ok {
		if original.IsStructured() {
			return Result{Status: StatusNoContent, Data: original}
		}
		return Result{Status: StatusTextFallback, Data: content.Text(line)}
	}
	return nothing(s, original)
}

// unquote unwraps a reply sent as a JSON string literal ("Bonjour"). When
// the literal does not decode, the outer quotes are dropped as-is.
func unquote(s string) (string, bool) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", false
	}
	if v, err := content.FromJSON([]byte(s)); err == nil && v.IsText() {
		return v.Text(), true
	}
	return s[1 : len(s)-1], true
}

// nothing is the outcome when no usable text survives.
func nothing(raw string, original content.Value) Result {
	if original.IsStructured() {
		return Result{Status: StatusNoContent, Data: original}
	}
	return Result{Status: StatusUnparseable, Data: content.Text(raw)}
}

// textFromObject collapses an object answer for a text original: the first
// non-blank candidate key, else the value of a single-key object, else the
// canonical JSON of the whole object.
func textFromObject(m map[string]any, targetLang string) string {
	keys := candidateKeys
	if targetLang != "" {
		keys = append(append([]string{}, candidateKeys...), targetLang, strings.ToLower(targetLang))
		if base, _, found := strings.Cut(targetLang, "-"); found {
			keys = append(keys, strings.ToLower(base))
		}
	}
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	if len(m) == 1 {
		for _, v := range m {
			if s, ok := v.(string); ok {
				return s
			}
			if sub, ok := v.(map[string]any); ok {
				return content.Structured(sub).String()
			}
			return content.Structured(map[string]any{"value": v}).String()
		}
	}
	return content.Structured(m).String()
}

func isEmptyMap(m map[string]any) bool {
	return len(nonBlankLeaves(m)) == 0
}

// onlyURLs reports whether every non-blank leaf is a bare URL.
func onlyURLs(m map[string]any) bool {
	leaves := nonBlankLeaves(m)
	if len(leaves) == 0 {
		return false
	}
	for _, v := range leaves {
		s, ok := v.(string)
		if !ok || !bareURLRE.MatchString(strings.TrimSpace(s)) {
			return false
		}
	}
	return true
}

func nonBlankLeaves(m map[string]any) []any {
	var out []any
	for _, v := range content.Structured(m).Leaves() {
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

// echoSections are the top-level keys of a prompt echoed back verbatim.
var echoSections = map[string]bool{"header": true, "body": true, "footer": true}

const echoDepth = 4

// unwrapEcho replaces a prompt echoed back by the provider with the nested
// "content to translate" value it carries. Other payloads pass through.
func unwrapEcho(m map[string]any) content.Value {
	echoed := false
	for k := range m {
		if echoSections[foldKey(k)] {
			echoed = true
			break
		}
	}
	if !echoed {
		return content.Structured(m)
	}
	if v, ok := findContentToTranslate(m, echoDepth); ok {
		switch t := v.(type) {
		case map[string]any:
			return content.Structured(t)
		case string:
			return content.Text(t)
		}
	}
	return content.Structured(m)
}

func findContentToTranslate(m map[string]any, depth int) (any, bool) {
	if depth == 0 {
		return nil, false
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if foldKey(k) == "contenttotranslate" {
			return m[k], true
		}
	}
	for _, k := range keys {
		if sub, ok := m[k].(map[string]any); ok {
			if found, ok := findContentToTranslate(sub, depth-1); ok {
				return found, true
			}
		}
	}
	return nil, false
}

// foldKey lowercases k and drops everything but letters and digits, so
// "Content To Translate", "content_to_translate" and "contentToTranslate"
// compare equal.
func foldKey(k string) string {
	var b strings.Builder
	for _, r := range k {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
