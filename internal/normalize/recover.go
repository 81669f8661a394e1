package normalize

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"unicode"
)

var (
	fenceRE         = regexp.MustCompile("```[A-Za-z0-9_-]*")
	greedyObjectRE  = regexp.MustCompile(`(?s)\{.*\}`)
	trailingCommaRE = regexp.MustCompile(`,\s*([}\]])`)
	escapedKeyRE    = regexp.MustCompile(`^\{\s*\\"`)
	doubledKeyRE    = regexp.MustCompile(`^\{\s*""`)
	noteRE          = regexp.MustCompile(`(?i)^[(\[*_\s]*(note|notes|nb|n\.b\.|translator'?s? note)\b`)
	labelRE         = regexp.MustCompile(`(?i)^(translation|translated text|translated|result|output)\s*:\s*`)
)

// noteMax bounds the rune length of a line treated as a note annotation.
const noteMax = 120

func stripFences(s string) string {
	return strings.TrimSpace(fenceRE.ReplaceAllString(s, ""))
}

// locateObject finds the first balanced {...} block, ignoring braces inside
// JSON strings. When the braces never balance it falls back to the widest
// {...} match.
func locateObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if c == '\\' {
			i++
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	if m := greedyObjectRE.FindString(s); m != "" {
		return m, true
	}
	return "", false
}

// repairs run in order, each on the output of the previous one, until the
// block decodes to an object.
var repairs = []func(string) string{
	unescapeQuotes,
	stripNonPrintable,
	removeTrailingCommas,
}

func decodeObject(block string) (map[string]any, bool) {
	if m, ok := strictObject(block); ok {
		return m, true
	}
	cur := block
	for _, fix := range repairs {
		next := fix(cur)
		if next == cur {
			continue
		}
		cur = next
		if m, ok := strictObject(cur); ok {
			return m, true
		}
	}
	return nil, false
}

func strictObject(s string) (map[string]any, bool) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}

// unescapeQuotes undoes a whole object serialized as an escaped string
// ({\"text\": \"hi\"}) or with doubled quotes ({""text"": ""hi""}). Blocks
// that do not open with such a key are returned unchanged so that legitimate
// escapes inside values survive.
func unescapeQuotes(s string) string {
	switch {
	case escapedKeyRE.MatchString(s):
		return strings.ReplaceAll(s, `\"`, `"`)
	case doubledKeyRE.MatchString(s):
		return strings.ReplaceAll(s, `""`, `"`)
	default:
		return s
	}
}

// stripNonPrintable turns raw line breaks and tabs into spaces and drops
// other control and zero-width characters.
func stripNonPrintable(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t':
			return ' '
		case '\ufeff', '\u200b':
			return -1
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

func removeTrailingCommas(s string) string {
	return trailingCommaRE.ReplaceAllString(s, "$1")
}

// firstMeaningfulLine returns the first line that is not blank, a short note
// annotation, a bare URL, or nearly letter-free. A leading label such as
// "Translation:" is dropped from the returned line.
func firstMeaningfulLine(s string) (string, bool) {
	for _, line := range strings.Split(s, "\n") {
		l := strings.TrimSpace(line)
		if l == "" {
			continue
		}
		if len([]rune(l)) < noteMax && noteRE.MatchString(l) {
			continue
		}
		if bareURLRE.MatchString(l) {
			continue
		}
		if loc := labelRE.FindStringIndex(l); loc != nil && loc[1] < len(l) {
			l = strings.TrimSpace(l[loc[1]:])
		}
		if countLetters(l) < 2 {
			continue
		}
		return l, true
	}
	return "", false
}

func countLetters(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}
