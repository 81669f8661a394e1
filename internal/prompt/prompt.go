// Package prompt renders provider instructions for translating one content
// field. The rendered text states an explicit output contract (a single JSON
// object of the expected shape) that the response normalizer relies on.
package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/tbourn/go-translate-backend/internal/content"
	"github.com/tbourn/go-translate-backend/internal/lang"
	"github.com/tbourn/go-translate-backend/internal/schema"
)

// Options carries the optional inputs of a prompt.
type Options struct {
	Category string // content category; selects the example shape
	Context  string // free-text hint about where the content appears
}

type data struct {
	Source, SourceName string
	Target, TargetName string
	Category           string
	Context            string
	Content            string
	Structured         bool
	Example            string
	RTL                bool
}

const body = `You are a professional website translator. Translate the content below from {{.SourceName}} ({{.Source}}) to {{.TargetName}} ({{.Target}}).
{{- if .Context}}
Context: {{.Context}}
{{- end}}
Content type: {{.Category}}

Content to translate:
{{.Content}}

Rules (non-negotiable):
1. Translate human-readable text only.
2. Leave URLs, email addresses, phone numbers and prices exactly as they are.
3. Preserve the structure: the same keys, the same nesting and the same number of list items.
4. Use wording that is natural and culturally appropriate for {{.TargetName}} speakers.
{{- if .RTL}}
5. {{.TargetName}} is written right to left. Write natural right-to-left text and do not add direction marks or reverse characters.
{{- end}}

Output format:
Return ONLY a single valid JSON object. No markdown, no code fences, no explanations, do not repeat these instructions.
{{- if .Structured}}
The object must use exactly the keys of the content above. Expected shape: {{.Example}}
If there is nothing to translate, return the original object unchanged.
{{- else}}
Return {"text": "translated text"}.
If there is nothing to translate, return the original text in the same form: {"text": "original text"}.
{{- end}}
`

var tmpl = template.Must(template.New("translate").Parse(body))

// Build renders the instruction string for translating c from sourceLang to
// targetLang. Content is serialized canonically (sorted keys) so identical
// inputs always produce identical prompts.
func Build(c content.Value, sourceLang, targetLang string, opts Options) (string, error) {
	if c.IsZero() {
		return "", fmt.Errorf("prompt: empty content")
	}
	sch := schema.For(opts.Category)
	d := data{
		Source:     sourceLang,
		SourceName: lang.EnglishName(sourceLang),
		Target:     targetLang,
		TargetName: lang.EnglishName(targetLang),
		Category:   sch.Category,
		Context:    strings.TrimSpace(opts.Context),
		Structured: c.IsStructured(),
		RTL:        lang.IsRTL(targetLang),
	}

	switch c.Kind() {
	case content.KindStructured:
		b, err := c.Canonical()
		if err != nil {
			return "", fmt.Errorf("prompt: serialize content: %w", err)
		}
		d.Content = string(b)
		shape := sch.Example()
		if sch.IsGeneric() || !sch.Covers(c.Fields()) {
			shape = shapeOf(c.Fields())
		}
		ex, err := json.Marshal(shape)
		if err != nil {
			return "", fmt.Errorf("prompt: serialize example: %w", err)
		}
		d.Example = string(ex)
	case content.KindText:
		b, err := content.Structured(map[string]any{"text": c.Text()}).Canonical()
		if err != nil {
			return "", fmt.Errorf("prompt: serialize content: %w", err)
		}
		d.Content = string(b)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("prompt: render: %w", err)
	}
	return buf.String(), nil
}

// shapeOf mirrors the keys of m with placeholder values, for categories that
// have no dedicated schema.
func shapeOf(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case map[string]any:
			out[k] = shapeOf(t)
		case []any:
			if len(t) > 0 {
				if first, ok := t[0].(map[string]any); ok {
					out[k] = []any{shapeOf(first)}
					continue
				}
			}
			out[k] = []any{"..."}
		default:
			out[k] = "..."
		}
	}
	return out
}
