// Package schema maps a content category to the output shape a provider is
// expected to return for it. Lookups are deterministic and never fail: an
// unknown category resolves to the generic {content: string} schema.
package schema

import (
	"sort"
	"strings"
)

// FieldType enumerates the value types a schema field can declare.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeList   FieldType = "list"
)

// Field is one entry of a ContentSchema. List fields describe their item
// objects through Items.
type Field struct {
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	Required    bool      `json:"required"`
	Description string    `json:"description,omitempty"`
	Items       []Field   `json:"items,omitempty"`
}

// ContentSchema is the expected translated shape for one category.
type ContentSchema struct {
	Category    string  `json:"category"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Fields      []Field `json:"fields"`
}

// Generic is the category name of the fallback schema.
const Generic = "generic"

func str(name string, required bool, desc string) Field {
	return Field{Name: name, Type: TypeString, Required: required, Description: desc}
}

func list(name, desc string, items ...Field) Field {
	return Field{Name: name, Type: TypeList, Required: true, Description: desc, Items: items}
}

var simpleText = ContentSchema{
	Name:        "Simple text",
	Description: "A single block of prose",
	Fields:      []Field{str("text", true, "translated text")},
}

var registry = map[string]ContentSchema{
	"simple_text": simpleText,
	"about":       simpleText,
	"link": {
		Name:        "Link",
		Description: "A labelled hyperlink",
		Fields: []Field{
			str("text", true, "translated link label"),
			str("url", true, "unchanged URL"),
		},
	},
	"contact": {
		Name:        "Contact",
		Description: "Contact details block",
		Fields: []Field{
			str("name", false, "translated contact name or title"),
			str("email", false, "unchanged email"),
			str("phone", false, "unchanged phone number"),
			str("address", false, "translated postal address"),
		},
	},
	"social": {
		Name:        "Social links",
		Description: "Social network profile links",
		Fields: []Field{
			str("facebook", false, "unchanged URL"),
			str("instagram", false, "unchanged URL"),
			str("twitter", false, "unchanged URL"),
			str("linkedin", false, "unchanged URL"),
			str("youtube", false, "unchanged URL"),
			str("tiktok", false, "unchanged URL"),
			str("website", false, "unchanged URL"),
		},
	},
	"hours": {
		Name:        "Opening hours",
		Description: "Weekly opening schedule",
		Fields: []Field{
			str("title", false, "translated heading"),
			list("schedule", "one entry per day",
				str("day", true, "translated day name"),
				str("hours", true, "unchanged time range or translated 'closed'"),
			),
			str("note", false, "translated remark"),
		},
	},
	"appointments": {
		Name:        "Appointments",
		Description: "Booking call to action",
		Fields: []Field{
			str("title", true, "translated heading"),
			str("description", false, "translated description"),
			str("button_text", false, "translated button label"),
			str("booking_url", false, "unchanged URL"),
		},
	},
	"services": {
		Name:        "Services",
		Description: "List of offered services",
		Fields: []Field{
			list("items", "one entry per service",
				str("name", true, "translated service name"),
				str("description", false, "translated description"),
				str("price", false, "unchanged price"),
			),
		},
	},
	"products": {
		Name:        "Products",
		Description: "List of products",
		Fields: []Field{
			list("items", "one entry per product",
				str("name", true, "translated product name"),
				str("description", false, "translated description"),
				str("price", false, "unchanged price"),
				str("image_url", false, "unchanged URL"),
			),
		},
	},
	"testimonials": {
		Name:        "Testimonials",
		Description: "Customer quotes",
		Fields: []Field{
			list("items", "one entry per testimonial",
				str("quote", true, "translated quote"),
				str("author", true, "unchanged author name"),
				str("role", false, "translated author role"),
			),
		},
	},
}

var generic = ContentSchema{
	Category:    Generic,
	Name:        "Generic",
	Description: "Fallback for unknown categories",
	Fields:      []Field{str("content", true, "translated content")},
}

// For returns the schema registered for category (case-insensitive), or the
// generic schema when none is.
func For(category string) ContentSchema {
	key := strings.ToLower(strings.TrimSpace(category))
	if s, ok := registry[key]; ok {
		s.Category = key
		return s
	}
	return generic
}

// Known reports whether category has a dedicated schema.
func Known(category string) bool {
	_, ok := registry[strings.ToLower(strings.TrimSpace(category))]
	return ok
}

// Categories lists every registered category in sorted order.
func Categories() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// All returns every registered schema followed by the generic one.
func All() []ContentSchema {
	cats := Categories()
	out := make([]ContentSchema, 0, len(cats)+1)
	for _, c := range cats {
		out = append(out, For(c))
	}
	return append(out, generic)
}

// IsGeneric reports whether s is the fallback schema.
func (s ContentSchema) IsGeneric() bool { return s.Category == Generic }

// Covers reports whether every top-level key of m is a field of s.
func (s ContentSchema) Covers(m map[string]any) bool {
	for k := range m {
		found := false
		for _, f := range s.Fields {
			if f.Name == k {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Example renders a sample object of the expected shape, used in prompts to
// show the provider what to return.
func (s ContentSchema) Example() map[string]any {
	return exampleOf(s.Fields)
}

func exampleOf(fields []Field) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		switch f.Type {
		case TypeList:
			out[f.Name] = []any{exampleOf(f.Items)}
		default:
			out[f.Name] = "..."
		}
	}
	return out
}

// JSONSchema renders s as a JSON Schema document suitable for structured
// output modes of OpenAI-compatible providers.
func (s ContentSchema) JSONSchema() map[string]any {
	return objectSchema(s.Fields)
}

func objectSchema(fields []Field) map[string]any {
	props := make(map[string]any, len(fields))
	required := make([]string, 0, len(fields))
	for _, f := range fields {
		switch f.Type {
		case TypeList:
			props[f.Name] = map[string]any{
				"type":  "array",
				"items": objectSchema(f.Items),
			}
		default:
			props[f.Name] = map[string]any{"type": "string"}
		}
		if f.Required {
			required = append(required, f.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}
