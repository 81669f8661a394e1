package prompt

import (
	"strings"
	"testing"

	"github.com/tbourn/go-translate-backend/internal/content"
)

func TestBuild_TextContent(t *testing.T) {
	p, err := Build(content.Text("Hello & welcome"), "en", "fr", Options{Category: "simple_text", Context: "homepage hero"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, want := range []string{
		"from English (en) to French (fr)",
		`{"text":"Hello & welcome"}`,
		"Context: homepage hero",
		"Leave URLs, email addresses, phone numbers and prices exactly as they are",
		"Return ONLY a single valid JSON object",
		`Return {"text": "translated text"}.`,
		`{"text": "original text"}`,
	} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q:\n%s", want, p)
		}
	}
	if strings.Contains(p, "right to left") {
		t.Fatal("French prompt must not carry the RTL rule")
	}
}

func TestBuild_StructuredContentRTL(t *testing.T) {
	c := content.Structured(map[string]any{"phone": "123", "email": "j@x.com", "address": "1 Main St"})
	p, err := Build(c, "en", "ar", Options{Category: "contact"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(p, `{"address":"1 Main St","email":"j@x.com","phone":"123"}`) {
		t.Fatalf("content not canonical:\n%s", p)
	}
	if !strings.Contains(p, "written right to left") {
		t.Fatalf("missing RTL rule:\n%s", p)
	}
	if !strings.Contains(p, "Expected shape:") || !strings.Contains(p, `"email":"..."`) {
		t.Fatalf("missing expected shape:\n%s", p)
	}
	if strings.Contains(p, "Context:") {
		t.Fatal("empty context should be omitted")
	}
}

func TestBuild_Deterministic(t *testing.T) {
	c := content.Structured(map[string]any{"b": "x", "a": "y", "c": map[string]any{"z": "1", "y": "2"}})
	first, err := Build(c, "en", "de", Options{Category: "banner"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, _ := Build(c, "en", "de", Options{Category: "banner"})
		if again != first {
			t.Fatal("prompt is not deterministic")
		}
	}
	if !strings.Contains(first, `"c":{"y":"...","z":"..."}`) {
		t.Fatalf("generic shape should mirror content keys:\n%s", first)
	}
}

func TestBuild_ZeroContent(t *testing.T) {
	if _, err := Build(content.Value{}, "en", "fr", Options{}); err == nil {
		t.Fatal("expected error for zero content")
	}
}

func TestBuild_KnownCategoryWithForeignKeysMirrorsContent(t *testing.T) {
	c := content.Structured(map[string]any{"title": "Cafe", "subtitle": "Since 1990"})
	p, err := Build(c, "en", "fr", Options{Category: "simple_text"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(p, `"subtitle":"..."`) || strings.Contains(p, `Expected shape: {"text"`) {
		t.Fatalf("shape should mirror content keys:\n%s", p)
	}
}
