package schema

import "testing"

func TestFor_KnownCategories(t *testing.T) {
	tests := []struct {
		category  string
		wantField string
		list      bool
	}{
		{"simple_text", "text", false},
		{"about", "text", false},
		{"link", "url", false},
		{"contact", "email", false},
		{"social", "facebook", false},
		{"hours", "schedule", true},
		{"appointments", "booking_url", false},
		{"services", "items", true},
		{"products", "items", true},
		{"testimonials", "items", true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.category, func(t *testing.T) {
			s := For(tc.category)
			if s.Category != tc.category {
				t.Fatalf("Category=%q want %q", s.Category, tc.category)
			}
			if s.IsGeneric() {
				t.Fatal("known category resolved to generic")
			}
			var found *Field
			for i := range s.Fields {
				if s.Fields[i].Name == tc.wantField {
					found = &s.Fields[i]
				}
			}
			if found == nil {
				t.Fatalf("field %q missing from %+v", tc.wantField, s.Fields)
			}
			if (found.Type == TypeList) != tc.list {
				t.Fatalf("field %q type=%s", tc.wantField, found.Type)
			}
			if tc.list && len(found.Items) == 0 {
				t.Fatalf("list field %q has no item fields", tc.wantField)
			}
		})
	}
}

func TestFor_UnknownFallsBackToGeneric(t *testing.T) {
	for _, c := range []string{"", "banner", "  "} {
		s := For(c)
		if !s.IsGeneric() {
			t.Fatalf("For(%q) = %q, want generic", c, s.Category)
		}
		if len(s.Fields) != 1 || s.Fields[0].Name != "content" || s.Fields[0].Type != TypeString {
			t.Fatalf("generic fields = %+v", s.Fields)
		}
	}
	if For(" Contact ").Category != "contact" {
		t.Fatal("lookup should be case and space insensitive")
	}
}

func TestExampleAndJSONSchema(t *testing.T) {
	s := For("services")
	ex := s.Example()
	items, ok := ex["items"].([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("example items = %#v", ex["items"])
	}
	js := s.JSONSchema()
	if js["type"] != "object" {
		t.Fatalf("type=%v", js["type"])
	}
	props := js["properties"].(map[string]any)
	arr := props["items"].(map[string]any)
	if arr["type"] != "array" {
		t.Fatalf("items schema=%v", arr)
	}
	req := js["required"].([]string)
	if len(req) != 1 || req[0] != "items" {
		t.Fatalf("required=%v", req)
	}
}

func TestAllIncludesGenericLast(t *testing.T) {
	all := All()
	if len(all) != len(Categories())+1 {
		t.Fatalf("len=%d", len(all))
	}
	if !all[len(all)-1].IsGeneric() {
		t.Fatal("generic must be last")
	}
	if !Known("hours") || Known("banner") {
		t.Fatal("Known mismatch")
	}
}

func TestCovers(t *testing.T) {
	contact := For("contact")
	if !contact.Covers(map[string]any{"email": "a@b.c", "phone": "1"}) {
		t.Fatal("subset of contact fields should be covered")
	}
	if contact.Covers(map[string]any{"email": "a@b.c", "fax": "1"}) {
		t.Fatal("unknown key should not be covered")
	}
	if !contact.Covers(map[string]any{}) {
		t.Fatal("empty map is trivially covered")
	}
}
