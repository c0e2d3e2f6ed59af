package testcase

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseJSON_BareList(t *testing.T) {
	data := `[
	  {"id": "c1", "title": "Login", "steps": ["open page", "submit"], "expected_results": ["logged in"]},
	  {"case_id": "c2", "title": "Logout", "steps": "click logout"}
	]`
	coll, err := ParseJSON([]byte(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if coll.Len() != 2 {
		t.Fatalf("expected 2 cases, got %d", coll.Len())
	}
	if coll.Cases[0].ID != "c1" || len(coll.Cases[0].Steps) != 2 {
		t.Errorf("unexpected first case: %+v", coll.Cases[0])
	}
	// case_id alias and scalar steps both normalize.
	if coll.Cases[1].ID != "c2" {
		t.Errorf("expected case_id alias, got %q", coll.Cases[1].ID)
	}
	if len(coll.Cases[1].Steps) != 1 || coll.Cases[1].Steps[0] != "click logout" {
		t.Errorf("expected scalar step promoted to list, got %v", coll.Cases[1].Steps)
	}
}

func TestParseJSON_WrappedDocument(t *testing.T) {
	data := `{"testcases": {"test_cases": [{"id": "c1", "title": "T"}]}}`
	coll, err := ParseJSON([]byte(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if coll.Len() != 1 || coll.Cases[0].ID != "c1" {
		t.Errorf("unexpected collection: %+v", coll.Cases)
	}
}

func TestParseJSON_CategorizedMap(t *testing.T) {
	data := `{"test_cases": {
	  "billing": [{"id": "b1", "title": "Pay"}],
	  "auth": [{"id": "a1", "title": "Login"}, {"id": "a2", "title": "Logout", "category": "session"}]
	}}`
	coll, err := ParseJSON([]byte(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if coll.Len() != 3 {
		t.Fatalf("expected 3 cases, got %d", coll.Len())
	}
	// Map keys are sorted, so auth comes first.
	if coll.Cases[0].ID != "a1" || coll.Cases[0].Category != "auth" {
		t.Errorf("unexpected first case: %+v", coll.Cases[0])
	}
	// An explicit category on the member wins over the map key.
	if coll.Cases[1].Category != "session" {
		t.Errorf("expected explicit category kept, got %q", coll.Cases[1].Category)
	}
	if coll.Cases[2].Category != "billing" {
		t.Errorf("expected billing, got %q", coll.Cases[2].Category)
	}
}

func TestParseJSON_MalformedFieldsDegrade(t *testing.T) {
	data := `[{"title": "No id", "steps": {"weird": "object"}, "expected_results": [1, null, "ok"]}]`
	coll, err := ParseJSON([]byte(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tc := coll.Cases[0]
	if tc.ID != "case-1" {
		t.Errorf("expected fallback id, got %q", tc.ID)
	}
	if tc.Steps != nil {
		t.Errorf("expected malformed steps dropped, got %v", tc.Steps)
	}
	// Non-string list entries are stringified, nulls skipped.
	if len(tc.ExpectedResults) != 2 || tc.ExpectedResults[0] != "1" || tc.ExpectedResults[1] != "ok" {
		t.Errorf("unexpected expected results: %v", tc.ExpectedResults)
	}
}

func TestParseJSON_EmptyDocument(t *testing.T) {
	coll, err := ParseJSON([]byte(`{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if coll.Len() != 0 {
		t.Errorf("expected empty collection, got %d", coll.Len())
	}
}

func TestParseJSON_Invalid(t *testing.T) {
	if _, err := ParseJSON([]byte(`not json`)); err == nil {
		t.Error("expected error for invalid document")
	}
}

func TestParseYAML_Wrapped(t *testing.T) {
	data := `
test_cases:
  - id: c1
    title: Login
    steps:
      - open page
      - submit
  - id: c2
    title: Logout
    steps: click logout
`
	coll, err := ParseYAML([]byte(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if coll.Len() != 2 {
		t.Fatalf("expected 2 cases, got %d", coll.Len())
	}
	if len(coll.Cases[1].Steps) != 1 || coll.Cases[1].Steps[0] != "click logout" {
		t.Errorf("expected scalar step promoted, got %v", coll.Cases[1].Steps)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "cases.json")
	if err := os.WriteFile(jsonPath, []byte(`[{"id": "c1", "title": "T"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	coll, err := LoadFile(jsonPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if coll.Len() != 1 {
		t.Errorf("expected 1 case from json, got %d", coll.Len())
	}

	yamlPath := filepath.Join(dir, "cases.yaml")
	if err := os.WriteFile(yamlPath, []byte("test_cases:\n  - id: y1\n    title: Y\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	coll, err = LoadFile(yamlPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if coll.Len() != 1 || coll.Cases[0].ID != "y1" {
		t.Errorf("unexpected yaml collection: %+v", coll.Cases)
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestResolvedCategory(t *testing.T) {
	cases := []struct {
		name string
		tc   TestCase
		want string
	}{
		{"explicit wins", TestCase{Title: "Login - ok", Category: "auth"}, "auth"},
		{"dash prefix", TestCase{Title: "Login - success"}, "Login"},
		{"colon prefix", TestCase{Title: "Login: success"}, "Login"},
		{"fullwidth colon", TestCase{Title: "登录：成功"}, "登录"},
		{"no marker", TestCase{Title: "Plain title"}, UncategorizedLabel},
		{"empty title", TestCase{}, UncategorizedLabel},
		{"blank prefix", TestCase{Title: " - success"}, UncategorizedLabel},
	}
	for _, c := range cases {
		if got := c.tc.ResolvedCategory(); got != c.want {
			t.Errorf("%s: expected %q, got %q", c.name, c.want, got)
		}
	}
}

func TestCategories_OrderPreserving(t *testing.T) {
	coll := NewCollection([]TestCase{
		{ID: "1", Category: "b"},
		{ID: "2", Category: "a"},
		{ID: "3", Category: "b"},
	})
	groups := coll.Categories()
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Name != "b" || len(groups[0].Cases) != 2 {
		t.Errorf("unexpected first group: %+v", groups[0])
	}
	if groups[1].Name != "a" {
		t.Errorf("unexpected second group: %+v", groups[1])
	}
}
