package testcase

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// rawCase is the tolerant wire shape of a test case. Upstream exporters are
// inconsistent: ids appear as "id" or "case_id", steps and expected results
// as either a string or a list. Malformed fields degrade to empty values.
type rawCase struct {
	ID              string      `json:"id" yaml:"id"`
	CaseID          string      `json:"case_id" yaml:"case_id"`
	Title           string      `json:"title" yaml:"title"`
	Preconditions   string      `json:"preconditions" yaml:"preconditions"`
	Steps           flexStrings `json:"steps" yaml:"steps"`
	ExpectedResults flexStrings `json:"expected_results" yaml:"expected_results"`
	Category        string      `json:"category" yaml:"category"`
}

func (r rawCase) normalize(ordinal int) TestCase {
	id := r.ID
	if id == "" {
		id = r.CaseID
	}
	if id == "" {
		id = fmt.Sprintf("case-%d", ordinal)
	}
	return TestCase{
		ID:              id,
		Title:           r.Title,
		Preconditions:   r.Preconditions,
		Steps:           []string(r.Steps),
		ExpectedResults: []string(r.ExpectedResults),
		Category:        r.Category,
	}
}

// flexStrings decodes either a scalar string or a list of strings.
// Non-string entries are stringified rather than rejected.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" {
			*f = nil
		} else {
			*f = []string{s}
		}
		return nil
	}
	var list []any
	if err := json.Unmarshal(data, &list); err != nil {
		// Malformed field: treat as absent per the degrade-gracefully rule.
		*f = nil
		return nil
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		switch t := v.(type) {
		case string:
			out = append(out, t)
		case nil:
			// skip
		default:
			out = append(out, fmt.Sprint(t))
		}
	}
	*f = out
	return nil
}

func (f *flexStrings) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		if s == "" {
			*f = nil
		} else {
			*f = []string{s}
		}
		return nil
	}
	var list []string
	if err := value.Decode(&list); err != nil {
		*f = nil
		return nil
	}
	*f = list
	return nil
}

// rawDocument covers the wrapper shapes produced by the various exporters:
//
//	{"testcases": {"test_cases": [...]}}   current unified format
//	{"test_cases": [...]}                  flat list
//	{"test_cases": {"<category>": [...]}}  legacy categorized map
//	[...]                                  bare list
type rawDocument struct {
	TestCases json.RawMessage `json:"test_cases" yaml:"test_cases"`
	Wrapper   *struct {
		TestCases json.RawMessage `json:"test_cases" yaml:"test_cases"`
	} `json:"testcases" yaml:"testcases"`
}

// ParseJSON decodes a test case collection from any of the supported JSON
// document shapes.
func ParseJSON(data []byte) (Collection, error) {
	// Bare list first.
	var bare []rawCase
	if err := json.Unmarshal(data, &bare); err == nil {
		return fromRaw(bare), nil
	}

	var doc rawDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return Collection{}, fmt.Errorf("parse test case document: %w", err)
	}

	payload := doc.TestCases
	if doc.Wrapper != nil && len(doc.Wrapper.TestCases) > 0 {
		payload = doc.Wrapper.TestCases
	}
	if len(payload) == 0 {
		return Collection{}, nil
	}

	var cases []rawCase
	if err := json.Unmarshal(payload, &cases); err == nil {
		return fromRaw(cases), nil
	}

	// Legacy categorized map. Category keys are applied to members that
	// carry no explicit category of their own.
	var categorized map[string][]rawCase
	if err := json.Unmarshal(payload, &categorized); err != nil {
		return Collection{}, fmt.Errorf("parse test_cases payload: %w", err)
	}
	keys := make([]string, 0, len(categorized))
	for k := range categorized {
		keys = append(keys, k)
	}
	// Map order is random; sort for reproducible collections.
	sort.Strings(keys)
	var all []rawCase
	for _, k := range keys {
		for _, rc := range categorized[k] {
			if rc.Category == "" {
				rc.Category = k
			}
			all = append(all, rc)
		}
	}
	return fromRaw(all), nil
}

// ParseYAML decodes a flat or wrapped YAML collection.
func ParseYAML(data []byte) (Collection, error) {
	var bare []rawCase
	if err := yaml.Unmarshal(data, &bare); err == nil && len(bare) > 0 {
		return fromRaw(bare), nil
	}
	var doc struct {
		TestCases []rawCase `yaml:"test_cases"`
		Wrapper   struct {
			TestCases []rawCase `yaml:"test_cases"`
		} `yaml:"testcases"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Collection{}, fmt.Errorf("parse test case document: %w", err)
	}
	if len(doc.Wrapper.TestCases) > 0 {
		return fromRaw(doc.Wrapper.TestCases), nil
	}
	return fromRaw(doc.TestCases), nil
}

// LoadFile reads a collection from a .json, .yaml, or .yml file.
func LoadFile(path string) (Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Collection{}, fmt.Errorf("read test cases: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

func fromRaw(raw []rawCase) Collection {
	cases := make([]TestCase, 0, len(raw))
	for i, rc := range raw {
		cases = append(cases, rc.normalize(i+1))
	}
	return Collection{Cases: cases}
}
