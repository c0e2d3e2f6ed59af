// Package dedupe implements the duplicate clustering engine: it groups
// exact-title duplicates, scores near-duplicate step text across a bounded
// worker pool, closes near-duplicate edges transitively, and synthesizes
// merge suggestions. Detection never fails; sparse or malformed data
// degrades to an empty report.
package dedupe

import (
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/shahbajlive/caseval/internal/testcase"
)

// Config controls duplicate detection.
type Config struct {
	// SimilarityThreshold is the minimum sequence-similarity ratio for two
	// step texts to be considered near-duplicates (0.0-1.0). Default: 0.85
	SimilarityThreshold float64 `json:"similarity_threshold" yaml:"similarity_threshold" toml:"similarity_threshold"`

	// MaxComparisonBatch is how many candidate pairs one worker scores per
	// job. Default: 200
	MaxComparisonBatch int `json:"max_comparison_batch" yaml:"max_comparison_batch" toml:"max_comparison_batch"`

	// Workers is the comparison pool size. Default: GOMAXPROCS.
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty" toml:"workers"`
}

// DefaultConfig returns the default detection configuration.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 0.85,
		MaxComparisonBatch:  200,
		Workers:             runtime.GOMAXPROCS(0),
	}
}

// Validate checks configuration ranges.
func (c Config) Validate() error {
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be in (0, 1], got %v", c.SimilarityThreshold)
	}
	if c.MaxComparisonBatch <= 0 {
		return fmt.Errorf("max_comparison_batch must be > 0, got %d", c.MaxComparisonBatch)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	return nil
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		c.SimilarityThreshold = def.SimilarityThreshold
	}
	if c.MaxComparisonBatch <= 0 {
		c.MaxComparisonBatch = def.MaxComparisonBatch
	}
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	return c
}

// Engine owns a long-lived, fixed-size worker pool for pair comparison and
// is reused across Detect calls. It holds no per-collection state; a single
// Engine is safe for concurrent Detect calls.
type Engine struct {
	cfg  Config
	jobs chan func()
	wg   sync.WaitGroup

	closeOnce sync.Once
}

// NewEngine creates an engine and starts its comparison workers.
func NewEngine(cfg Config) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		cfg: cfg,
		// A bounded queue gives submitters backpressure instead of letting
		// pending batches pile up without limit.
		jobs: make(chan func(), cfg.Workers*2),
	}
	for i := 0; i < cfg.Workers; i++ {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			for job := range e.jobs {
				job()
			}
		}()
	}
	return e
}

// Close stops the worker pool after draining queued jobs. Detect must not be
// called after Close.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		close(e.jobs)
		e.wg.Wait()
	})
}

// Detect analyzes a collection for duplicate test cases. It always returns a
// report; collections of size zero or one return the zero-valued sentinel
// immediately.
func (e *Engine) Detect(collection testcase.Collection) *DuplicateReport {
	start := time.Now()
	total := collection.Len()

	report := &DuplicateReport{TotalCases: total}
	if total <= 1 {
		return report
	}

	slog.Info("duplicate detection starting",
		"total_cases", total,
		"threshold", e.cfg.SimilarityThreshold,
	)

	cases := collection.Cases

	// Exact-title groups.
	titleGroups := e.detectTitleGroups(cases)
	report.Groups = append(report.Groups, titleGroups...)
	for _, g := range titleGroups {
		report.DuplicateTypes.Title += len(g.MemberIDs) - 1
	}

	// Near-duplicate step groups via the comparison pool.
	stepTexts := joinedTexts(cases, func(tc testcase.TestCase) []string { return tc.Steps })
	stepEdges := e.scorePairs(stepTexts)
	stepsGroups := e.buildStepGroups(cases, stepTexts, stepEdges)
	report.Groups = append(report.Groups, stepsGroups...)
	for _, g := range stepsGroups {
		report.DuplicateTypes.Steps += len(g.MemberIDs) - 1
	}

	// Expected-result near-matches are counted but never grouped; grouping
	// is driven by step text alone.
	expectedTexts := joinedTexts(cases, func(tc testcase.TestCase) []string { return tc.ExpectedResults })
	expectedEdges := e.scorePairs(expectedTexts)
	report.DuplicateTypes.ExpectedResults = countMatchedFollowers(expectedEdges)

	report.PerCategory = categoryStats(collection)

	report.DuplicateCount = len(report.Groups)
	report.DuplicateRate = roundTo2(float64(report.DuplicateCount) / float64(total) * 100)

	slog.Info("duplicate detection completed",
		"total_cases", total,
		"groups", report.DuplicateCount,
		"duplicate_rate", fmt.Sprintf("%.2f%%", report.DuplicateRate),
		"duration", time.Since(start),
	)

	return report
}

// Detect runs detection with a one-shot engine. Callers that detect
// repeatedly should hold an Engine instead.
func Detect(collection testcase.Collection, cfg Config) *DuplicateReport {
	e := NewEngine(cfg)
	defer e.Close()
	return e.Detect(collection)
}

// detectTitleGroups groups cases by byte-identical non-empty title.
func (e *Engine) detectTitleGroups(cases []testcase.TestCase) []DuplicateGroup {
	order := make([]string, 0, len(cases))
	byTitle := make(map[string][]int, len(cases))
	for i, tc := range cases {
		if tc.Title == "" {
			continue
		}
		if _, seen := byTitle[tc.Title]; !seen {
			order = append(order, tc.Title)
		}
		byTitle[tc.Title] = append(byTitle[tc.Title], i)
	}

	var groups []DuplicateGroup
	for _, title := range order {
		members := byTitle[title]
		if len(members) < 2 {
			continue
		}
		groups = append(groups, newGroup(KindTitleExact, cases, members))
	}
	return groups
}

// indexedText is one case's comparison string plus its collection index.
type indexedText struct {
	caseIndex int
	text      string
}

// pairEdge records one scored near-duplicate pair, keyed by case indexes so
// merged results are independent of worker completion order.
type pairEdge struct {
	a, b int // collection indexes, a < b
	sim  float64
}

func joinedTexts(cases []testcase.TestCase, field func(testcase.TestCase) []string) []indexedText {
	var out []indexedText
	for i, tc := range cases {
		text := normalizeJoined(field(tc))
		if text == "" {
			continue
		}
		out = append(out, indexedText{caseIndex: i, text: text})
	}
	return out
}

// scorePairs scores every unordered pair of texts on the worker pool and
// returns the edges above the similarity threshold, ordered by pair key.
func (e *Engine) scorePairs(texts []indexedText) []pairEdge {
	n := len(texts)
	if n < 2 {
		return nil
	}

	type pair struct{ i, j int } // indexes into texts
	batchSize := e.cfg.MaxComparisonBatch
	threshold := e.cfg.SimilarityThreshold

	var batches [][]pair
	current := make([]pair, 0, batchSize)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			current = append(current, pair{i, j})
			if len(current) == batchSize {
				batches = append(batches, current)
				current = make([]pair, 0, batchSize)
			}
		}
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}

	results := make([][]pairEdge, len(batches))
	var wg sync.WaitGroup
	for bi, batch := range batches {
		bi, batch := bi, batch
		wg.Add(1)
		e.jobs <- func() {
			defer wg.Done()
			var edges []pairEdge
			for _, p := range batch {
				a, b := texts[p.i], texts[p.j]
				if !prefilter(a.text, b.text, threshold) {
					continue
				}
				sim := similarityRatio(a.text, b.text)
				if sim > threshold {
					edges = append(edges, pairEdge{a: a.caseIndex, b: b.caseIndex, sim: sim})
					slog.Debug("near-duplicate pair",
						"case_a", a.caseIndex,
						"case_b", b.caseIndex,
						"similarity", fmt.Sprintf("%.3f", sim),
					)
				}
			}
			results[bi] = edges
		}
	}
	wg.Wait()

	// Batches are generated in pair order, so concatenating per-batch
	// results in batch order keeps the edge list deterministic.
	var all []pairEdge
	for _, edges := range results {
		all = append(all, edges...)
	}
	return all
}

// buildStepGroups closes near-duplicate edges transitively and emits a group
// per connected component of size >= 2, ordered by first member.
func (e *Engine) buildStepGroups(cases []testcase.TestCase, texts []indexedText, edges []pairEdge) []DuplicateGroup {
	if len(edges) == 0 {
		return nil
	}

	uf := newUnionFind(len(cases))
	for _, edge := range edges {
		uf.union(edge.a, edge.b)
	}

	// Collect components over the participating indexes in collection order.
	componentOrder := make([]int, 0)
	components := make(map[int][]int)
	for _, t := range texts {
		root := uf.find(t.caseIndex)
		if _, seen := components[root]; !seen {
			componentOrder = append(componentOrder, root)
		}
		components[root] = append(components[root], t.caseIndex)
	}

	var groups []DuplicateGroup
	for _, root := range componentOrder {
		members := components[root]
		if len(members) < 2 {
			continue
		}
		groups = append(groups, newGroup(KindStepsNearMatch, cases, members))
	}
	return groups
}

// countMatchedFollowers counts distinct cases that match at least one
// earlier case, i.e. occurrences beyond the first of each near-match set.
func countMatchedFollowers(edges []pairEdge) int {
	matched := make(map[int]struct{})
	for _, e := range edges {
		matched[e.b] = struct{}{}
	}
	return len(matched)
}

// categoryStats recomputes duplication per category with exact comparison
// only: title equality and step-text equality, each counting occurrences
// beyond the first.
func categoryStats(collection testcase.Collection) []CategoryStats {
	var stats []CategoryStats
	for _, group := range collection.Categories() {
		cs := CategoryStats{Category: group.Name, Total: len(group.Cases)}

		titleCount := make(map[string]int)
		stepsSeen := make(map[string]bool)
		for _, tc := range group.Cases {
			if tc.Title != "" {
				titleCount[tc.Title]++
			}
			if text := tc.StepsText(); text != "" {
				if stepsSeen[text] {
					cs.StepsDuplicates++
				} else {
					stepsSeen[text] = true
				}
			}
		}
		for _, count := range titleCount {
			if count > 1 {
				cs.TitleDuplicates += count - 1
			}
		}

		if cs.Total > 0 {
			cs.DuplicateRate = roundTo2(float64(cs.TitleDuplicates+cs.StepsDuplicates) / float64(cs.Total) * 100)
		}
		stats = append(stats, cs)
	}
	return stats
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

// unionFind is a minimal disjoint-set over case indexes.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	// Attach the larger root to the smaller so component roots stay at the
	// earliest member index, keeping group order tied to case order.
	if ra < rb {
		u.parent[rb] = ra
	} else {
		u.parent[ra] = rb
	}
}
