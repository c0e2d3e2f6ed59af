package committee

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrNoValidJudges is returned when every judge on the panel failed or
// produced an unusable verdict.
var ErrNoValidJudges = errors.New("no valid judge verdicts")

// JudgeClient invokes one judge. Implementations own prompt construction,
// transport, and any retry or caching; the committee hands them structured
// content and parses what comes back.
type JudgeClient interface {
	// Score runs one call for the given judge and returns raw model output.
	Score(ctx context.Context, judge JudgeProfile, payload PromptPayload) (string, error)
}

// Config controls committee execution.
type Config struct {
	// MaxJudgeConcurrency bounds simultaneous in-flight judge calls.
	// Default: 4
	MaxJudgeConcurrency int `json:"max_judge_concurrency" yaml:"max_judge_concurrency" toml:"max_judge_concurrency"`

	// JudgeTimeout bounds a single judge call. Default: 5m
	JudgeTimeout time.Duration `json:"judge_timeout" yaml:"judge_timeout" toml:"-"`

	// EnableDebate turns the re-deliberation round on. Default: true
	EnableDebate bool `json:"enable_debate" yaml:"enable_debate" toml:"enable_debate"`

	// IterationMode skips debate regardless of EnableDebate, trading
	// consensus quality for speed during rapid evaluate-fix loops.
	IterationMode bool `json:"iteration_mode" yaml:"iteration_mode" toml:"iteration_mode"`

	// LowConsensusThreshold is the per-dimension score variance at or above
	// which the dimension enters debate. Default: 0.5
	LowConsensusThreshold float64 `json:"low_consensus_threshold" yaml:"low_consensus_threshold" toml:"low_consensus_threshold"`

	// HighDisagreementThreshold is the post-debate variance at or above
	// which a dimension is flagged in the result. Default: 1.0
	HighDisagreementThreshold float64 `json:"high_disagreement_threshold" yaml:"high_disagreement_threshold" toml:"high_disagreement_threshold"`
}

// DefaultConfig returns the default committee configuration.
func DefaultConfig() Config {
	return Config{
		MaxJudgeConcurrency:       4,
		JudgeTimeout:              5 * time.Minute,
		EnableDebate:              true,
		LowConsensusThreshold:     0.5,
		HighDisagreementThreshold: 1.0,
	}
}

// Validate checks configuration ranges.
func (c Config) Validate() error {
	if c.MaxJudgeConcurrency <= 0 {
		return fmt.Errorf("max_judge_concurrency must be > 0, got %d", c.MaxJudgeConcurrency)
	}
	if c.JudgeTimeout <= 0 {
		return fmt.Errorf("judge_timeout must be > 0, got %v", c.JudgeTimeout)
	}
	if c.LowConsensusThreshold < 0 {
		return fmt.Errorf("low_consensus_threshold must be >= 0, got %v", c.LowConsensusThreshold)
	}
	if c.HighDisagreementThreshold < 0 {
		return fmt.Errorf("high_disagreement_threshold must be >= 0, got %v", c.HighDisagreementThreshold)
	}
	if c.HighDisagreementThreshold < c.LowConsensusThreshold {
		return fmt.Errorf("high_disagreement_threshold (%v) must be >= low_consensus_threshold (%v)",
			c.HighDisagreementThreshold, c.LowConsensusThreshold)
	}
	return nil
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxJudgeConcurrency <= 0 {
		c.MaxJudgeConcurrency = def.MaxJudgeConcurrency
	}
	if c.JudgeTimeout <= 0 {
		c.JudgeTimeout = def.JudgeTimeout
	}
	// Zero is a deliberate setting for the thresholds (debate or flag every
	// dimension), so only invalid negatives fall back to the defaults.
	if c.LowConsensusThreshold < 0 {
		c.LowConsensusThreshold = def.LowConsensusThreshold
	}
	if c.HighDisagreementThreshold < 0 {
		c.HighDisagreementThreshold = def.HighDisagreementThreshold
	}
	return c
}

// Input is the material evaluated by the committee.
type Input struct {
	// AICases is the rendered collection under evaluation.
	AICases string

	// GoldenCases is the rendered reference collection, empty when none.
	GoldenCases string

	// DuplicateSummary is the dedupe report digest shown to judges as
	// additional evidence, empty when detection was skipped.
	DuplicateSummary string
}

// Committee runs the multi-judge consensus protocol. It is stateless across
// Evaluate calls and safe for concurrent use.
type Committee struct {
	cfg    Config
	panel  Panel
	client JudgeClient
}

// New creates a committee over a panel. The client is invoked for every
// judge, including the chairman.
func New(cfg Config, panel Panel, client JudgeClient) *Committee {
	return &Committee{cfg: cfg.withDefaults(), panel: panel, client: client}
}

// Evaluate runs the full protocol: independent scoring, validity filtering,
// consensus measurement, debate on low-consensus dimensions, and aggregation.
// It fails only when no judge produced a usable verdict or the context was
// cancelled; individual judge failures are recorded in the result.
func (c *Committee) Evaluate(ctx context.Context, input Input) (*EvaluationResult, error) {
	start := time.Now()
	slog.Info("committee evaluation starting",
		"judges", len(c.panel.Judges),
		"chairman", c.panel.Chairman.ID,
		"debate_enabled", c.debateEnabled(),
	)

	verdicts, judgeErrors, err := c.independentRound(ctx, input)
	if err != nil {
		return nil, err
	}
	if len(verdicts) == 0 {
		return nil, fmt.Errorf("%w: %d judges attempted", ErrNoValidJudges, len(c.panel.Judges))
	}

	// Stage-1 snapshot, retained untouched for audit. Debate works on clones.
	snapshot := make(map[string]JudgeVerdict, len(verdicts))
	working := make(map[string]JudgeVerdict, len(verdicts))
	for id, v := range verdicts {
		snapshot[id] = v
		working[id] = v.clone()
	}

	framework := FrameworkStandard
	if c.debateEnabled() {
		contested := contestedDimensions(working, c.cfg.LowConsensusThreshold)
		if len(contested) > 0 {
			framework = FrameworkDebated
			c.debateRound(ctx, working, contested)
		}
	}

	result := c.aggregate(ctx, working)
	result.JudgeVerdicts = snapshot
	result.JudgeErrors = judgeErrors
	result.Framework = framework
	result.HighDisagreementDimensions = disagreementDimensions(working, c.cfg.HighDisagreementThreshold)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("evaluation cancelled: %w", err)
	}

	slog.Info("committee evaluation completed",
		"overall_score", result.OverallScore,
		"framework", result.Framework,
		"valid_judges", len(snapshot),
		"failed_judges", len(judgeErrors),
		"duration", time.Since(start),
	)
	return result, nil
}

// Evaluate runs a one-shot committee over the panel.
func Evaluate(ctx context.Context, cfg Config, panel Panel, client JudgeClient, input Input) (*EvaluationResult, error) {
	return New(cfg, panel, client).Evaluate(ctx, input)
}

func (c *Committee) debateEnabled() bool {
	return c.cfg.EnableDebate && !c.cfg.IterationMode
}

// independentRound fans judges out under the concurrency bound and collects
// usable verdicts. Per-judge failures are isolated; only cancellation of the
// parent context aborts the round.
func (c *Committee) independentRound(ctx context.Context, input Input) (map[string]JudgeVerdict, map[string]string, error) {
	payload := PromptPayload{
		Stage:            StageIndependent,
		AICases:          input.AICases,
		GoldenCases:      input.GoldenCases,
		DuplicateSummary: input.DuplicateSummary,
	}

	type outcome struct {
		judgeID string
		verdict JudgeVerdict
		err     error
	}

	outcomes := make([]outcome, len(c.panel.Judges))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.MaxJudgeConcurrency)

	for i, judge := range c.panel.Judges {
		i, judge := i, judge
		g.Go(func() error {
			verdict, err := c.callJudge(gctx, judge, payload)
			outcomes[i] = outcome{judgeID: judge.ID, verdict: verdict, err: err}
			// Never propagate judge failures through the group; that would
			// cancel the siblings.
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("evaluation cancelled: %w", err)
	}

	verdicts := make(map[string]JudgeVerdict)
	judgeErrors := make(map[string]string)
	for _, o := range outcomes {
		if o.err != nil {
			slog.Warn("judge failed, excluding from aggregation",
				"judge", o.judgeID, "error", o.err)
			judgeErrors[o.judgeID] = o.err.Error()
			continue
		}
		verdicts[o.judgeID] = o.verdict
	}
	return verdicts, judgeErrors, nil
}

// callJudge runs one bounded judge call and parses the verdict.
func (c *Committee) callJudge(ctx context.Context, judge JudgeProfile, payload PromptPayload) (JudgeVerdict, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.JudgeTimeout)
	defer cancel()

	raw, err := c.client.Score(callCtx, judge, payload)
	if err != nil {
		return JudgeVerdict{}, fmt.Errorf("judge %s: %w", judge.ID, err)
	}

	verdict, ok := ParseVerdict(raw)
	if !ok {
		return JudgeVerdict{}, fmt.Errorf("judge %s: unparseable verdict", judge.ID)
	}
	verdict.JudgeID = judge.ID
	// Validity is judged on the raw parse: a missing overall score must
	// exclude the verdict, not get clamped into a fabricated 1.0.
	if !verdict.valid() {
		return JudgeVerdict{}, fmt.Errorf("judge %s: verdict missing scores", judge.ID)
	}
	verdict.OverallScore = clampScore(verdict.OverallScore)
	for dim, ds := range verdict.Dimensions {
		ds.Score = clampScore(ds.Score)
		verdict.Dimensions[dim] = ds
	}
	return verdict, nil
}

// contestedDimensions returns dimensions whose score variance meets the
// low-consensus threshold, in canonical order.
func contestedDimensions(verdicts map[string]JudgeVerdict, threshold float64) []Dimension {
	var contested []Dimension
	for _, dim := range allDimensions {
		scores := dimensionScores(verdicts, dim)
		if len(scores) < 2 {
			continue
		}
		if v := populationVariance(scores); v >= threshold {
			slog.Info("low consensus, scheduling debate",
				"dimension", dim, "variance", fmt.Sprintf("%.3f", v))
			contested = append(contested, dim)
		}
	}
	return contested
}

// debateRound re-deliberates each contested dimension. Every judge that
// scored the dimension sees its own prior opinion plus the peers' reasons and
// may revise. Failures keep the original opinion; debate never removes a
// judge from the panel.
func (c *Committee) debateRound(ctx context.Context, working map[string]JudgeVerdict, contested []Dimension) {
	judgeIDs := sortedJudgeIDs(working)

	for _, dim := range contested {
		type revision struct {
			judgeID string
			score   DimensionScore
			ok      bool
		}

		participants := make([]string, 0, len(judgeIDs))
		for _, id := range judgeIDs {
			if _, scored := working[id].Dimensions[dim]; scored {
				participants = append(participants, id)
			}
		}

		revisions := make([]revision, len(participants))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.cfg.MaxJudgeConcurrency)

		for i, id := range participants {
			i, id := i, id
			g.Go(func() error {
				own := working[id].Dimensions[dim]
				payload := PromptPayload{
					Stage:       StageDebate,
					Dimension:   dim,
					OwnScore:    own.Score,
					OwnReason:   own.Reason,
					PeerReasons: peerReasons(working, participants, id, dim),
				}
				revised, err := c.debateJudge(gctx, id, payload)
				if err != nil {
					slog.Warn("debate call failed, keeping original opinion",
						"judge", id, "dimension", dim, "error", err)
					return nil
				}
				revisions[i] = revision{judgeID: id, score: revised, ok: true}
				return nil
			})
		}
		_ = g.Wait()

		if ctx.Err() != nil {
			return
		}

		for _, r := range revisions {
			if !r.ok {
				continue
			}
			v := working[r.judgeID]
			r.score.Dimension = dim
			v.Dimensions[dim] = r.score
			working[r.judgeID] = v
		}
	}
}

// debateJudge runs one debate call and extracts the revised opinion for the
// payload's dimension.
func (c *Committee) debateJudge(ctx context.Context, judgeID string, payload PromptPayload) (DimensionScore, error) {
	judge := c.judgeByID(judgeID)

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.JudgeTimeout)
	defer cancel()

	raw, err := c.client.Score(callCtx, judge, payload)
	if err != nil {
		return DimensionScore{}, err
	}
	verdict, ok := ParseVerdict(raw)
	if !ok {
		return DimensionScore{}, errors.New("unparseable debate verdict")
	}
	ds, ok := verdict.Dimensions[payload.Dimension]
	if !ok || ds.Score <= 0 {
		return DimensionScore{}, fmt.Errorf("debate verdict missing dimension %s", payload.Dimension)
	}
	ds.Score = clampScore(ds.Score)
	return ds, nil
}

func (c *Committee) judgeByID(id string) JudgeProfile {
	for _, j := range c.panel.Judges {
		if j.ID == id {
			return j
		}
	}
	return JudgeProfile{ID: id}
}

// peerReasons collects the other participants' reasons for a dimension, in
// sorted judge order so debate prompts are deterministic.
func peerReasons(working map[string]JudgeVerdict, participants []string, self string, dim Dimension) []string {
	var reasons []string
	for _, id := range participants {
		if id == self {
			continue
		}
		ds := working[id].Dimensions[dim]
		reasons = append(reasons, fmt.Sprintf("%s (score %.1f): %s", id, ds.Score, ds.Reason))
	}
	return reasons
}

// dimensionScores collects scores for one dimension in sorted judge order.
func dimensionScores(verdicts map[string]JudgeVerdict, dim Dimension) []float64 {
	var scores []float64
	for _, id := range sortedJudgeIDs(verdicts) {
		if ds, ok := verdicts[id].Dimensions[dim]; ok {
			scores = append(scores, ds.Score)
		}
	}
	return scores
}

// disagreementDimensions returns dimensions whose post-debate variance still
// meets the high-disagreement threshold, in canonical order.
func disagreementDimensions(verdicts map[string]JudgeVerdict, threshold float64) []Dimension {
	var flagged []Dimension
	for _, dim := range allDimensions {
		scores := dimensionScores(verdicts, dim)
		if len(scores) < 2 {
			continue
		}
		if populationVariance(scores) >= threshold {
			flagged = append(flagged, dim)
		}
	}
	return flagged
}

func sortedJudgeIDs(verdicts map[string]JudgeVerdict) []string {
	ids := make([]string, 0, len(verdicts))
	for id := range verdicts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
