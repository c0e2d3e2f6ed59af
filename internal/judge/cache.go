package judge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/shahbajlive/caseval/internal/committee"
)

const defaultCacheTTL = time.Hour

// CachedClient wraps another client with an in-memory content-addressed
// cache. Identical judge/payload pairs within the TTL reuse the previous
// response instead of spending another model call. Callers opt in explicitly;
// nothing in the evaluation path caches by default.
type CachedClient struct {
	inner committee.JudgeClient
	ttl   time.Duration

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	response  string
	expiresAt time.Time
}

// NewCachedClient wraps inner with a cache. A non-positive ttl uses one hour.
func NewCachedClient(inner committee.JudgeClient, ttl time.Duration) *CachedClient {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedClient{
		inner:   inner,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// Score implements committee.JudgeClient.
func (c *CachedClient) Score(ctx context.Context, judge committee.JudgeProfile, payload committee.PromptPayload) (string, error) {
	key := cacheKey(judge, payload)

	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && time.Now().Before(entry.expiresAt) {
		c.mu.Unlock()
		slog.Debug("judge cache hit", "judge", judge.ID, "stage", payload.Stage)
		return entry.response, nil
	}
	c.mu.Unlock()

	response, err := c.inner.Score(ctx, judge, payload)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{response: response, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	return response, nil
}

// cacheKey hashes the judge identity and the full payload so any content
// change invalidates the entry.
func cacheKey(judge committee.JudgeProfile, payload committee.PromptPayload) string {
	data, _ := json.Marshal(struct {
		Judge   committee.JudgeProfile  `json:"judge"`
		Payload committee.PromptPayload `json:"payload"`
	}{judge, payload})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
