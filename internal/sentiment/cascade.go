// Package sentiment implements the SentimentCascade (C3): a three-tier
// fallback pipeline (remote prosody -> local LLM -> keyword lexicon) gated
// by the QuotaLedger and per-dependency CircuitBreakers from
// internal/resilience, with a guaranteed terminal tier. Grounded on the
// teacher's multi-provider fallback shape in infrastructure/resilience,
// composed here with internal/quota so a depleted remote-prosody quota falls
// through to the next tier instead of failing the request. The local tier
// is gated by its circuit breaker only, not by quota.
package sentiment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nexfreight/broker/internal/domain"
	"github.com/nexfreight/broker/internal/eventbus"
	"github.com/nexfreight/broker/internal/quota"
	"github.com/nexfreight/broker/internal/resilience"
)

const (
	depRemoteProsody = "remote_prosody"
	depLocalLLM      = "local_llm"
)

// Store persists SentimentRecords. Implemented by internal/store.
type Store interface {
	SaveSentiment(ctx context.Context, rec domain.SentimentRecord) error
}

// Cascade runs the three tiers in order, never failing externally.
type Cascade struct {
	breakers *resilience.Registry
	quota    *quota.Ledger
	remote   RemoteProsodyClient
	local    LocalLLMClient
	store    Store
	bus      *eventbus.Bus
	log      logrus.FieldLogger

	remoteTimeout time.Duration
	localTimeout  time.Duration
	now           func() time.Time
}

// Config bundles the Cascade's collaborators and tier timeouts.
type Config struct {
	Breakers      *resilience.Registry
	Quota         *quota.Ledger
	Remote        RemoteProsodyClient // nil is valid: Tier 1 is then always skipped
	Local         LocalLLMClient      // nil is valid: Tier 2 is then always skipped
	Store         Store
	Bus           *eventbus.Bus
	Log           logrus.FieldLogger
	RemoteTimeout time.Duration
	LocalTimeout  time.Duration
}

// New constructs a Cascade.
func New(cfg Config) *Cascade {
	if cfg.RemoteTimeout <= 0 {
		cfg.RemoteTimeout = 5 * time.Second
	}
	if cfg.LocalTimeout <= 0 {
		cfg.LocalTimeout = 3 * time.Second
	}
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	return &Cascade{
		breakers:      cfg.Breakers,
		quota:         cfg.Quota,
		remote:        cfg.Remote,
		local:         cfg.Local,
		store:         cfg.Store,
		bus:           cfg.Bus,
		log:           cfg.Log,
		remoteTimeout: cfg.RemoteTimeout,
		localTimeout:  cfg.LocalTimeout,
		now:           time.Now,
	}
}

// Analyze runs the cascade end to end. It never returns an error: the
// keyword tier is unconditional and always produces a record.
func (c *Cascade) Analyze(ctx context.Context, transcript, leadID, callID string) domain.SentimentRecord {
	result, method, ok := c.tryRemote(ctx, transcript)
	if !ok {
		result, method, ok = c.tryLocal(ctx, transcript)
	}
	if !ok {
		result, method = c.tryKeyword(transcript)
	}

	rec := domain.SentimentRecord{
		ID:              uuid.NewString(),
		LeadID:          leadID,
		CallID:          callID,
		Score:           result.Scalar,
		Emotions:        result.Emotions,
		DominantEmotion: result.DominantEmotion,
		Confidence:      confidenceFor(method),
		Method:          method,
		AnalyzedAt:      c.now(),
	}
	rec.RequiresEscalation = requiresEscalation(rec, transcript)

	if c.store != nil {
		if err := c.store.SaveSentiment(ctx, rec); err != nil {
			c.log.WithError(err).WithField("lead_id", leadID).Error("failed to persist sentiment record")
		}
	}
	if c.bus != nil {
		c.bus.Publish(ctx, eventbus.Event{Type: "sentiment.analyzed", Source: "sentiment_cascade", Payload: rec})
		if rec.RequiresEscalation {
			c.bus.Publish(ctx, eventbus.Event{Type: "sentiment.escalation", Source: "sentiment_cascade", Payload: rec})
		}
	}
	return rec
}

func (c *Cascade) tryRemote(ctx context.Context, transcript string) (TierResult, domain.SentimentMethod, bool) {
	if c.remote == nil {
		return TierResult{}, "", false
	}
	if c.quota != nil && c.quota.FallbackRequired(ctx, depRemoteProsody) {
		c.log.Debug("remote_prosody quota near exhaustion, skipping tier 1")
		return TierResult{}, "", false
	}

	callCtx, cancel := context.WithTimeout(ctx, c.remoteTimeout)
	defer cancel()

	var result TierResult
	err := c.breaker(depRemoteProsody).Execute(callCtx, func(inner context.Context) error {
		r, err := c.remote.Analyze(inner, transcript)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		c.log.WithError(err).Debug("tier 1 remote prosody failed, falling back")
		return TierResult{}, "", false
	}
	if result.Scalar == 0 && len(result.Emotions) > 0 {
		result.Scalar = deriveScalar(result.Emotions)
	}
	if result.DominantEmotion == "" {
		result.DominantEmotion = dominantEmotion(result.Emotions)
	}
	return result, domain.MethodRemote, true
}

func (c *Cascade) tryLocal(ctx context.Context, transcript string) (TierResult, domain.SentimentMethod, bool) {
	if c.local == nil {
		return TierResult{}, "", false
	}

	callCtx, cancel := context.WithTimeout(ctx, c.localTimeout)
	defer cancel()

	var result TierResult
	err := c.breaker(depLocalLLM).Execute(callCtx, func(inner context.Context) error {
		r, err := c.local.Analyze(inner, transcript)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		c.log.WithError(err).Debug("tier 2 local llm failed, falling back")
		return TierResult{}, "", false
	}
	if result.Scalar == 0 && len(result.Emotions) > 0 {
		result.Scalar = deriveScalar(result.Emotions)
	}
	if result.DominantEmotion == "" {
		result.DominantEmotion = dominantEmotion(result.Emotions)
	}
	return result, domain.MethodLocal, true
}

func (c *Cascade) tryKeyword(transcript string) (TierResult, domain.SentimentMethod) {
	emotions, scalar := keywordAnalyze(transcript)
	return TierResult{
		Emotions:        emotions,
		Scalar:          scalar,
		DominantEmotion: dominantEmotion(emotions),
	}, domain.MethodKeyword
}

func (c *Cascade) breaker(dep string) *resilience.Breaker {
	if c.breakers == nil {
		// No registry configured (e.g. unit tests exercising tiers in
		// isolation): fall back to a private always-closed breaker.
		return resilience.NewBreaker(dep, resilience.DefaultConfig())
	}
	return c.breakers.Get(dep)
}

func confidenceFor(method domain.SentimentMethod) float64 {
	switch method {
	case domain.MethodRemote:
		return 0.9
	case domain.MethodLocal:
		return 0.7
	default:
		return 0.5
	}
}

// requiresEscalation flags a sentiment reading for human follow-up: a very
// negative score, high anger, a legal threat, or an explicit request for a
// manager.
func requiresEscalation(rec domain.SentimentRecord, transcript string) bool {
	if rec.Score < -0.7 {
		return true
	}
	if rec.Emotions["anger"] > 0.8 {
		return true
	}
	if containsLegalThreat(transcript) {
		return true
	}
	if containsManagerRequest(transcript) {
		return true
	}
	return false
}
