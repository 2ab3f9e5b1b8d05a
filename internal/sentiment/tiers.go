package sentiment

import "context"

// TierResult is what a remote or local tier call returns on success: a
// top-K emotion map plus the scalar sentiment the provider computed (or, for
// providers that only return emotions, left zero so the cascade derives it).
type TierResult struct {
	Emotions        map[string]float64
	Scalar          float64
	DominantEmotion string
}

// RemoteProsodyClient wraps the vendor prosody/voice-sentiment API (Tier 1).
type RemoteProsodyClient interface {
	Analyze(ctx context.Context, transcript string) (TierResult, error)
}

// LocalLLMClient wraps an in-process or co-located LLM inference call
// returning a structured emotion vector (Tier 2).
type LocalLLMClient interface {
	Analyze(ctx context.Context, transcript string) (TierResult, error)
}

// deriveScalar computes positive (joy + surprise) minus negative (anger +
// fear + sadness) intensity, clamped to [-1, 1], when a tier supplies only
// an emotion map and no scalar of its own.
func deriveScalar(emotions map[string]float64) float64 {
	positive := emotions["joy"] + emotions["surprise"]
	negative := emotions["anger"] + emotions["fear"] + emotions["sadness"]
	return clamp(positive-negative, -1, 1)
}
