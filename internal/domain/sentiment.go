package domain

import "time"

// SentimentMethod is the cascade tier that produced a SentimentRecord.
type SentimentMethod string

const (
	MethodRemote  SentimentMethod = "remote"
	MethodLocal   SentimentMethod = "local"
	MethodKeyword SentimentMethod = "keyword"
)

// SentimentRecord is produced by the SentimentCascade. Score is in
// [-1.0, 1.0]; Emotions maps a label to intensity in [0, 1].
type SentimentRecord struct {
	ID                string
	LeadID            string
	CallID            string
	Score             float64
	Emotions          map[string]float64
	DominantEmotion   string
	Confidence        float64
	Method            SentimentMethod
	RequiresEscalation bool
	AnalyzedAt        time.Time
}

// ProfileType is the psychological bucket assigned by the ProfileStore's
// deterministic rubric.
type ProfileType string

const (
	ProfileVelocity ProfileType = "velocity"
	ProfileAnalyst  ProfileType = "analyst"
	ProfileSocial   ProfileType = "social"
	ProfileSecurity ProfileType = "security"
)

// PsychProfile is one-per-Lead.
type PsychProfile struct {
	LeadID            string
	ProfileType       ProfileType
	DecisionSpeed     int // 1..10
	RiskTolerance     int // 1..10
	PriceSensitivity  int // 1..10
	CommunicationPref string
	Vector            []float32 // optional similarity vector
	UpdatedAt         time.Time
}
