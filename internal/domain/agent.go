package domain

import "time"

// AgentKind names the fixed set of agents the runtime hosts.
type AgentKind string

const (
	AgentAcquisition        AgentKind = "acquisition"
	AgentQualification      AgentKind = "qualification"
	AgentSourcing           AgentKind = "sourcing"
	AgentClosing            AgentKind = "closing"
	AgentOperations         AgentKind = "operations"
	AgentFailover           AgentKind = "failover"
	AgentDisputeResolution  AgentKind = "dispute-resolution"
	AgentRetention          AgentKind = "retention"
)

// AgentActivityStatus is the per-entry outcome label.
type AgentActivityStatus string

const (
	ActivitySuccess AgentActivityStatus = "success"
	ActivityWarning AgentActivityStatus = "warning"
	ActivityError   AgentActivityStatus = "error"
	ActivityInfo    AgentActivityStatus = "info"
)

// AgentState is the coarse lifecycle label reported by status().
type AgentState string

const (
	AgentStateActive     AgentState = "active"
	AgentStateStandby    AgentState = "standby"
	AgentStateProcessing AgentState = "processing"
	AgentStateWarning    AgentState = "warning"
	AgentStateError      AgentState = "error"
)

// AgentStatus is the snapshot returned by Agent.Status().
type AgentStatus struct {
	ID              string
	Name            string
	Kind            AgentKind
	State           AgentState
	ActivityLevel   int // 0..100
	CurrentTask     *string
	LastActivityAt  time.Time
	PendingSuggestion *string
}

// ActivityEntry is one append-only feed record.
type ActivityEntry struct {
	ID          string
	AgentID     string
	Timestamp   time.Time
	Type        string
	Status      AgentActivityStatus
	Description string
	Metadata    map[string]any
}
