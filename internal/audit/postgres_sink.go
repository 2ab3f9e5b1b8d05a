package audit

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx"
)

// PostgresSink persists audit entries to the audit_log table. Grounded on
// the teacher's postgresAuditSink: a thin INSERT, no updates or deletes,
// matching the table's storage-layer immutability.
type PostgresSink struct {
	db *sqlx.DB
}

// NewPostgresSink constructs a PostgresSink. db may be nil, in which case
// Write is a no-op (used in memory-store deployments).
func NewPostgresSink(db *sqlx.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) Write(ctx context.Context, entry Entry) error {
	if s == nil || s.db == nil {
		return nil
	}
	var featureImportance []byte
	if entry.FeatureImportanceSummary != nil {
		var err error
		featureImportance, err = json.Marshal(entry.FeatureImportanceSummary)
		if err != nil {
			return err
		}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log
			(id, agent_kind, resource_id, action, input_digest, output_digest, feature_importance, rationale, human_override, overridden_by, created_at, retention_until)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`, entry.ID, entry.AgentKind, entry.ResourceID, entry.Action, entry.InputDigest, entry.OutputDigest,
		string(featureImportance), entry.Rationale, entry.HumanOverride, entry.OverriddenBy, entry.Timestamp, entry.RetentionUntil)
	return err
}
