package provisioning

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/nexfreight/broker/internal/domain"
)

// LogActivator is a ComponentActivator that records the lifecycle
// transition via structured logging. Real deployments typically swap this
// for one that resizes a worker pool or toggles a feature flag per
// component; nothing in the spec mandates a specific side effect beyond
// "bring the component to state X", so a logging activator is a complete,
// observable default.
type LogActivator struct {
	log logrus.FieldLogger
}

// NewLogActivator constructs a LogActivator.
func NewLogActivator(log logrus.FieldLogger) *LogActivator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LogActivator{log: log}
}

// Apply is idempotent: it only logs, so calling it twice for the same
// target state has no additional effect.
func (a *LogActivator) Apply(ctx context.Context, component string, target domain.ComponentLifecycleState) error {
	a.log.WithFields(logrus.Fields{"component": component, "target_state": string(target)}).Info("component lifecycle transition")
	return nil
}
