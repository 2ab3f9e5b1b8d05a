package revenue

import (
	"context"
	"sync"
	"time"

	"github.com/nexfreight/broker/internal/domain"
)

// MemoryPaymentSource is an in-process PaymentSource. Production
// deployments typically back PaymentSource with the billing provider's
// completed-charge feed (Stripe webhooks, an invoicing table); no such
// integration exists in this corpus. Payments enter only through Record,
// and no code in this module calls Record.
type MemoryPaymentSource struct {
	mu       sync.Mutex
	payments []domain.Payment
}

// NewMemoryPaymentSource constructs an empty MemoryPaymentSource.
func NewMemoryPaymentSource() *MemoryPaymentSource {
	return &MemoryPaymentSource{}
}

// Record appends a completed payment.
func (m *MemoryPaymentSource) Record(p domain.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments = append(m.payments, p)
}

func (m *MemoryPaymentSource) CompletedPaymentsSince(ctx context.Context, since time.Time) ([]domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Payment, 0, len(m.payments))
	for _, p := range m.payments {
		if !p.CompletedAt.Before(since) {
			out = append(out, p)
		}
	}
	return out, nil
}
