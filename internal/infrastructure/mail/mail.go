// Package mail delivers confirmation codes. Three backends exist: log (writes
// the message to the structured log, for development), smtp (direct delivery)
// and amqp (publishes the message to a RabbitMQ queue drained by a separate
// mail worker).
package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/yamdb/yamdb-api/internal/api/metrics"
	"github.com/yamdb/yamdb-api/internal/core/ports"
)

const (
	BackendLog  = "log"
	BackendSMTP = "smtp"
	BackendAMQP = "amqp"
)

const defaultTimeout = 10 * time.Second

// instrumented records every Send outcome in MailDeliveriesTotal and bounds
// it by a timeout.
type instrumented struct {
	next    ports.Mailer
	backend string
	timeout time.Duration
}

// Instrument wraps m so each delivery is bounded by timeout and counted under
// backend.
func Instrument(m ports.Mailer, backend string, timeout time.Duration) ports.Mailer {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &instrumented{next: m, backend: backend, timeout: timeout}
}

func (i *instrumented) Send(ctx context.Context, msg ports.Message) error {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	if err := i.next.Send(ctx, msg); err != nil {
		metrics.MailDeliveriesTotal.WithLabelValues(i.backend, metrics.ResultError).Inc()
		return fmt.Errorf("%s mailer: %w", i.backend, err)
	}
	metrics.MailDeliveriesTotal.WithLabelValues(i.backend, metrics.ResultOK).Inc()
	return nil
}
