// Package metrics defines and registers all custom Prometheus metrics for the
// yamdb API. It is the single source of truth for metric names, labels, and
// help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation (promauto) and exposed on /metrics by the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "yamdb"

// Result label values shared by the counters below.
const (
	ResultOK        = "ok"
	ResultRejected  = "rejected"
	ResultThrottled = "throttled"
	ResultError     = "error"
)

// ── Auth metrics ──────────────────────────────────────────────────────────────

// SignupsTotal counts signup requests.
// Label:
//   - result: "ok", "rejected" (validation/collision) or "error" (delivery/storage)
var SignupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signups_total",
		Help:      "Total number of signup requests, by result.",
	},
	[]string{"result"},
)

// TokenExchangesTotal counts confirmation-code exchanges.
// Label:
//   - result: "ok", "rejected" (bad code/unknown user), "throttled" or "error"
var TokenExchangesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_exchanges_total",
		Help:      "Total number of confirmation code exchanges, by result.",
	},
	[]string{"result"},
)

// AuthzDenialsTotal counts requests refused by the access policy.
// Label:
//   - status: "401" for anonymous callers, "403" otherwise
var AuthzDenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authz_denials_total",
		Help:      "Total number of requests denied by the access policy.",
	},
	[]string{"status"},
)

// MailDeliveriesTotal counts confirmation mail delivery attempts.
// Labels:
//   - backend: "log", "smtp" or "amqp"
//   - result: "ok" or "error"
var MailDeliveriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mail_deliveries_total",
		Help:      "Total number of mail delivery attempts, by backend and result.",
	},
	[]string{"backend", "result"},
)

// ── Review metrics ────────────────────────────────────────────────────────────

// ReviewsCreatedTotal counts review create attempts.
// Label:
//   - result: "ok", "duplicate" or "error"
var ReviewsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reviews_created_total",
		Help:      "Total number of review create attempts, by result.",
	},
	[]string{"result"},
)
