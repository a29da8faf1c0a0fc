package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's Prometheus collectors. Swallowed cleanup
// failures (release, finalize) are observable only here and in logs.
type Metrics struct {
	ClaimsGranted          prometheus.Counter
	ClaimConflicts         prometheus.Counter
	VerifyRejections       prometheus.Counter
	LeasesSwept            prometheus.Counter
	RedemptionsCompleted   prometheus.Counter
	LedgerDispatchFailures prometheus.Counter
	FinalizeFailures       prometheus.Counter
	ReleaseFailures        prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ClaimsGranted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reservation_claims_granted_total",
			Help: "Lease claims granted, including re-entrant claims.",
		}),
		ClaimConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reservation_claim_conflicts_total",
			Help: "Lease claims rejected because another agent holds the slot.",
		}),
		VerifyRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reservation_verify_rejections_total",
			Help: "Verify calls that failed closed.",
		}),
		LeasesSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reservation_leases_swept_total",
			Help: "Expired leases cleared by the background sweep.",
		}),
		RedemptionsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "redemptions_completed_total",
			Help: "Redemptions accepted by the ledger.",
		}),
		LedgerDispatchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_dispatch_failures_total",
			Help: "Ledger webhook dispatches that failed.",
		}),
		FinalizeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reservation_finalize_failures_total",
			Help: "Finalize attempts that errored or matched no lease; drift candidates.",
		}),
		ReleaseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reservation_release_failures_total",
			Help: "Best-effort release calls that errored.",
		}),
	}

	reg.MustRegister(
		m.ClaimsGranted,
		m.ClaimConflicts,
		m.VerifyRejections,
		m.LeasesSwept,
		m.RedemptionsCompleted,
		m.LedgerDispatchFailures,
		m.FinalizeFailures,
		m.ReleaseFailures,
	)
	return m
}
