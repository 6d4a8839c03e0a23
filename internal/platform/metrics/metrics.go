package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the ledger.
type Metrics struct {
	AssetsTokenized          prometheus.Counter
	TokensMinted             prometheus.Counter
	TokensBurned             prometheus.Counter
	Transfers                prometheus.Counter
	TransfersBlocked         prometheus.Counter
	DividendsDistributed     prometheus.Counter
	DividendsClaimed         prometheus.Counter
	VotesCast                prometheus.Counter
	DetokenizationsExecuted  prometheus.Counter
	RequestDuration          *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		AssetsTokenized: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assetup_assets_tokenized_total",
			Help: "Total number of assets tokenized",
		}),
		TokensMinted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assetup_tokens_minted_total",
			Help: "Total number of mint operations",
		}),
		TokensBurned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assetup_tokens_burned_total",
			Help: "Total number of burn operations",
		}),
		Transfers: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assetup_transfers_total",
			Help: "Total number of committed token transfers",
		}),
		TransfersBlocked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assetup_transfers_blocked_total",
			Help: "Total number of transfers blocked by restrictions",
		}),
		DividendsDistributed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assetup_dividends_distributed_total",
			Help: "Total number of dividend distributions",
		}),
		DividendsClaimed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assetup_dividends_claimed_total",
			Help: "Total number of dividend claims",
		}),
		VotesCast: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assetup_votes_cast_total",
			Help: "Total number of governance votes cast",
		}),
		DetokenizationsExecuted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "assetup_detokenizations_executed_total",
			Help: "Total number of executed detokenizations",
		}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assetup_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}
