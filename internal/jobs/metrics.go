package jobs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobSubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyreel_job_submissions_total",
			Help: "Total number of async jobs submitted to providers.",
		},
		[]string{"provider", "status"},
	)
	jobPollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyreel_job_polls_total",
			Help: "Total number of status polls by provider and observed state.",
		},
		[]string{"provider", "state"},
	)
	jobOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyreel_job_outcomes_total",
			Help: "Terminal outcomes observed while waiting for async jobs.",
		},
		[]string{"provider", "outcome"},
	)
)
