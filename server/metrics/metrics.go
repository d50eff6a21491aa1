package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters exposed on /metrics. Registered on the default registry.
var (
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ctf_submissions_total",
		Help: "Flag submissions by outcome.",
	}, []string{"outcome"})

	Solves = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ctf_solves_total",
		Help: "Accepted first-time solves.",
	})

	HintUnlocks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ctf_hint_unlocks_total",
		Help: "Hints unlocked by players.",
	})

	Registrations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ctf_registrations_total",
		Help: "Accounts registered.",
	})
)

// Submission outcome labels.
const (
	OutcomeCorrect   = "correct"
	OutcomeIncorrect = "incorrect"
	OutcomeRejected  = "rejected"
)
