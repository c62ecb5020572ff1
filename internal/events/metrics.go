package events

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	published = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "groupledger",
			Name:      "events_published_total",
			Help:      "Domain events delivered to the publisher",
		},
		[]string{"type"},
	)
	publishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "groupledger",
			Name:      "events_publish_failures_total",
			Help:      "Domain events the publisher rejected",
		},
		[]string{"type"},
	)
)
