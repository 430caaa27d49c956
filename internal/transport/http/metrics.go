package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	liveFeedsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "live_feeds_active",
		Help: "Number of open live update streams",
	})

	liveFeedEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "live_feed_events_total",
		Help: "Total number of events pushed to live update streams",
	})

	clicksTrackedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "link_clicks_tracked_total",
		Help: "Total number of tracked redirects",
	})

	linksCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "links_created_total",
		Help: "Total number of short links created",
	})
)
