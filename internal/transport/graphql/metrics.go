package graphql

import "github.com/prometheus/client_golang/prometheus"

var (
	opsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "graphql_operations_total", Help: "Count of GraphQL operations"},
		[]string{"type", "result"},
	)
	opCost = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "graphql_query_cost",
		Help:    "Estimated cost of GraphQL operations",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})
)

func init() { prometheus.MustRegister(opsTotal, opCost) }
