package rag

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "redpanda",
		Subsystem: "rag",
		Name:      "queries_total",
		Help:      "Questions accepted by the query pipeline.",
	})

	emptyRetrievals = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "redpanda",
		Subsystem: "rag",
		Name:      "empty_retrievals_total",
		Help:      "Queries for which retrieval produced no candidates.",
	})

	rerankReorders = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "redpanda",
		Subsystem: "rag",
		Name:      "rerank_reorders_total",
		Help:      "Queries where reranking changed the retrieval order.",
	})
)
