package indexer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CheckpointMetrics instruments each phase boundary of the pipeline.
type CheckpointMetrics struct {
	TotalCheckpointRequested  prometheus.Counter
	TotalCheckpointReceived   prometheus.Counter
	TotalCheckpointCommitted  prometheus.Counter
	TotalTransactionCommitted prometheus.Counter
	TotalEpochCommitted       prometheus.Counter

	FullnodeCheckpointWaitAndDownloadLatency prometheus.Histogram
	FullnodeTransactionDownloadLatency       prometheus.Histogram
	FullnodeObjectDownloadLatency            prometheus.Histogram
	CheckpointIndexLatency                   prometheus.Histogram
	CheckpointDBCommitLatency                prometheus.Histogram
	EpochDBCommitLatency                     prometheus.Histogram
	SubscriptionProcessLatency               prometheus.Histogram

	TransactionPerCheckpoint prometheus.Histogram
}

var latencyBuckets = prometheus.ExponentialBuckets(0.001, 2, 16)

// NewCheckpointMetrics registers the pipeline's metrics with the
// given registry.
func NewCheckpointMetrics(registry *prometheus.Registry) *CheckpointMetrics {
	var factory = promauto.With(registry)
	var counter = func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	}
	var latency = func(name, help string) prometheus.Histogram {
		return factory.NewHistogram(prometheus.HistogramOpts{Name: name, Help: help, Buckets: latencyBuckets})
	}

	return &CheckpointMetrics{
		TotalCheckpointRequested: counter(
			"indexer_total_checkpoint_requested",
			"counter of checkpoint downloads requested from the full node"),
		TotalCheckpointReceived: counter(
			"indexer_total_checkpoint_received",
			"counter of checkpoint bundles fully downloaded and assembled"),
		TotalCheckpointCommitted: counter(
			"indexer_total_checkpoint_committed",
			"counter of checkpoints committed to the store"),
		TotalTransactionCommitted: counter(
			"indexer_total_transaction_committed",
			"counter of transactions committed to the store"),
		TotalEpochCommitted: counter(
			"indexer_total_epoch_committed",
			"counter of epoch boundaries committed to the store"),

		FullnodeCheckpointWaitAndDownloadLatency: latency(
			"indexer_fullnode_checkpoint_wait_and_download_latency_seconds",
			"seconds spent waiting for and downloading one checkpoint envelope"),
		FullnodeTransactionDownloadLatency: latency(
			"indexer_fullnode_transaction_download_latency_seconds",
			"seconds spent downloading one checkpoint's transactions"),
		FullnodeObjectDownloadLatency: latency(
			"indexer_fullnode_object_download_latency_seconds",
			"seconds spent downloading one checkpoint's changed objects"),
		CheckpointIndexLatency: latency(
			"indexer_checkpoint_index_latency_seconds",
			"seconds spent transforming one checkpoint bundle into rows"),
		CheckpointDBCommitLatency: latency(
			"indexer_checkpoint_db_commit_latency_seconds",
			"seconds spent committing one checkpoint to the store"),
		EpochDBCommitLatency: latency(
			"indexer_epoch_db_commit_latency_seconds",
			"seconds spent committing one epoch to the store"),
		SubscriptionProcessLatency: latency(
			"indexer_subscription_process_latency_seconds",
			"seconds spent fanning one checkpoint's events out to subscribers"),

		TransactionPerCheckpoint: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "indexer_transaction_per_checkpoint",
			Help:    "transactions contained in each committed checkpoint",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		}),
	}
}
