package metrics

import "github.com/docker/go-metrics"

const (
	// NamespacePrefix is the namespace of prometheus metrics
	NamespacePrefix = "cactus"
)

var (
	// DiskNamespace is the prometheus namespace of cactus disk operations
	DiskNamespace = metrics.NewNamespace(NamespacePrefix, "disk", nil)

	// Transactions counts committed backend transactions per operation
	Transactions = DiskNamespace.NewLabeledCounter("transactions", "The number of committed backend transactions", "operation")

	// Conflicts counts transactions retried after an optimistic conflict
	Conflicts = DiskNamespace.NewLabeledCounter("conflicts", "The number of transactions retried after a conflict", "operation")

	// IDBlocks counts blocks of unique ids reserved from a bucket
	IDBlocks = DiskNamespace.NewCounter("id_blocks", "The number of unique id blocks acquired")

	// Registry counts lookups of the in memory registries
	Registry = DiskNamespace.NewLabeledCounter("registry", "The number of registry lookups", "type", "result")
)

func init() {
	metrics.Register(DiskNamespace)
}
