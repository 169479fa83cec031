// Package observability exposes the tracker's Prometheus counters. The CLI is
// short-lived, so instead of serving /metrics it can dump the registry to a
// node-exporter textfile on exit.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every tracker collector.
var Registry = prometheus.NewRegistry()

var (
	storeLoads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "injtrack",
		Subsystem: "store",
		Name:      "loads_total",
		Help:      "Document loads by the slot the document was recovered from.",
	}, []string{"source"})
	storeSaves = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "injtrack",
		Subsystem: "store",
		Name:      "saves_total",
		Help:      "Documents written through the save path.",
	})
	backendFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "injtrack",
		Subsystem: "store",
		Name:      "backend_failures_total",
		Help:      "Backend reads or writes that failed and were degraded.",
	}, []string{"op"})
	importedRows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "injtrack",
		Subsystem: "import",
		Name:      "rows_total",
		Help:      "CSV rows seen during import by outcome.",
	}, []string{"outcome"})
	resolutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "injtrack",
		Subsystem: "ambiguity",
		Name:      "resolutions_total",
		Help:      "Ambiguous site prompts answered, by mode.",
	}, []string{"mode"})
)

func init() {
	Registry.MustRegister(storeLoads, storeSaves, backendFailures, importedRows, resolutions)
}

// Load sources.
const (
	SourcePrimary = "primary"
	SourceBackup  = "backup"
	SourceFresh   = "fresh"
)

// RecordLoad counts a load recovered from source.
func RecordLoad(source string) {
	storeLoads.WithLabelValues(source).Inc()
}

// RecordSave counts one save.
func RecordSave() {
	storeSaves.Inc()
}

// RecordBackendFailure counts a failed backend op ("read" or "write").
func RecordBackendFailure(op string) {
	backendFailures.WithLabelValues(op).Inc()
}

// RecordImport counts merged and skipped CSV rows.
func RecordImport(added, skipped int) {
	if added > 0 {
		importedRows.WithLabelValues("added").Add(float64(added))
	}
	if skipped > 0 {
		importedRows.WithLabelValues("skipped").Add(float64(skipped))
	}
}

// RecordResolution counts one answered ambiguity prompt.
func RecordResolution(mode string) {
	resolutions.WithLabelValues(mode).Inc()
}

// WriteTextfile writes the registry in text exposition format to path.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
