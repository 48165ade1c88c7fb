// Package prometheus provides Prometheus collectors for backupcodes metrics.
//
// [NewPrometheusExporter] accepts a [backupcodes.Manager] and exposes an [http.Handler]
// that renders all backupcodes counters and histograms in Prometheus text exposition format.
// Counter names are prefixed backupcodes_*_total; the single histogram is
// backupcodes_verify_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate manager state.
package prometheus
