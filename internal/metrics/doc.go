// Package metrics records pipeline run metrics.
//
// Components receive a Recorder. NoopRecorder is the default and does nothing;
// PrometheusRecorder registers collectors on a caller-supplied registry, which
// the daemon serves over HTTP and a one-shot run can write to a node exporter
// textfile with WriteTextfile.
package metrics
