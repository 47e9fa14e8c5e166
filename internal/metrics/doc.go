// Package metrics defines the Prometheus collectors for feed runs.
//
// feedrelay is a batch command rather than a server, so collectors are
// exported through the node_exporter textfile format at the end of each run
// instead of an HTTP endpoint.
package metrics
