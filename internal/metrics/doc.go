// Package metrics counts security events. Counter has three implementations chosen
// at startup: Prometheus (served on /metrics), OTel (reported through an OpenTelemetry
// meter) and Nop.
package metrics
