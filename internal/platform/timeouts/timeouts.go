// Package timeouts defines shared timeout constants used across services.
package timeouts

import "time"

// ReadHeader limits how long the metrics HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long servers wait for in-flight work during graceful
// shutdown.
const Shutdown = 5 * time.Second

// Sweep caps one pass of the decision expiry sweep.
const Sweep = 20 * time.Second

// HealthCheck caps a command-line health check.
const HealthCheck = 3 * time.Second
