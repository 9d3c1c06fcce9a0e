// Package timeouts defines shared timeout constants used across forge
// processes. Centralizing these values keeps the durations discoverable.
package timeouts

import "time"

// Shutdown limits how long a server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// Maintenance caps a single maintenance CLI run.
const Maintenance = 10 * time.Minute

// Emit caps post-commit event emission to external fan-out.
const Emit = 2 * time.Second

// HealthWait caps how long callers wait for a server to report SERVING.
const HealthWait = 5 * time.Second
