// Package lifecycle holds shared shutdown constants for fx-managed servers.
package lifecycle

import "time"

// DefaultTimeout bounds graceful shutdown of delivery servers and workers.
const DefaultTimeout = 10 * time.Second
