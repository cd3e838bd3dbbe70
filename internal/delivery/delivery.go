// Package delivery defines the contract every transport server fulfils.
package delivery

import "context"

// Delivery is a long-running transport (HTTP server, worker) started by main
// and stopped through an fx lifecycle hook.
type Delivery interface {
	Serve(ctx context.Context) error
}
