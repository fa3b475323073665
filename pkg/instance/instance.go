package instance

import "github.com/angelmondragon/relaymart-backend/pkg/env"

// ID returns the process identifier attached to startup logs. DYNO is set on
// the hosted dynos, WORKER_ID on the publisher deployments.
func ID(fallback string) string {
	return env.Get("DYNO", env.Get("WORKER_ID", fallback))
}
