package instance

import "github.com/ecobridge/ecobridge-server/pkg/env"

// GetID identifies the running process in logs. The first of
// ECOBRIDGE_INSTANCE_ID, DYNO or HOSTNAME wins; "local" otherwise.
func GetID() string {
	return env.First("local", "ECOBRIDGE_INSTANCE_ID", "DYNO", "HOSTNAME")
}
