// Package idgen generates JobId values for newly queued jobs.
package idgen

import (
	"github.com/google/uuid"

	"github.com/plantd/meshbroker/internal/proto"
)

// New returns a fresh, random JobId, mirroring the
// boost::uuids::random_generator used by the original broker's job queue.
func New() proto.JobId {
	return uuid.New()
}
