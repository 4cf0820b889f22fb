// Command meshbrokerd runs the mesh-generation job broker: the
// single-process core that accepts client job submissions, dispatches them
// to worker processes it spawns on demand, and tracks their progress to
// completion or failure.
package main

import (
	"github.com/plantd/meshbroker/cmd/meshbrokerd/cmd"
)

func main() {
	cmd.Execute()
}
