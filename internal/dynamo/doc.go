// Package dynamo provides the primitives shared by the trapped-ion
// simulation packages.
//
// The package defines the run configuration and bookkeeping types:
//
//   - [Params]: timestep, duration, buffering and force-term switches
//   - [Status]: the run-state machine (Idle, Running, Finished, ...)
//   - [ParallelFor]: fork-join helper used by the force and update phases
//
// # Example
//
//	p := dynamo.DefaultParams()
//	p.Coulomb = false
//	if err := p.Validate(); err != nil {
//	    return err
//	}
//
// # Thread Safety
//
// Params is a plain value. The engine hands ions a pointer into its own
// copy and rejects mutation while a run is in progress, so readers never
// observe a partially replaced configuration.
package dynamo
