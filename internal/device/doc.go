// Package device implements the device state registry for VoxHome IoT Core.
//
// It is the stateful heart of the service: a static Catalog of legal
// (type, location) pairs, a mutex-guarded Store holding the current state
// of each device, a per-type transition table, and an Executor that turns
// inbound commands into validated, invariant-preserving mutations.
//
// # Key Types
//
//   - Type: tagged device class (light, fan, ac, curtain)
//   - State: attribute map for one device (status, brightness, ...)
//   - Catalog: fixed (type, location) -> initial state table
//   - Store: authoritative in-memory state, Apply/Get/Snapshot
//   - Executor: command validation, dispatch and fan-out
//   - StateHistoryRepository: SQLite-backed audit trail of changes
//
// # Mutation discipline
//
// All writes flow through Store.Apply, which runs the caller's mutator and
// then a normalisation pass under the store lock. Normalisation clamps
// numeric attributes to their declared ranges and keeps status and
// magnitude synchronised (brightness or speed hitting zero forces off, a
// magnitude change to a positive value forces on). Because the drift
// simulator and every gateway entry point use the same Apply path, no
// caller can bypass these invariants.
//
// # Usage
//
//	catalog := device.DefaultCatalog()
//	store := device.NewStore(catalog)
//	store.SetLogger(log)
//
//	executor, err := device.NewExecutor(device.ExecutorDeps{
//	    Store:       store,
//	    Broadcaster: hub,
//	})
//	if err != nil {
//	    return err
//	}
//
//	results := executor.ExecuteBatch(ctx, []device.Command{
//	    {Device: "light", Action: "on", Location: "kitchen"},
//	})
//
// # Thread Safety
//
// Catalog is immutable after construction. Store and Executor are safe for
// concurrent use from multiple goroutines.
package device
