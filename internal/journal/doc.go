// Package journal provides SQLite-backed storage for composition event
// logs.
//
// The journal is an append-only record of what the harness observed:
//   - Applications: behavior set applications to targets, including which
//     members were installed and which the target already owned
//   - Calls: method invocations through object dispatch
//   - Executions: probe observations of operation bodies actually running
//
// The call/execution split is what makes decoration policies auditable:
// a suppressed call appears in calls with no matching executions row, so
// "applied twice, ran once" is a query rather than a debugging session.
// The same goes for first-definition-wins member installs, which are
// silent at the API surface but listed per application in the skipped
// column.
//
// # Ordering
//
// All ordering uses seq INTEGER from a logical Clock, never wall time.
// Every query orders by seq ASC, id ASC COLLATE BINARY, so reading a
// journal twice yields identical results.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: executions cannot precede their call
package journal
