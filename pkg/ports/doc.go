/*
Package ports defines the driven ports (interfaces) for the stepview player.

These interfaces decouple playback and presentation from external
implementations, allowing the same workbench to run against a live execution
backend, a replay of recorded traces, or a test double.

# Key Interfaces

  - ExecutionGateway: Submits source code and receives a full trace.
  - TraceStore: Persists recorded traces (memory, file or redis).
  - DistributedLocker: Provides distributed locking for concurrent session access.
*/
package ports
