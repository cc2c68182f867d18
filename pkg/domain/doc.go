/*
Package domain contains the core data model of the stepview player.

It describes the execution traces produced by an external execution backend and
the playback state derived from them. This package is kept pure and free of
external dependencies like I/O or persistence.

# Key Entities

  - ExecutionState: the full trace returned for one execution request.
  - ExecutionStep: one snapshot of program state (stack, heap, output).
  - StackFrame: one function activation with its locals and globals.
  - Snapshot: a read-only copy of the playback cursor and mode.

# Stack Ordering

ExecutionStep.Stack is ordered innermost first: Stack[0] is the frame that is
currently executing and later entries are its callers.
*/
package domain
