/*
Package session manages concurrently used workbenches addressed by ID.

Mutations of a session are serialized with reference-counted local locks and,
when several service replicas share a store, an optional distributed lock.
Traces received by a session are persisted so the session can be restored
after a restart.
*/
package session
