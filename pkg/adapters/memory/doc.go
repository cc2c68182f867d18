// Package memory provides an in-process trace store, used by tests and by
// services that do not need recordings to survive a restart.
package memory
