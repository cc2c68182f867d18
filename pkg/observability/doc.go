/*
Package observability turns workbench lifecycle hooks into metrics and logs.

Metrics registers prometheus collectors on a caller-supplied registerer and
exposes them as domain.LifecycleHooks; LogHooks does the same for slog. Both
can be merged and passed to stepview.WithLifecycleHooks.
*/
package observability
