/*
Package playback implements the cursor state machine that turns a static
execution trace into an interactive, auto-playing visualization.

States are Idle (no trace), Paused(cursor) and Playing(cursor). Loading a trace
forces Paused(0); every manual navigation lands in Paused; autoplay advances the
cursor one step per tick and stops by itself on the last step.

Autoplay is driven by a single scheduled task obtained from a Scheduler. The task
handle is stopped on every transition out of Playing, and a generation counter
discards ticks that were already in flight when the transition happened.
*/
package playback
