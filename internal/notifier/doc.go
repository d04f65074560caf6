// Package notifier polls the live event feed on a fixed interval, detects
// state transitions against cached baselines, and fans eligible transitions
// out to every subscribed guild.
//
// # Baselines
//
// The last-seen state per event key lives in the cache store under
// events:<key>. The baseline is updated as soon as a changed timestamp is
// observed, before any delivery is attempted, so a restart mid-tick never
// re-fires an already-detected transition.
//
// # Failure containment
//
// Failures are contained at the smallest independent unit: a feed outage
// skips the tick, a malformed baseline fails only that event, a delivery
// error fails only that guild. Nothing in this package escalates to the
// process.
package notifier
