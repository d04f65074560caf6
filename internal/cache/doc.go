// Package cache provides the namespaced key/value store shared by the warmer
// and the notifier.
//
// Keys are composed as "<namespace>:<identifier>":
//   - database:<language>  localized lookup tables
//   - players:<battleTag>  roster records
//   - map:<category>       map points of interest
//   - events:<eventKey>    last-seen event state (notification baseline)
//
// The warmer and the notifier touch disjoint namespaces, so last-write-wins
// semantics are sufficient; no cross-component transaction is taken.
package cache
