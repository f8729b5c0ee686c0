// Package scheduler drives resolution of a configuration graph to a
// fixpoint.
//
// Passes
//
// The scheduler repeatedly attempts resolution of every node that has
// not fully resolved yet:
//
//   1. All pending nodes are resolved concurrently, bounded by the
//      configured concurrency.
//
//   2. Nodes that failed with the retryable not-resolved error are
//      re-queued for the next pass; their dependency simply had not
//      produced a value yet.
//
//   3. Nodes that failed with any other error are terminal and are
//      reported with their full path and the underlying cause.
//
// The loop ends when every node has settled, or when a full pass makes
// no progress. In the latter case the remaining nodes are reported in a
// ConvergenceError together with any dependency cycles found among
// them; unresolved nodes are never silently dropped.
//
// Ordering
//
// A dependent never consumes a dependency's value before the dependency
// has resolved: reading an unresolved node fails retryably, and the
// failed node is simply attempted again in a later pass. No explicit
// topological order is computed up front.
package scheduler
