// Package resolver computes the values of configuration nodes.
//
// A Resolver is attached to a single configuration node and produces the
// node's value when asked. It comes in two variants:
//
//   - A leaf resolver evaluates a function. The function may read other
//     nodes' values through the resolution context, which registers a
//     dependency on those nodes.
//
//   - A branch-set resolver holds an ordered list of conditional branches.
//     During resolution, the first branch whose condition holds is chosen
//     and its inner resolver produces the value. A branch marked as the
//     default is chosen when no condition matches.
//
// Dependencies
//
// Dependencies on other nodes are discovered in two ways:
//
//   - During the one-time structural pass (Process), before any value has
//     been resolved. These are schema dependencies and persist for the
//     resolver's lifetime.
//
//   - During a live resolution attempt, when the evaluation function reads
//     another node through Context.Get. These are resolution dependencies
//     and are cleared on every reset.
//
// A schema dependency is never downgraded when the same path is later read
// during resolution.
//
// Retries
//
// Reading an unresolved node fails with a retryable error. A driver is
// expected to re-attempt resolution of the failed resolver after the
// dependency has settled, repeating until the graph reaches a fixpoint.
// See the scheduler package for a driver that implements this loop.
package resolver
