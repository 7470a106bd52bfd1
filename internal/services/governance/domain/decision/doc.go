// Package decision models governance decisions: the draft to terminal status
// machine, vote admission against a frozen equity snapshot, and the pure
// resolver that tallies votes into a result.
//
// Nothing here performs I/O. Callers serialize access per decision and persist
// the values these functions return.
package decision
