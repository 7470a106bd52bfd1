// Package equity implements the company equity ledger.
//
// Equity is a percentage-denominated governance stake, not legal equity. A
// company holds a total issued amount; members hold slices of it and the
// unallocated remainder is the treasury, which is always derived and never
// stored.
//
// # Distributions
//
// CalculateEquityDistribution reports what the ledger currently holds.
// CalculateTargetDistribution reports what the equity policy says it should
// hold: the admin at its floor and the member pool split equally.
//
// # Dilution
//
// Two formulas exist and are kept apart on purpose:
//   - equal re-split on join (CalculateDilutionOnJoin, CalculateEquityOnNewMember):
//     every non-admin converges to pool/(n+1)
//   - proportional scaling on issuance (CalculateProportionalDilution):
//     every member is multiplied by oldTotal/newTotal
//
// # Ledger
//
// Ledger is the only mutation path. Its operations are pure: they return an
// outcome.Outcome[Change] and never modify the receiver. Callers persist the
// Change atomically and serialize operations per company.
package equity
