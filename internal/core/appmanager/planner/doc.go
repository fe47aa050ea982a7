// Package planner is the imperative shell of the appmanager core: the one
// package that calls out to ports (AppStore, Validator, ComponentRegistry,
// Translator, Aggregator). It orchestrates install/update/delete on top of
// the pure graph, resolver, policy and reconcile packages, builds the
// per-request Transaction scratch state, and commits aggregator effects or
// discards the transaction on failure.
package planner
