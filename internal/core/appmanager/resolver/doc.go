// Package resolver chooses, for one declared dependency during a walk,
// which concrete child satisfies it: reuse an existing instance, create a
// fresh one, or skip the edge entirely. This is part of the Functional
// Core - every function here operates only on the live instance snapshot
// and declaration values passed in; catalog/app-store lookups and instance
// ID allocation are left to the planner.
package resolver
