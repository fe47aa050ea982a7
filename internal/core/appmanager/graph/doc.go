// Package graph implements the two depth-first, cycle-safe dependency-graph
// walkers shared by install/update/delete: WalkDesired over a catalog App's
// declared dependencies, and WalkExisting over an installed AppInstance's
// stored dependency edges. This is part of the Functional Core - the walkers
// themselves perform no I/O; every call that could block (App.render,
// instance/app lookups) is supplied by the caller as a callback, so the
// planner (the one imperative-shell package) owns all port traffic while
// this package owns only traversal order and cycle detection.
package graph
