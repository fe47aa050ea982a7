// Package domain contains the core value types for the app dependency model.
// This is part of the Functional Core - all types are immutable values and all
// functions are pure, with no I/O.
package domain
