// Package policy holds the pure predicates that decide whether a create,
// update or delete may proceed for one dependency declaration. This is part
// of the Functional Core - every function here is a pure predicate over its
// arguments, with no I/O and no hidden state. Policies are kept as free
// functions rather than methods on the enum types so that domain.DependencyDeclaration
// stays a plain value (ADR-002, "values as boundaries").
package policy
