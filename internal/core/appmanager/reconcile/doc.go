// Package reconcile assigns component IDs in a freshly rendered
// AppConfiguration: components whose ID is sourced from an instance property
// ("replaceable" components) are matched against the component registry and
// the old instance's properties before a fresh ID is allocated, so that
// stable IDs survive repeated updates. This is part of the Functional Core -
// rendering and registry data are supplied by the caller; this package only
// computes which ID each slot should end up with.
package reconcile
