// Package apperrors defines the sentinel errors returned across the
// appmanager core/port boundary. Callers use errors.Is against these
// sentinels rather than inspecting message text.
package apperrors

import "errors"

var (
	// ErrNotCompatible is returned when a Validator reports an app as
	// incompatible with the running system.
	ErrNotCompatible = errors.New("appmanager: app not compatible with this system")

	// ErrNotInstallable is returned when a Validator reports an app as not
	// currently installable, e.g. a prerequisite is missing.
	ErrNotInstallable = errors.New("appmanager: app not installable")

	// ErrPolicyDenied is returned when a requested create/update/delete is
	// blocked by a CreatePolicy/UpdatePolicy/DeletePolicy.
	ErrPolicyDenied = errors.New("appmanager: operation denied by policy")

	// ErrAppNotFound is returned when an AppID has no catalog entry.
	ErrAppNotFound = errors.New("appmanager: app not found in catalog")

	// ErrInstanceNotFound is returned when an InstanceID has no live
	// AppInstance.
	ErrInstanceNotFound = errors.New("appmanager: instance not found")

	// ErrRenderFailed is returned when App.Render itself fails.
	ErrRenderFailed = errors.New("appmanager: render failed")

	// ErrAggregatorFailed is returned when one or more aggregator commits
	// fail; the underlying per-aggregator errors are joined with JoinPipe and
	// wrapped alongside it.
	ErrAggregatorFailed = errors.New("appmanager: aggregator commit failed")

	// ErrInternal marks a failure that indicates a bug in the planner rather
	// than a rejected user request (e.g. a cycle slipping past the walker).
	ErrInternal = errors.New("appmanager: internal error")
)
