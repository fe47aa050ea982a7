package domain

import (
	"context"

	"github.com/google/uuid"
)

// Dependency is one outgoing edge of an AppInstance's dependency graph: the
// key under which the parent's declaration addressed it, and the instance it
// resolved to.
type Dependency struct {
	Key        string
	InstanceID uuid.UUID
}

// AppInstance is a specific installation of an App. Values are immutable;
// any edit produces a replacement AppInstance with the same InstanceID.
// Equality is defined by InstanceID alone, per the spec's data model.
type AppInstance struct {
	InstanceID   uuid.UUID
	AppID        string
	Alias        string
	Properties   Properties
	Dependencies []Dependency
}

// Equal reports whether two instances have the same identity. This is the
// equality notion used throughout the graph walker and transaction sets -
// it intentionally ignores Alias/Properties/Dependencies.
func (a AppInstance) Equal(other AppInstance) bool {
	return a.InstanceID == other.InstanceID
}

// DependencyByKey returns the edge with the given key, if any.
func (a AppInstance) DependencyByKey(key string) (Dependency, bool) {
	for _, d := range a.Dependencies {
		if d.Key == key {
			return d, true
		}
	}
	return Dependency{}, false
}

// WithDependencies returns a copy of a with its dependency list replaced.
func (a AppInstance) WithDependencies(deps []Dependency) AppInstance {
	next := a
	next.Dependencies = append([]Dependency{}, deps...)
	return next
}

// WithProperties returns a copy of a with its properties replaced.
func (a AppInstance) WithProperties(props Properties) AppInstance {
	next := a
	next.Properties = props
	return next
}

// WithAlias returns a copy of a with its alias replaced.
func (a AppInstance) WithAlias(alias string) AppInstance {
	next := a
	next.Alias = alias
	return next
}

// AppDependencyConfig is one alternative offered for satisfying a
// DependencyDeclaration: either a bare AppID (any instance of that app may
// satisfy it) or a SpecificInstanceID (exactly one instance must).
type AppDependencyConfig struct {
	AppID             string
	SpecificInstanceID *uuid.UUID
	Alias              *string
	Properties         Properties
	InitialProperties  Properties
}

// IsSpecific reports whether this alternative targets one fixed instance.
func (c AppDependencyConfig) IsSpecific() bool {
	return c.SpecificInstanceID != nil
}

// DependencyDeclaration is one dependency slot on a rendered AppConfiguration.
type DependencyDeclaration struct {
	Key                     string
	AppConfigs              []AppDependencyConfig
	CreatePolicy            CreatePolicy
	UpdatePolicy            UpdatePolicy
	DeletePolicy            DeletePolicy
	DependencyUpdatePolicy  DependencyUpdatePolicy
	DependencyDeletePolicy  DependencyDeletePolicy
}

// Component is one entry in a rendered AppConfiguration's component list.
type Component struct {
	ID         string
	FactoryID  string
	Alias      string
	Properties Properties
}

// InterfaceConfiguration is one static network interface contribution of a
// rendered AppConfiguration.
type InterfaceConfiguration struct {
	Name string
	IP   string
}

// AppConfiguration is the pure output of App.Render: the set of component,
// scheduler and network-interface contributions of one AppInstance, plus the
// dependency declarations it carries forward for this render.
type AppConfiguration struct {
	Components              []Component
	SchedulerExecutionOrder []string
	Ips                     []InterfaceConfiguration
	Dependencies            []DependencyDeclaration
}

// DependencyByKey returns the declaration with the given key, if any.
func (c AppConfiguration) DependencyByKey(key string) (DependencyDeclaration, bool) {
	for _, d := range c.Dependencies {
		if d.Key == key {
			return d, true
		}
	}
	return DependencyDeclaration{}, false
}

// PropertyDescriptor documents one property an App accepts.
type PropertyDescriptor struct {
	Name          string
	IsPersistable bool
}

// ValidatorConfig is an opaque bundle of compatibility/installability
// requirements interpreted by the Validator port; the core never inspects it.
type ValidatorConfig struct {
	AppID string
	Raw   []byte
}

// App is the catalog entry for one installable application. Concrete catalog
// apps are supplied by the AppStore port and must not be special-cased here.
type App interface {
	AppID() string
	Name(language Language) string
	PropertyDescriptors() []PropertyDescriptor
	ValidatorConfig() ValidatorConfig
	Render(ctx context.Context, target ConfigurationTarget, alias string, properties Properties, language Language) (AppConfiguration, error)
}
