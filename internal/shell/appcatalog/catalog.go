// Package appcatalog is the reference AppStore: a YAML-described app
// catalog plus a SQLite-backed instance store.
package appcatalog

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/patrickl3/openems-pf/internal/core/appmanager/domain"
)

// PropertyValueTemplate is one component property's source: either copied
// verbatim from the instance's properties, or a literal catalog value.
type PropertyValueTemplate struct {
	FromProperty string `yaml:"fromProperty,omitempty"`
	Literal      any    `yaml:"literal,omitempty"`
}

// ComponentTemplate describes one component an app contributes.
type ComponentTemplate struct {
	IDProperty string                           `yaml:"idProperty,omitempty"`
	DefaultID  string                           `yaml:"defaultId"`
	FactoryID  string                           `yaml:"factoryId"`
	Alias      string                           `yaml:"alias,omitempty"`
	Properties map[string]PropertyValueTemplate `yaml:"properties,omitempty"`
}

// DependencyConfigTemplate is one alternative offered to satisfy a
// DependencyTemplate.
type DependencyConfigTemplate struct {
	AppID             string                           `yaml:"appId"`
	Alias             string                           `yaml:"alias,omitempty"`
	Properties        map[string]PropertyValueTemplate `yaml:"properties,omitempty"`
	InitialProperties map[string]PropertyValueTemplate `yaml:"initialProperties,omitempty"`
}

// DependencyTemplate describes one dependency slot of an app.
type DependencyTemplate struct {
	Key                    string                     `yaml:"key"`
	AppConfigs             []DependencyConfigTemplate `yaml:"appConfigs"`
	CreatePolicy           string                     `yaml:"createPolicy"`
	UpdatePolicy           string                     `yaml:"updatePolicy"`
	DeletePolicy           string                     `yaml:"deletePolicy"`
	DependencyUpdatePolicy string                     `yaml:"dependencyUpdatePolicy"`
	DependencyDeletePolicy string                     `yaml:"dependencyDeletePolicy"`
}

// PropertyDescriptorTemplate documents one property an app accepts.
type PropertyDescriptorTemplate struct {
	Name          string `yaml:"name"`
	IsPersistable bool   `yaml:"isPersistable"`
}

// InterfaceTemplate is one static network interface contribution.
type InterfaceTemplate struct {
	Name string `yaml:"name"`
	IP   string `yaml:"ip"`
}

// AppDefinition is one catalog entry as loaded from YAML.
type AppDefinition struct {
	AppID                   string                       `yaml:"appId"`
	Names                   map[string]string            `yaml:"names"`
	Components              []ComponentTemplate          `yaml:"components"`
	SchedulerExecutionOrder []string                     `yaml:"schedulerExecutionOrder,omitempty"`
	Ips                     []InterfaceTemplate          `yaml:"ips,omitempty"`
	Dependencies            []DependencyTemplate         `yaml:"dependencies,omitempty"`
	PropertyDescriptors     []PropertyDescriptorTemplate `yaml:"propertyDescriptors,omitempty"`
	ValidatorSchema         string                       `yaml:"validatorSchema,omitempty"`
}

type catalogDocument struct {
	Apps []AppDefinition `yaml:"apps"`
}

// LoadCatalog decodes a catalog document from r.
func LoadCatalog(r io.Reader) ([]AppDefinition, error) {
	var doc catalogDocument
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("appcatalog: decoding catalog: %w", err)
	}
	for _, def := range doc.Apps {
		if def.AppID == "" {
			return nil, fmt.Errorf("appcatalog: catalog entry missing appId")
		}
	}
	return doc.Apps, nil
}

// NewApp wraps one catalog definition as a domain.App.
func NewApp(def AppDefinition) domain.App {
	return &templateApp{def: def}
}
