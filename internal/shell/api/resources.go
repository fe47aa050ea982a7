// Package api provides HTTP handlers for the appmanager demo service.
package api

import (
	"encoding/json"

	"github.com/manyminds/api2go/jsonapi"

	"github.com/patrickl3/openems-pf/internal/core/appmanager/domain"
)

// AppInstanceResource wraps domain.AppInstance to implement the JSON:API
// marshaling interfaces, following the same wrap-the-domain-type convention
// as this codebase's JSON:API resources.
type AppInstanceResource struct {
	InstanceID   string               `json:"-"`
	AppID        string               `json:"appId"`
	Alias        string               `json:"alias"`
	Properties   map[string]any       `json:"properties"`
	Dependencies []DependencyResource `json:"dependencies,omitempty"`
}

// DependencyResource is one outgoing edge in an AppInstanceResource.
type DependencyResource struct {
	Key        string `json:"key"`
	InstanceID string `json:"instanceId"`
}

func (r AppInstanceResource) GetID() string {
	return r.InstanceID
}

func (r *AppInstanceResource) SetID(id string) error {
	r.InstanceID = id
	return nil
}

func (r AppInstanceResource) GetName() string {
	return "app-instances"
}

func (r AppInstanceResource) GetReferences() []jsonapi.Reference {
	return nil
}

func (r AppInstanceResource) GetReferencedIDs() []jsonapi.ReferenceID {
	return nil
}

func (r AppInstanceResource) GetReferencedStructs() []jsonapi.MarshalIdentifier {
	return nil
}

// FromDomain converts a domain.AppInstance into its JSON:API representation.
func FromDomain(instance domain.AppInstance) AppInstanceResource {
	props := map[string]any{}
	for _, key := range instance.Properties.Keys() {
		raw, _ := instance.Properties.Get(key)
		var v any
		_ = json.Unmarshal(raw, &v)
		props[key] = v
	}
	deps := make([]DependencyResource, 0, len(instance.Dependencies))
	for _, dep := range instance.Dependencies {
		deps = append(deps, DependencyResource{Key: dep.Key, InstanceID: dep.InstanceID.String()})
	}
	return AppInstanceResource{
		InstanceID:   instance.InstanceID.String(),
		AppID:        instance.AppID,
		Alias:        instance.Alias,
		Properties:   props,
		Dependencies: deps,
	}
}
