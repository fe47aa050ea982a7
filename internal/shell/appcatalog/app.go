package appcatalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/patrickl3/openems-pf/internal/core/appmanager/domain"
)

// templateApp renders an AppDefinition loaded from the catalog. Component
// IDs are either fixed or sourced verbatim from one instance property (see
// ComponentTemplate.IDProperty) - the latter is what lets the reconciler's
// sentinel probe detect which components own a replaceable ID.
type templateApp struct {
	def AppDefinition
}

func (a *templateApp) AppID() string {
	return a.def.AppID
}

func (a *templateApp) Name(language domain.Language) string {
	if name, ok := a.def.Names[string(language)]; ok {
		return name
	}
	if name, ok := a.def.Names[string(domain.LanguageEN)]; ok {
		return name
	}
	return a.def.AppID
}

func (a *templateApp) PropertyDescriptors() []domain.PropertyDescriptor {
	out := make([]domain.PropertyDescriptor, 0, len(a.def.PropertyDescriptors))
	for _, d := range a.def.PropertyDescriptors {
		out = append(out, domain.PropertyDescriptor{Name: d.Name, IsPersistable: d.IsPersistable})
	}
	return out
}

func (a *templateApp) ValidatorConfig() domain.ValidatorConfig {
	return domain.ValidatorConfig{AppID: a.def.AppID, Raw: []byte(a.def.ValidatorSchema)}
}

func (a *templateApp) Render(_ context.Context, target domain.ConfigurationTarget, alias string, properties domain.Properties, language domain.Language) (domain.AppConfiguration, error) {
	components := make([]domain.Component, 0, len(a.def.Components))
	for _, ct := range a.def.Components {
		id := ct.DefaultID
		if ct.IDProperty != "" {
			if v, ok := properties.GetString(ct.IDProperty); ok && v != "" {
				id = v
			}
		}
		props, err := resolveProperties(ct.Properties, properties)
		if err != nil {
			return domain.AppConfiguration{}, fmt.Errorf("appcatalog: rendering %s/%s: %w", a.def.AppID, ct.DefaultID, err)
		}
		components = append(components, domain.Component{
			ID:         id,
			FactoryID:  ct.FactoryID,
			Alias:      ct.Alias,
			Properties: props,
		})
	}

	ips := make([]domain.InterfaceConfiguration, 0, len(a.def.Ips))
	for _, ip := range a.def.Ips {
		ips = append(ips, domain.InterfaceConfiguration{Name: ip.Name, IP: ip.IP})
	}

	deps := make([]domain.DependencyDeclaration, 0, len(a.def.Dependencies))
	for _, dt := range a.def.Dependencies {
		decl, err := resolveDependency(dt, properties)
		if err != nil {
			return domain.AppConfiguration{}, fmt.Errorf("appcatalog: rendering dependency %s/%s: %w", a.def.AppID, dt.Key, err)
		}
		deps = append(deps, decl)
	}

	_ = target
	_ = alias
	_ = language
	return domain.AppConfiguration{
		Components:              components,
		SchedulerExecutionOrder: append([]string{}, a.def.SchedulerExecutionOrder...),
		Ips:                     ips,
		Dependencies:            deps,
	}, nil
}

func resolveProperties(templates map[string]PropertyValueTemplate, source domain.Properties) (domain.Properties, error) {
	out := domain.NewProperties()
	for _, key := range sortedTemplateKeys(templates) {
		tmpl := templates[key]
		value, err := resolveValue(tmpl, source)
		if err != nil {
			return domain.Properties{}, err
		}
		out, err = out.Set(key, value)
		if err != nil {
			return domain.Properties{}, err
		}
	}
	return out, nil
}

// resolveValue returns either the literal catalog value, or the source
// property's raw JSON passed through unchanged - json.RawMessage marshals
// as itself, so this does not double-encode.
func resolveValue(tmpl PropertyValueTemplate, source domain.Properties) (any, error) {
	if tmpl.FromProperty != "" {
		raw, ok := source.Get(tmpl.FromProperty)
		if !ok {
			return nil, nil
		}
		return raw, nil
	}
	return tmpl.Literal, nil
}

func resolveDependency(dt DependencyTemplate, source domain.Properties) (domain.DependencyDeclaration, error) {
	alts := make([]domain.AppDependencyConfig, 0, len(dt.AppConfigs))
	for _, ac := range dt.AppConfigs {
		props, err := resolveProperties(ac.Properties, source)
		if err != nil {
			return domain.DependencyDeclaration{}, err
		}
		initial, err := resolveProperties(ac.InitialProperties, source)
		if err != nil {
			return domain.DependencyDeclaration{}, err
		}
		var aliasPtr *string
		if ac.Alias != "" {
			alias := ac.Alias
			aliasPtr = &alias
		}
		alts = append(alts, domain.AppDependencyConfig{
			AppID:             ac.AppID,
			Alias:             aliasPtr,
			Properties:        props,
			InitialProperties: initial,
		})
	}
	return domain.DependencyDeclaration{
		Key:                    dt.Key,
		AppConfigs:             alts,
		CreatePolicy:           domain.CreatePolicy(dt.CreatePolicy),
		UpdatePolicy:           domain.UpdatePolicy(dt.UpdatePolicy),
		DeletePolicy:           domain.DeletePolicy(dt.DeletePolicy),
		DependencyUpdatePolicy: domain.DependencyUpdatePolicy(dt.DependencyUpdatePolicy),
		DependencyDeletePolicy: domain.DependencyDeletePolicy(dt.DependencyDeletePolicy),
	}, nil
}

func sortedTemplateKeys(m map[string]PropertyValueTemplate) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Deterministic rendering matters for reconciler probe renders; sort
	// lexically since the YAML map gives no declaration order of its own.
	sort.Strings(keys)
	return keys
}
