package graph

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/patrickl3/openems-pf/internal/core/appmanager/domain"
)

// WalkDesired visits the desired tree rooted at rootApp, depth-first,
// children before parent. visited is the cycle-break set of specific
// instanceIds already entered this walk; callers that already know the
// root's own instanceId (an update's target) should seed it so the root
// cannot be re-entered via a dependency cycle back to itself.
func WalkDesired(
	ctx context.Context,
	rootApp domain.App,
	rootAlias string,
	rootProperties domain.Properties,
	target domain.ConfigurationTarget,
	language domain.Language,
	onNode OnDesiredNode,
	includeEdge IncludeEdge,
	warn Warn,
	visited map[uuid.UUID]bool,
) (uuid.UUID, bool, error) {
	return walkDesiredNode(ctx, nil, rootApp, rootAlias, rootProperties, target, language, nil, nil, onNode, includeEdge, warn, visited)
}

func walkDesiredNode(
	ctx context.Context,
	parentApp domain.App,
	app domain.App,
	alias string,
	properties domain.Properties,
	target domain.ConfigurationTarget,
	language domain.Language,
	decl *domain.DependencyDeclaration,
	alt *domain.AppDependencyConfig,
	onNode OnDesiredNode,
	includeEdge IncludeEdge,
	warn Warn,
	visited map[uuid.UUID]bool,
) (uuid.UUID, bool, error) {
	cfg, err := app.Render(ctx, target, alias, properties, language)
	if err != nil {
		warn(fmt.Sprintf("render failed for app %q: %v", app.AppID(), err))
		return uuid.UUID{}, false, nil
	}

	var resolvedDeps []domain.Dependency
	for _, childDecl := range cfg.Dependencies {
		decision, err := includeEdge(ctx, app, childDecl)
		if err != nil {
			return uuid.UUID{}, false, err
		}

		switch decision.Inclusion {
		case NotIncluded:
			continue

		case IncludeOnlyApp:
			if decision.ExistingID == nil {
				return uuid.UUID{}, false, fmt.Errorf("graph: IncludeOnlyApp decision missing ExistingID for declaration %q", childDecl.Key)
			}
			resolvedDeps = append(resolvedDeps, domain.Dependency{Key: childDecl.Key, InstanceID: *decision.ExistingID})

		case IncludeWithDependencies:
			childAlt := decision.Alternative
			if childAlt.IsSpecific() {
				id := *childAlt.SpecificInstanceID
				if visited[id] {
					return uuid.UUID{}, false, fmt.Errorf("graph: cycle detected re-entering instance %s via declaration %q", id, childDecl.Key)
				}
				visited[id] = true
			}

			childID, included, err := walkDesiredNode(
				ctx, app, decision.ResolvedApp, decision.ResolvedAlias, decision.ResolvedProperties,
				target, language, &childDecl, &childAlt, onNode, includeEdge, warn, visited,
			)
			if err != nil {
				return uuid.UUID{}, false, err
			}
			if included {
				resolvedDeps = append(resolvedDeps, domain.Dependency{Key: childDecl.Key, InstanceID: childID})
			}
		}
	}

	node := DesiredNode{
		ParentApp:            parentApp,
		Declaration:          decl,
		Alternative:          alt,
		App:                  app,
		Alias:                alias,
		Properties:           properties,
		Target:               target,
		Config:               cfg,
		ResolvedDependencies: resolvedDeps,
	}
	return onNode(ctx, node)
}
