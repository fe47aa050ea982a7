package graph

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/patrickl3/openems-pf/internal/core/appmanager/domain"
)

// WalkExisting visits the installed edges reachable from rootInstance,
// depth-first, children before parent. The root itself is not gated by
// includeInstance: unless it is already in visited, it is rendered and handed
// to onNode, and a failure to look up or render its app is returned as an
// error. includeInstance only gates descent into a node's own dependency
// edges.
func WalkExisting(
	ctx context.Context,
	rootInstance domain.AppInstance,
	target domain.ConfigurationTarget,
	language domain.Language,
	lookupInstance LookupInstance,
	lookupApp LookupApp,
	onNode OnExistingNode,
	includeInstance IncludeInstance,
	warn Warn,
	visited map[uuid.UUID]bool,
) (bool, error) {
	return walkExistingNode(ctx, nil, nil, rootInstance, target, language, lookupInstance, lookupApp, onNode, includeInstance, warn, visited, true)
}

func walkExistingNode(
	ctx context.Context,
	parent *domain.AppInstance,
	parentApp domain.App,
	instance domain.AppInstance,
	target domain.ConfigurationTarget,
	language domain.Language,
	lookupInstance LookupInstance,
	lookupApp LookupApp,
	onNode OnExistingNode,
	includeInstance IncludeInstance,
	warn Warn,
	visited map[uuid.UUID]bool,
	isRoot bool,
) (bool, error) {
	if visited[instance.InstanceID] {
		return false, nil
	}
	visited[instance.InstanceID] = true

	app, err := lookupApp(ctx, instance.AppID)
	if err != nil {
		warn(fmt.Sprintf("app %q for instance %s not found: %v", instance.AppID, instance.InstanceID, err))
		if isRoot {
			return false, err
		}
		return false, nil
	}

	cfg, err := app.Render(ctx, target, instance.Alias, instance.Properties, language)
	if err != nil {
		warn(fmt.Sprintf("render failed for instance %s (%s): %v", instance.InstanceID, instance.AppID, err))
		if isRoot {
			return false, err
		}
		return false, nil
	}

	for _, dep := range instance.Dependencies {
		child, found, err := lookupInstance(ctx, dep.InstanceID)
		if err != nil {
			return false, err
		}
		if !found {
			warn(fmt.Sprintf("dependency %q of instance %s points at missing instance %s", dep.Key, instance.InstanceID, dep.InstanceID))
			continue
		}
		ok, err := includeInstance(ctx, instance, child)
		if err != nil {
			return false, err
		}
		if !ok {
			continue
		}
		if _, err := walkExistingNode(ctx, &instance, app, child, target, language, lookupInstance, lookupApp, onNode, includeInstance, warn, visited, false); err != nil {
			return false, err
		}
	}

	node := ExistingNode{
		Parent:    parent,
		ParentApp: parentApp,
		Instance:  instance,
		App:       app,
		Config:    cfg,
	}
	return onNode(ctx, node)
}
