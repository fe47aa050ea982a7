package planner

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/patrickl3/openems-pf/internal/core/appmanager/apperrors"
	"github.com/patrickl3/openems-pf/internal/core/appmanager/domain"
	"github.com/patrickl3/openems-pf/internal/core/appmanager/graph"
	"github.com/patrickl3/openems-pf/internal/core/appmanager/policy"
	"github.com/patrickl3/openems-pf/internal/core/appmanager/reconcile"
	"github.com/patrickl3/openems-pf/internal/core/appmanager/resolver"
)

// InstallApp creates a fresh AppInstance of app, running it through the
// Validator before any node in its dependency tree is resolved.
func (p *Planner) InstallApp(ctx context.Context, user, alias string, properties domain.Properties, app domain.App, language domain.Language) (domain.UpdateValues, error) {
	return p.withTransaction(ctx, user, language, func(tx *domain.Transaction) (domain.UpdateValues, error) {
		return p.updateApp(ctx, tx, user, nil, alias, properties, app, language)
	})
}

// UpdateApp rewrites oldInstance's alias/properties and re-resolves its
// dependency tree against the target alias/properties.
func (p *Planner) UpdateApp(ctx context.Context, user string, oldInstance domain.AppInstance, alias string, properties domain.Properties, app domain.App, language domain.Language) (domain.UpdateValues, error) {
	old := oldInstance
	return p.withTransaction(ctx, user, language, func(tx *domain.Transaction) (domain.UpdateValues, error) {
		return p.updateApp(ctx, tx, user, &old, alias, properties, app, language)
	})
}

// oldChildEntry is one edge of the installed tree being superseded by this
// update, indexed by (parentAppId, declarationKey) so it can be matched
// against a not-yet-identified new node during the desired-tree walk.
type oldChildEntry struct {
	Parent domain.AppInstance
	Dep    domain.Dependency
	Child  domain.AppInstance
}

func (p *Planner) updateApp(ctx context.Context, tx *domain.Transaction, user string, oldInstance *domain.AppInstance, alias string, properties domain.Properties, app domain.App, language domain.Language) (domain.UpdateValues, error) {
	var warnings []string
	warn := func(msg string) {
		warnings = append(warnings, msg)
		p.logger.Warn(msg)
	}

	target := domain.TargetAdd
	if oldInstance != nil {
		target = domain.TargetUpdate
		if err := p.restrictChildUpdate(ctx, *oldInstance, &alias, &properties, language, warn); err != nil {
			return domain.UpdateValues{}, err
		}
	} else {
		status, err := p.validator.Status(ctx, app.ValidatorConfig())
		if err != nil {
			return domain.UpdateValues{}, fmt.Errorf("%w: %v", apperrors.ErrInternal, err)
		}
		if status != domain.StatusInstallable {
			return domain.UpdateValues{}, fmt.Errorf("%w: %s (status %s)", apperrors.ErrNotInstallable, app.AppID(), status)
		}
	}

	live, err := p.store.AllInstances(ctx)
	if err != nil {
		return domain.UpdateValues{}, fmt.Errorf("%w: loading instances: %v", apperrors.ErrInternal, err)
	}
	if oldInstance != nil {
		live = withoutInstance(live, oldInstance.InstanceID)
	}

	oldChildren := map[string]oldChildEntry{}
	if oldInstance != nil {
		oldChildren, err = p.indexOldChildren(ctx, *oldInstance, warn)
		if err != nil {
			return domain.UpdateValues{}, err
		}
	}

	portRegistry, err := p.registry.AllComponents(ctx)
	if err != nil {
		return domain.UpdateValues{}, fmt.Errorf("%w: loading registry: %v", apperrors.ErrInternal, err)
	}
	registryComponents := make([]reconcile.RegistryComponent, len(portRegistry))
	for i, c := range portRegistry {
		registryComponents[i] = reconcile.RegistryComponent{ID: c.ID, FactoryID: c.FactoryID, Properties: c.Properties}
	}

	claimedExisting := map[uuid.UUID]bool{}
	claimedComponentIDs := map[string]bool{}
	claimedOldKeys := map[string]bool{}
	var pendingOldDeletes []oldChildEntry

	visited := map[uuid.UUID]bool{}
	if oldInstance != nil {
		visited[oldInstance.InstanceID] = true
	}

	includeEdge := func(ctx context.Context, parentApp domain.App, decl domain.DependencyDeclaration) (graph.IncludeEdgeDecision, error) {
		decision := resolver.ResolveEdge(decl, live, claimedExisting)
		if decision.Inclusion == graph.IncludeWithDependencies {
			childApp, err := p.store.GetAppByID(ctx, decision.Alternative.AppID)
			if err != nil {
				warn(fmt.Sprintf("app %q not found for declaration %q: %v", decision.Alternative.AppID, decl.Key, err))
				return graph.IncludeEdgeDecision{Inclusion: graph.NotIncluded}, nil
			}
			childAlias := ""
			if decision.Alternative.Alias != nil {
				childAlias = *decision.Alternative.Alias
			}
			decision.ResolvedApp = childApp
			decision.ResolvedAlias = childAlias
			decision.ResolvedProperties = decision.Alternative.InitialProperties.MergeOverride(decision.Alternative.Properties)
		}
		if decision.ExistingID != nil {
			claimedExisting[*decision.ExistingID] = true
		}
		return decision, nil
	}

	onNode := func(ctx context.Context, node graph.DesiredNode) (uuid.UUID, bool, error) {
		if node.Declaration == nil {
			id := uuid.New()
			var oldProps *domain.Properties
			merged := node.Properties
			if oldInstance != nil {
				id = oldInstance.InstanceID
				oldProps = &oldInstance.Properties
				merged = oldInstance.Properties.MergeOverride(node.Properties)
			}
			instance, err := p.finalizeNode(ctx, node.App, node.Alias, merged, oldProps, node.Target, language, node.ResolvedDependencies, registryComponents, claimedComponentIDs, id)
			if err != nil {
				return uuid.UUID{}, false, err
			}
			if oldInstance == nil {
				tx.MoveToCreating(instance)
			} else {
				tx.MoveToModifying(instance)
			}
			return id, true, nil
		}

		key := node.ParentApp.AppID() + "|" + node.Declaration.Key
		var oldChild *domain.AppInstance
		if entry, ok := oldChildren[key]; ok {
			claimedOldKeys[key] = true
			if entry.Child.AppID == node.Alternative.AppID {
				child := entry.Child
				oldChild = &child
			} else {
				pendingOldDeletes = append(pendingOldDeletes, entry)
			}
		}

		id := uuid.New()
		var oldProps *domain.Properties
		merged := node.Properties
		if oldChild != nil {
			id = oldChild.InstanceID
			oldProps = &oldChild.Properties
			merged = oldChild.Properties.MergeOverride(node.Properties)
		}

		instance, err := p.finalizeNode(ctx, node.App, node.Alias, merged, oldProps, node.Target, language, node.ResolvedDependencies, registryComponents, claimedComponentIDs, id)
		if err != nil {
			return uuid.UUID{}, false, err
		}

		if oldChild != nil {
			tx.MoveToModifying(instance)
		} else {
			tx.MoveToCreating(instance)
			if err := p.satisfyDependentSiblings(ctx, tx, instance, live, language); err != nil {
				return uuid.UUID{}, false, err
			}
		}
		return id, true, nil
	}

	rootID, rootIncluded, err := graph.WalkDesired(ctx, app, alias, properties, target, language, onNode, includeEdge, warn, visited)
	if err != nil {
		return domain.UpdateValues{}, err
	}
	if !rootIncluded {
		return domain.UpdateValues{}, fmt.Errorf("%w: rendering %q", apperrors.ErrRenderFailed, app.AppID())
	}

	if err := p.reconcileRemovals(ctx, tx, oldChildren, claimedOldKeys, pendingOldDeletes, live, language, warn); err != nil {
		return domain.UpdateValues{}, err
	}
	p.cleanupDanglingReferences(tx, live)

	root, found := tx.Lookup(rootID, live)
	var rootPtr *domain.AppInstance
	if found {
		r := root
		rootPtr = &r
	}

	if err := p.persist(ctx, tx); err != nil {
		return domain.UpdateValues{}, err
	}

	return domain.UpdateValues{
		Root:              rootPtr,
		CreatedOrModified: tx.CreatingOrModifying(),
		Deleted:           tx.Deleting.List(),
		Warnings:          warnings,
	}, nil
}

func (p *Planner) persist(ctx context.Context, tx *domain.Transaction) error {
	for _, instance := range tx.CreatingOrModifying() {
		if err := p.store.SaveInstance(ctx, instance); err != nil {
			return fmt.Errorf("%w: saving instance %s: %v", apperrors.ErrInternal, instance.InstanceID, err)
		}
	}
	for _, instance := range tx.Deleting.List() {
		if err := p.store.DeleteInstance(ctx, instance.InstanceID); err != nil {
			return fmt.Errorf("%w: deleting instance %s: %v", apperrors.ErrInternal, instance.InstanceID, err)
		}
	}
	return nil
}

// restrictChildUpdate applies every referring parent's DependencyUpdatePolicy
// to the requested alias/properties before the walk begins.
func (p *Planner) restrictChildUpdate(ctx context.Context, oldInstance domain.AppInstance, alias *string, properties *domain.Properties, language domain.Language, warn func(string)) error {
	parents, err := p.store.GetAppsWithDependencyTo(ctx, oldInstance.InstanceID)
	if err != nil {
		return fmt.Errorf("%w: loading referring parents: %v", apperrors.ErrInternal, err)
	}

	for _, parent := range parents {
		dep, ok := findDependencyTo(parent, oldInstance.InstanceID)
		if !ok {
			continue
		}
		parentApp, err := p.store.GetAppByID(ctx, parent.AppID)
		if err != nil {
			return fmt.Errorf("%w: loading parent app %q: %v", apperrors.ErrAppNotFound, parent.AppID, err)
		}
		cfg, err := parentApp.Render(ctx, domain.TargetUpdate, parent.Alias, parent.Properties, language)
		if err != nil {
			return fmt.Errorf("%w: rendering parent %q: %v", apperrors.ErrRenderFailed, parent.AppID, err)
		}
		decl, ok := cfg.DependencyByKey(dep.Key)
		if !ok {
			continue
		}
		alt := matchingAlternative(decl, oldInstance.AppID)

		if decl.DependencyUpdatePolicy == domain.DependencyUpdateAllowNone {
			if !properties.Equal(oldInstance.Properties) || *alias != oldInstance.Alias {
				return fmt.Errorf("%w: %q may not update %q (ALLOW_NONE)", apperrors.ErrPolicyDenied, parent.AppID, oldInstance.AppID)
			}
			continue
		}

		for _, key := range alt.Properties.Keys() {
			if policy.ChildMayOverride(decl, key, alt.Properties) {
				continue
			}
			if raw, ok := oldInstance.Properties.Get(key); ok {
				*properties = properties.SetRaw(key, raw)
				warn(fmt.Sprintf("property %q of %q is managed by %q and was restored", key, oldInstance.AppID, parent.AppID))
			}
		}
		if alt.Alias != nil && *alias != oldInstance.Alias {
			*alias = oldInstance.Alias
			warn(fmt.Sprintf("alias of %q is managed by %q and was restored", oldInstance.AppID, parent.AppID))
		}
	}
	return nil
}

func findDependencyTo(parent domain.AppInstance, childID uuid.UUID) (domain.Dependency, bool) {
	for _, dep := range parent.Dependencies {
		if dep.InstanceID == childID {
			return dep, true
		}
	}
	return domain.Dependency{}, false
}

func matchingAlternative(decl domain.DependencyDeclaration, appID string) domain.AppDependencyConfig {
	for _, alt := range decl.AppConfigs {
		if alt.AppID == appID {
			return alt
		}
	}
	if len(decl.AppConfigs) > 0 {
		return decl.AppConfigs[0]
	}
	return domain.AppDependencyConfig{}
}

func (p *Planner) indexOldChildren(ctx context.Context, root domain.AppInstance, warn func(string)) (map[string]oldChildEntry, error) {
	index := map[string]oldChildEntry{}
	visited := map[uuid.UUID]bool{}

	var walk func(domain.AppInstance) error
	walk = func(instance domain.AppInstance) error {
		if visited[instance.InstanceID] {
			return nil
		}
		visited[instance.InstanceID] = true
		for _, dep := range instance.Dependencies {
			child, found, err := p.store.GetInstanceByID(ctx, dep.InstanceID)
			if err != nil {
				return fmt.Errorf("%w: loading instance %s: %v", apperrors.ErrInternal, dep.InstanceID, err)
			}
			if !found {
				warn(fmt.Sprintf("dependency %q of %s points at missing instance %s", dep.Key, instance.InstanceID, dep.InstanceID))
				continue
			}
			index[instance.AppID+"|"+dep.Key] = oldChildEntry{Parent: instance, Dep: dep, Child: child}
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	return index, nil
}

func (p *Planner) finalizeNode(
	ctx context.Context,
	app domain.App,
	alias string,
	properties domain.Properties,
	oldProperties *domain.Properties,
	target domain.ConfigurationTarget,
	language domain.Language,
	deps []domain.Dependency,
	registryComponents []reconcile.RegistryComponent,
	claimedComponentIDs map[string]bool,
	id uuid.UUID,
) (domain.AppInstance, error) {
	render := func(props domain.Properties) (domain.AppConfiguration, error) {
		return app.Render(ctx, target, alias, props, language)
	}

	slots, err := reconcile.FindReplaceableSlots(render, app, properties)
	if err != nil {
		return domain.AppInstance{}, fmt.Errorf("%w: %v", apperrors.ErrRenderFailed, err)
	}
	cfg, err := render(properties)
	if err != nil {
		return domain.AppInstance{}, fmt.Errorf("%w: %v", apperrors.ErrRenderFailed, err)
	}

	result, err := reconcile.Reconcile(reconcile.Input{
		Slots:              slots,
		Config:             cfg,
		OldProperties:      oldProperties,
		RegistryComponents: registryComponents,
		ClaimedIDs:         claimedComponentIDs,
	}, properties)
	if err != nil {
		return domain.AppInstance{}, err
	}
	for _, comp := range result.Components {
		claimedComponentIDs[comp.ID] = true
	}

	newCfg := cfg
	newCfg.Components = result.Components

	var oldCfgPtr *domain.AppConfiguration
	if oldProperties != nil {
		if oldCfg, err := app.Render(ctx, domain.TargetUpdate, alias, *oldProperties, language); err == nil {
			oldCfgPtr = &oldCfg
		}
	}

	if err := p.aggregate(ctx, &newCfg, oldCfgPtr); err != nil {
		return domain.AppInstance{}, fmt.Errorf("%w: %v", apperrors.ErrAggregatorFailed, err)
	}

	return domain.AppInstance{
		InstanceID:   id,
		AppID:        app.AppID(),
		Alias:        alias,
		Properties:   stripNonPersistable(app, result.Properties),
		Dependencies: deps,
	}, nil
}

func (p *Planner) satisfyDependentSiblings(ctx context.Context, tx *domain.Transaction, child domain.AppInstance, live []domain.AppInstance, language domain.Language) error {
	var slots []resolver.DependentSlot
	parents := map[uuid.UUID]domain.AppInstance{}

	for _, candidate := range live {
		candidateApp, err := p.store.GetAppByID(ctx, candidate.AppID)
		if err != nil {
			continue
		}
		cfg, err := candidateApp.Render(ctx, domain.TargetUpdate, candidate.Alias, candidate.Properties, language)
		if err != nil {
			continue
		}
		for _, decl := range cfg.Dependencies {
			if _, satisfied := candidate.DependencyByKey(decl.Key); satisfied {
				continue
			}
			compatible := false
			for _, alt := range decl.AppConfigs {
				if alt.AppID == child.AppID {
					compatible = true
					break
				}
			}
			if !compatible {
				continue
			}
			slots = append(slots, resolver.DependentSlot{
				ParentInstanceID: candidate.InstanceID,
				DeclarationKey:   decl.Key,
				CreatePolicy:     decl.CreatePolicy,
				Lonely:           !policy.IsOwned(live, candidate.InstanceID),
			})
			parents[candidate.InstanceID] = candidate
		}
	}

	chosen, ok := resolver.ChooseDependent(slots)
	if !ok {
		return nil
	}
	parent := parents[chosen.ParentInstanceID]
	updated := parent.WithDependencies(append(append([]domain.Dependency{}, parent.Dependencies...), domain.Dependency{Key: chosen.DeclarationKey, InstanceID: child.InstanceID}))
	tx.MoveToModifying(updated)
	return nil
}

func (p *Planner) reconcileRemovals(
	ctx context.Context,
	tx *domain.Transaction,
	oldChildren map[string]oldChildEntry,
	claimedOldKeys map[string]bool,
	pendingOldDeletes []oldChildEntry,
	live []domain.AppInstance,
	language domain.Language,
	warn func(string),
) error {
	var candidates []oldChildEntry
	for key, entry := range oldChildren {
		if claimedOldKeys[key] {
			continue
		}
		candidates = append(candidates, entry)
	}
	candidates = append(candidates, pendingOldDeletes...)

	seen := map[uuid.UUID]bool{}
	for _, entry := range candidates {
		if seen[entry.Child.InstanceID] {
			continue
		}
		seen[entry.Child.InstanceID] = true

		parentApp, err := p.store.GetAppByID(ctx, entry.Parent.AppID)
		if err != nil {
			warn(fmt.Sprintf("app %q not found while checking removal of %s: %v", entry.Parent.AppID, entry.Child.InstanceID, err))
			continue
		}
		cfg, err := parentApp.Render(ctx, domain.TargetDelete, entry.Parent.Alias, entry.Parent.Properties, language)
		if err != nil {
			warn(fmt.Sprintf("rendering %q while checking removal of %s: %v", entry.Parent.AppID, entry.Child.InstanceID, err))
			continue
		}
		decl, ok := cfg.DependencyByKey(entry.Dep.Key)
		if !ok {
			continue
		}
		if !policy.AllowedToDelete(decl, entry.Parent, entry.Child, live, tx.Deleting.Contains) {
			continue
		}

		if oldCfg, err := p.rebuildOldAppConfig(ctx, entry.Child, language); err == nil {
			if err := p.aggregate(ctx, nil, &oldCfg); err != nil {
				return fmt.Errorf("%w: %v", apperrors.ErrAggregatorFailed, err)
			}
		}
		tx.MoveToDeleting(entry.Child)
	}
	return nil
}

func (p *Planner) rebuildOldAppConfig(ctx context.Context, instance domain.AppInstance, language domain.Language) (domain.AppConfiguration, error) {
	app, err := p.store.GetAppByID(ctx, instance.AppID)
	if err != nil {
		return domain.AppConfiguration{}, err
	}
	return app.Render(ctx, domain.TargetDelete, instance.Alias, instance.Properties, language)
}

func (p *Planner) cleanupDanglingReferences(tx *domain.Transaction, live []domain.AppInstance) {
	deletingIDs := map[uuid.UUID]bool{}
	for _, d := range tx.Deleting.List() {
		deletingIDs[d.InstanceID] = true
	}
	if len(deletingIDs) == 0 {
		return
	}

	for _, instance := range live {
		if tx.Deleting.Contains(instance.InstanceID) {
			continue
		}
		current := instance
		if v, ok := tx.Creating.Get(instance.InstanceID); ok {
			current = v
		}
		if v, ok := tx.Modifying.Get(instance.InstanceID); ok {
			current = v
		}

		var filtered []domain.Dependency
		changed := false
		for _, dep := range current.Dependencies {
			if deletingIDs[dep.InstanceID] {
				changed = true
				continue
			}
			filtered = append(filtered, dep)
		}
		if changed {
			tx.MoveToModifying(current.WithDependencies(filtered))
		}
	}
}
