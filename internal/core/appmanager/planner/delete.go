package planner

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/patrickl3/openems-pf/internal/core/appmanager/apperrors"
	"github.com/patrickl3/openems-pf/internal/core/appmanager/domain"
	"github.com/patrickl3/openems-pf/internal/core/appmanager/graph"
	"github.com/patrickl3/openems-pf/internal/core/appmanager/policy"
)

// DeleteApp removes instance and any dependency it cascades to under each
// DeletePolicy, demoting dependencies it cannot delete but may still update
// to a read-only state first.
func (p *Planner) DeleteApp(ctx context.Context, user string, instance domain.AppInstance, language domain.Language) (domain.UpdateValues, error) {
	return p.withTransaction(ctx, user, language, func(tx *domain.Transaction) (domain.UpdateValues, error) {
		return p.deleteApp(ctx, tx, user, instance, language)
	})
}

func (p *Planner) deleteApp(ctx context.Context, tx *domain.Transaction, user string, root domain.AppInstance, language domain.Language) (domain.UpdateValues, error) {
	var warnings []string
	warn := func(msg string) {
		warnings = append(warnings, msg)
		p.logger.Warn(msg)
	}

	live, err := p.store.AllInstances(ctx)
	if err != nil {
		return domain.UpdateValues{}, fmt.Errorf("%w: loading instances: %v", apperrors.ErrInternal, err)
	}

	onNode := func(ctx context.Context, node graph.ExistingNode) (bool, error) {
		tx.MoveToDeleting(node.Instance)
		cfg := node.Config
		if err := p.aggregate(ctx, nil, &cfg); err != nil {
			return false, fmt.Errorf("%w: %v", apperrors.ErrAggregatorFailed, err)
		}
		return true, nil
	}

	includeInstance := func(ctx context.Context, parent, child domain.AppInstance) (bool, error) {
		dep, ok := findDependencyTo(parent, child.InstanceID)
		if !ok {
			return true, nil
		}
		parentApp, err := p.store.GetAppByID(ctx, parent.AppID)
		if err != nil {
			return false, fmt.Errorf("%w: %v", apperrors.ErrAppNotFound, err)
		}
		cfg, err := parentApp.Render(ctx, domain.TargetDelete, parent.Alias, parent.Properties, language)
		if err != nil {
			return false, fmt.Errorf("%w: %v", apperrors.ErrRenderFailed, err)
		}
		decl, ok := cfg.DependencyByKey(dep.Key)
		if !ok {
			return true, nil
		}

		if policy.AllowedToDelete(decl, parent, child, live, tx.Deleting.Contains) {
			return true, nil
		}
		return p.demoteBeforeDelete(ctx, tx, decl, child, language, warn)
	}

	lookupInstance := func(ctx context.Context, id uuid.UUID) (domain.AppInstance, bool, error) {
		return p.store.GetInstanceByID(ctx, id)
	}
	lookupApp := func(ctx context.Context, appID string) (domain.App, error) {
		return p.store.GetAppByID(ctx, appID)
	}

	visited := map[uuid.UUID]bool{}
	if _, err := graph.WalkExisting(ctx, root, domain.TargetDelete, language, lookupInstance, lookupApp, onNode, includeInstance, warn, visited); err != nil {
		return domain.UpdateValues{}, err
	}

	p.cleanupDanglingReferences(tx, live)

	if err := p.verifyDeleteAuthorization(ctx, tx, root, live, language); err != nil {
		return domain.UpdateValues{}, err
	}

	if err := p.persist(ctx, tx); err != nil {
		return domain.UpdateValues{}, err
	}

	return domain.UpdateValues{
		CreatedOrModified: tx.CreatingOrModifying(),
		Deleted:           tx.Deleting.List(),
		Warnings:          warnings,
	}, nil
}

// demoteBeforeDelete runs when a child is kept alive because its parent may
// not delete it. If the parent's UpdatePolicy is ALWAYS, it recursively
// re-resolves the child with the declaration's property overrides reapplied
// - freezing it read-only before this, its last read-write parent,
// disappears. It always reports the child as not-included for this parent's
// cascade, since the child survives either way.
func (p *Planner) demoteBeforeDelete(ctx context.Context, tx *domain.Transaction, decl domain.DependencyDeclaration, child domain.AppInstance, language domain.Language, warn func(string)) (bool, error) {
	if decl.UpdatePolicy != domain.UpdateAlways {
		return false, nil
	}
	childApp, err := p.store.GetAppByID(ctx, child.AppID)
	if err != nil {
		warn(fmt.Sprintf("app %q not found while demoting %s: %v", child.AppID, child.InstanceID, err))
		return false, nil
	}
	alt := matchingAlternative(decl, child.AppID)
	newProperties := child.Properties.MergeOverride(alt.Properties)
	if _, err := p.updateApp(ctx, tx, "", &child, child.Alias, newProperties, childApp, language); err != nil {
		return false, fmt.Errorf("demoting %s before delete: %w", child.InstanceID, err)
	}
	return false, nil
}

func (p *Planner) verifyDeleteAuthorization(ctx context.Context, tx *domain.Transaction, root domain.AppInstance, live []domain.AppInstance, language domain.Language) error {
	var errs []error
	for _, candidate := range live {
		if tx.Deleting.Contains(candidate.InstanceID) {
			continue
		}
		dep, ok := findDependencyTo(candidate, root.InstanceID)
		if !ok {
			continue
		}
		app, err := p.store.GetAppByID(ctx, candidate.AppID)
		if err != nil {
			continue
		}
		cfg, err := app.Render(ctx, domain.TargetDelete, candidate.Alias, candidate.Properties, language)
		if err != nil {
			continue
		}
		decl, ok := cfg.DependencyByKey(dep.Key)
		if !ok {
			continue
		}
		if !policy.ParentMayDeleteChild(decl) {
			errs = append(errs, fmt.Errorf("%w: %q still depends on %s and forbids its deletion", apperrors.ErrPolicyDenied, candidate.AppID, root.InstanceID))
		}
	}
	return apperrors.JoinPipe(errs...)
}
