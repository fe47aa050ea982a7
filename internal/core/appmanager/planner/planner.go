package planner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/patrickl3/openems-pf/internal/core/appmanager/apperrors"
	"github.com/patrickl3/openems-pf/internal/core/appmanager/domain"
	"github.com/patrickl3/openems-pf/internal/core/appmanager/ports"
)

// Aggregators bundles the three downstream sinks in the fixed order they
// are committed: components, then scheduler, then static IPs.
type Aggregators struct {
	Components ports.Aggregator
	Scheduler  ports.Aggregator
	StaticIPs  ports.Aggregator
}

func (a Aggregators) ordered() []ports.Aggregator {
	return []ports.Aggregator{a.Components, a.Scheduler, a.StaticIPs}
}

// Planner is the TransactionPlanner: it orchestrates install, update and
// delete requests against the configured ports.
type Planner struct {
	store       ports.AppStore
	validator   ports.Validator
	registry    ports.ComponentRegistry
	translator  ports.Translator
	aggregators Aggregators
	logger      *slog.Logger

	current *domain.Transaction
}

// New constructs a Planner. logger may be nil, in which case slog.Default
// is used, scoped the same way the rest of this codebase scopes loggers.
func New(store ports.AppStore, validator ports.Validator, registry ports.ComponentRegistry, translator ports.Translator, aggregators Aggregators, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{
		store:       store,
		validator:   validator,
		registry:    registry,
		translator:  translator,
		aggregators: aggregators,
		logger:      logger.With("component", "appmanager"),
	}
}

// TemporaryApps returns a snapshot of the transaction currently in flight,
// or nil if no request is being processed.
func (p *Planner) TemporaryApps() *domain.Transaction {
	return p.current
}

// withTransaction acquires a fresh transaction, resets every aggregator,
// runs body, and either commits (asking each aggregator to realize its
// batch) or discards the transaction and resets aggregators again on any
// failure. Aggregator reset and commit are both lenient: every aggregator
// is attempted and failures are joined with "|" rather than stopping at the
// first one, per the resolved open question on commit ordering.
func (p *Planner) withTransaction(ctx context.Context, user string, language domain.Language, body func(tx *domain.Transaction) (domain.UpdateValues, error)) (domain.UpdateValues, error) {
	tx := domain.NewTransaction()
	p.current = tx
	defer func() { p.current = nil }()

	if err := p.resetAggregators(ctx); err != nil {
		return domain.UpdateValues{}, fmt.Errorf("%w: resetting aggregators: %v", apperrors.ErrAggregatorFailed, err)
	}

	values, err := body(tx)
	if err != nil {
		p.resetAggregators(ctx) //nolint:errcheck // best-effort discard, the original failure is what matters
		return domain.UpdateValues{}, err
	}

	others, err := p.otherAppConfigs(ctx, tx, language)
	if err != nil {
		p.resetAggregators(ctx) //nolint:errcheck
		return domain.UpdateValues{}, fmt.Errorf("%w: rendering other app configurations: %v", apperrors.ErrInternal, err)
	}
	if err := p.commitAggregators(ctx, user, others); err != nil {
		p.resetAggregators(ctx) //nolint:errcheck
		return domain.UpdateValues{}, err
	}

	return values, nil
}

func (p *Planner) resetAggregators(ctx context.Context) error {
	var errs []error
	for _, agg := range p.aggregators.ordered() {
		if err := agg.Reset(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return apperrors.JoinPipe(errs...)
}

func (p *Planner) commitAggregators(ctx context.Context, user string, others []domain.AppConfiguration) error {
	var errs []error
	for _, agg := range p.aggregators.ordered() {
		if err := agg.Commit(ctx, user, others); err != nil {
			errs = append(errs, err)
		}
	}
	if joined := apperrors.JoinPipe(errs...); joined != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrAggregatorFailed, joined)
	}
	return nil
}

func (p *Planner) aggregate(ctx context.Context, newConfig, oldConfig *domain.AppConfiguration) error {
	var errs []error
	for _, agg := range p.aggregators.ordered() {
		if err := agg.Aggregate(ctx, newConfig, oldConfig); err != nil {
			errs = append(errs, err)
		}
	}
	return apperrors.JoinPipe(errs...)
}

// otherAppConfigs renders every live instance this transaction did not
// touch, so a full-table-replace aggregator (like the static IP one) can
// fold them back in at Commit instead of wiping them out. Instances being
// created, modified or deleted already have their contribution captured by
// Aggregate under tx's own Creating/Modifying/Deleting sets.
func (p *Planner) otherAppConfigs(ctx context.Context, tx *domain.Transaction, language domain.Language) ([]domain.AppConfiguration, error) {
	live, err := p.store.AllInstances(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading instances: %w", err)
	}

	var others []domain.AppConfiguration
	for _, instance := range live {
		if tx.Creating.Contains(instance.InstanceID) || tx.Modifying.Contains(instance.InstanceID) || tx.Deleting.Contains(instance.InstanceID) {
			continue
		}
		app, err := p.store.GetAppByID(ctx, instance.AppID)
		if err != nil {
			p.logger.Warn(fmt.Sprintf("app %q not found while rendering untouched instance %s: %v", instance.AppID, instance.InstanceID, err))
			continue
		}
		cfg, err := app.Render(ctx, domain.TargetUpdate, instance.Alias, instance.Properties, language)
		if err != nil {
			p.logger.Warn(fmt.Sprintf("rendering untouched instance %s of %q: %v", instance.InstanceID, instance.AppID, err))
			continue
		}
		others = append(others, cfg)
	}
	return others, nil
}

func withoutInstance(live []domain.AppInstance, id uuid.UUID) []domain.AppInstance {
	out := make([]domain.AppInstance, 0, len(live))
	for _, instance := range live {
		if instance.InstanceID != id {
			out = append(out, instance)
		}
	}
	return out
}

func stripNonPersistable(app domain.App, properties domain.Properties) domain.Properties {
	persistable := map[string]bool{}
	for _, desc := range app.PropertyDescriptors() {
		if desc.IsPersistable {
			persistable[desc.Name] = true
		}
	}
	result := properties
	for _, key := range properties.Keys() {
		if !persistable[key] {
			// Unknown properties (not described at all by the catalog) are
			// kept as-is; only explicitly non-persistable ones are dropped.
			if _, described := descriptorNames(app)[key]; described {
				result = result.Remove(key)
			}
		}
	}
	return result
}

func descriptorNames(app domain.App) map[string]bool {
	out := map[string]bool{}
	for _, desc := range app.PropertyDescriptors() {
		out[desc.Name] = true
	}
	return out
}
