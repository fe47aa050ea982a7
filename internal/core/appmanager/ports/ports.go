// Package ports declares the interfaces the planner (the one imperative-
// shell package in internal/core/appmanager) calls out to. Concrete
// implementations live under internal/shell; the core only depends on
// these signatures.
package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/patrickl3/openems-pf/internal/core/appmanager/domain"
)

// AppStore is the persisted app catalog and instance store.
type AppStore interface {
	GetAppByID(ctx context.Context, appID string) (domain.App, error)
	GetInstanceByID(ctx context.Context, id uuid.UUID) (domain.AppInstance, bool, error)
	GetAppsWithDependencyTo(ctx context.Context, instanceID uuid.UUID) ([]domain.AppInstance, error)
	AllInstances(ctx context.Context) ([]domain.AppInstance, error)
	SaveInstance(ctx context.Context, instance domain.AppInstance) error
	DeleteInstance(ctx context.Context, id uuid.UUID) error
}

// Validator reports whether an app is compatible with, and installable on,
// the running system.
type Validator interface {
	Status(ctx context.Context, cfg domain.ValidatorConfig) (domain.ValidatorStatus, error)
	Messages(ctx context.Context, cfg domain.ValidatorConfig) ([]string, error)
}

// RegistryComponent mirrors reconcile.RegistryComponent so ports does not
// need to import the reconcile package; the planner converts between them.
type RegistryComponent struct {
	ID         string
	FactoryID  string
	Alias      string
	Properties domain.Properties
}

// ComponentRegistry is the live component registry of the downstream
// configuration subsystem.
type ComponentRegistry interface {
	GetComponent(ctx context.Context, id string) (RegistryComponent, bool, error)
	GetComponentByConfig(ctx context.Context, factoryID string, properties domain.Properties) (RegistryComponent, bool, error)
	AllComponents(ctx context.Context) ([]RegistryComponent, error)
	NextAvailableID(ctx context.Context, base string, startingDigit int, claimed []string) (string, error)
}

// Translator resolves a locale-aware message.
type Translator interface {
	Translate(ctx context.Context, language domain.Language, key string, args ...any) (string, error)
}

// Aggregator is the shared commit contract for the three downstream sinks
// (components, scheduler, static IPs).
type Aggregator interface {
	Reset(ctx context.Context) error
	Aggregate(ctx context.Context, newConfig, oldConfig *domain.AppConfiguration) error
	Commit(ctx context.Context, user string, otherAppConfigs []domain.AppConfiguration) error
}
