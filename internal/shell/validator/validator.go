// Package validator is the reference Validator port: it checks an app's
// ValidatorConfig (an OpenAPI 3 schema fragment) against the running
// system's hardware/firmware facts for compatibility, and against the
// currently installed instance count for installability.
package validator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/patrickl3/openems-pf/internal/core/appmanager/domain"
	"github.com/patrickl3/openems-pf/internal/core/appmanager/ports"
)

// SystemFacts reports the running system's hardware/firmware capabilities,
// used to decide ValidatorStatus COMPATIBLE/INCOMPATIBLE.
type SystemFacts interface {
	Snapshot(ctx context.Context) (map[string]any, error)
}

// InstanceCounter reports how many instances of an app are already
// installed, used to decide ValidatorStatus COMPATIBLE/INSTALLABLE.
type InstanceCounter interface {
	CountInstalled(ctx context.Context, appID string) (int, error)
}

// Validator is the reference ports.Validator.
type Validator struct {
	facts  SystemFacts
	counts InstanceCounter
}

var _ ports.Validator = (*Validator)(nil)

// New builds a Validator over the given system-fact and install-count
// sources.
func New(facts SystemFacts, counts InstanceCounter) *Validator {
	return &Validator{facts: facts, counts: counts}
}

// schemaDocument is the shape of ValidatorConfig.Raw: two independent
// OpenAPI 3 schema fragments, checked against different documents.
type schemaDocument struct {
	Compatibility  json.RawMessage `json:"compatibility,omitempty"`
	Installability json.RawMessage `json:"installability,omitempty"`
}

func (v *Validator) Status(ctx context.Context, cfg domain.ValidatorConfig) (domain.ValidatorStatus, error) {
	if len(cfg.Raw) == 0 {
		return domain.StatusInstallable, nil
	}
	var doc schemaDocument
	if err := json.Unmarshal(cfg.Raw, &doc); err != nil {
		return "", fmt.Errorf("validator: decoding schema for %s: %w", cfg.AppID, err)
	}

	if len(doc.Compatibility) > 0 {
		facts, err := v.facts.Snapshot(ctx)
		if err != nil {
			return "", fmt.Errorf("validator: system facts snapshot: %w", err)
		}
		if err := validateAgainst(doc.Compatibility, facts); err != nil {
			return domain.StatusIncompatible, nil
		}
	}

	if len(doc.Installability) > 0 {
		count, err := v.counts.CountInstalled(ctx, cfg.AppID)
		if err != nil {
			return "", fmt.Errorf("validator: install count for %s: %w", cfg.AppID, err)
		}
		if err := validateAgainst(doc.Installability, map[string]any{"installedCount": count}); err != nil {
			return domain.StatusCompatible, nil
		}
	}

	return domain.StatusInstallable, nil
}

func (v *Validator) Messages(ctx context.Context, cfg domain.ValidatorConfig) ([]string, error) {
	if len(cfg.Raw) == 0 {
		return nil, nil
	}
	var doc schemaDocument
	if err := json.Unmarshal(cfg.Raw, &doc); err != nil {
		return nil, fmt.Errorf("validator: decoding schema for %s: %w", cfg.AppID, err)
	}

	var messages []string

	if len(doc.Compatibility) > 0 {
		facts, err := v.facts.Snapshot(ctx)
		if err != nil {
			return nil, fmt.Errorf("validator: system facts snapshot: %w", err)
		}
		if err := validateAgainst(doc.Compatibility, facts); err != nil {
			messages = append(messages, fmt.Sprintf("%s is not compatible with this system: %v", cfg.AppID, err))
		}
	}

	if len(doc.Installability) > 0 {
		count, err := v.counts.CountInstalled(ctx, cfg.AppID)
		if err != nil {
			return nil, fmt.Errorf("validator: install count for %s: %w", cfg.AppID, err)
		}
		if err := validateAgainst(doc.Installability, map[string]any{"installedCount": count}); err != nil {
			messages = append(messages, fmt.Sprintf("%s cannot be installed right now: %v", cfg.AppID, err))
		}
	}

	return messages, nil
}

func validateAgainst(rawSchema json.RawMessage, document map[string]any) error {
	schema := &openapi3.Schema{}
	if err := json.Unmarshal(rawSchema, schema); err != nil {
		return fmt.Errorf("parsing schema: %w", err)
	}
	if err := schema.Validate(context.Background()); err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}
	encoded, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	var value any
	if err := json.Unmarshal(encoded, &value); err != nil {
		return fmt.Errorf("decoding document: %w", err)
	}
	return schema.VisitJSON(value)
}
