package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/patrickl3/openems-pf/internal/core/appmanager/domain"
	"github.com/patrickl3/openems-pf/internal/core/appmanager/ports"
)

// ErrUnauthorized is returned when the user handle passed to Commit does
// not match the provisioned capability token.
var ErrUnauthorized = errors.New("static ip change rejected: invalid capability token")

// NetworkConfigurer applies the appliance's static network interface table.
type NetworkConfigurer interface {
	Apply(ctx context.Context, interfaces []domain.InterfaceConfiguration) error
}

// HashToken bcrypt-hashes a capability token for provisioning into a
// StaticIpAggregator. The plaintext token itself is never stored.
func HashToken(token string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
}

// StaticIpAggregator accumulates static IP contributions across a
// transaction's nodes and, on commit, only realizes them once the caller's
// opaque user handle is verified against a provisioned capability token
// hash - static network changes are the one downstream effect the core
// delegates an authorization check to.
type StaticIpAggregator struct {
	configurer NetworkConfigurer
	tokenHash  []byte

	mu      sync.Mutex
	current map[string]domain.InterfaceConfiguration
}

var _ ports.Aggregator = (*StaticIpAggregator)(nil)

// NewStaticIpAggregator builds a StaticIpAggregator that realizes changes
// through configurer, requiring the capability token matching tokenHash
// (see HashToken) on every commit that has aggregated interfaces to apply.
func NewStaticIpAggregator(configurer NetworkConfigurer, tokenHash []byte) *StaticIpAggregator {
	return &StaticIpAggregator{configurer: configurer, tokenHash: tokenHash}
}

func (a *StaticIpAggregator) Reset(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = make(map[string]domain.InterfaceConfiguration)
	return nil
}

func (a *StaticIpAggregator) Aggregate(_ context.Context, newConfig, oldConfig *domain.AppConfiguration) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if oldConfig != nil {
		for _, ip := range oldConfig.Ips {
			delete(a.current, ip.Name)
		}
	}
	if newConfig != nil {
		for _, ip := range newConfig.Ips {
			a.current[ip.Name] = ip
		}
	}
	return nil
}

// Commit realizes this transaction's static IP contributions, merged with
// otherAppConfigs' untouched instances, against the full interface table.
// NetworkConfigurer.Apply replaces that table wholesale, so otherAppConfigs
// stands in for the persisted state a commit would otherwise need to read
// back - this aggregator has none of its own.
func (a *StaticIpAggregator) Commit(ctx context.Context, user string, otherAppConfigs []domain.AppConfiguration) error {
	a.mu.Lock()
	touched := len(a.current) > 0
	merged := make(map[string]domain.InterfaceConfiguration, len(a.current))
	for name, ip := range a.current {
		merged[name] = ip
	}
	a.mu.Unlock()

	if !touched {
		return nil
	}

	for _, cfg := range otherAppConfigs {
		for _, ip := range cfg.Ips {
			if _, claimed := merged[ip.Name]; !claimed {
				merged[ip.Name] = ip
			}
		}
	}

	if err := bcrypt.CompareHashAndPassword(a.tokenHash, []byte(user)); err != nil {
		return ErrUnauthorized
	}

	result := make([]domain.InterfaceConfiguration, 0, len(merged))
	for _, ip := range merged {
		result = append(result, ip)
	}

	if err := a.configurer.Apply(ctx, result); err != nil {
		return fmt.Errorf("static ip aggregator: applying interfaces: %w", err)
	}
	return nil
}
