package aggregator

import (
	"context"
	"log/slog"

	"github.com/patrickl3/openems-pf/internal/core/appmanager/domain"
)

// LoggingNetworkConfigurer is the reference NetworkConfigurer: it logs the
// interface table it is asked to apply rather than touching the host's
// network stack, which this repository has no business doing on behalf of
// a simulated appliance.
type LoggingNetworkConfigurer struct {
	Logger *slog.Logger
}

func (c LoggingNetworkConfigurer) Apply(_ context.Context, interfaces []domain.InterfaceConfiguration) error {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, iface := range interfaces {
		logger.Info("static ip applied", "interface", iface.Name, "ip", iface.IP)
	}
	return nil
}
