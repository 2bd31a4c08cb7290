package transport

import (
	"fmt"

	"salvo/internal/config"
)

// New selects the transport backend named by the configuration.
func New(cfg *config.Config) (Transport, error) {
	switch cfg.Transport {
	case config.TransportRaw:
		return NewRawTransport(cfg)
	case config.TransportClient, "":
		return NewClientTransport(cfg)
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}
