package config

import (
	"github.com/mvandenburgh/dandidav/pkg/adapter"
	"github.com/mvandenburgh/dandidav/pkg/adapter/webdav"
	"github.com/mvandenburgh/dandidav/pkg/metrics"
)

// CreateAdapters creates the protocol adapters from the configuration.
//
// Parameters:
//   - cfg: The complete dandidav configuration
//   - davMetrics: Optional WebDAV metrics collector (nil = no metrics)
//
// Returns:
//   - []adapter.Adapter: Adapters ready to be added to the server
func CreateAdapters(cfg *Config, davMetrics metrics.DAVMetrics) []adapter.Adapter {
	return []adapter.Adapter{
		webdav.New(cfg.WebDAV, davMetrics),
	}
}
