package config

import (
	"github.com/JayJamieson/csv-warehouse/pkg/duckinfer"
	"github.com/JayJamieson/csv-warehouse/pkg/infer"
	"github.com/JayJamieson/csv-warehouse/pkg/warehouse"
)

// Inferrer returns the type inference backend selected by
// inference.backend.
func (c *Config) Inferrer() warehouse.Inferrer {
	if c.Inference.Backend == BackendDuckDB {
		return duckinfer.New(c.Inference.Timeout)
	}
	return infer.NewClient(c.Inference.HelperPath, c.Inference.Timeout)
}

// SessionConfig builds the warehouse session settings.
func (c *Config) SessionConfig() warehouse.Config {
	return warehouse.Config{
		BatchSize:   c.Import.BatchSize,
		Inferrer:    c.Inferrer(),
		BusyTimeout: c.Database.BusyTimeout,
	}
}
