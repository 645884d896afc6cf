package store

// Config holds configuration for the Store.
type Config struct {
	// TablePrefix is prepended to every table name, including the
	// constraint and counter tables. Use it to isolate environments that
	// share an account.
	TablePrefix string

	// ConstraintTable holds one item per claimed natural-key value.
	// Default: "dimension_constraints"
	ConstraintTable string

	// CounterTable holds one item per named sequence.
	// Default: "counters"
	CounterTable string

	// MaxAttempts bounds the read-modify-write loop of Replace and Remove
	// when the record changes underneath it.
	// Default: 3
	// Max: 10
	MaxAttempts int
}

// DefaultConfig returns the default table names and retry bound.
func DefaultConfig() Config {
	return Config{
		ConstraintTable: "dimension_constraints",
		CounterTable:    "counters",
		MaxAttempts:     3,
	}
}

// validate fills in defaults and clamps values to acceptable bounds.
func (c *Config) validate() {
	if c.ConstraintTable == "" {
		c.ConstraintTable = "dimension_constraints"
	}
	if c.CounterTable == "" {
		c.CounterTable = "counters"
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 3
	}
	if c.MaxAttempts > 10 {
		c.MaxAttempts = 10
	}
}

func (c *Config) table(name string) string {
	return c.TablePrefix + name
}

func (c *Config) constraintTable() string { return c.table(c.ConstraintTable) }

func (c *Config) counterTable() string { return c.table(c.CounterTable) }
