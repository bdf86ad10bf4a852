package store

// MaxTransactItems is the DynamoDB limit on writes in one TransactWriteItems call.
const MaxTransactItems = 100

// Config holds configuration for the Store.
type Config struct {
	// DirectoryTable is the name of the directories table.
	// Its key schema is owner (partition) + id (sort).
	// Default: "directories"
	DirectoryTable string
}

// DefaultConfig returns the default table configuration.
func DefaultConfig() Config {
	return Config{
		DirectoryTable: "directories",
	}
}

// validate fills in defaults for empty values.
func (c *Config) validate() {
	if c.DirectoryTable == "" {
		c.DirectoryTable = "directories"
	}
}
