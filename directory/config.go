package directory

import "github.com/jacentio/directories/store"

// maxMoveItemsLimit leaves room in one transaction for the source and target writes.
const maxMoveItemsLimit = store.MaxTransactItems - 2

// Config holds configuration for the Service.
type Config struct {
	// AtomicMoves submits a move as one transaction. When false, a move is
	// two sequential writes and may end in a *PartialMoveError.
	// Default: true (see DefaultConfig)
	AtomicMoves bool

	// MaxMoveItems bounds the number of items in one move request.
	// Default: 25, clamped to [1, 98]
	MaxMoveItems int

	// MaxDepth bounds the ancestor walk that rejects moving a directory
	// into its own subtree.
	// Default: 32
	MaxDepth int
}

// DefaultConfig returns the default service configuration.
func DefaultConfig() Config {
	return Config{
		AtomicMoves:  true,
		MaxMoveItems: 25,
		MaxDepth:     32,
	}
}

// validate fills in defaults for zero values and clamps bounds.
func (c *Config) validate() {
	if c.MaxMoveItems <= 0 {
		c.MaxMoveItems = 25
	}
	if c.MaxMoveItems > maxMoveItemsLimit {
		c.MaxMoveItems = maxMoveItemsLimit
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = 32
	}
}
