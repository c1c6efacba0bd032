package cli

import (
	"context"
	"errors"
	"fmt"

	clientsync "github.com/ordersync/ordersync/internal/client/sync"
)

func (c *Cli) runSync(ctx context.Context) error {
	c.io.Println("Syncing with server...")

	result, err := c.coordinator.SyncNow(ctx)
	if err != nil {
		if errors.Is(err, clientsync.ErrSyncInProgress) {
			c.io.Println("A sync pass is already running.")
			return nil
		}
		return fmt.Errorf("sync failed: %w", err)
	}

	c.io.Println()
	c.io.Printf("Submitted: %d\n", result.Submitted)
	c.io.Printf("Succeeded: %d\n", result.Succeeded)
	if result.Resolved > 0 {
		c.io.Printf("Resolved locally: %d\n", result.Resolved)
	}
	if result.Transient > 0 {
		c.io.Printf("Deferred (will retry): %d\n", result.Transient)
	}
	if result.Terminal > 0 {
		c.io.Printf("Rejected (need attention): %d\n", result.Terminal)
		c.io.Println("Run 'ordersync list' to inspect failed records and 'ordersync retry <id>' after fixing them.")
	}

	return nil
}

func (c *Cli) runSweep(ctx context.Context) error {
	removed, err := c.sweeper.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	c.io.Printf("✓ Removed %d synced record(s) past the retention window.\n", removed)
	return nil
}
