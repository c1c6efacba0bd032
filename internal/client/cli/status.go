package cli

import (
	"context"
	"fmt"
	"time"
)

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Sync Status ===")

	pending, err := c.coordinator.PendingCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to count pending mutations: %w", err)
	}

	nodeID, err := c.metadata.GetNodeID(ctx)
	if err != nil {
		return fmt.Errorf("failed to read node id: %w", err)
	}

	c.io.Printf("Node:     %s\n", nodeID)
	c.io.Printf("State:    %s\n", c.coordinator.State())
	if lastErr := c.coordinator.LastError(); lastErr != "" {
		c.io.Printf("Error:    %s\n", lastErr)
	}
	c.io.Printf("Pending:  %d mutation(s)\n", pending)

	if c.monitor.Check(ctx) {
		c.io.Println("Server:   reachable")
	} else {
		c.io.Println("Server:   unreachable (changes will sync later)")
	}

	lastSync, err := c.metadata.GetLastSyncAt(ctx)
	if err != nil {
		return fmt.Errorf("failed to read last sync time: %w", err)
	}
	if lastSync == 0 {
		c.io.Println("Last sync: never")
	} else {
		c.io.Printf("Last sync: %s\n", time.Unix(0, lastSync).Format(time.RFC3339))
	}

	return nil
}
