package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runDelete(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return fmt.Errorf("%w. Usage: ordersync delete <id>", err)
	}

	if err := c.dataService.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	c.io.Printf("✓ Record %d deleted locally. The deletion is pushed on the next sync.\n", id)
	return nil
}

func (c *Cli) runRetry(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return fmt.Errorf("%w. Usage: ordersync retry <id>", err)
	}

	if err := c.queue.Retry(ctx, id); err != nil {
		return fmt.Errorf("failed to re-queue record: %w", err)
	}

	c.io.Printf("✓ Record %d re-queued. Run 'ordersync sync' to retry now.\n", id)
	return nil
}
