package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runUpdateProduct(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return fmt.Errorf("%w. Usage: ordersync update-product <id>", err)
	}

	current, err := c.dataService.GetProduct(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load product: %w", err)
	}

	c.io.Printf("=== Update Product %d (%s) ===\n", id, current.Name)
	c.io.Println()

	product, err := c.promptProduct()
	if err != nil {
		return err
	}

	if err := c.dataService.UpdateProduct(ctx, id, product); err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	c.io.Println()
	c.io.Println("✓ Product updated. Run 'ordersync sync' to push the change.")
	return nil
}

func (c *Cli) runUpdateOrder(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return fmt.Errorf("%w. Usage: ordersync update-order <id>", err)
	}

	current, err := c.dataService.GetOrder(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load order: %w", err)
	}

	c.io.Printf("=== Update Order %d (%s) ===\n", id, current.CustomerName)
	c.io.Println()

	order, err := c.promptOrder()
	if err != nil {
		return err
	}

	if err := c.dataService.UpdateOrder(ctx, id, order); err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}

	c.io.Println()
	c.io.Println("✓ Order updated. Run 'ordersync sync' to push the change.")
	return nil
}
