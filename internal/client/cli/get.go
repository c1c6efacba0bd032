package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runGet(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: ordersync get <product|order> <id>")
	}

	id, err := parseID(args[1:])
	if err != nil {
		return err
	}

	switch args[0] {
	case "product":
		product, err := c.dataService.GetProduct(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get product: %w", err)
		}
		c.io.Printf("=== Product %d ===\n", id)
		c.io.Printf("Name:        %s\n", product.Name)
		c.io.Printf("Description: %s\n", product.Description)
		c.io.Printf("Price:       %.2f\n", product.Price)
		c.io.Printf("Stock:       %d\n", product.Stock)
		return nil

	case "order":
		order, err := c.dataService.GetOrder(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get order: %w", err)
		}
		c.io.Printf("=== Order %d ===\n", id)
		c.io.Printf("Customer: %s\n", order.CustomerName)
		c.io.Printf("Product:  %s\n", order.ProductName)
		c.io.Printf("Quantity: %d\n", order.Quantity)
		c.io.Printf("Total:    %.2f\n", order.Total)
		c.io.Printf("Status:   %s\n", order.Status)
		return nil

	default:
		return fmt.Errorf("unknown record type: %s. Usage: ordersync get <product|order> <id>", args[0])
	}
}
