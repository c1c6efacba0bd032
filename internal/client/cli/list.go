package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ordersync/ordersync/internal/models"
)

func (c *Cli) runList(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing record type. Usage: ordersync list <products|orders>")
	}

	switch args[0] {
	case "products":
		return c.listProducts(ctx)
	case "orders":
		return c.listOrders(ctx)
	default:
		return fmt.Errorf("unknown record type: %s. Usage: ordersync list <products|orders>", args[0])
	}
}

func (c *Cli) listProducts(ctx context.Context) error {
	entities, err := c.dataService.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list products: %w", err)
	}

	if len(entities) == 0 {
		c.io.Println("No products found.")
		return nil
	}

	c.io.Printf("%-6s %-25s %10s %7s  %s\n", "ID", "NAME", "PRICE", "STOCK", "SYNC")
	for _, entity := range entities {
		var product models.Product
		if err := json.Unmarshal(entity.Payload, &product); err != nil {
			c.io.Printf("%-6d <corrupt payload: %v>\n", entity.ID, err)
			continue
		}
		c.io.Printf("%-6d %-25s %10.2f %7d  %s\n",
			entity.ID, product.Name, product.Price, product.Stock, syncLabel(entity))
	}

	c.io.Println()
	c.io.Printf("Total: %d product(s)\n", len(entities))
	return nil
}

func (c *Cli) listOrders(ctx context.Context) error {
	entities, err := c.dataService.ListOrders(ctx)
	if err != nil {
		return fmt.Errorf("failed to list orders: %w", err)
	}

	if len(entities) == 0 {
		c.io.Println("No orders found.")
		return nil
	}

	c.io.Printf("%-6s %-20s %-20s %5s %10s %-10s  %s\n",
		"ID", "CUSTOMER", "PRODUCT", "QTY", "TOTAL", "STATUS", "SYNC")
	for _, entity := range entities {
		var order models.Order
		if err := json.Unmarshal(entity.Payload, &order); err != nil {
			c.io.Printf("%-6d <corrupt payload: %v>\n", entity.ID, err)
			continue
		}
		c.io.Printf("%-6d %-20s %-20s %5d %10.2f %-10s  %s\n",
			entity.ID, order.CustomerName, order.ProductName,
			order.Quantity, order.Total, order.Status, syncLabel(entity))
	}

	c.io.Println()
	c.io.Printf("Total: %d order(s)\n", len(entities))
	return nil
}

// syncLabel форматирует статус синхронизации записи для вывода
func syncLabel(entity *models.Entity) string {
	switch entity.SyncStatus {
	case models.SyncStatusError, models.SyncStatusConflict:
		return fmt.Sprintf("%s (%s)", entity.SyncStatus, entity.LastError)
	default:
		return string(entity.SyncStatus)
	}
}
