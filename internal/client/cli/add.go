package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ordersync/ordersync/internal/models"
)

func (c *Cli) runAddProduct(ctx context.Context) error {
	c.io.Println("=== Add Product ===")
	c.io.Println()

	product, err := c.promptProduct()
	if err != nil {
		return err
	}

	id, err := c.dataService.AddProduct(ctx, product)
	if err != nil {
		return fmt.Errorf("failed to add product: %w", err)
	}

	c.io.Println()
	c.io.Println("✓ Product added successfully!")
	c.io.Printf("ID:   %d\n", id)
	c.io.Printf("Name: %s\n", product.Name)
	c.io.Println()
	c.io.Println("Note: the record is stored locally. Run 'ordersync sync' to push it to the server.")

	return nil
}

func (c *Cli) runAddOrder(ctx context.Context) error {
	c.io.Println("=== Add Order ===")
	c.io.Println()

	order, err := c.promptOrder()
	if err != nil {
		return err
	}

	id, err := c.dataService.AddOrder(ctx, order)
	if err != nil {
		return fmt.Errorf("failed to add order: %w", err)
	}

	c.io.Println()
	c.io.Println("✓ Order added successfully!")
	c.io.Printf("ID:       %d\n", id)
	c.io.Printf("Customer: %s\n", order.CustomerName)
	c.io.Println()
	c.io.Println("Note: the record is stored locally. Run 'ordersync sync' to push it to the server.")

	return nil
}

// promptProduct собирает поля товара в интерактивном режиме
func (c *Cli) promptProduct() (*models.Product, error) {
	name, err := c.io.ReadInput("Name: ")
	if err != nil {
		return nil, fmt.Errorf("failed to read name: %w", err)
	}
	if name == "" {
		return nil, fmt.Errorf("name cannot be empty")
	}

	description, err := c.io.ReadInput("Description (optional): ")
	if err != nil {
		return nil, fmt.Errorf("failed to read description: %w", err)
	}

	price, err := c.readFloat("Price: ")
	if err != nil {
		return nil, err
	}

	stock, err := c.readInt("Stock: ")
	if err != nil {
		return nil, err
	}

	return &models.Product{
		Name:        name,
		Description: description,
		Price:       price,
		Stock:       stock,
	}, nil
}

// promptOrder собирает поля заказа в интерактивном режиме
func (c *Cli) promptOrder() (*models.Order, error) {
	customer, err := c.io.ReadInput("Customer name: ")
	if err != nil {
		return nil, fmt.Errorf("failed to read customer name: %w", err)
	}
	if customer == "" {
		return nil, fmt.Errorf("customer name cannot be empty")
	}

	productName, err := c.io.ReadInput("Product name: ")
	if err != nil {
		return nil, fmt.Errorf("failed to read product name: %w", err)
	}
	if productName == "" {
		return nil, fmt.Errorf("product name cannot be empty")
	}

	quantity, err := c.readInt("Quantity: ")
	if err != nil {
		return nil, err
	}

	total, err := c.readFloat("Total: ")
	if err != nil {
		return nil, err
	}

	status, err := c.io.ReadInput("Status (draft/placed/fulfilled/cancelled, default draft): ")
	if err != nil {
		return nil, fmt.Errorf("failed to read status: %w", err)
	}
	if status == "" {
		status = "draft"
	}

	return &models.Order{
		CustomerName: customer,
		ProductName:  productName,
		Quantity:     quantity,
		Total:        total,
		Status:       status,
	}, nil
}

func (c *Cli) readFloat(prompt string) (float64, error) {
	raw, err := c.io.ReadInput(prompt)
	if err != nil {
		return 0, fmt.Errorf("failed to read input: %w", err)
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", raw, err)
	}
	return value, nil
}

func (c *Cli) readInt(prompt string) (int, error) {
	raw, err := c.io.ReadInput(prompt)
	if err != nil {
		return 0, fmt.Errorf("failed to read input: %w", err)
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", raw, err)
	}
	return value, nil
}

// parseID разбирает локальный идентификатор записи из аргумента команды
func parseID(args []string) (uint64, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("missing record id")
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid record id %q: %w", args[0], err)
	}
	return id, nil
}
