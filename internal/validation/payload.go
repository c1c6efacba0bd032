package validation

import (
	"errors"
	"fmt"

	"github.com/ordersync/ordersync/internal/models"
)

// Допустимые статусы заказа
var orderStatuses = map[string]bool{
	"draft":     true,
	"placed":    true,
	"fulfilled": true,
	"cancelled": true,
}

// ValidateProduct проверяет бизнес-поля товара перед записью в локальное
// хранилище. Невалидные данные отклоняются синхронно, не доходя до очереди.
func ValidateProduct(p *models.Product) error {
	if p == nil {
		return errors.New("product is nil")
	}
	if p.Name == "" {
		return errors.New("product name is required")
	}
	if len(p.Name) > 255 {
		return errors.New("product name exceeds 255 characters")
	}
	if p.Price < 0 {
		return fmt.Errorf("product price must be non-negative, got %v", p.Price)
	}
	if p.Stock < 0 {
		return fmt.Errorf("product stock must be non-negative, got %d", p.Stock)
	}
	return nil
}

// ValidateOrder проверяет бизнес-поля заказа
func ValidateOrder(o *models.Order) error {
	if o == nil {
		return errors.New("order is nil")
	}
	if o.CustomerName == "" {
		return errors.New("order customer name is required")
	}
	if o.ProductName == "" {
		return errors.New("order product name is required")
	}
	if o.Quantity <= 0 {
		return fmt.Errorf("order quantity must be positive, got %d", o.Quantity)
	}
	if o.Total < 0 {
		return fmt.Errorf("order total must be non-negative, got %v", o.Total)
	}
	if o.Status != "" && !orderStatuses[o.Status] {
		return fmt.Errorf("unknown order status: %q", o.Status)
	}
	return nil
}
