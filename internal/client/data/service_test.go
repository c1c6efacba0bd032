package data

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordersync/ordersync/internal/client/storage"
	"github.com/ordersync/ordersync/internal/client/storage/boltdb"
	"github.com/ordersync/ordersync/internal/lww"
	"github.com/ordersync/ordersync/internal/models"
)

func setupService(t *testing.T) (Service, *boltdb.Storage) {
	t.Helper()

	s, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})

	return NewService(s, lww.NewClockWithNodeID("node-test")), s
}

func TestService_AddProduct(t *testing.T) {
	ctx := context.Background()
	svc, s := setupService(t)

	id, err := svc.AddProduct(ctx, &models.Product{Name: "Widget", Price: 9.99, Stock: 5})
	require.NoError(t, err)

	product, err := svc.GetProduct(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Widget", product.Name)
	assert.Equal(t, 9.99, product.Price)

	// Мутация порождает ровно один элемент очереди
	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	entity, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusPending, entity.SyncStatus)
	assert.NotEmpty(t, entity.ClientID)
	assert.Equal(t, "node-test", entity.NodeID)
}

func TestService_AddProduct_Invalid(t *testing.T) {
	ctx := context.Background()
	svc, s := setupService(t)

	_, err := svc.AddProduct(ctx, &models.Product{Name: "", Price: 1})
	require.Error(t, err)
	_, err = svc.AddProduct(ctx, &models.Product{Name: "x", Price: -1})
	require.Error(t, err)

	// Отклоненная мутация не попадает ни в хранилище, ни в очередь
	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestService_AddOrder(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	id, err := svc.AddOrder(ctx, &models.Order{
		CustomerName: "Acme",
		ProductName:  "Widget",
		Quantity:     2,
		Total:        19.98,
		Status:       "draft",
	})
	require.NoError(t, err)

	order, err := svc.GetOrder(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Acme", order.CustomerName)
	assert.Equal(t, 2, order.Quantity)
}

func TestService_AddOrder_UnknownStatus(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, err := svc.AddOrder(ctx, &models.Order{
		CustomerName: "Acme",
		ProductName:  "Widget",
		Quantity:     1,
		Status:       "shipped-to-mars",
	})
	assert.Error(t, err)
}

func TestService_UpdateProduct(t *testing.T) {
	ctx := context.Background()
	svc, s := setupService(t)

	id, err := svc.AddProduct(ctx, &models.Product{Name: "Widget", Price: 9.99, Stock: 5})
	require.NoError(t, err)

	require.NoError(t, svc.UpdateProduct(ctx, id, &models.Product{Name: "Widget v2", Price: 12.50, Stock: 3}))

	product, err := svc.GetProduct(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Widget v2", product.Name)

	entity, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(2), entity.Version)

	// update поверх несинканного create коалесцируется в один элемент
	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestService_TypeMismatch(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	id, err := svc.AddProduct(ctx, &models.Product{Name: "Widget", Price: 1})
	require.NoError(t, err)

	_, err = svc.GetOrder(ctx, id)
	assert.Error(t, err)

	err = svc.UpdateOrder(ctx, id, &models.Order{CustomerName: "Acme", ProductName: "x", Quantity: 1})
	assert.Error(t, err)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	id, err := svc.AddProduct(ctx, &models.Product{Name: "Widget", Price: 1})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, id))

	// Удаленная запись недоступна через сервис
	_, err = svc.GetProduct(ctx, id)
	assert.ErrorIs(t, err, storage.ErrEntityNotFound)

	products, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, err := svc.AddProduct(ctx, &models.Product{Name: "Widget", Price: 1})
	require.NoError(t, err)
	_, err = svc.AddOrder(ctx, &models.Order{CustomerName: "Acme", ProductName: "Widget", Quantity: 1})
	require.NoError(t, err)

	products, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 1)

	orders, err := svc.ListOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}
