package cli

import (
	"context"
	"fmt"

	"github.com/ordersync/ordersync/internal/client/broadcast"
	"github.com/ordersync/ordersync/internal/client/connectivity"
	"github.com/ordersync/ordersync/internal/client/data"
	"github.com/ordersync/ordersync/internal/client/iocli"
	"github.com/ordersync/ordersync/internal/client/retention"
	"github.com/ordersync/ordersync/internal/client/storage"
	clientsync "github.com/ordersync/ordersync/internal/client/sync"
)

// Cli связывает команды пользователя с сервисами клиента. Все зависимости
// передаются явно из composition root.
type Cli struct {
	io          iocli.IO
	dataService data.Service
	coordinator *clientsync.Coordinator
	monitor     *connectivity.Monitor
	sweeper     *retention.Sweeper
	broadcaster *broadcast.Broadcaster
	queue       storage.QueueStore
	metadata    storage.MetadataStore
}

func New(
	io iocli.IO,
	dataService data.Service,
	coordinator *clientsync.Coordinator,
	monitor *connectivity.Monitor,
	sweeper *retention.Sweeper,
	broadcaster *broadcast.Broadcaster,
	queue storage.QueueStore,
	metadata storage.MetadataStore,
) *Cli {
	return &Cli{
		io:          io,
		dataService: dataService,
		coordinator: coordinator,
		monitor:     monitor,
		sweeper:     sweeper,
		broadcaster: broadcaster,
		queue:       queue,
		metadata:    metadata,
	}
}

// Run выполняет одну команду
func (c *Cli) Run(ctx context.Context, command string, args []string) error {
	switch command {
	case "add-product":
		return c.runAddProduct(ctx)
	case "add-order":
		return c.runAddOrder(ctx)
	case "update-product":
		return c.runUpdateProduct(ctx, args)
	case "update-order":
		return c.runUpdateOrder(ctx, args)
	case "list":
		return c.runList(ctx, args)
	case "get":
		return c.runGet(ctx, args)
	case "delete":
		return c.runDelete(ctx, args)
	case "retry":
		return c.runRetry(ctx, args)
	case "status":
		return c.runStatus(ctx)
	case "sync":
		return c.runSync(ctx)
	case "sweep":
		return c.runSweep(ctx)
	case "watch":
		return c.runWatch(ctx)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func PrintUsage() {
	fmt.Println("OrderSync Client")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  ordersync [OPTIONS] COMMAND")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version       Show version information")
	fmt.Println("  --config PATH   Path to TOML config file (default: ordersync.toml)")
	fmt.Println("  --server URL    Server URL (overrides config)")
	fmt.Println("  --db PATH       Path to local database (overrides config)")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  add-product             Add a new product")
	fmt.Println("  add-order               Add a new order")
	fmt.Println("  update-product <id>     Update product fields")
	fmt.Println("  update-order <id>       Update order fields")
	fmt.Println("  list <products|orders>  List local records")
	fmt.Println("  get <product|order> <id>  Show one record")
	fmt.Println("  delete <id>             Delete a record (soft delete)")
	fmt.Println("  retry <id>              Re-queue a record parked on a terminal error")
	fmt.Println("  status                  Show sync status and pending mutations")
	fmt.Println("  sync                    Run one sync pass now")
	fmt.Println("  sweep                   Purge synced records past the retention window")
	fmt.Println("  watch                   Run until interrupted: sync on reconnect, sweep on a timer, follow peer updates")
	fmt.Println()
	fmt.Println("Access token is read from the config file or ORDERSYNC_ACCESS_TOKEN.")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  ordersync add-product")
	fmt.Println("  ordersync list orders")
	fmt.Println("  ordersync get product 12")
	fmt.Println("  ordersync sync")
	fmt.Println("  ordersync --server https://example.com status")
}
