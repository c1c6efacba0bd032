package cli

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
)

// runWatch переводит клиент в фоновый режим: probe loop следит за сервером
// и триггерит синхронизацию при восстановлении связи, sweeper чистит
// устаревшие synced-записи по таймеру, а broadcaster доставляет изменения
// от других инстансов. Работает до сигнала или отмены контекста.
func (c *Cli) runWatch(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	c.broadcaster.Subscribe(func(key string, value json.RawMessage) {
		c.io.Printf("Peer update: %s = %s\n", key, string(value))
	})

	c.monitor.Start(ctx)
	defer c.monitor.Stop()

	c.sweeper.Start(ctx)
	defer c.sweeper.Stop()

	c.io.Println("Watching: connectivity probe, retention sweep and peer updates are running.")
	c.io.Println("Press Ctrl+C to stop.")

	<-ctx.Done()
	c.io.Println("Stopping.")
	return nil
}
