package lndlink

import (
	"context"
	"fmt"
	"log"

	"github.com/ngutech/lndlink/build"
	"github.com/ngutech/lndlink/config"
	"github.com/ngutech/lndlink/lightning"
	"github.com/ngutech/lndlink/lnd"
	"github.com/ngutech/lndlink/messages"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Main wires the node services to the broker and drains the notification
// queue until ctx is cancelled.
func Main(ctx context.Context, conf *config.Config) error {
	log.Printf(`Starting lndlink, tag='%s', revision='%s'`, build.GetTag(), build.GetRevision())

	client := lnd.NewClient(conf.Lnd)
	defer client.Close()

	payments := lnd.NewPaymentService(client, lightning.MsatConverter{}, conf)
	info, err := payments.GetInfo(ctx)
	if err != nil {
		return fmt.Errorf("failed to reach lnd node at %s: %w", conf.Lnd.Address(), err)
	}
	log.Printf("connected to node %s (%s) on %s at height %d",
		info.Pubkey, info.Alias, info.Network, info.BlockHeight)

	broker, err := amqp.Dial(conf.Amqp.Url)
	if err != nil {
		return fmt.Errorf("failed to connect to amqp broker: %w", err)
	}
	defer broker.Close()

	publishChannel, err := broker.Channel()
	if err != nil {
		return fmt.Errorf("failed to open publish channel: %w", err)
	}
	consumeChannel, err := broker.Channel()
	if err != nil {
		return fmt.Errorf("failed to open consume channel: %w", err)
	}

	bus := messages.NewAmqpBus(publishChannel, conf.Amqp.Exchange)
	worker := messages.NewWorker(consumeChannel, bus, conf.Amqp.Queue)
	if err := worker.Run(ctx); err != nil {
		return fmt.Errorf("message worker stopped: %w", err)
	}

	log.Printf("lndlink shutting down")
	return nil
}
