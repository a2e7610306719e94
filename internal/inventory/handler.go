package inventory

import (
	"context"
	"fmt"
	"log"

	"github.com/Pitonico/trilha-net-tecnico-microservicos-desafio/internal/events"
	"github.com/Pitonico/trilha-net-tecnico-microservicos-desafio/internal/messaging"
)

// OrderCreatedHandler returns the handler the consumer host binds to the
// order.created queue. Line items are processed sequentially, each reduction
// its own unit of work: a failure partway leaves earlier reductions
// committed and the whole message is redelivered. Delivery is at-least-once,
// so a redelivery after partial progress reduces the earlier items again.
func OrderCreatedHandler(svc *Service, logger *log.Logger) messaging.HandlerFunc {
	return func(ctx context.Context, body []byte) error {
		ev, err := events.DecodeOrderCreated(body)
		if err != nil {
			return messaging.Poison(fmt.Errorf("decode OrderCreated: %w", err))
		}

		logger.Printf("processing order %d (%d items)", ev.OrderID, len(ev.Items))

		for _, it := range ev.Items {
			if err := svc.ReduceStock(ctx, it.ProductID, it.Quantity); err != nil {
				return fmt.Errorf("reduce stock for order %d, product %d: %w", ev.OrderID, it.ProductID, err)
			}
		}

		return nil
	}
}
