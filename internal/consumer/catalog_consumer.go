package consumer

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/olympia-tickets/checkout-service/internal/models"
	"github.com/olympia-tickets/checkout-service/internal/repository"
	amqp "github.com/rabbitmq/amqp091-go"
)

// CatalogConsumer keeps the local offers/events mirror in sync with
// the catalog service. Offers arrive here before anything can be
// carted; this service never writes to them except through the stock
// ledger.
type CatalogConsumer struct {
	offerRepo repository.OfferRepository
}

func NewCatalogConsumer(offerRepo repository.OfferRepository) *CatalogConsumer {
	return &CatalogConsumer{offerRepo: offerRepo}
}

func (cc *CatalogConsumer) Start(msgs <-chan amqp.Delivery) {
	go func() {
		for msg := range msgs {
			cc.handleMessage(msg)
		}
		log.Println("[CatalogConsumer] channel closed, stopping consumer")
	}()
}

func (cc *CatalogConsumer) handleMessage(msg amqp.Delivery) {
	ctx := context.Background()

	switch {
	case strings.HasPrefix(msg.RoutingKey, "offer."):
		var offer models.Offer
		if err := json.Unmarshal(msg.Body, &offer); err != nil {
			log.Printf("[CatalogConsumer] failed to unmarshal offer: %v", err)
			msg.Nack(false, false)
			return
		}
		if err := cc.offerRepo.Upsert(ctx, &offer); err != nil {
			log.Printf("[CatalogConsumer] failed to upsert offer %d: %v", offer.ID, err)
			msg.Nack(false, true) // requeue
			return
		}
		log.Printf("[CatalogConsumer] synced offer %d: %s", offer.ID, offer.Name)

	case strings.HasPrefix(msg.RoutingKey, "event."):
		var event models.Event
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			log.Printf("[CatalogConsumer] failed to unmarshal event: %v", err)
			msg.Nack(false, false)
			return
		}
		if err := cc.offerRepo.UpsertEvent(ctx, &event); err != nil {
			log.Printf("[CatalogConsumer] failed to upsert event %d: %v", event.ID, err)
			msg.Nack(false, true) // requeue
			return
		}
		log.Printf("[CatalogConsumer] synced event %d: %s", event.ID, event.Title)

	default:
		log.Printf("[CatalogConsumer] ignoring routing key %s", msg.RoutingKey)
		msg.Nack(false, false)
		return
	}

	msg.Ack(false)
}
