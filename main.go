package main

import (
	"log"

	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/olympia-tickets/checkout-service/config"
	"github.com/olympia-tickets/checkout-service/internal/consumer"
	"github.com/olympia-tickets/checkout-service/internal/handler"
	"github.com/olympia-tickets/checkout-service/internal/middleware"
	"github.com/olympia-tickets/checkout-service/internal/repository"
	"github.com/olympia-tickets/checkout-service/internal/service"
	"github.com/olympia-tickets/checkout-service/pkg/database"
	"github.com/olympia-tickets/checkout-service/pkg/rabbitmq"
)

func main() {
	cfg := config.Load()

	db := database.NewPostgresDB(cfg.DSN())

	// RabbitMQ consumer: mirror offers/events from the catalog service
	mqConsumer, err := rabbitmq.NewConsumer(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to RabbitMQ: %v", err)
	}
	defer mqConsumer.Close()

	msgs, err := mqConsumer.Consume()
	if err != nil {
		log.Fatalf("failed to start consuming: %v", err)
	}

	publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect publisher to RabbitMQ: %v", err)
	}
	defer publisher.Close()

	// Repositories
	offerRepo := repository.NewOfferRepository(db)
	cartRepo := repository.NewCartRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	ticketRepo := repository.NewTicketRepository(db)

	consumer.NewCatalogConsumer(offerRepo).Start(msgs)

	// Payment gateway
	var gateway service.PaymentGateway
	if cfg.PaymentMode == "http" {
		gateway = service.NewHTTPPaymentGateway(cfg.PaymentURL, cfg.PaymentTimeout)
	} else {
		gateway = service.MockPaymentGateway{}
	}

	// Services
	cartSvc := service.NewCartService(cartRepo, offerRepo)
	issuer := service.NewTicketIssuer(ticketRepo)
	checkoutSvc := service.NewCheckoutService(cartRepo, offerRepo, orderRepo, issuer, gateway, publisher, cfg.PaymentTimeout)
	orderSvc := service.NewOrderService(orderRepo, ticketRepo)
	ticketSvc := service.NewTicketService(ticketRepo, publisher)

	// Echo
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			log.Printf("%s %s %d", v.Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(echoMw.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok", "service": "checkout-service"})
	})

	handler.NewCartHandler(cartSvc).RegisterRoutes(e)
	handler.NewCheckoutHandler(checkoutSvc, orderSvc).RegisterRoutes(e)
	handler.NewTicketHandler(ticketSvc).RegisterRoutes(e)

	log.Printf("Checkout Service starting on :%s", cfg.ServerPort)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
