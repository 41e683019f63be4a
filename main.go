package main

import (
	"context"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/divyanshdixit10/OSOPmessaging-platform-sub001/config"
	"github.com/divyanshdixit10/OSOPmessaging-platform-sub001/engine"
	"github.com/divyanshdixit10/OSOPmessaging-platform-sub001/middleware"
	"github.com/divyanshdixit10/OSOPmessaging-platform-sub001/models"
	"github.com/divyanshdixit10/OSOPmessaging-platform-sub001/routes"
	"github.com/divyanshdixit10/OSOPmessaging-platform-sub001/worker"
)

func main() {
	logger := log.New(os.Stdout, "DISPATCH: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Seed default tenants for development environments
	if config.AppConfig.Environment != "production" {
		if err := models.CreateDefaultTenants(config.DB); err != nil {
			logger.Printf("Failed to seed default tenants: %v", err)
		}
	}

	// Event emitter: AMQP when a broker is configured, in-memory otherwise
	var emitter engine.EventEmitter
	if config.AppConfig.AMQPURL != "" {
		amqpEmitter, err := engine.NewAMQPEmitter(config.AppConfig.AMQPURL, "campaign.events")
		if err != nil {
			logger.Fatalf("Failed to connect to AMQP broker: %v", err)
		}
		defer amqpEmitter.Close()
		emitter = amqpEmitter
	} else {
		logger.Println("No AMQP broker configured, events stay in memory")
		emitter = engine.NewMemoryEmitter()
	}

	// Build the dispatch engine and register channel senders
	eng := engine.New(config.DB, emitter, logger, engine.Config{
		WorkerCount:      config.AppConfig.Dispatch.WorkerCount,
		DefaultBatchSize: config.AppConfig.Dispatch.DefaultBatchSize,
		SendTimeout:      config.AppConfig.Dispatch.SendTimeout,
		SenderRetryMax:   config.AppConfig.Dispatch.SenderRetryMax,
		RetryBackoff:     config.AppConfig.Dispatch.RetryBackoff,
	})
	eng.RegisterSender(&engine.EmailSender{
		Host:           config.AppConfig.SMTP.Host,
		Port:           config.AppConfig.SMTP.Port,
		Username:       config.AppConfig.SMTP.Username,
		Password:       config.AppConfig.SMTP.Password,
		From:           config.AppConfig.SMTP.From,
		TrackingBase:   config.AppConfig.TrackingBase,
		TrackingSecret: config.AppConfig.TrackingSecret,
	})
	eng.RegisterSender(&engine.SMSSender{
		GatewayURL: config.AppConfig.SMS.GatewayURL,
		APIKey:     config.AppConfig.SMS.APIKey,
		From:       config.AppConfig.SMS.From,
	})
	eng.RegisterSender(&engine.WhatsAppSender{
		GatewayURL: config.AppConfig.WhatsApp.GatewayURL,
		APIKey:     config.AppConfig.WhatsApp.APIKey,
		From:       config.AppConfig.WhatsApp.From,
	})

	// Start the scheduler sweep worker
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	schedulerWorker := worker.NewSchedulerWorker(eng, config.AppConfig.Dispatch.SweepInterval,
		log.New(os.Stdout, "SCHEDULER: ", log.LstdFlags))
	go schedulerWorker.Start(ctx)

	// Create Fiber app
	app := fiber.New()
	app.Use(middleware.CORS())

	routes.SetupRoutes(app, config.DB, eng)

	// Health check endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})

	logger.Printf("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
