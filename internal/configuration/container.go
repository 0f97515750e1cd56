package configuration

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"MindEase/internal/capture"
	"MindEase/internal/consult"
	"MindEase/internal/db"
	"MindEase/internal/handler"
	"MindEase/internal/hub"
	"MindEase/internal/model"
	"MindEase/internal/notify"
	"MindEase/internal/repo"
	"MindEase/internal/service"
	"MindEase/internal/store"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const defaultConfigPath = "config/config.dev.json"

type Container struct {
	ConsultHandler handler.ConsultHandler
	Hub            *hub.Hub
	Directory      *consult.Directory
	Config         Config
	Logger         *zap.Logger

	// private - for cleanup
	mongoClient *mongo.Database
}

func BuildContainer() (*Container, error) {
	configPath := os.Getenv("MINDEASE_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config %s: %v", configPath, err)
	}

	logger, _ := zap.NewProduction()

	var (
		st  store.Store
		con *mongo.Database
	)
	switch config.Storage.Mode {
	case "", "mongo":
		con, err = db.OpenConnection(config.Mongo.Uri, config.Mongo.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to open MongoDB connection: %w", err)
		}
		st = store.NewMongo(con, logger)
	case "memory":
		st = store.NewMemory()
	default:
		return nil, fmt.Errorf("unknown storage mode: %q", config.Storage.Mode)
	}

	directory, err := consult.NewDirectory(context.Background(), st, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to start doctor directory: %w", err)
	}

	engine := consult.NewRuleEngine(
		config.Consult.Rules,
		config.Consult.MatchedConfidence,
		config.Consult.FallbackSpecialty,
		config.Consult.FallbackConfidence,
	)
	clips := consult.NewClipStore()

	typingExpiry := time.Duration(config.Consult.TypingExpiryMs) * time.Millisecond

	// The hub doubles as the notification capability, and each
	// controller dispatches through it; the factory closure captures the
	// hub variable, which is assigned before any connection arrives.
	var h *hub.Hub
	factory := func(user model.Participant, sink consult.Sink) *consult.Controller {
		role := model.RoleUser
		if directoryHasDoctor(directory, user.ID) {
			role = model.RoleDoctor
		}
		return consult.NewController(consult.ControllerConfig{
			Store:            st,
			User:             user,
			Role:             role,
			Doctors:          directory,
			Capture:          capture.Unavailable(),
			Notifier:         notify.NewDispatcher(h, logger),
			Engine:           engine,
			Clips:            clips,
			Sink:             sink,
			TypingExpiry:     typingExpiry,
			VideoRoomBaseURL: config.Consult.VideoRoomBaseURL,
			Log:              logger,
		})
	}
	h = hub.NewHub(directory, factory, config.Server.AllowedOrigins, logger)

	var consultHandler handler.ConsultHandler
	if con != nil {
		doctorRepo := repo.NewDoctorRepository(con, logger)
		consultationRepo := repo.NewConsultationRepository(con, logger)
		consultService := service.NewConsultService(doctorRepo, consultationRepo, engine)
		consultHandler = handler.NewConsultHandler(consultService, clips)
	}

	return &Container{
		ConsultHandler: consultHandler,
		Hub:            h,
		Directory:      directory,
		Config:         *config,
		Logger:         logger,
		mongoClient:    con,
	}, nil
}

// directoryHasDoctor decides the connecting participant's role: an id
// present in the doctor directory joins as the doctor side.
func directoryHasDoctor(d *consult.Directory, id string) bool {
	_, ok := d.Find(id)
	return ok
}

// Close gracefully shuts down all connections
func (c *Container) Close() error {
	// Stop the hub first (closes all WebSocket connections)
	if c.Hub != nil {
		c.Hub.Stop()
	}

	if c.Directory != nil {
		c.Directory.Close()
	}

	// Sync logger
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}

	// Close MongoDB connection pool
	if c.mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.mongoClient.Client().Disconnect(ctx); err != nil {
			return fmt.Errorf("failed to close MongoDB connection: %w", err)
		}
	}

	return nil
}
