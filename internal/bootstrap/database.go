package bootstrap

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/havenmind/safeguard/internal/config"
	"github.com/havenmind/safeguard/internal/database"
	"github.com/havenmind/safeguard/internal/logger"
)

// DatabaseComponents holds database connection and repositories.
type DatabaseComponents struct {
	DB        *sqlx.DB
	EventRepo *database.CrisisEventRepository
}

// SetupDatabase creates the database connection and repositories.
func SetupDatabase(cfg *config.Config, log logger.Logger) (*DatabaseComponents, error) {
	dbConfig := database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.Database,
		SSLMode:  cfg.Database.SSLMode,
	}

	log.Info("Connecting to PostgreSQL database",
		logger.String("host", dbConfig.Host),
		logger.String("port", dbConfig.Port),
		logger.String("database", dbConfig.DBName),
	)

	db, err := database.NewPostgresConnection(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info("Database connected successfully")

	return &DatabaseComponents{
		DB:        db,
		EventRepo: database.NewCrisisEventRepository(db),
	}, nil
}
