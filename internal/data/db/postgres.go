package db

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/coursegen-backend/internal/platform/envutil"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
)

// Service owns a gorm connection for whichever SQL dialect backs the document store.
type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(logg *logger.Logger) (*Service, error) {
	serviceLog := logg.With("service", "PostgresService")

	dsn := envutil.String("POSTGRES_DSN", "")
	if dsn == "" {
		dsn = fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s?sslmode=%s",
			envutil.String("POSTGRES_USER", "postgres"),
			envutil.String("POSTGRES_PASSWORD", ""),
			envutil.String("POSTGRES_HOST", "localhost"),
			envutil.String("POSTGRES_PORT", "5432"),
			envutil.String("POSTGRES_NAME", "coursegen"),
			envutil.String("POSTGRES_SSLMODE", "disable"),
		)
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	serviceLog.Info("connected to postgres", "host", envutil.String("POSTGRES_HOST", "localhost"))
	return &Service{db: db, log: serviceLog}, nil
}

func (s *Service) DB() *gorm.DB { return s.db }

// Ping checks the underlying connection pool.
func (s *Service) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Service) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger: gormLogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormLogger.Config{
				SlowThreshold:             1 * time.Second,
				LogLevel:                  gormLogger.Warn,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
	}
}
