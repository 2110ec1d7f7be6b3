package config

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskassign/models"
)

// GormConfig is shared by the server and the tests so both translate
// driver errors the same way.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger: logger.New(
			log.New(os.Stdout, "", log.LstdFlags),
			logger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
	}
}

func ConnectDB(cfg Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case DriverPostgres:
		pgCfg, err := pgx.ParseConfig(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse DSN: %w", err)
		}
		// Force IPv4 to avoid IPv6-only routes on some hosts
		pgCfg.DialFunc = func(ctx context.Context, network, addr string) (net.Conn, error) {
			d := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
			return d.DialContext(ctx, "tcp4", addr)
		}
		dialector = postgres.New(postgres.Config{Conn: stdlib.OpenDB(*pgCfg)})
	case DriverMySQL:
		dsnCfg, err := mysqlDSN(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		dialector = mysql.New(mysql.Config{DSN: dsnCfg.FormatDSN(), DSNConfig: dsnCfg})
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, GormConfig())
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}

	log.Printf("[DB] connected (%s)", cfg.DBDriver)
	return db, nil
}

// mysqlDSN parses a go-sql-driver DSN and turns on parseTime so DATETIME
// columns scan into time.Time.
func mysqlDSN(raw string) (*gomysql.Config, error) {
	dsnCfg, err := gomysql.ParseDSN(raw)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}
	dsnCfg.ParseTime = true
	return dsnCfg, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{}, &models.Task{}, &models.TaskAudit{})
}
