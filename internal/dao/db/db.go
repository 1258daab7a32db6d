// Package db opens the relational store for the configured driver, migrates the schema and
// builds the repository layer on top of it.
package db

import (
	"fmt"
	"time"

	"evo_chat_server/internal/config"
	"evo_chat_server/internal/dao/db/repository"
	"evo_chat_server/internal/model"

	"go.uber.org/zap"
	mysqldriver "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Init connects, migrates and returns the repositories.
// Steps:
//  1. pick the dialector from databaseConfig.driver
//  2. open with error translation so unique violations become gorm.ErrDuplicatedKey
//  3. size the connection pool
//  4. AutoMigrate every table
func Init(conf config.DatabaseConfig) (*repository.Repositories, error) {
	gdb, err := Open(conf)
	if err != nil {
		return nil, err
	}
	if err := Migrate(gdb); err != nil {
		return nil, err
	}
	zap.L().Info("database ready", zap.String("driver", conf.Driver))
	return repository.NewRepositories(gdb), nil
}

// Open connects without migrating.
func Open(conf config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := dialectorFor(conf)
	if err != nil {
		return nil, err
	}
	gdb, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC().Truncate(time.Microsecond)
		},
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", conf.Driver, err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	if conf.Driver == "sqlite" {
		// one writer at a time; also keeps ":memory:" databases on a single connection
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(conf.MaxOpenConns)
		sqlDB.SetMaxIdleConns(conf.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}
	return gdb, nil
}

func dialectorFor(conf config.DatabaseConfig) (gorm.Dialector, error) {
	switch conf.Driver {
	case "mysql":
		// loc=UTC so DATETIME(6) columns round-trip as UTC, matching UTC_TIMESTAMP(6)
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			conf.User, conf.Password, conf.Host, conf.Port, conf.DatabaseName)
		return mysqldriver.Open(dsn), nil
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			conf.Host, conf.Port, conf.User, conf.Password, conf.DatabaseName)
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(conf.SqlitePath), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", conf.Driver)
	}
}

// Migrate creates or updates every table. Existing columns and data are never dropped.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&model.User{},
		&model.Conversation{},
		&model.Participant{},
		&model.Message{},
		&model.Reaction{},
		&model.ReadMark{},
		&model.FriendRequest{},
		&model.Block{},
	)
}
