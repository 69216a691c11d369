package repo

import (
	"Go_Shelf/config"
	"Go_Shelf/internal/logger"
	"Go_Shelf/model"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	gormMysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var Db *gorm.DB

// AutoMigrateAll migrates all catalog tables.
func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Resource{},
		&model.Video{},
		&model.CleanupTask{},
	)
}

// InitDB opens the relational store selected by DB_DRIVER and migrates it.
// On failure Db stays nil and catalog endpoints answer 503.
func InitDB() {
	db, err := openDB(config.AppConfig)
	if err != nil {
		logger.L.Error("init database fail", "driver", config.AppConfig.DBDriver, "error", err)
		return
	}
	if err := AutoMigrateAll(db); err != nil {
		logger.L.Error("migrate database fail", "error", err)
		return
	}
	logger.L.Info("init database success", "driver", config.AppConfig.DBDriver)
	Db = db
}

func openDB(cfg config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: gormLogger.Default.LogMode(gormLogger.Warn)}
	switch cfg.DBDriver {
	case "sqlite":
		dsn := cfg.DBDSN
		if dsn == "" {
			dsn = "go_shelf.db"
		}
		return OpenSQLite(dsn)
	case "postgres", "postgresql":
		dsn := cfg.DBDSN
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
				cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPass, cfg.DBName)
		}
		db, err := gorm.Open(postgres.Open(dsn), gormCfg)
		if err != nil {
			return nil, err
		}
		return db, tunePool(db)
	default:
		dsn := cfg.DBDSN
		if dsn == "" {
			dsn = mysqlDSN(cfg, cfg.DBName)
		}
		db, err := gorm.Open(gormMysql.Open(dsn), gormCfg)
		if err != nil && isUnknownDatabaseError(err) {
			if createErr := ensureMySQLDatabase(cfg, cfg.DBName); createErr != nil {
				return nil, createErr
			}
			db, err = gorm.Open(gormMysql.Open(dsn), gormCfg)
		}
		if err != nil {
			return nil, err
		}
		return db, tunePool(db)
	}
}

// OpenSQLite opens a SQLite database; "file:x?mode=memory&cache=shared" works for tests.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func tunePool(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return nil
}

func mysqlDSN(cfg config.Config, dbName string) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.DBUser,
		cfg.DBPass,
		cfg.DBHost,
		cfg.DBPort,
		dbName,
	)
}

func isUnknownDatabaseError(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1049
	}
	return strings.Contains(strings.ToLower(err.Error()), "unknown database")
}

func ensureMySQLDatabase(cfg config.Config, dbName string) error {
	dbName = strings.TrimSpace(dbName)
	if dbName == "" {
		return errors.New("empty database name")
	}

	serverDB, err := sql.Open("mysql", mysqlDSN(cfg, ""))
	if err != nil {
		return err
	}
	defer serverDB.Close()

	if err = serverDB.Ping(); err != nil {
		return err
	}

	_, err = serverDB.Exec(
		"CREATE DATABASE IF NOT EXISTS " + quoteMySQLIdentifier(dbName) + " CHARACTER SET utf8mb4 COLLATE utf8mb4_general_ci",
	)
	return err
}

func quoteMySQLIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// PingDB runs the bounded probe query used by the health endpoint.
func PingDB(ctx context.Context) error {
	if Db == nil {
		return errors.New("database not initialized")
	}
	var ids []string
	return Db.WithContext(ctx).Model(&model.Resource{}).Limit(1).Pluck("id", &ids).Error
}
