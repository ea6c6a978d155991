package config

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB holds the backing store connections. Mongo and Redis are optional and
// stay nil when their URLs are not configured.
type DB struct {
	SQL   *gorm.DB
	Mongo *mongo.Client
	Redis *redis.Client

	logger *zap.Logger
}

// InitDB opens the relational store and any optional stores configured.
func InitDB(cfg *Config, logger *zap.Logger) (*DB, error) {
	logger = logger.Named("db")

	sqlDB, err := OpenSQL(cfg.DatabaseDriver, cfg.PostgresConn, cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.DatabaseDriver, err)
	}
	logger.Info("connected to relational store", zap.String("driver", cfg.DatabaseDriver))

	db := &DB{SQL: sqlDB, logger: logger}

	if cfg.MongoURI != "" {
		db.Mongo, err = initMongo(cfg.MongoURI)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		logger.Info("connected to MongoDB")
	} else {
		logger.Info("MONGO_URI not set, delivery reports will not be archived")
	}

	if cfg.RedisURL != "" {
		db.Redis, err = initRedis(cfg.RedisURL)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		logger.Info("connected to Redis")
	} else {
		logger.Info("REDIS_URL not set, real-time notifications disabled")
	}

	return db, nil
}

// OpenSQL opens a gorm connection for the given driver. Unique violations are
// translated to gorm.ErrDuplicatedKey.
func OpenSQL(driver, postgresConn, sqlitePath string) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	}

	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(postgresConn)
	case "sqlite":
		dialector = sqlite.Open(sqlitePath + "?_busy_timeout=5000&_foreign_keys=on")
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" {
		// sqlite serialises writers; one connection avoids SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

func initMongo(uri string) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(uri)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}
	if err = client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return client, nil
}

func initRedis(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// Close closes every open connection.
func (db *DB) Close() {
	if db.SQL != nil {
		sqlDB, err := db.SQL.DB()
		if err != nil {
			db.logger.Error("get sql handle from gorm", zap.Error(err))
		} else if err := sqlDB.Close(); err != nil {
			db.logger.Error("close relational store", zap.Error(err))
		}
	}

	if db.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Mongo.Disconnect(ctx); err != nil {
			db.logger.Error("close MongoDB connection", zap.Error(err))
		}
	}

	if db.Redis != nil {
		if err := db.Redis.Close(); err != nil {
			db.logger.Error("close Redis connection", zap.Error(err))
		}
	}
	db.logger.Info("database connections closed")
}
