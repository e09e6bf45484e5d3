package main

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/sigea-go-api/internal/config"
	"github.com/noah-isme/sigea-go-api/internal/handler"
	"github.com/noah-isme/sigea-go-api/pkg/cloudinary"
	"github.com/noah-isme/sigea-go-api/pkg/oss"
	"github.com/noah-isme/sigea-go-api/pkg/storage"
)

func newObjectStorage(cfg config.Config, logger zerolog.Logger) (storage.ObjectStorage, error) {
	switch cfg.StorageDriver {
	case config.StorageCloudinary:
		store, err := cloudinary.New(cloudinary.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StorageOSS:
		store, err := oss.New(oss.Config{
			Endpoint:        cfg.OSSEndpoint,
			AccessKeyID:     cfg.OSSAccessKeyID,
			AccessKeySecret: cfg.OSSAccessKeySecret,
			Bucket:          cfg.OSSBucket,
			Prefix:          cfg.OSSPrefix,
		}, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		store, err := storage.NewFilesystem(cfg.StorageLocalRoot, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

func healthProbes(db *gorm.DB, redisClient *redis.Client, natsConn *nats.Conn) []handler.HealthProbe {
	probes := []handler.HealthProbe{
		{Name: "postgres", Check: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}},
		{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}},
	}
	if natsConn != nil {
		probes = append(probes, handler.HealthProbe{Name: "nats", Check: func(context.Context) error {
			if !natsConn.IsConnected() {
				return errors.New(natsConn.Status().String())
			}
			return nil
		}})
	}
	return probes
}
