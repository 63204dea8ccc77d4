// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var (
	sweepNow          = pflag.Bool("sweep-now", false, "Runs the cleanup sweeps once at startup")
	validLogLevels    = []string{"debug", "info", "warn", "error", "fatal"}
	validStorageTypes = []string{"s3", "local"}
	validDrivers      = []string{"sqlite", "postgres"}
	validCacheTypes   = []string{"memory", "redis"}
)

func genSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	v.AutomaticEnv()

	//
	// ENVS
	//
	v.BindEnv("app.log_level", "app_log_level")

	v.BindEnv("host.port", "host_port")
	v.BindEnv("host.domain", "host_domain")

	v.BindEnv("database.driver", "database_driver")
	v.BindEnv("database.dsn", "database_dsn")

	v.BindEnv("jwt.secret", "jwt_secret")

	v.BindEnv("storage.type", "storage_type")
	v.BindEnv("storage.local_path", "storage_local_path")

	v.BindEnv("aws.region", "aws_region")
	v.BindEnv("aws.access_key_id", "aws_access_key_id")
	v.BindEnv("aws.secret_access_key", "aws_secret_access_key")
	v.BindEnv("aws.bucket", "aws_bucket")
	v.BindEnv("aws.cloudfront_url", "aws_cloudfront_url")
	v.BindEnv("aws.endpoint", "aws_endpoint")

	v.BindEnv("upload.max_image_size", "upload_max_image_size")
	v.BindEnv("upload.max_video_size", "upload_max_video_size")

	v.BindEnv("worker.enabled", "worker_enabled")
	v.BindEnv("worker.batch_size", "worker_batch_size")
	v.BindEnv("worker.interval", "worker_interval")

	v.BindEnv("cleanup.orphan_after_days", "cleanup_orphan_after_days")
	v.BindEnv("cleanup.failed_task_after_days", "cleanup_failed_task_after_days")
	v.BindEnv("cleanup.interval", "cleanup_interval")

	v.BindEnv("cache.type", "cache_type")
	v.BindEnv("cache.redis_addr", "cache_redis_addr")

	v.BindEnv("ratelimit.rps", "ratelimit_rps")
	v.BindEnv("ratelimit.burst", "ratelimit_burst")

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.domain", "localhost")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/media.db")

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "data/media")

	// MiB, shifted where they're read
	v.SetDefault("upload.max_image_size", 10)
	v.SetDefault("upload.max_video_size", 100)

	v.SetDefault("worker.enabled", true)
	v.SetDefault("worker.batch_size", 10)
	v.SetDefault("worker.interval", "5s")

	v.SetDefault("cleanup.orphan_after_days", 7)
	v.SetDefault("cleanup.failed_task_after_days", 3)
	v.SetDefault("cleanup.interval", "1h")

	v.SetDefault("cache.type", "memory")

	v.SetDefault("ratelimit.rps", 25)
	v.SetDefault("ratelimit.burst", 50)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); ok {
			return errors.New("config.toml file is missing")
		}

		return fmt.Errorf("failed to read config file, %w", err)
	}

	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if !slices.Contains(validDrivers, v.GetString("database.driver")) {
		return errors.New("invalid database driver provided")
	}

	if v.GetString("database.dsn") == "" {
		return errors.New("database.dsn can't be empty")
	}

	if v.GetString("jwt.secret") == "" {
		fmt.Println("WARNING: You haven't set a JWT secret, so it has been generated for you. Please set it as an environment variable or in the config.toml file.\nYour random JWT secret:\n\n" + genSecret() + "\n\nPaste it into your config.toml file.")
		os.Exit(0)
	}

	if v.GetInt("upload.max_image_size") <= 0 {
		return errors.New("upload.max_image_size must be bigger than 0")
	}

	if v.GetInt("upload.max_video_size") <= 0 {
		return errors.New("upload.max_video_size must be bigger than 0")
	}

	if !slices.Contains(validStorageTypes, v.GetString("storage.type")) {
		return errors.New("invalid storage type provided")
	}

	if v.GetString("storage.type") == "s3" {
		if v.GetString("aws.region") == "" {
			return errors.New("aws region can't be empty")
		}
		if v.GetString("aws.access_key_id") == "" {
			return errors.New("aws access key id can't be empty")
		}
		if v.GetString("aws.secret_access_key") == "" {
			return errors.New("aws secret access key can't be empty")
		}
		if v.GetString("aws.bucket") == "" {
			return errors.New("aws bucket can't be empty")
		}
	}

	if v.GetInt("worker.batch_size") <= 0 {
		return errors.New("worker.batch_size must be bigger than 0")
	}

	if v.GetDuration("worker.interval") <= 0 {
		return errors.New("invalid worker.interval provided")
	}

	if v.GetInt("cleanup.orphan_after_days") <= 0 {
		return errors.New("cleanup.orphan_after_days must be bigger than 0")
	}

	if v.GetInt("cleanup.failed_task_after_days") <= 0 {
		return errors.New("cleanup.failed_task_after_days must be bigger than 0")
	}

	if v.GetDuration("cleanup.interval") <= 0 {
		return errors.New("invalid cleanup.interval provided")
	}

	if !slices.Contains(validCacheTypes, v.GetString("cache.type")) {
		return errors.New("invalid cache type provided")
	}

	if v.GetString("cache.type") == "redis" && v.GetString("cache.redis_addr") == "" {
		return errors.New("cache.redis_addr can't be empty")
	}

	return nil
}
