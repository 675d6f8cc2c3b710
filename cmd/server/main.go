// Command server starts the wavegate streaming gateway.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"wavegate/internal/catalog"
	"wavegate/internal/observability/logging"
	"wavegate/internal/observability/metrics"
	"wavegate/internal/ratelimit"
	"wavegate/internal/server"
	"wavegate/internal/serverutil"
	"wavegate/internal/signing"
	"wavegate/internal/storage"
	"wavegate/internal/stream"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address")
	logLevel := flag.String("log-level", "", "log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "log format (json or text)")

	objectEndpoint := flag.String("object-endpoint", "", "object storage endpoint URL")
	objectRegion := flag.String("object-region", "", "object storage region")
	objectBucket := flag.String("object-bucket", "", "object storage bucket")
	objectAccessKey := flag.String("object-access-key", "", "object storage access key")
	objectSecretKey := flag.String("object-secret-key", "", "object storage secret key")
	objectPrefix := flag.String("object-prefix", "", "key prefix applied to every object lookup")
	objectPathStyle := flag.Bool("object-path-style", false, "use path-style object URLs (MinIO and friends)")
	metadataTTL := flag.Duration("metadata-ttl", 0, "how long object metadata may be served from cache")

	catalogDSN := flag.String("catalog-dsn", "", "Postgres DSN for the track catalog (optional)")
	catalogMaxConns := flag.Int("catalog-max-conns", 0, "maximum connections in the catalog pool")

	signingSecret := flag.String("signing-secret", "", "secret enforcing signed stream URLs (optional)")
	corsOrigin := flag.String("cors-origin", "", "origin allowed to fetch streams cross-origin")

	rateLimit := flag.Int("rate-limit", 0, "stream requests admitted per client per window")
	rateWindow := flag.Duration("rate-window", 0, "admission window")
	rateRedisAddr := flag.String("rate-redis-addr", "", "Redis address for a shared admission window (optional)")
	rateRedisUsername := flag.String("rate-redis-username", "", "Redis username for the admission store")
	rateRedisPassword := flag.String("rate-redis-password", "", "Redis password for the admission store")

	tlsCert := flag.String("tls-cert", "", "path to TLS certificate file")
	tlsKey := flag.String("tls-key", "", "path to TLS private key file")
	shutdownTimeout := flag.Duration("shutdown-timeout", 0, "graceful shutdown timeout")
	flag.Parse()

	logger := logging.Init(logging.Config{
		Level:  firstNonEmpty(*logLevel, os.Getenv("WAVEGATE_LOG_LEVEL")),
		Format: firstNonEmpty(*logFormat, os.Getenv("WAVEGATE_LOG_FORMAT")),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gateway, err := storage.NewS3Gateway(ctx, storage.S3Config{
		Endpoint:     firstNonEmpty(*objectEndpoint, os.Getenv("WAVEGATE_OBJECT_ENDPOINT")),
		Region:       firstNonEmpty(*objectRegion, os.Getenv("WAVEGATE_OBJECT_REGION")),
		Bucket:       firstNonEmpty(*objectBucket, os.Getenv("WAVEGATE_OBJECT_BUCKET")),
		AccessKey:    firstNonEmpty(*objectAccessKey, os.Getenv("WAVEGATE_OBJECT_ACCESS_KEY")),
		SecretKey:    firstNonEmpty(*objectSecretKey, os.Getenv("WAVEGATE_OBJECT_SECRET_KEY")),
		Prefix:       firstNonEmpty(*objectPrefix, os.Getenv("WAVEGATE_OBJECT_PREFIX")),
		UsePathStyle: *objectPathStyle || envBool("WAVEGATE_OBJECT_PATH_STYLE"),
	})
	if err != nil {
		logger.Error("configure object storage", "error", err)
		os.Exit(1)
	}
	cached := storage.NewMetadataCache(gateway, *metadataTTL)

	var trackCatalog catalog.Repository
	if dsn := firstNonEmpty(*catalogDSN, os.Getenv("WAVEGATE_CATALOG_DSN")); dsn != "" {
		trackCatalog, err = catalog.NewPostgresRepository(ctx, catalog.PostgresConfig{
			DSN:             dsn,
			MaxConnections:  int32(*catalogMaxConns),
			ApplicationName: "wavegate",
		})
		if err != nil {
			logger.Error("connect track catalog", "error", err)
			os.Exit(1)
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := trackCatalog.Close(closeCtx); err != nil {
				logger.Warn("close track catalog", "error", err)
			}
		}()
	}

	signer := signing.New(firstNonEmpty(*signingSecret, os.Getenv("WAVEGATE_SIGNING_SECRET")))
	if !signer.Enabled() {
		logger.Warn("stream URL signing disabled; token and expires parameters are ignored")
	}

	origin := firstNonEmpty(*corsOrigin, os.Getenv("WAVEGATE_CORS_ORIGIN"))
	recorder := metrics.Default()

	handler, err := stream.NewHandler(stream.Config{
		Storage:    cached,
		Catalog:    trackCatalog,
		Signer:     signer,
		Logger:     logging.WithComponent(logger, "stream"),
		Metrics:    recorder,
		CORSOrigin: origin,
	})
	if err != nil {
		logger.Error("configure stream handler", "error", err)
		os.Exit(1)
	}

	srv, err := server.New(handler, server.Config{
		Addr: resolveListenAddr(*addr, os.Getenv("WAVEGATE_ADDR")),
		TLS: server.TLSConfig{
			CertFile: firstNonEmpty(*tlsCert, os.Getenv("WAVEGATE_TLS_CERT")),
			KeyFile:  firstNonEmpty(*tlsKey, os.Getenv("WAVEGATE_TLS_KEY")),
		},
		RateLimit: ratelimit.Config{
			Limit:         intOr(*rateLimit, envInt("WAVEGATE_RATE_LIMIT")),
			Window:        durationOr(*rateWindow, envDuration("WAVEGATE_RATE_WINDOW")),
			RedisAddr:     firstNonEmpty(*rateRedisAddr, os.Getenv("WAVEGATE_RATE_REDIS_ADDR")),
			RedisUsername: firstNonEmpty(*rateRedisUsername, os.Getenv("WAVEGATE_RATE_REDIS_USERNAME")),
			RedisPassword: firstNonEmpty(*rateRedisPassword, os.Getenv("WAVEGATE_RATE_REDIS_PASSWORD")),
		},
		Logger:     logging.WithComponent(logger, "server"),
		Metrics:    recorder,
		CORSOrigin: origin,
	})
	if err != nil {
		logger.Error("configure server", "error", err)
		os.Exit(1)
	}

	logger.Info("gateway listening", "addr", srv.HTTPServer().Addr)
	if err := serverutil.Run(ctx, serverutil.Config{
		Server: srv.HTTPServer(),
		TLS: serverutil.TLSConfig{
			CertFile: firstNonEmpty(*tlsCert, os.Getenv("WAVEGATE_TLS_CERT")),
			KeyFile:  firstNonEmpty(*tlsKey, os.Getenv("WAVEGATE_TLS_KEY")),
		},
		ShutdownTimeout: durationOr(*shutdownTimeout, envDuration("WAVEGATE_SHUTDOWN_TIMEOUT")),
	}); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("gateway stopped")
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func resolveListenAddr(flagValue, envValue string) string {
	if addr := firstNonEmpty(flagValue, envValue); addr != "" {
		return addr
	}
	return ":8080"
}

func intOr(values ...int) int {
	for _, value := range values {
		if value > 0 {
			return value
		}
	}
	return 0
}

func durationOr(values ...time.Duration) time.Duration {
	for _, value := range values {
		if value > 0 {
			return value
		}
	}
	return 0
}

func envBool(name string) bool {
	value, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(name)))
	return err == nil && value
}

func envInt(name string) int {
	value, err := strconv.Atoi(strings.TrimSpace(os.Getenv(name)))
	if err != nil {
		return 0
	}
	return value
}

func envDuration(name string) time.Duration {
	value, err := time.ParseDuration(strings.TrimSpace(os.Getenv(name)))
	if err != nil {
		return 0
	}
	return value
}
