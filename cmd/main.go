package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fathima-sithara/dm-service/internal/api"
	"github.com/fathima-sithara/dm-service/internal/auth"
	"github.com/fathima-sithara/dm-service/internal/config"
	"github.com/fathima-sithara/dm-service/internal/discovery"
	"github.com/fathima-sithara/dm-service/internal/events"
	"github.com/fathima-sithara/dm-service/internal/kafka"
	"github.com/fathima-sithara/dm-service/internal/media"
	"github.com/fathima-sithara/dm-service/internal/middleware"
	"github.com/fathima-sithara/dm-service/internal/presence"
	"github.com/fathima-sithara/dm-service/internal/registry"
	"github.com/fathima-sithara/dm-service/internal/repository"
	"github.com/fathima-sithara/dm-service/internal/service"
	"github.com/fathima-sithara/dm-service/internal/utils"
	"github.com/fathima-sithara/dm-service/internal/ws"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	logger, err := utils.NewLogger(cfg.IsDevelopment(), cfg.Log.Level)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer logger.Sync()

	instanceID := cfg.App.InstanceID
	if instanceID == "" {
		instanceID = uuid.NewString()
	}
	logger = logger.With(zap.String("instance", instanceID))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	// storage
	var (
		repo  repository.MessageRepository
		users repository.UserDirectory
	)
	switch cfg.Store.Driver {
	case "badger":
		db, err := repository.OpenBadger(cfg.Store.BadgerPath)
		if err != nil {
			logger.Fatal("badger open", zap.Error(err))
		}
		br, err := repository.NewBadgerRepository(db)
		if err != nil {
			logger.Fatal("badger repository", zap.Error(err))
		}
		closers = append(closers, func() {
			_ = br.Close()
			_ = db.Close()
		})
		repo, users = br, br
	default:
		mc, err := repository.NewMongoClient(ctx, cfg.Mongo.URI,
			time.Duration(cfg.Mongo.ConnectTimeoutSeconds)*time.Second, logger)
		if err != nil {
			logger.Fatal("mongo init", zap.Error(err))
		}
		closers = append(closers, func() { _ = mc.Disconnect(context.Background()) })
		db := mc.Database(cfg.Mongo.DB)
		mr := repository.NewMongoRepository(db)
		if err := mr.EnsureIndexes(ctx); err != nil {
			logger.Warn("ensure indexes failed", zap.Error(err))
		}
		repo, users = mr, repository.NewMongoUserDirectory(db)
	}

	// redis: presence and send quota
	var (
		tracker     presence.Tracker
		sendLimiter *middleware.WindowLimiter
	)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { _ = rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		}
		tracker = presence.NewStore(rdb, cfg.Redis.Prefix, cfg.PresenceTTL)
		sendLimiter = middleware.NewWindowLimiter(rdb, cfg.Redis.Prefix+":send", cfg.Redis.SendLimit,
			time.Duration(cfg.Redis.SendWindowSeconds)*time.Second, logger)
	}

	// event bus
	var pub events.Publisher
	switch cfg.Events.Driver {
	case "kafka":
		kprod := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		closers = append(closers, func() { _ = kprod.Close(context.Background()) })
		pub = kprod
	case "nats":
		np, err := events.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			logger.Fatal("nats connect", zap.Error(err))
		}
		closers = append(closers, np.Close)
		pub = np
	}

	// media
	var uploader media.MediaUploader
	if cfg.Media.Driver == "s3" {
		store, err := media.NewS3Store(ctx, media.S3Options{
			Region:        cfg.Media.Region,
			Bucket:        cfg.Media.Bucket,
			Endpoint:      cfg.Media.Endpoint,
			PathStyle:     cfg.Media.PathStyle,
			PublicBaseURL: cfg.Media.PublicBaseURL,
		})
		if err != nil {
			logger.Fatal("s3 init", zap.Error(err))
		}
		uploader = media.NewUploader(store, media.Options{
			MaxBytes:        cfg.Media.MaxBytes,
			ThumbnailWidth:  cfg.Media.ThumbnailWidth,
			Timeout:         cfg.UploadTimeout,
			BreakerFailures: cfg.Media.BreakerFailures,
			BreakerTimeout:  time.Duration(cfg.Media.BreakerTimeoutSeconds) * time.Second,
		}, logger)
	}

	var tokens api.TokenValidator
	if cfg.JWT.Alg == "RS256" {
		jv, err := auth.NewRSAValidator(cfg.JWT.PublicKeyPath)
		if err != nil {
			logger.Fatal("jwt public key", zap.Error(err))
		}
		tokens = jv
	} else {
		tokens = auth.NewHMACValidator(cfg.JWT.HSSecret)
	}

	reg := registry.New()
	cmdSvc := service.NewCommandService(repo, uploader, reg, pub, instanceID, logger)
	qrySvc := service.NewQueryService(repo, users, logger)
	wsrv := ws.NewServer(reg, tracker, ws.Options{
		SendBuffer:     cfg.WS.SendBuffer,
		PingInterval:   cfg.PingInterval,
		WriteDeadline:  cfg.WriteDeadline,
		PongWait:       cfg.PongWait,
		MaxMessageSize: cfg.WS.MaxMessageSizeBytes,
	}, logger)

	if cfg.Kafka.Relay {
		groupID := cfg.Kafka.GroupID
		if groupID == "" {
			// every instance must see every event
			groupID = "dm-relay-" + instanceID
		}
		kcons := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, groupID, logger)
		closers = append(closers, func() { _ = kcons.Close(context.Background()) })
		relay := service.NewRelay(reg, instanceID, logger)
		go kcons.Start(ctx, relay.Handle)
	}

	ipLimiter := middleware.NewIPRateLimiter(cfg.App.RateLimitPerMin, cfg.App.RateLimitPerMin/4+1, logger)
	go ipLimiter.Run(ctx)

	app := api.NewServer(api.Deps{
		Commands:    cmdSvc,
		Queries:     qrySvc,
		Users:       users,
		Tokens:      tokens,
		Live:        wsrv,
		IPLimiter:   ipLimiter,
		SendLimiter: sendLimiter,
		BodyLimit:   int(cfg.Media.MaxBytes)*4/3 + 1<<20,
		Log:         logger,
	})

	if cfg.Consul.Addr != "" {
		registerConsul(cfg, instanceID, logger, &closers)
	}

	go func() {
		if err := app.Listen(":" + cfg.App.PortString()); err != nil {
			logger.Fatal("server listen", zap.Error(err))
		}
	}()
	logger.Info("dm-service started",
		zap.String("port", cfg.App.PortString()),
		zap.String("store", cfg.Store.Driver),
		zap.String("events", cfg.Events.Driver),
		zap.String("media", cfg.Media.Driver))

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
	logger.Info("dm-service stopped")
}

func registerConsul(cfg *config.Config, instanceID string, logger *zap.Logger, closers *[]func()) {
	r, err := discovery.NewRegistrar(cfg.Consul.Addr, logger)
	if err != nil {
		logger.Warn("consul client", zap.Error(err))
		return
	}
	addr := cfg.Consul.Address
	if addr == "" {
		addr, _ = os.Hostname()
	}
	id := cfg.Consul.ServiceName + "-" + instanceID
	if err := r.Register(discovery.Registration{
		ID:      id,
		Name:    cfg.Consul.ServiceName,
		Address: addr,
		Port:    cfg.App.Port,
	}); err != nil {
		logger.Warn("consul register", zap.Error(err))
		return
	}
	if peers, err := r.Peers(cfg.Consul.ServiceName); err == nil {
		logger.Info("healthy peers", zap.Strings("peers", peers))
	}
	*closers = append(*closers, func() { _ = r.Deregister(id) })
}
