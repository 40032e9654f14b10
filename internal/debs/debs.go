package deps

import (
	"context"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/bsm/redislock"
	"github.com/bwise1/civic_dispatch/config"
	"github.com/bwise1/civic_dispatch/internal/cache"
	"github.com/bwise1/civic_dispatch/internal/dashboard"
	"github.com/bwise1/civic_dispatch/internal/db"
	"github.com/bwise1/civic_dispatch/internal/dispatch"
	"github.com/bwise1/civic_dispatch/internal/notify"
	"github.com/bwise1/civic_dispatch/internal/store"
	"github.com/bwise1/civic_dispatch/util/storage"
	"github.com/bwise1/civic_dispatch/util/websockets"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

const startupTimeout = 10 * time.Second

type Dependencies struct {
	Logger     *logrus.Logger
	DB         *db.DB
	Store      store.Store
	Redis      *redis.Client
	PubSub     *pubsub.Client
	Cloudinary *storage.Cloudinary
	WebSocket  *websockets.WebSocketManager
	Fanout     *notify.Fanout
	Dispatch   *dispatch.Service
	Dashboard  *dashboard.Service

	pubsubSink *notify.PubSubSink
}

func New(cfg *config.Config, logger *logrus.Logger) (*Dependencies, error) {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	d := &Dependencies{Logger: logger}

	switch cfg.StoreBackend {
	case config.StoreBackendMemory:
		d.Store = store.NewMemoryStore()
	default:
		database, err := db.New(cfg.Dsn, logger)
		if err != nil {
			return nil, errors.Wrap(err, "connecting to database")
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, errors.Wrap(err, "migrating database")
		}
		d.DB = database
		d.Store = store.NewPostgresStore(database)
	}

	needsRedis := cfg.CacheBackend == config.CacheBackendRedis || cfg.LockBackend == config.LockBackendRedis || cfg.RedisFanout
	if needsRedis {
		d.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := d.Redis.Ping(ctx).Err(); err != nil {
			d.Close()
			return nil, errors.Wrap(err, "connecting to redis")
		}
	}

	cld, err := storage.NewCloudinary(cfg)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Cloudinary = cld

	d.WebSocket = websockets.NewWebSocketManager()
	sinks := []notify.Sink{notify.NewWebSocketSink(d.WebSocket)}
	if cfg.RedisFanout {
		sinks = append(sinks, notify.NewRedisSink(d.Redis))
	}
	if cfg.PubSubProjectID != "" && cfg.PubSubTopic != "" {
		var opts []option.ClientOption
		if cfg.PubSubCredentialsJSON != "" {
			opts = append(opts, option.WithCredentialsJSON([]byte(cfg.PubSubCredentialsJSON)))
		}
		d.PubSub, err = pubsub.NewClient(ctx, cfg.PubSubProjectID, opts...)
		if err != nil {
			d.Close()
			return nil, errors.Wrap(err, "creating pubsub client")
		}
		d.pubsubSink = notify.NewPubSubSink(d.PubSub.Topic(cfg.PubSubTopic))
		sinks = append(sinks, d.pubsubSink)
	}
	d.Fanout = notify.NewFanout(logger, cfg.FanoutQueueSize, sinks...)

	var locker dispatch.Locker = dispatch.NewKeyedMutex()
	if cfg.LockBackend == config.LockBackendRedis {
		locker = dispatch.NewRedisLocker(redislock.New(d.Redis), logger)
	}

	d.Dispatch = dispatch.NewService(d.Store, locker, d.Fanout, logger, dispatch.Options{
		DuplicateRadiusMeters: cfg.DuplicateRadiusMeters,
		Photos:                d.Cloudinary,
	})

	var backend cache.Backend
	if cfg.CacheBackend == config.CacheBackendRedis {
		backend = cache.NewRedisBackend(d.Redis)
	} else {
		backend, err = cache.NewMemoryBackend(cfg.CacheSize, nil)
		if err != nil {
			d.Close()
			return nil, err
		}
	}
	d.Dashboard = dashboard.NewService(d.Store, cache.New(backend, logger), dashboard.Config{
		CitizenTTL:         cfg.CitizenDashboardTTL,
		AuthorityTTL:       cfg.AuthorityDashboardTTL,
		AdminTTL:           cfg.AdminDashboardTTL,
		NearbyRadiusMeters: cfg.CitizenNearbyRadiusMeters,
	})

	return d, nil
}

// Close drains pending notifications before releasing connections.
func (d *Dependencies) Close() {
	if d.Fanout != nil {
		d.Fanout.Close()
	}
	if d.WebSocket != nil {
		d.WebSocket.Close()
	}
	if d.pubsubSink != nil {
		d.pubsubSink.Stop()
	}
	if d.PubSub != nil {
		if err := d.PubSub.Close(); err != nil {
			d.Logger.WithError(err).Warn("closing pubsub client")
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.WithError(err).Warn("closing redis client")
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
}
