package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/uber-go/tally"
	promreporter "github.com/uber-go/tally/prometheus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"github.com/bitmark-inc/plasmalink-api/api"
	"github.com/bitmark-inc/plasmalink-api/background"
	"github.com/bitmark-inc/plasmalink-api/geo"
	"github.com/bitmark-inc/plasmalink-api/messaging"
	"github.com/bitmark-inc/plasmalink-api/store"
	"github.com/bitmark-inc/plasmalink-api/utils"
)

var (
	server      *api.Server
	mongoClient *mongo.Client
	broker      *messaging.RedisBroker
	manager     *background.BackgroundManager
	scopeCloser io.Closer
)

func initLog() {
	logLevel, err := log.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(logLevel)
	}

	log.SetOutput(os.Stdout)

	log.SetFormatter(&prefixed.TextFormatter{
		ForceFormatting: true,
		FullTimestamp:   true,
	})
}

func loadConfig(file string) {
	// Config from file
	viper.SetConfigType("yaml")
	if file != "" {
		viper.SetConfigFile(file)
	}

	viper.AddConfigPath("/.config/")
	viper.AddConfigPath(".")
	err := viper.ReadInConfig()
	if err != nil {
		fmt.Println("No config file. Read config from env.")
		viper.AllowEmptyEnv(false)
	}

	// Config from env if possible
	viper.AutomaticEnv()
	viper.SetEnvPrefix("plasmalink")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("server.port", 5000)
	viper.SetDefault("server.mode", "production")
	viper.SetDefault("server.client_url", "http://localhost:3000")
	viper.SetDefault("server.ratelimit.window", "15m")
	viper.SetDefault("server.ratelimit.max", 1000)
	viper.SetDefault("mongo.database", "plasmalink")
	viper.SetDefault("mongo.pool", 100)
	viper.SetDefault("redis.conn", "redis://localhost:6379")
	viper.SetDefault("jwt.expire", "168h")
	viper.SetDefault("search.default_radius", 10)
	viper.SetDefault("search.max_radius", 100)
	viper.SetDefault("chat.message_limit", 1000)
	viper.SetDefault("chat.history_limit", 0)
	viper.SetDefault("chat.match_cache_ttl", "5m")
	viper.SetDefault("donation.eligibility_interval", "336h")
	viper.SetDefault("donation.pending_ttl", "168h")
	viper.SetDefault("notification.list_limit", 20)
	viper.SetDefault("background.inline", true)
	viper.SetDefault("background.concurrency", 5)
	viper.SetDefault("i18n.dir", "./i18n")
	viper.SetDefault("i18n.default_language", "en")
	viper.SetDefault("log.level", "info")
}

func main() {
	var configFile string

	initialCtx, cancelInitialization := context.WithCancel(context.Background())

	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Info("Server is preparing to shutdown")

		if initialCtx != nil && cancelInitialization != nil {
			log.Info("Cancelling initialization")
			cancelInitialization()
			<-initialCtx.Done()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if server != nil {
			log.Info("Shutdown api server")
			if err := server.Shutdown(ctx); err != nil {
				log.Error("Server Shutdown:", err)
			}
		}

		if manager != nil {
			log.Info("Stopping inline background worker")
			manager.Stop()
		}

		if broker != nil {
			log.Info("Shutting down redis broker")
			if err := broker.Close(); err != nil {
				log.Error(err)
			}
		}

		if mongoClient != nil {
			log.Info("Shutting down mongo store")
			if err := mongoClient.Disconnect(ctx); err != nil {
				log.Error(err)
			}
		}

		if scopeCloser != nil {
			_ = scopeCloser.Close()
		}

		sentry.Flush(2 * time.Second)
		os.Exit(1)
	}()

	flag.StringVar(&configFile, "c", "./config.yaml", "[optional] path of configuration file")
	flag.Parse()

	loadConfig(configFile)

	initLog()

	// Sentry
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              viper.GetString("sentry.dsn"),
		AttachStacktrace: true,
		Environment:      viper.GetString("sentry.environment"),
		Dist:             viper.GetString("sentry.dist"),
	}); err != nil {
		log.Error(err)
	}
	log.WithField("prefix", "init").Info("Initialized sentry")

	if viper.GetString("jwt.secret") == "" {
		log.Panic("jwt.secret is required")
	}

	utils.InitI18NBundle()
	log.WithField("prefix", "init").Info("Loaded i18n bundle")

	// Metrics
	reporter := promreporter.NewReporter(promreporter.Options{})
	scope, closer := tally.NewRootScope(tally.ScopeOptions{
		Prefix:         "plasmalink",
		CachedReporter: reporter,
		Separator:      promreporter.DefaultSeparator,
	}, time.Second)
	scopeCloser = closer

	// Init redis
	machineryServer, err := background.NewTaskServer()
	if err != nil {
		log.Panic(err)
	}

	broker, err = messaging.NewRedisBroker(initialCtx, viper.GetString("redis.conn"))
	if err != nil {
		log.Panicf("connect redis broker with error: %s", err)
	}
	log.WithField("prefix", "init").Info("Connected redis broker")

	// initialise mongodb connections
	opts := options.Client().ApplyURI(viper.GetString("mongo.conn"))
	opts.SetMaxPoolSize(viper.GetUint64("mongo.pool"))
	mongoClient, err = mongo.NewClient(opts)
	if nil != err {
		log.Panicf("create mongo client with error: %s", err)
	}

	err = mongoClient.Connect(initialCtx)
	if nil != err {
		log.Panicf("connect mongo database with error: %s", err)
	}

	mongoStore := store.NewMongoStore(mongoClient, viper.GetString("mongo.database"))

	// Reverse geocoding is optional
	var resolver geo.LocationResolver
	if apiKey := viper.GetString("google.map.apikey"); apiKey != "" {
		geocoder, err := geo.NewGeocodingLocationResolverFromKey(apiKey, viper.GetString("i18n.default_language"))
		if err != nil {
			log.Panic(err)
		}
		resolver = geo.NewMultipleLocationResolver(geocoder)
		log.WithField("prefix", "init").Info("Initialized geocoding resolver")
	}

	if viper.GetBool("background.inline") {
		manager = background.New(mongoStore, broker, machineryServer, scope)
		if err := manager.RegisterTasks(); err != nil {
			log.Panic(err)
		}

		workerErrors := make(chan error, 1)
		if err := manager.RunAsync(workerErrors); err != nil {
			log.Panic(err)
		}
		go func() {
			for err := range workerErrors {
				log.WithField("prefix", "background").WithError(err).Error("inline worker stopped")
			}
		}()
		log.WithField("prefix", "init").Info("Started inline background worker")
	}

	// Init http server
	server = api.NewServer(
		mongoStore,
		broker,
		machineryServer,
		resolver,
		scope,
		reporter.HTTPHandler(),
	)
	log.WithField("prefix", "init").Info("Initialized http server")

	// Remove initial context
	initialCtx = nil
	cancelInitialization = nil

	log.Fatal(server.Run(":" + viper.GetString("server.port")))
}
