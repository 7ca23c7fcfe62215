package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bitmark-inc/plasmalink-api/background"
	"github.com/bitmark-inc/plasmalink-api/messaging"
	"github.com/bitmark-inc/plasmalink-api/store"
	"github.com/bitmark-inc/plasmalink-api/utils"
)

var (
	mongoClient *mongo.Client
	broker      *messaging.RedisBroker
	manager     *background.BackgroundManager
)

func panicIfError(err error) {
	if err != nil {
		panic(err)
	}
}

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

	viper.SetDefault("mongo.database", "plasmalink")
	viper.SetDefault("mongo.pool", 100)
	viper.SetDefault("redis.conn", "redis://localhost:6379")
	viper.SetDefault("i18n.dir", "./i18n")
	viper.SetDefault("i18n.default_language", "en")
	viper.SetDefault("donation.pending_ttl", "168h")
	viper.SetDefault("background.concurrency", 5)
}

func main() {
	var configFile string

	initialCtx, cancelInitialization := context.WithCancel(context.Background())

	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Info("Worker is preparing to shutdown")

		if initialCtx != nil && cancelInitialization != nil {
			log.Info("Cancelling initialization")
			cancelInitialization()
			<-initialCtx.Done()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if manager != nil {
			log.Info("Stopping background worker")
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
			mongoClient.Disconnect(ctx)
		}

		sentry.Flush(2 * time.Second)
		os.Exit(0)
	}()

	flag.StringVar(&configFile, "c", "./config.yaml", "[optional] path of configuration file")
	flag.Parse()

	loadConfig(configFile)

	initLog()

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         viper.GetString("sentry.dsn"),
		Environment: viper.GetString("sentry.environment"),
		Dist:        viper.GetString("sentry.dist"),
	}); err != nil {
		log.WithError(err).Error("Sentry initialization failed")
	}

	utils.InitI18NBundle()

	var err error

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

	broker, err = messaging.NewRedisBroker(initialCtx, viper.GetString("redis.conn"))
	if err != nil {
		log.Panic(err)
	}

	taskServer, err := background.NewTaskServer()
	if err != nil {
		log.Panic(err)
	}

	manager = background.New(
		store.NewMongoStore(mongoClient, viper.GetString("mongo.database")),
		broker,
		taskServer,
		nil,
	)
	panicIfError(manager.RegisterTasks())

	if err := manager.Run(); err != nil {
		log.Panic(err)
	}
}
