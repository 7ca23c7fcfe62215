package background

import (
	"errors"
	"time"

	"github.com/RichardKnop/machinery/v1"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/uber-go/tally"

	"github.com/bitmark-inc/plasmalink-api/messaging"
	"github.com/bitmark-inc/plasmalink-api/notification"
	"github.com/bitmark-inc/plasmalink-api/store"
)

const (
	logPrefix = "background"

	ExpirePendingRequestsTaskName = "expire_pending_requests"

	defaultPendingTTL  = 7 * 24 * time.Hour
	defaultConcurrency = 5
)

// BackgroundManager is a struct for plasmalink background manager
type BackgroundManager struct {
	store store.DonationStore

	consumer *notification.Consumer

	taskServer *machinery.Server

	worker *machinery.Worker

	pendingTTL time.Duration
}

func New(mongoStore store.MongoStore, broker messaging.Broker, taskServer *machinery.Server, scope tally.Scope) *BackgroundManager {
	if scope == nil {
		scope = tally.NoopScope
	}

	pendingTTL := viper.GetDuration("donation.pending_ttl")
	if pendingTTL <= 0 {
		pendingTTL = defaultPendingTTL
	}

	return &BackgroundManager{
		store: mongoStore,
		consumer: notification.NewConsumer(
			mongoStore,
			broker,
			viper.GetString("i18n.default_language"),
			scope,
		),
		taskServer: taskServer,
		pendingTTL: pendingTTL,
	}
}

func (m *BackgroundManager) RegisterTask(name string, taskFunc interface{}) error {
	return m.taskServer.RegisterTask(name, taskFunc)
}

// RegisterTasks registers every task the worker serves
func (m *BackgroundManager) RegisterTasks() error {
	if err := m.RegisterTask(notification.DeliverTaskName, m.DeliverNotification); err != nil {
		return err
	}
	return m.RegisterTask(ExpirePendingRequestsTaskName, m.ExpirePendingRequests)
}

func (m *BackgroundManager) newWorker() (*machinery.Worker, error) {
	if m.worker != nil {
		return nil, errors.New("background worker has started")
	}

	concurrency := viper.GetInt("background.concurrency")
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	m.worker = m.taskServer.NewWorker("plasmalink-worker", concurrency)
	return m.worker, nil
}

// Run spawn workers to execute background jobs
func (m *BackgroundManager) Run() error {
	worker, err := m.newWorker()
	if err != nil {
		return err
	}
	return worker.Launch()
}

// RunAsync spawns the worker next to the api server. Worker errors are
// sent to errorsChan.
func (m *BackgroundManager) RunAsync(errorsChan chan<- error) error {
	worker, err := m.newWorker()
	if err != nil {
		return err
	}
	worker.LaunchAsync(errorsChan)
	log.WithField("prefix", logPrefix).Info("inline background worker launched")
	return nil
}

// Stop quits the worker if it runs
func (m *BackgroundManager) Stop() {
	if m.worker != nil {
		m.worker.Quit()
	}
}
