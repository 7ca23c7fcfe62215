package background

import (
	"github.com/RichardKnop/machinery/v1"
	"github.com/RichardKnop/machinery/v1/config"
	"github.com/spf13/viper"
)

const defaultQueue = "plasmalink_background"

// NewTaskServer creates the machinery server on the configured redis, the
// api server enqueues with it and the worker consumes from it
func NewTaskServer() (*machinery.Server, error) {
	queue := viper.GetString("background.queue")
	if queue == "" {
		queue = defaultQueue
	}

	var conf = &config.Config{
		Broker:        viper.GetString("redis.conn"),
		DefaultQueue:  queue,
		ResultBackend: viper.GetString("redis.conn"),
	}
	return machinery.NewServer(conf)
}
