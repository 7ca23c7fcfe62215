package notification

import (
	"github.com/RichardKnop/machinery/v1/backends/result"
	"github.com/RichardKnop/machinery/v1/tasks"
	log "github.com/sirupsen/logrus"
)

const DeliverTaskName = "deliver_notification"

// TaskSender is the part of a machinery server used to enqueue tasks
type TaskSender interface {
	SendTask(signature *tasks.Signature) (*result.AsyncResult, error)
}

// TaskPublisher enqueues events as deliver_notification tasks
type TaskPublisher struct {
	sender TaskSender
}

func NewTaskPublisher(sender TaskSender) *TaskPublisher {
	return &TaskPublisher{sender: sender}
}

func (p *TaskPublisher) Publish(event Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	payload, err := event.Encode()
	if err != nil {
		return err
	}

	if _, err := p.sender.SendTask(&tasks.Signature{
		Name: DeliverTaskName,
		Args: []tasks.Arg{
			{Type: "string", Value: payload},
		},
	}); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"prefix":   logPrefix,
		"template": event.Template,
		"user_id":  event.UserID,
	}).Debug("notification enqueued")

	return nil
}
