package worker

import (
	"github.com/helpdesk-labs/ticket-portal/internal/events"
	"github.com/helpdesk-labs/ticket-portal/internal/service"
)

// StartNotificationWorker registers notification handlers and, when a
// publisher is given, forwards every ticket event to the broker.
func StartNotificationWorker(dispatcher events.Dispatcher, notificationService *service.NotificationService, publisher *events.AMQPPublisher) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if publisher != nil && dispatcher != nil {
		publisher.SubscribeAll(dispatcher)
	}
}
