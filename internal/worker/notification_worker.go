package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-triage/internal/service"
)

// StartNotificationWorker subscribes the notification handlers to the dispatcher.
func StartNotificationWorker(notifications *service.NotificationService, logger *zap.Logger) {
	if notifications == nil {
		logger.Warn("notification service not configured; ticket events will not fan out")
		return
	}
	notifications.RegisterHandlers()
	logger.Info("notification handlers registered")
}
