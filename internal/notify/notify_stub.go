//go:build !linux
// +build !linux

package notify

import (
	"context"

	"go.uber.org/zap"
)

// StubNotifier only logs; desktop notifications are Linux-only for now
type StubNotifier struct {
	logger *zap.Logger
}

// NewNotifier creates a stub notifier for unsupported platforms
func NewNotifier(logger *zap.Logger) *StubNotifier {
	logger.Warn("Desktop notifications are not implemented for this platform")
	return &StubNotifier{logger: logger}
}

// Notify logs the notification instead of showing it
func (n *StubNotifier) Notify(ctx context.Context, title, body string) error {
	n.logger.Info("Notification", zap.String("title", title), zap.String("body", body))
	return nil
}
