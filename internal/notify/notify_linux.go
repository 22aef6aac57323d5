//go:build linux
// +build linux

package notify

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

const appName = "Overlay"

// NotifyCommand represents a detected notification tool
type NotifyCommand struct {
	Name   string
	Binary string
	Args   []string // %t and %b are replaced with title and body
}

var (
	// Ordered list of notification tools to try (highest priority first)
	notifyCommands = []NotifyCommand{
		// libnotify, present on most desktops
		{Name: "notify-send", Binary: "notify-send", Args: []string{"--app-name=" + appName, "%t", "%b"}},
		// dunst
		{Name: "dunstify", Binary: "dunstify", Args: []string{"-a", appName, "%t", "%b"}},
		// KDE
		{Name: "kdialog", Binary: "kdialog", Args: []string{"--title", "%t", "--passivepopup", "%b", "5"}},
	}

	// ErrNoCommand is returned by Notify when no notification tool is installed
	ErrNoCommand = errors.New("no supported notification command found on this system")
)

// LinuxNotifier posts desktop notifications through a command line tool
type LinuxNotifier struct {
	logger  *zap.Logger
	command NotifyCommand
	run     func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewNotifier creates a notifier for the first available tool.
// A system without any tool still gets a notifier; it logs instead.
func NewNotifier(logger *zap.Logger) *LinuxNotifier {
	cmd := detectCommand(exec.LookPath)
	if cmd.Binary == "" {
		logger.Warn("No notification command found, recordings will only be logged",
			zap.Strings("tried", commandNames()))
	} else {
		logger.Info("Notification command detected",
			zap.String("name", cmd.Name),
			zap.String("binary", cmd.Binary))
	}

	return &LinuxNotifier{
		logger:  logger,
		command: cmd,
		run:     runCommand,
	}
}

// detectCommand returns the first tool lookPath can find
func detectCommand(lookPath func(string) (string, error)) NotifyCommand {
	for _, cmd := range notifyCommands {
		if _, err := lookPath(cmd.Binary); err == nil {
			return cmd
		}
	}
	return NotifyCommand{}
}

func commandNames() []string {
	names := make([]string, 0, len(notifyCommands))
	for _, cmd := range notifyCommands {
		names = append(names, cmd.Name)
	}
	return names
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// buildArgs fills the command template
func (c NotifyCommand) buildArgs(title, body string) []string {
	args := make([]string, len(c.Args))
	for i, arg := range c.Args {
		arg = strings.ReplaceAll(arg, "%t", title)
		args[i] = strings.ReplaceAll(arg, "%b", body)
	}
	return args
}

// Notify shows title and body as a desktop notification
func (n *LinuxNotifier) Notify(ctx context.Context, title, body string) error {
	if n.command.Binary == "" {
		n.logger.Info("Notification", zap.String("title", title), zap.String("body", body))
		return ErrNoCommand
	}

	args := n.command.buildArgs(title, body)

	n.logger.Debug("Sending notification",
		zap.String("command", n.command.Binary),
		zap.Strings("args", args))

	output, err := n.run(ctx, n.command.Binary, args...)
	if err != nil {
		return fmt.Errorf("failed to notify with %s: %w (output: %s)",
			n.command.Name, err, string(output))
	}

	n.logger.Info("Notification sent",
		zap.String("command", n.command.Name),
		zap.String("title", title))
	return nil
}
