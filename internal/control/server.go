package control

import (
	"context"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"go.uber.org/zap"
)

// Bus is the subset of *dbus.Conn the server needs
type Bus interface {
	Export(v interface{}, path dbus.ObjectPath, iface string) error
	RequestName(name string, flags dbus.RequestNameFlags) (dbus.RequestNameReply, error)
	Close() error
}

// Server owns the session bus connection that exposes the Service
type Server struct {
	logger  *zap.Logger
	service *Service
	dial    func() (Bus, error)

	mu  sync.Mutex
	bus Bus
}

// NewServer creates a server for svc on the session bus
func NewServer(logger *zap.Logger, svc *Service) *Server {
	return &Server{
		logger:  logger,
		service: svc,
		dial: func() (Bus, error) {
			return dbus.ConnectSessionBus()
		},
	}
}

// Start connects, exports the service with introspection data and claims BusName
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bus != nil {
		return nil
	}

	bus, err := s.dial()
	if err != nil {
		return fmt.Errorf("session bus connection failed: %w", err)
	}

	if err := s.export(bus); err != nil {
		_ = bus.Close()
		return err
	}

	reply, err := bus.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		_ = bus.Close()
		return fmt.Errorf("failed to request %s: %w", BusName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		_ = bus.Close()
		return fmt.Errorf("bus name %s is already taken (another instance running?)", BusName)
	}

	s.bus = bus
	s.logger.Info("Control service exported",
		zap.String("name", BusName),
		zap.String("path", string(ObjectPath)))
	return nil
}

func (s *Server) export(bus Bus) error {
	if err := bus.Export(s.service, ObjectPath, Interface); err != nil {
		return fmt.Errorf("failed to export service: %w", err)
	}

	node := &introspect.Node{
		Name: string(ObjectPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    Interface,
				Methods: introspect.Methods(s.service),
			},
		},
	}
	if err := bus.Export(introspect.NewIntrospectable(node), ObjectPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspection data: %w", err)
	}
	return nil
}

// Stop releases the bus name by closing the connection
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bus == nil {
		return nil
	}

	err := s.bus.Close()
	s.bus = nil
	if err != nil {
		return fmt.Errorf("failed to close control connection: %w", err)
	}

	s.logger.Info("Control service stopped")
	return nil
}
