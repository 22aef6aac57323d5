package monitor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/genricoloni/overlay/internal/domain"
	"github.com/godbus/dbus/v5"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	mprisPrefix     = "org.mpris.MediaPlayer2."
	mprisObjectPath = "/org/mpris/MediaPlayer2"
	playerInterface = "org.mpris.MediaPlayer2.Player"

	// refreshDelay gives the player time to apply a command before we poll it again
	refreshDelay = 500 * time.Millisecond
)

// PlayerMonitor polls the active MPRIS player and emits NowPlaying snapshots.
// It also forwards playback commands to the same player.
type PlayerMonitor struct {
	logger    *zap.Logger
	events    chan domain.NowPlaying
	refresh   chan struct{}
	dial      func() (DBusClient, error)
	preferred string
	interval  time.Duration

	mu              sync.RWMutex
	running         bool
	cancel          context.CancelFunc
	conn            DBusClient // Interface for testability
	last            *domain.NowPlaying
	lastDropWarning time.Time      // Rate limiting for "channel full" warnings
	wg              sync.WaitGroup // Tracks the polling loop
}

// NewPlayerMonitor creates a monitor for the configured preferred player
func NewPlayerMonitor(logger *zap.Logger, cfg domain.Config) *PlayerMonitor {
	return &PlayerMonitor{
		logger:    logger,
		events:    make(chan domain.NowPlaying, 10),
		refresh:   make(chan struct{}, 1),
		dial:      func() (DBusClient, error) { return NewStdDBusClient() },
		preferred: mprisPrefix + cfg.GetPreferredPlayer(),
		interval:  cfg.GetPollInterval(),
	}
}

// Start connects to the session bus and polls until ctx is cancelled or Stop is called
func (m *PlayerMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = true

	monitorCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.mu.Unlock()

	conn, err := m.dial()
	if err != nil {
		m.logger.Error("Failed to connect to session bus", zap.Error(err))
		m.mu.Lock()
		defer m.mu.Unlock()
		m.running = false
		m.cancel = nil
		cancel()
		return fmt.Errorf("session bus connection failed: %w", err)
	}

	// Stop may have run while we were connecting
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		if err := conn.Close(); err != nil {
			m.logger.Warn("Failed to close D-Bus connection", zap.Error(err))
		}
		return monitorCtx.Err()
	}
	m.conn = conn
	m.wg.Add(1)
	m.mu.Unlock()

	m.logger.Info("Player monitor started",
		zap.String("preferred", m.preferred),
		zap.Duration("interval", m.interval))

	m.pollLoop(monitorCtx)

	m.logger.Info("Player monitor stopped")
	return monitorCtx.Err()
}

// Stop gracefully stops the monitor
func (m *PlayerMonitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Unlock()

	// Wait for the polling loop before closing the channel it sends on
	m.wg.Wait()
	close(m.events)

	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.conn != nil {
		err = multierr.Append(err, m.conn.Close())
		m.conn = nil
	}
	if err != nil {
		m.logger.Warn("Failed to close D-Bus connection", zap.Error(err))
	}

	m.logger.Info("Player monitor shutdown complete")
	return err
}

// Events returns a read-only channel that emits NowPlaying
func (m *PlayerMonitor) Events() <-chan domain.NowPlaying {
	return m.events
}

// PlayPause toggles playback on the active player
func (m *PlayerMonitor) PlayPause(ctx context.Context) error {
	return m.command(ctx, "PlayPause")
}

// Next skips to the next track on the active player
func (m *PlayerMonitor) Next(ctx context.Context) error {
	return m.command(ctx, "Next")
}

func (m *PlayerMonitor) command(ctx context.Context, method string) error {
	m.mu.RLock()
	conn := m.conn
	m.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("%w: monitor not connected", domain.ErrPlayerUnavailable)
	}

	player, err := m.activePlayer(conn)
	if err != nil {
		return err
	}

	if err := conn.Call(ctx, player, mprisObjectPath, playerInterface+"."+method); err != nil {
		return fmt.Errorf("%s on %s failed: %w", method, player, err)
	}

	m.logger.Info("Player command sent",
		zap.String("player", player),
		zap.String("command", method))

	time.AfterFunc(refreshDelay, m.requestRefresh)
	return nil
}

// requestRefresh asks the loop for an early poll; extra requests are coalesced
func (m *PlayerMonitor) requestRefresh() {
	select {
	case m.refresh <- struct{}{}:
	default:
	}
}

// pollLoop polls immediately, then on every interval or refresh request
func (m *PlayerMonitor) pollLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.poll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.poll()
		case <-m.refresh:
			m.poll()
		}
	}
}

// poll reads the active player and emits a snapshot if anything changed
func (m *PlayerMonitor) poll() {
	m.mu.RLock()
	conn := m.conn
	m.mu.RUnlock()
	if conn == nil {
		return
	}

	player, err := m.activePlayer(conn)
	if errors.Is(err, domain.ErrPlayerUnavailable) {
		m.logger.Debug("No active player")
		m.publish(domain.NowPlaying{Status: domain.StatusStopped})
		return
	}
	if err != nil {
		m.logger.Warn("Failed to find active player", zap.Error(err))
		return
	}

	np, err := m.fetchNowPlaying(conn, player)
	if err != nil {
		m.logger.Warn("Failed to read player state",
			zap.String("player", player),
			zap.Error(err))
		return
	}

	m.publish(np)
}

// publish emits np unless it is identical to the previous snapshot
func (m *PlayerMonitor) publish(np domain.NowPlaying) {
	m.mu.Lock()
	if m.last != nil && m.last.SameTrack(np) && m.last.Position == np.Position {
		m.mu.Unlock()
		return
	}
	changed := m.last == nil || !m.last.SameTrack(np)
	m.last = &np
	m.mu.Unlock()

	// Non-blocking send: a slow consumer only misses intermediate snapshots.
	select {
	case m.events <- np:
		if changed {
			m.logger.Info("Now playing changed",
				zap.String("player", np.Player),
				zap.String("title", np.Title),
				zap.Strings("artists", np.Artists),
				zap.String("status", string(np.Status)))
		}
	default:
		m.logChannelFullWarning()
	}
}

// activePlayer returns the preferred player if present, otherwise the first
// MPRIS player in name order
func (m *PlayerMonitor) activePlayer(conn DBusClient) (string, error) {
	names, err := conn.ListNames()
	if err != nil {
		return "", fmt.Errorf("failed to list bus names: %w", err)
	}

	var players []string
	for _, name := range names {
		if !strings.HasPrefix(name, mprisPrefix) {
			continue
		}
		if name == m.preferred {
			return name, nil
		}
		players = append(players, name)
	}

	if len(players) == 0 {
		return "", domain.ErrPlayerUnavailable
	}
	sort.Strings(players)
	return players[0], nil
}

// fetchNowPlaying reads Metadata, PlaybackStatus and Position from a player
func (m *PlayerMonitor) fetchNowPlaying(conn DBusClient, player string) (domain.NowPlaying, error) {
	variant, err := conn.GetProperty(player, mprisObjectPath, playerInterface+".Metadata")
	if err != nil {
		return domain.NowPlaying{}, fmt.Errorf("failed to get metadata: %w", err)
	}

	// Some players return an empty or oddly typed value when nothing is loaded
	metadata, ok := variant.Value().(map[string]dbus.Variant)
	if !ok {
		m.logger.Debug("Metadata variant is not a map", zap.String("player", player))
		metadata = nil
	}

	statusVariant, err := conn.GetProperty(player, mprisObjectPath, playerInterface+".PlaybackStatus")
	if err != nil {
		return domain.NowPlaying{}, fmt.Errorf("failed to get playback status: %w", err)
	}
	status, ok := statusVariant.Value().(string)
	if !ok {
		return domain.NowPlaying{}, fmt.Errorf("invalid playback status format")
	}

	np := m.parseMetadata(metadata, status)
	np.Player = player

	// Position is optional in MPRIS
	if posVariant, err := conn.GetProperty(player, mprisObjectPath, playerInterface+".Position"); err == nil {
		if us, ok := asMicroseconds(posVariant.Value()); ok {
			np.Position = us
		}
	}

	return np, nil
}

// parseMetadata converts MPRIS metadata to the domain model
func (m *PlayerMonitor) parseMetadata(metadata map[string]dbus.Variant, status string) domain.NowPlaying {
	var np domain.NowPlaying

	switch status {
	case "Playing":
		np.Status = domain.StatusPlaying
	case "Paused":
		np.Status = domain.StatusPaused
	default:
		np.Status = domain.StatusStopped
	}

	if metadata == nil {
		return np
	}

	if v, ok := metadata["xesam:title"]; ok {
		if title, ok := v.Value().(string); ok {
			np.Title = title
		}
	}

	// xesam:artist should be a list, but some players send a plain string
	if v, ok := metadata["xesam:artist"]; ok {
		switch artists := v.Value().(type) {
		case []string:
			np.Artists = append([]string(nil), artists...)
		case string:
			if artists != "" {
				np.Artists = []string{artists}
			}
		default:
			m.logger.Debug("Unexpected artist type in metadata",
				zap.String("type", fmt.Sprintf("%T", v.Value())))
		}
	}

	if v, ok := metadata["xesam:album"]; ok {
		if album, ok := v.Value().(string); ok {
			np.Album = album
		}
	}

	if v, ok := metadata["mpris:artUrl"]; ok {
		if artUrl, ok := v.Value().(string); ok {
			np.ArtUrl = artUrl
		}
	}

	if v, ok := metadata["mpris:length"]; ok {
		if length, ok := asMicroseconds(v.Value()); ok {
			np.Length = length
		}
	}

	return np
}

// asMicroseconds converts the integer types players use for MPRIS times
func asMicroseconds(v interface{}) (time.Duration, bool) {
	switch n := v.(type) {
	case int64:
		return time.Duration(n) * time.Microsecond, true
	case uint64:
		return time.Duration(n) * time.Microsecond, true
	case int32:
		return time.Duration(n) * time.Microsecond, true
	case uint32:
		return time.Duration(n) * time.Microsecond, true
	case float64:
		return time.Duration(n * float64(time.Microsecond)), true
	}
	return 0, false
}

// logChannelFullWarning logs a warning about channel being full, but rate-limited
func (m *PlayerMonitor) logChannelFullWarning() {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Rate limit to max one warning per 5 seconds
	const warningInterval = 5 * time.Second
	now := time.Now()

	if now.Sub(m.lastDropWarning) >= warningInterval {
		m.logger.Warn("Events channel full, dropping now-playing update",
			zap.String("note", "Consumer may be slow; only intermediate snapshots are lost."))
		m.lastDropWarning = now
	}
}
