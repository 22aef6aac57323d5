package recorder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/genricoloni/overlay/internal/domain"
	"github.com/genricoloni/overlay/internal/domain/mocks"
	"github.com/genricoloni/overlay/internal/sink"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var vgaConfig = domain.RecordingConfig{
	OutputPath: "out.bin",
	Resolution: domain.ScreenResolution{Width: 640, Height: 480},
	FrameRate:  10,
	Quality:    80,
}

func configIn(t *testing.T) domain.RecordingConfig {
	cfg := vgaConfig
	cfg.OutputPath = filepath.Join(t.TempDir(), "out.bin")
	return cfg
}

// TestRecorder_TwentyFiveTicks records 2.5s of mock time at 10 Hz into a real
// AVI file and checks the finalized result.
func TestRecorder_TwentyFiveTicks(t *testing.T) {
	cfg := configIn(t)
	clk := newStepClock()
	rec := NewRecorder(zap.NewNop(), &staticSettings{cfg: cfg}, newStaticSource(640, 480), sink.NewOpener(zap.NewNop()), clk)

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if rec.State() != domain.StateRecording {
		t.Fatalf("expected Recording, got %s", rec.State())
	}

	// The first capture is immediate; 24 more ticks make 25 frames.
	for i := 0; i < 24; i++ {
		clk.advance(t)
	}

	if err := rec.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if rec.State() != domain.StateIdle {
		t.Errorf("expected Idle after stop, got %s", rec.State())
	}

	info, err := sink.Probe(cfg.OutputPath)
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if !info.Finalized {
		t.Error("file is not finalized after Stop returned")
	}
	if info.Frames != 25 {
		t.Errorf("expected 25 frames, got %d", info.Frames)
	}
	if info.Width != 640 || info.Height != 480 || info.FrameRate != 10 {
		t.Errorf("unexpected stream header %+v", info)
	}

	for i, d := range clk.waits() {
		if d != 100*time.Millisecond {
			t.Errorf("wait %d: expected 100ms period, got %v", i, d)
		}
	}

	ev := waitEvent(t, rec.Events())
	if ev.Err != nil {
		t.Errorf("normal stop should emit a clean event, got %v", ev.Err)
	}
	if ev.Frames != 25 || ev.ID == "" {
		t.Errorf("unexpected event %+v", ev)
	}
}

// TestRecorder_CaptureFailsOnThirdTick checks that a capture failure finalizes
// the file with the frames written so far and is reported exactly once.
func TestRecorder_CaptureFailsOnThirdTick(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cfg := configIn(t)
	frame := domain.Frame{Image: image.NewRGBA(image.Rect(0, 0, 640, 480))}

	source := mocks.NewMockFrameSource(ctrl)
	gomock.InOrder(
		source.EXPECT().Capture(cfg.Resolution).Return(frame, nil).Times(2),
		source.EXPECT().Capture(cfg.Resolution).
			Return(domain.Frame{}, fmt.Errorf("%w: display disconnected", domain.ErrCaptureUnavailable)),
	)

	clk := newStepClock()
	rec := NewRecorder(zap.NewNop(), &staticSettings{cfg: cfg}, source, sink.NewOpener(zap.NewNop()), clk)

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	clk.advance(t)
	clk.advance(t)

	ev := waitEvent(t, rec.Events())
	if !errors.Is(ev.Err, domain.ErrCaptureUnavailable) {
		t.Fatalf("expected CaptureUnavailable, got %v", ev.Err)
	}
	if ev.Frames != 2 {
		t.Errorf("expected 2 frames in event, got %d", ev.Frames)
	}
	expectNoEvent(t, rec.Events())

	if rec.State() != domain.StateIdle {
		t.Errorf("expected Idle after failure, got %s", rec.State())
	}

	info, err := sink.Probe(cfg.OutputPath)
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if !info.Finalized || info.Frames != 2 {
		t.Errorf("expected finalized file with 2 frames, got %+v", info)
	}

	if err := rec.Stop(context.Background()); err != nil {
		t.Errorf("stop after failure should be a no-op, got %v", err)
	}
}

func TestRecorder_StartWhileRecording(t *testing.T) {
	opener := &memoryOpener{}
	rec := NewRecorder(zap.NewNop(), &staticSettings{cfg: vgaConfig}, newStaticSource(640, 480), opener, newStepClock())

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	err := rec.Start(context.Background())
	if !errors.Is(err, domain.ErrAlreadyRecording) {
		t.Fatalf("expected ErrAlreadyRecording, got %v", err)
	}
	if opener.opened() != 1 {
		t.Errorf("second start opened another sink: %d opens", opener.opened())
	}

	if err := rec.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if opener.sinks[0].closeCount() != 1 {
		t.Errorf("expected exactly one close, got %d", opener.sinks[0].closeCount())
	}
}

func TestRecorder_OpenFailureStaysIdle(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	cfg := vgaConfig
	cfg.OutputPath = filepath.Join(blocker, "out.avi")

	rec := NewRecorder(zap.NewNop(), &staticSettings{cfg: cfg}, newStaticSource(640, 480), sink.NewOpener(zap.NewNop()), newStepClock())

	err := rec.Start(context.Background())
	if !errors.Is(err, domain.ErrSinkOpen) {
		t.Fatalf("expected ErrSinkOpen, got %v", err)
	}
	if rec.State() != domain.StateIdle {
		t.Errorf("expected Idle, got %s", rec.State())
	}
	if _, ok := rec.Current(); ok {
		t.Error("no session should exist after a failed start")
	}
	expectNoEvent(t, rec.Events())
}

func TestRecorder_StopIsIdempotent(t *testing.T) {
	opener := &memoryOpener{}
	rec := NewRecorder(zap.NewNop(), &staticSettings{cfg: vgaConfig}, newStaticSource(640, 480), opener, newStepClock())

	if err := rec.Stop(context.Background()); err != nil {
		t.Fatalf("stop while idle should be a no-op, got %v", err)
	}

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- rec.Stop(context.Background())
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent stop returned %v", err)
		}
	}
	if err := rec.Stop(context.Background()); err != nil {
		t.Errorf("repeated stop returned %v", err)
	}

	if got := opener.sinks[0].closeCount(); got != 1 {
		t.Errorf("sink closed %d times, want 1", got)
	}
	waitEvent(t, rec.Events())
	expectNoEvent(t, rec.Events())
}

func TestRecorder_WriteFailureFinalizes(t *testing.T) {
	opener := &memoryOpener{prepare: func(s *memorySink) { s.failAtSeq = 2 }}
	clk := newStepClock()
	rec := NewRecorder(zap.NewNop(), &staticSettings{cfg: vgaConfig}, newStaticSource(640, 480), opener, clk)

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	clk.advance(t)

	ev := waitEvent(t, rec.Events())
	if ev.Err == nil {
		t.Fatal("expected write error in event")
	}
	if ev.Frames != 1 {
		t.Errorf("expected 1 frame, got %d", ev.Frames)
	}
	if opener.sinks[0].closeCount() != 1 {
		t.Errorf("expected one close, got %d", opener.sinks[0].closeCount())
	}
	if rec.State() != domain.StateIdle {
		t.Errorf("expected Idle, got %s", rec.State())
	}
}

func TestRecorder_CloseErrorIsReturnedByStop(t *testing.T) {
	diskFull := errors.New("no space left on device")
	opener := &memoryOpener{prepare: func(s *memorySink) { s.closeErr = diskFull }}
	rec := NewRecorder(zap.NewNop(), &staticSettings{cfg: vgaConfig}, newStaticSource(640, 480), opener, newStepClock())

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	err := rec.Stop(context.Background())
	if !errors.Is(err, diskFull) {
		t.Fatalf("expected close error from Stop, got %v", err)
	}

	ev := waitEvent(t, rec.Events())
	if !errors.Is(ev.Err, diskFull) {
		t.Errorf("expected close error in event, got %v", ev.Err)
	}
}

// TestRecorder_ConfigSnapshot checks that settings changed during a session
// only apply to the next one.
func TestRecorder_ConfigSnapshot(t *testing.T) {
	settings := &staticSettings{cfg: vgaConfig}
	opener := &memoryOpener{}
	rec := NewRecorder(zap.NewNop(), settings, newStaticSource(640, 480), opener, newStepClock())

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	next := vgaConfig
	next.OutputPath = "second.bin"
	next.FrameRate = 30
	if err := settings.Set(next); err != nil {
		t.Fatal(err)
	}

	info, ok := rec.Current()
	if !ok {
		t.Fatal("expected active session")
	}
	if info.Config != vgaConfig {
		t.Errorf("running session config changed: %+v", info.Config)
	}

	if err := rec.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := rec.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer rec.Stop(context.Background())

	if opener.configs[1] != next {
		t.Errorf("next session should use the new config, got %+v", opener.configs[1])
	}
}

func TestRecorder_Toggle(t *testing.T) {
	opener := &memoryOpener{}
	rec := NewRecorder(zap.NewNop(), &staticSettings{cfg: vgaConfig}, newStaticSource(640, 480), opener, newStepClock())

	state, err := rec.Toggle(context.Background())
	if err != nil || state != domain.StateRecording {
		t.Fatalf("first toggle: state %s, err %v", state, err)
	}
	state, err = rec.Toggle(context.Background())
	if err != nil || state != domain.StateIdle {
		t.Fatalf("second toggle: state %s, err %v", state, err)
	}
	if opener.opened() != 1 || opener.sinks[0].closeCount() != 1 {
		t.Errorf("expected one open and one close, got %d/%d", opener.opened(), opener.sinks[0].closeCount())
	}
}

func TestRecorder_StopContextExpires(t *testing.T) {
	opener := &memoryOpener{prepare: func(s *memorySink) { s.writeDelay = 200 * time.Millisecond }}
	rec := NewRecorder(zap.NewNop(), &staticSettings{cfg: vgaConfig}, newStaticSource(640, 480), opener, newStepClock())

	if err := rec.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := rec.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	// Finalization still completes in the background.
	ev := waitEvent(t, rec.Events())
	if ev.Err != nil {
		t.Errorf("unexpected error %v", ev.Err)
	}
	if opener.sinks[0].closeCount() != 1 {
		t.Errorf("expected one close, got %d", opener.sinks[0].closeCount())
	}
}

func TestRecorder_StoppingWhileStepInFlight(t *testing.T) {
	opener := &memoryOpener{prepare: func(s *memorySink) { s.writeDelay = 300 * time.Millisecond }}
	source := newStaticSource(640, 480)
	rec := NewRecorder(zap.NewNop(), &staticSettings{cfg: vgaConfig}, source, opener, newStepClock())

	if err := rec.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Wait for the first step to be inside its slow write
	deadline := time.Now().Add(time.Second)
	for {
		source.mu.Lock()
		calls := source.calls
		source.mu.Unlock()
		if calls > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first capture never happened")
		}
		time.Sleep(time.Millisecond)
	}

	stopped := make(chan error, 1)
	go func() { stopped <- rec.Stop(context.Background()) }()

	time.Sleep(50 * time.Millisecond)
	if st := rec.State(); st != domain.StateStopping {
		t.Errorf("state while Stop waits for the in-flight step: expected Stopping, got %s", st)
	}
	if err := rec.Start(context.Background()); !errors.Is(err, domain.ErrAlreadyRecording) {
		t.Errorf("Start while stopping should fail with ErrAlreadyRecording, got %v", err)
	}

	select {
	case err := <-stopped:
		if err != nil {
			t.Fatalf("Stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout: Stop did not return")
	}
	if st := rec.State(); st != domain.StateIdle {
		t.Errorf("expected Idle after Stop, got %s", st)
	}
	if got := opener.sinks[0].Frames(); got != 1 {
		t.Errorf("in-flight frame should be written, got %d frames", got)
	}
}

func TestRecorder_DropWarningFollowsClock(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	clk := newStepClock()
	rec := NewRecorder(zap.New(core), &staticSettings{cfg: vgaConfig}, newStaticSource(640, 480), &memoryOpener{}, clk)

	for i := 0; i < eventBufferSize; i++ {
		rec.emit(domain.SessionEvent{})
	}
	rec.emit(domain.SessionEvent{})
	rec.emit(domain.SessionEvent{})
	if n := logs.FilterMessage("Session events channel full, dropping event").Len(); n != 1 {
		t.Fatalf("expected 1 drop warning, got %d", n)
	}

	clk.mu.Lock()
	clk.now = clk.now.Add(5 * time.Second)
	clk.mu.Unlock()

	rec.emit(domain.SessionEvent{})
	if n := logs.FilterMessage("Session events channel full, dropping event").Len(); n != 2 {
		t.Errorf("expected a second warning after 5s, got %d", n)
	}
}
