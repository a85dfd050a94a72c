package control

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/gridsense/tapctl/core/model"
)

func newSupervisorFixture(t *testing.T) (*dispatchFixture, *Supervisor) {
	t.Helper()
	f := newDispatchFixture(t)
	s := NewSupervisor(f.reg, f.reader, f.disp, f.ebus, ControllerConfig{PollInterval: time.Hour}, time.Hour, nil)
	return f, s
}

func TestSupervisorStartsControllersForAutoDevices(t *testing.T) {
	f, s := newSupervisorFixture(t)
	f.addDevice(t, autoDevice("tx-1", 2))
	f.addDevice(t, autoDevice("tx-3", 2))
	f.addDevice(t, manualDevice("tx-2"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.reconcile(ctx)

	running := s.Running()
	sort.Strings(running)
	if len(running) != 2 || running[0] != "tx-1" || running[1] != "tx-3" {
		t.Fatalf("running = %v, want [tx-1 tx-3]", running)
	}
}

func TestSupervisorStopsControllerOnModeChange(t *testing.T) {
	f, s := newSupervisorFixture(t)
	cfg := autoDevice("tx-1", 2)
	f.addDevice(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.reconcile(ctx)
	if len(s.Running()) != 1 {
		t.Fatalf("running = %v", s.Running())
	}

	// the operator flips the device to manual
	cfg.Mode = model.ModeManual
	f.addDevice(t, cfg)
	s.reconcile(ctx)
	if len(s.Running()) != 0 {
		t.Fatalf("running after mode change = %v", s.Running())
	}

	// and back to automatic
	cfg.Mode = model.ModeAuto
	f.addDevice(t, cfg)
	s.reconcile(ctx)
	if len(s.Running()) != 1 {
		t.Fatalf("running after re-enable = %v", s.Running())
	}
}

func TestSupervisorReconcileIsIdempotent(t *testing.T) {
	f, s := newSupervisorFixture(t)
	f.addDevice(t, autoDevice("tx-1", 2))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.reconcile(ctx)
	s.reconcile(ctx)
	s.reconcile(ctx)
	if len(s.Running()) != 1 {
		t.Fatalf("running = %v, want a single controller", s.Running())
	}
}

func TestSupervisorRunStopsOnCancel(t *testing.T) {
	f, s := newSupervisorFixture(t)
	f.addDevice(t, autoDevice("tx-1", 2))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.After(time.Second)
	for len(s.Running()) == 0 {
		select {
		case <-deadline:
			t.Fatal("controller never started")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop on cancel")
	}
	if len(s.Running()) != 0 {
		t.Fatalf("running after shutdown = %v", s.Running())
	}
}
