package simulator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gridsense/tapctl/core/control"
	"github.com/gridsense/tapctl/core/model"
	infrabus "github.com/gridsense/tapctl/infra/bus"
)

func startDevice(t *testing.T, d *Device) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = d.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("device did not stop")
		}
	})
	// Run subscribes before blocking, but give the goroutine a beat
	time.Sleep(10 * time.Millisecond)
}

func TestDeviceConfirmsAndMovesTap(t *testing.T) {
	mb := infrabus.NewMock()
	d := NewDevice("sim-001", model.TapLimits{Min: 1, Max: 17}, nil, mb, nil)
	startDevice(t, d)

	c := control.NewCorrelator(mb, 2*time.Second, nil, nil)
	if err := c.Send(context.Background(), "sim-001", model.Raise); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := d.Tap(); got != 10 {
		t.Fatalf("tap = %d, want 10", got)
	}
	if err := c.Send(context.Background(), "sim-001", model.Lower); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := d.Tap(); got != 9 {
		t.Fatalf("tap = %d, want 9", got)
	}
}

func TestDeviceRejectsAtEndStop(t *testing.T) {
	mb := infrabus.NewMock()
	d := NewDevice("sim-001", model.TapLimits{Min: 9, Max: 9}, nil, mb, nil)
	startDevice(t, d)

	c := control.NewCorrelator(mb, 2*time.Second, nil, nil)
	if err := c.Send(context.Background(), "sim-001", model.Raise); !errors.Is(err, control.ErrDeviceRejected) {
		t.Fatalf("got %v want ErrDeviceRejected", err)
	}
	if got := d.Tap(); got != 9 {
		t.Fatalf("tap moved to %d at end stop", got)
	}
}

func TestDeviceLegacyResponseChannel(t *testing.T) {
	mb := infrabus.NewMock()
	d := NewDevice("sim-001", model.TapLimits{Min: 1, Max: 17}, nil, mb, nil)
	d.ResponseSuffix = "cmdresp"
	startDevice(t, d)

	c := control.NewCorrelator(mb, 2*time.Second, nil, nil)
	if err := c.Send(context.Background(), "sim-001", model.Raise); err != nil {
		t.Fatalf("send via legacy channel: %v", err)
	}
}

func TestFlakyDeviceTimesOut(t *testing.T) {
	mb := infrabus.NewMock()
	d := NewDevice("sim-001", model.TapLimits{Min: 1, Max: 17}, FlakyResponder{DropRate: 1}, mb, nil)
	startDevice(t, d)

	c := control.NewCorrelator(mb, 100*time.Millisecond, nil, nil)
	if err := c.Send(context.Background(), "sim-001", model.Raise); !errors.Is(err, control.ErrResponseTimeout) {
		t.Fatalf("got %v want ErrResponseTimeout", err)
	}
}

func TestGenerateFleet(t *testing.T) {
	mb := infrabus.NewMock()
	devices := GenerateFleet(FleetConfig{Size: 3, Prefix: "tx"}, nil, mb, nil)
	if len(devices) != 3 {
		t.Fatalf("fleet size = %d", len(devices))
	}
	if devices[0].ID != "tx-001" || devices[2].ID != "tx-003" {
		t.Fatalf("ids = %s %s", devices[0].ID, devices[2].ID)
	}
	if devices[1].Tap() != 9 {
		t.Fatalf("initial tap = %d, want mid-range 9", devices[1].Tap())
	}
}
