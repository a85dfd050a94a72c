package scenarios

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gridsense/tapctl/core/control"
	"github.com/gridsense/tapctl/core/events"
	"github.com/gridsense/tapctl/core/model"
	"github.com/gridsense/tapctl/core/registry"
	"github.com/gridsense/tapctl/core/telemetry"
	infrabus "github.com/gridsense/tapctl/infra/bus"
)

const stepTimeout = 100 * time.Millisecond

// RunScenario executes every step of the scenario and fails the test on the
// first mismatch between expected and actual outcome.
func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()
	reg := registry.NewMemory()
	reader := telemetry.NewStatic()
	mb := infrabus.NewMock()

	cfg := sc.Device.ToModel()
	if err := reg.PutConfig(context.Background(), cfg); err != nil {
		t.Fatalf("%s: device config: %v", sc.Name, err)
	}
	applyTelemetry(reader, cfg.DeviceID, sc.Telemetry)

	// One responder whose behavior follows the current step.
	var mu sync.Mutex
	respond := "confirm"
	_, err := mb.Subscribe(fmt.Sprintf("devicesOut/%s/autocmd", cfg.DeviceID), func(string, []byte) {
		mu.Lock()
		mode := respond
		mu.Unlock()
		if mode == "silent" {
			return
		}
		body, _ := json.Marshal(map[string]any{
			"success": mode == "confirm",
			"time":    time.Now().Add(time.Second).UnixMilli(),
		})
		mb.Deliver(fmt.Sprintf("devicesIn/%s/autocmdresp", cfg.DeviceID), body)
	})
	if err != nil {
		t.Fatalf("%s: responder: %v", sc.Name, err)
	}

	correlator := control.NewCorrelator(mb, stepTimeout, nil, nil)
	disp, err := control.NewDispatcher(reg, reader, control.NewCooldownTracker(), correlator, nil, nil)
	if err != nil {
		t.Fatalf("%s: dispatcher: %v", sc.Name, err)
	}

	for i, step := range sc.Steps {
		if step.Telemetry != nil {
			applyTelemetry(reader, cfg.DeviceID, *step.Telemetry)
		}
		mu.Lock()
		respond = step.Respond
		if respond == "" {
			respond = "confirm"
		}
		mu.Unlock()

		dir := model.Direction(step.Direction)
		origin := events.Origin(step.Origin)
		if origin == "" {
			origin = events.OriginManual
		}
		res, err := disp.Dispatch(context.Background(), cfg.DeviceID, dir, origin)
		got := string(res.Outcome)
		if err != nil {
			got = "error"
		}
		if got != step.Expect {
			t.Errorf("%s step %d (%s): outcome %s, want %s (reason: %s, err: %v)",
				sc.Name, i+1, step.Direction, got, step.Expect, res.Reason, err)
		}
	}
}

func applyTelemetry(reader *telemetry.Static, deviceID string, tel TelemetryDef) {
	now := time.Now()
	if tel.Voltage != nil {
		reader.Set(deviceID, model.SignalVoltage, *tel.Voltage, now)
	}
	if tel.Current != nil {
		reader.Set(deviceID, model.SignalCurrent, *tel.Current, now)
	}
	if tel.Tap != nil {
		reader.Set(deviceID, model.SignalTapPosition, float64(*tel.Tap), now)
	}
	reader.Set(deviceID, model.SignalTapInProgress, boolValue(tel.TapInProgress), now)
	reader.Set(deviceID, model.SignalTapStuck, boolValue(tel.TapStuck), now)
	valid := true
	if tel.VoltageValid != nil {
		valid = *tel.VoltageValid
	}
	reader.Set(deviceID, model.SignalVoltageValid, boolValue(valid), now)
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
