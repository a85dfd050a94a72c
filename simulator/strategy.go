package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	corebus "github.com/gridsense/tapctl/core/bus"
	"github.com/gridsense/tapctl/core/logger"
)

var rng = rand.New(rand.NewSource(time.Now().UnixNano()))

// ResponseStrategy defines how a simulated device acknowledges commands.
type ResponseStrategy interface {
	Respond(ctx context.Context, bus corebus.Bus, deviceID, suffix string, success bool, log logger.Logger)
}

// InstantResponder replies after an optional fixed delay.
type InstantResponder struct {
	Delay time.Duration
}

// Respond implements ResponseStrategy.
func (r InstantResponder) Respond(ctx context.Context, bus corebus.Bus, deviceID, suffix string, success bool, log logger.Logger) {
	if r.Delay > 0 {
		select {
		case <-time.After(r.Delay):
		case <-ctx.Done():
			return
		}
	}
	publishResponse(bus, deviceID, suffix, success, log)
}

// FlakyResponder drops replies with the configured probability and waits for
// the specified delay before sending. Dropped replies exercise the caller's
// timeout path.
type FlakyResponder struct {
	Delay    time.Duration
	DropRate float64
}

// Respond implements ResponseStrategy.
func (r FlakyResponder) Respond(ctx context.Context, bus corebus.Bus, deviceID, suffix string, success bool, log logger.Logger) {
	if r.DropRate > 0 && rng.Float64() < r.DropRate {
		log.Debugf("%s: dropping response", deviceID)
		return
	}
	if r.Delay > 0 {
		select {
		case <-time.After(r.Delay):
		case <-ctx.Done():
			return
		}
	}
	publishResponse(bus, deviceID, suffix, success, log)
}

func publishResponse(bus corebus.Bus, deviceID, suffix string, success bool, log logger.Logger) {
	payload, err := json.Marshal(struct {
		Success bool  `json:"success"`
		Time    int64 `json:"time"`
	}{Success: success, Time: time.Now().UnixMilli()})
	if err != nil {
		log.Errorf("%s: marshal response: %v", deviceID, err)
		return
	}
	topic := fmt.Sprintf("devicesIn/%s/%s", deviceID, suffix)
	if err := bus.Publish(topic, payload); err != nil {
		log.Errorf("%s: publish response: %v", deviceID, err)
	}
}
