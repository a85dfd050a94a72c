package control

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gridsense/tapctl/core/bus"
	"github.com/gridsense/tapctl/core/logger"
	"github.com/gridsense/tapctl/core/model"
)

// DefaultResponseTimeout bounds the wait for a device acknowledgment.
const DefaultResponseTimeout = 30 * time.Second

// DefaultResponseSuffixes are the response channel names subscribed for each
// command. Two names exist for compatibility with older device firmware that
// replies on the short form.
var DefaultResponseSuffixes = []string{"autocmdresp", "cmdresp"}

var (
	// ErrDeviceRejected means the device acknowledged the command and
	// reported failure.
	ErrDeviceRejected = errors.New("device rejected command")
	// ErrResponseTimeout means no qualifying acknowledgment arrived within
	// the wait budget. The device may still act on the command later; the
	// timeout only means no confirmation.
	ErrResponseTimeout = errors.New("timeout waiting for device response")
	// ErrTransport wraps publish/subscribe failures so callers can tell a
	// dead bus from an unresponsive device.
	ErrTransport = errors.New("bus transport error")
)

const (
	commandTopicPattern  = "devicesOut/%s/autocmd"
	responseTopicPattern = "devicesIn/%s/%s"
)

// Correlator turns a fire-and-forget publish into an awaitable call: it
// subscribes to the device's response channels, publishes the command and
// waits for the first qualifying response.
type Correlator struct {
	bus      bus.Bus
	timeout  time.Duration
	suffixes []string
	log      logger.Logger
	now      func() time.Time
}

// NewCorrelator creates a correlator over the given transport. A zero timeout
// selects DefaultResponseTimeout; empty suffixes select the defaults.
func NewCorrelator(b bus.Bus, timeout time.Duration, suffixes []string, log logger.Logger) *Correlator {
	if timeout <= 0 {
		timeout = DefaultResponseTimeout
	}
	if len(suffixes) == 0 {
		suffixes = DefaultResponseSuffixes
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Correlator{bus: b, timeout: timeout, suffixes: suffixes, log: log, now: time.Now}
}

// Send publishes a tap command and waits for the device acknowledgment.
// It returns nil on confirmed success, ErrDeviceRejected, ErrResponseTimeout,
// or an error wrapping ErrTransport. Every exit path tears down all
// subscriptions opened for the call.
func (c *Correlator) Send(ctx context.Context, deviceID string, dir model.Direction) error {
	issuedAt := c.now()
	req := model.CommandRequest{DeviceID: deviceID, Direction: dir, IssuedAt: issuedAt}
	payload, err := model.EncodeCommand(req)
	if err != nil {
		return err
	}

	// Responses may race the publish, so all response channels must be live
	// before the command goes out.
	respCh := make(chan model.CommandResponse, len(c.suffixes)*2)
	subs := make([]bus.Subscription, 0, len(c.suffixes))
	defer func() {
		for _, s := range subs {
			if err := s.Unsubscribe(); err != nil {
				c.log.Warnf("unsubscribe %s: %v", s.Topic(), err)
			}
		}
	}()
	for _, suffix := range c.suffixes {
		topic := fmt.Sprintf(responseTopicPattern, deviceID, suffix)
		sub, err := c.bus.Subscribe(topic, func(topic string, body []byte) {
			resp, ok := model.DecodeResponse(deviceFromTopic(topic, deviceID), body, c.now())
			if !ok {
				c.log.Debugf("ignoring non-conforming response on %s", topic)
				return
			}
			select {
			case respCh <- resp:
			default:
			}
		})
		if err != nil {
			return fmt.Errorf("%w: subscribe %s: %v", ErrTransport, topic, err)
		}
		subs = append(subs, sub)
	}

	cmdTopic := fmt.Sprintf(commandTopicPattern, deviceID)
	if err := c.bus.Publish(cmdTopic, payload); err != nil {
		publishFailure.Inc()
		return fmt.Errorf("%w: publish %s: %v", ErrTransport, cmdTopic, err)
	}
	publishSuccess.Inc()
	c.log.Debugw("command published", map[string]any{
		"device":    deviceID,
		"direction": string(dir),
		"topic":     cmdTopic,
	})

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	for {
		select {
		case resp := <-respCh:
			// Responses timestamped at or before the request are stale
			// echoes, often broker-retained messages from a prior command.
			if !resp.ReceivedAt.After(issuedAt) {
				c.log.Debugf("discarding stale response for %s (ts %v <= issued %v)",
					deviceID, resp.ReceivedAt, issuedAt)
				continue
			}
			correlationLatency.Observe(c.now().Sub(issuedAt).Seconds())
			if !resp.Success {
				return ErrDeviceRejected
			}
			return nil
		case <-timer.C:
			return ErrResponseTimeout
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrTransport, ctx.Err())
		}
	}
}

// deviceFromTopic recovers the device id from a devicesIn topic, falling back
// to the id the call was made for.
func deviceFromTopic(topic, fallback string) string {
	parts := strings.Split(topic, "/")
	if len(parts) >= 2 && parts[0] == "devicesIn" && parts[1] != "" {
		return parts[1]
	}
	return fallback
}
