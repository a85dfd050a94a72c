package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Direction of a tap command.
type Direction string

const (
	Raise Direction = "raise"
	Lower Direction = "lower"
)

// Wire tag identifiers understood by the devices in the field. The mapping is
// fixed; changing it breaks compatibility with deployed firmware.
const (
	TagRaise = "D159"
	TagLower = "D160"

	// ActivationValue is the payload value that triggers the tagged action.
	ActivationValue = "1"
)

// Tag returns the wire tag for the direction.
func (d Direction) Tag() (string, error) {
	switch d {
	case Raise:
		return TagRaise, nil
	case Lower:
		return TagLower, nil
	}
	return "", fmt.Errorf("unknown direction %q", d)
}

// CommandRequest exists for the duration of one dispatch call.
type CommandRequest struct {
	DeviceID  string
	Direction Direction
	IssuedAt  time.Time
}

// CommandResponse is a device-side acknowledgment received from the bus.
type CommandResponse struct {
	DeviceID   string
	Success    bool
	ReceivedAt time.Time
}

// commandPoint is one tag/value pair inside the wire payload.
type commandPoint struct {
	Tag   string `json:"tag"`
	Value string `json:"value"`
}

// commandPayload is the JSON body published on the command topic.
type commandPayload struct {
	Device string         `json:"device"`
	Time   int64          `json:"time"`
	Data   []commandPoint `json:"data"`
}

// EncodeCommand builds the wire payload for a tap command.
func EncodeCommand(req CommandRequest) ([]byte, error) {
	tag, err := req.Direction.Tag()
	if err != nil {
		return nil, err
	}
	return json.Marshal(commandPayload{
		Device: req.DeviceID,
		Time:   req.IssuedAt.UnixMilli(),
		Data:   []commandPoint{{Tag: tag, Value: ActivationValue}},
	})
}

// DecodeCommand parses a wire payload back into a command request. The
// returned ok is false when the body is not JSON or activates no known tag.
// Used by the device simulator and by diagnostic tooling.
func DecodeCommand(payload []byte) (CommandRequest, bool) {
	var body commandPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return CommandRequest{}, false
	}
	for _, p := range body.Data {
		if p.Value != ActivationValue {
			continue
		}
		switch p.Tag {
		case TagRaise:
			return CommandRequest{DeviceID: body.Device, Direction: Raise, IssuedAt: time.UnixMilli(body.Time)}, true
		case TagLower:
			return CommandRequest{DeviceID: body.Device, Direction: Lower, IssuedAt: time.UnixMilli(body.Time)}, true
		}
	}
	return CommandRequest{}, false
}

// responseBody is the subset of the device reply the correlator cares about.
// Devices embed more fields; they are ignored.
type responseBody struct {
	Success *bool  `json:"success"`
	Time    *int64 `json:"time"`
}

// DecodeResponse parses a device reply received at the given time. The
// returned ok is false for bodies that are not JSON or carry no success flag;
// such messages never satisfy the command contract. When the body embeds its
// own timestamp it takes precedence over the receipt time.
func DecodeResponse(deviceID string, payload []byte, receivedAt time.Time) (CommandResponse, bool) {
	var body responseBody
	if err := json.Unmarshal(payload, &body); err != nil || body.Success == nil {
		return CommandResponse{}, false
	}
	resp := CommandResponse{DeviceID: deviceID, Success: *body.Success, ReceivedAt: receivedAt}
	if body.Time != nil {
		resp.ReceivedAt = time.UnixMilli(*body.Time)
	}
	return resp, true
}
