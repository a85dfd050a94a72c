package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEncodeCommand(t *testing.T) {
	issued := time.UnixMilli(1700000000000)
	for _, c := range []struct {
		dir Direction
		tag string
	}{
		{Raise, "D159"},
		{Lower, "D160"},
	} {
		payload, err := EncodeCommand(CommandRequest{DeviceID: "tx-1", Direction: c.dir, IssuedAt: issued})
		if err != nil {
			t.Fatalf("encode %s: %v", c.dir, err)
		}
		var decoded struct {
			Device string `json:"device"`
			Time   int64  `json:"time"`
			Data   []struct {
				Tag   string `json:"tag"`
				Value string `json:"value"`
			} `json:"data"`
		}
		if err := json.Unmarshal(payload, &decoded); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if decoded.Device != "tx-1" || decoded.Time != 1700000000000 {
			t.Fatalf("envelope: %+v", decoded)
		}
		if len(decoded.Data) != 1 || decoded.Data[0].Tag != c.tag || decoded.Data[0].Value != "1" {
			t.Fatalf("data for %s: %+v", c.dir, decoded.Data)
		}
	}
}

func TestEncodeCommandUnknownDirection(t *testing.T) {
	if _, err := EncodeCommand(CommandRequest{DeviceID: "tx-1", Direction: "sideways"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestDecodeResponse(t *testing.T) {
	received := time.Now()

	resp, ok := DecodeResponse("tx-1", []byte(`{"success": true}`), received)
	if !ok || !resp.Success || !resp.ReceivedAt.Equal(received) {
		t.Fatalf("plain success: %+v ok=%v", resp, ok)
	}

	resp, ok = DecodeResponse("tx-1", []byte(`{"success": false, "error": "blocked"}`), received)
	if !ok || resp.Success {
		t.Fatalf("failure flag: %+v ok=%v", resp, ok)
	}

	// embedded timestamp wins over receipt time
	resp, ok = DecodeResponse("tx-1", []byte(`{"success": true, "time": 1700000000000}`), received)
	if !ok || !resp.ReceivedAt.Equal(time.UnixMilli(1700000000000)) {
		t.Fatalf("embedded time: %+v ok=%v", resp, ok)
	}
}

func TestDecodeResponseRejectsNonConforming(t *testing.T) {
	for _, body := range []string{"OK", "1", `{"status": "done"}`, ""} {
		if _, ok := DecodeResponse("tx-1", []byte(body), time.Now()); ok {
			t.Errorf("body %q should not satisfy the contract", body)
		}
	}
}
