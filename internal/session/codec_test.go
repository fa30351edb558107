package session

import (
	"errors"
	"testing"
	"time"
)

func TestCodec_RoundTrip(t *testing.T) {
	c, err := NewCodec("secret")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	value, err := c.Encode("sess-1", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	id, err := c.Decode(value)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if id != "sess-1" {
		t.Errorf("id = %q, want %q", id, "sess-1")
	}
}

func TestNewCodec_EmptySecret(t *testing.T) {
	if _, err := NewCodec(""); err == nil {
		t.Error("NewCodec with empty secret should return error")
	}
}

func TestCodec_DecodeRejects(t *testing.T) {
	c, _ := NewCodec("secret")
	other, _ := NewCodec("other-secret")
	good, _ := c.Encode("sess-1", time.Now().Add(time.Hour))
	forged, _ := other.Encode("sess-1", time.Now().Add(time.Hour))
	expired, _ := c.Encode("sess-1", time.Now().Add(-time.Minute))
	noID, _ := c.Encode("", time.Now().Add(time.Hour))

	testCases := []struct {
		name  string
		value string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"tampered", good + "x"},
		{"other key", forged},
		{"expired", expired},
		{"missing id", noID},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Decode(tc.value)
			if !errors.Is(err, ErrInvalidCookie) {
				t.Errorf("Decode err = %v, want ErrInvalidCookie", err)
			}
		})
	}
}

func TestCodec_ClockControlsExpiry(t *testing.T) {
	c, _ := NewCodec("secret")
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.nowF = func() time.Time { return base }
	value, _ := c.Encode("sess-1", base.Add(time.Hour))

	if _, err := c.Decode(value); err != nil {
		t.Fatalf("Decode before expiry: %v", err)
	}
	c.nowF = func() time.Time { return base.Add(2 * time.Hour) }
	if _, err := c.Decode(value); !errors.Is(err, ErrInvalidCookie) {
		t.Errorf("Decode after expiry err = %v, want ErrInvalidCookie", err)
	}
}
