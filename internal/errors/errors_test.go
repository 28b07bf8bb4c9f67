package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapNilPassesThrough(t *testing.T) {
	if err := Wrap(BridgeFailure, "observation_count", nil); err != nil {
		t.Fatalf("Wrap(nil) = %v", err)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(BridgeFailure, "observation_count", cause)
	if !errors.Is(err, cause) {
		t.Fatal("wrapped error must unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "observation_count") {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestUserMessageByKind(t *testing.T) {
	cause := errors.New("boom")
	cases := []struct {
		kind Kind
		want string
	}{
		{InvalidConfig, "Invalid configuration"},
		{LookupFailure, "Lookup failed"},
		{EstimationFailure, "Size estimation failed"},
		{AcquisitionFailure, "Archive generation failed"},
		{BridgeFailure, "Engine unreachable"},
		{Internal, "Unexpected error"},
	}
	for _, c := range cases {
		msg := UserMessage(Wrap(c.kind, "op", cause))
		if !strings.HasPrefix(msg, c.want) {
			t.Errorf("UserMessage(%s) = %q, want prefix %q", c.kind, msg, c.want)
		}
	}
	if got := UserMessage(cause); got != "boom" {
		t.Errorf("plain error = %q", got)
	}
}
