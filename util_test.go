package mkboot

import (
	"errors"
	"testing"
)

func TestGetErrors(t *testing.T) {
	wrapped := eMsg(errors.New("disk on fire"), "writing output")
	msgs := GetErrors(wrapped)
	if len(msgs) != 2 {
		t.Fatalf("wrapped error yields %d messages, expected 2", len(msgs))
	}
	if msgs[0] != "writing output" || msgs[1] != "disk on fire" {
		t.Errorf("wrapped error yields %q", msgs)
	}

	plain := GetErrors(errors.New("just one thing"))
	if len(plain) != 1 || plain[0] != "just one thing" {
		t.Errorf("plain error yields %q, expected the message alone", plain)
	}

	if msgs = GetErrors(nil); len(msgs) != 0 {
		t.Errorf("nil error yields %q, expected nothing", msgs)
	}
}
