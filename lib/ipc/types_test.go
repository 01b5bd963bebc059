// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"testing"

	"github.com/bureau-foundation/patchbay/lib/codec"
)

func TestDescriptorKey(t *testing.T) {
	descriptor := Descriptor{Component: "installer", ProcessNameSuffix: "installer"}
	if got := descriptor.Key(); got != "installer:installer" {
		t.Errorf("Key() = %q, want installer:installer", got)
	}
}

func TestDescriptorValidate(t *testing.T) {
	tests := []struct {
		name       string
		descriptor Descriptor
		wantErr    bool
	}{
		{"complete", Descriptor{Component: "installer", ProcessNameSuffix: "installer"}, false},
		{"no component", Descriptor{ProcessNameSuffix: "installer"}, true},
		{"no suffix", Descriptor{Component: "installer"}, true},
		{"slash", Descriptor{Component: "../installer", ProcessNameSuffix: "x"}, true},
		{"colon", Descriptor{Component: "installer", ProcessNameSuffix: "a:b"}, true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.descriptor.Validate()
			if (err != nil) != test.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, test.wantErr)
			}
		})
	}
}

// The broker answers an unknown action with a plain error envelope
// before any stream starts. Clients decode every frame as BindEvent,
// so the envelope's error field must land in BindEvent.Error.
func TestBindEventDecodesErrorEnvelope(t *testing.T) {
	data, err := codec.Marshal(map[string]any{"ok": false, "error": `unknown action "bind"`})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var event BindEvent
	if err := codec.Unmarshal(data, &event); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if event.Event != "" {
		t.Errorf("Event = %q, want empty", event.Event)
	}
	if event.Error != `unknown action "bind"` {
		t.Errorf("Error = %q", event.Error)
	}
}

func TestBindEventExitCodeZeroSurvives(t *testing.T) {
	zero := 0
	data, err := codec.Marshal(BindEvent{Event: EventDisconnected, ExitCode: &zero})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var event BindEvent
	if err := codec.Unmarshal(data, &event); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if event.ExitCode == nil || *event.ExitCode != 0 {
		t.Errorf("ExitCode = %v, want pointer to 0", event.ExitCode)
	}
}
