package bus

import (
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantAction string
		wantErr    bool
	}{
		{
			name:       "scanUrl",
			input:      `{"action":"scanUrl","url":"https://example.com"}`,
			wantAction: ActionScanURL,
		},
		{
			name:       "getCurrentTab with requestId",
			input:      `{"action":"getCurrentTab","windowId":1,"requestId":"req-1"}`,
			wantAction: ActionGetCurrentTab,
		},
		{
			name:       "highlightExtension",
			input:      `{"action":"highlightExtension"}`,
			wantAction: ActionHighlight,
		},
		{
			name:       "showAlert",
			input:      `{"action":"showAlert","tabId":3,"safetyScore":41,"url":"https://bad.example"}`,
			wantAction: ActionShowAlert,
		},
		{
			name:       "hideAlert",
			input:      `{"action":"hideAlert","tabId":3}`,
			wantAction: ActionHideAlert,
		},
		{
			name:       "tabsSnapshot",
			input:      `{"action":"tabsSnapshot","tabs":[{"id":1,"windowId":1,"url":"https://a.example"}]}`,
			wantAction: ActionTabsSnapshot,
		},
		{
			name:    "unknown action",
			input:   `{"action":"selfDestruct"}`,
			wantErr: true,
		},
		{
			name:    "missing action",
			input:   `{"url":"https://example.com"}`,
			wantErr: true,
		},
		{
			name:    "not json",
			input:   `scanUrl example.com`,
			wantErr: true,
		},
		{
			name:    "payload type mismatch",
			input:   `{"action":"hideAlert","tabId":"three"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := Decode([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Decode() should have failed, got %T", cmd)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if cmd.CommandAction() != tt.wantAction {
				t.Errorf("CommandAction() = %q, want %q", cmd.CommandAction(), tt.wantAction)
			}
		})
	}
}

func TestDecodeTypedPayload(t *testing.T) {
	cmd, err := Decode([]byte(`{"action":"scanUrl","url":"https://example.com/x"}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	scanCmd, ok := cmd.(*ScanURLCommand)
	if !ok {
		t.Fatalf("command type = %T, want *ScanURLCommand", cmd)
	}
	if scanCmd.URL != "https://example.com/x" {
		t.Errorf("URL = %q, want %q", scanCmd.URL, "https://example.com/x")
	}
}

func TestBusPublishSubscribe(t *testing.T) {
	b := New()
	ch, cancel := b.Subscribe(4)
	defer cancel()

	b.Publish(NewEnvelope(ActionIconUpdate, "", map[string]string{"tier": "safe"}))

	select {
	case env := <-ch:
		if env.Action != ActionIconUpdate {
			t.Errorf("action = %q, want %q", env.Action, ActionIconUpdate)
		}
	default:
		t.Fatal("expected a buffered envelope")
	}
}

func TestBusDropsWhenSubscriberFull(t *testing.T) {
	b := New()
	ch, cancel := b.Subscribe(1)
	defer cancel()

	b.Publish(Envelope{Action: "first"})
	b.Publish(Envelope{Action: "second"}) // dropped, buffer is full

	if got := len(ch); got != 1 {
		t.Fatalf("buffered envelopes = %d, want 1", got)
	}
	env := <-ch
	if env.Action != "first" {
		t.Errorf("kept envelope = %q, want %q", env.Action, "first")
	}
}

func TestBusCancelRemovesSubscriber(t *testing.T) {
	b := New()
	_, cancel := b.Subscribe(1)

	if got := b.SubscriberCount(); got != 1 {
		t.Fatalf("SubscriberCount() = %d, want 1", got)
	}
	cancel()
	if got := b.SubscriberCount(); got != 0 {
		t.Errorf("SubscriberCount() after cancel = %d, want 0", got)
	}

	// Publishing to an empty bus is a no-op, not a panic
	b.Publish(Envelope{Action: "orphan"})
}
