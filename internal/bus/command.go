package bus

import (
	"encoding/json"
	"fmt"

	"github.com/netstar-dev/advisor/internal/tabs"
)

// Inbound command actions (UI surfaces -> coordinator).
const (
	ActionScanURL        = "scanUrl"
	ActionGetCurrentTab  = "getCurrentTab"
	ActionHighlight      = "highlightExtension"
	ActionShowAlert      = "showAlert"
	ActionHideAlert      = "hideAlert"
	ActionAlertDismiss   = "alertDismissed"
	ActionSetNotifyPref  = "setNotificationPref"
	ActionRecentScans    = "getRecentScans"
	ActionLiveSignals    = "liveSignals"
	ActionTabsSnapshot   = "tabsSnapshot"
	ActionTabUpdated     = "tabUpdated"
	ActionTabRemoved     = "tabRemoved"
	ActionNavigationDone = "navigationCompleted"
	ActionTabActivated   = "tabActivated"
)

// Outbound actions (coordinator -> surfaces, on the broadcast stream).
const (
	ActionCurrentTabResult = "currentTabResult"
	ActionIconUpdate       = "iconUpdate"
	ActionBadgeUpdate      = "badgeUpdate"
	ActionOverlayShow      = "overlayShow"
	ActionOverlayHide      = "overlayHide"
	ActionNotification     = "notification"
)

// Command is one inbound request, a closed union discriminated by action.
type Command interface {
	CommandAction() string
}

type ScanURLCommand struct {
	URL string `json:"url"`
}

type GetCurrentTabCommand struct {
	WindowID  int    `json:"windowId"`
	RequestID string `json:"requestId,omitempty"`
}

type HighlightCommand struct{}

type ShowAlertCommand struct {
	TabID       int     `json:"tabId"`
	SafetyScore float64 `json:"safetyScore"`
	URL         string  `json:"url"`
}

type HideAlertCommand struct {
	TabID int `json:"tabId"`
}

type AlertDismissCommand struct {
	TabID int    `json:"tabId"`
	URL   string `json:"url"`
}

type SetNotifyPrefCommand struct {
	Enabled bool `json:"enabled"`
	// PermissionGranted reports the host-level grant as the surface sees
	// it after requesting; the soft toggle only persists on when true.
	PermissionGranted bool `json:"permissionGranted"`
}

type RecentScansCommand struct{}

type LiveSignalsCommand struct {
	URL     string          `json:"url"`
	Signals json.RawMessage `json:"signals"`
}

type TabsSnapshotCommand struct {
	Tabs []*tabs.Tab `json:"tabs"`
}

type TabUpdatedCommand struct {
	Tab *tabs.Tab `json:"tab"`
}

type TabRemovedCommand struct {
	TabID int `json:"tabId"`
}

type NavigationDoneCommand struct {
	Tab *tabs.Tab `json:"tab"`
}

type TabActivatedCommand struct {
	Tab *tabs.Tab `json:"tab"`
}

func (ScanURLCommand) CommandAction() string        { return ActionScanURL }
func (GetCurrentTabCommand) CommandAction() string  { return ActionGetCurrentTab }
func (HighlightCommand) CommandAction() string      { return ActionHighlight }
func (ShowAlertCommand) CommandAction() string      { return ActionShowAlert }
func (HideAlertCommand) CommandAction() string      { return ActionHideAlert }
func (AlertDismissCommand) CommandAction() string   { return ActionAlertDismiss }
func (SetNotifyPrefCommand) CommandAction() string  { return ActionSetNotifyPref }
func (RecentScansCommand) CommandAction() string    { return ActionRecentScans }
func (LiveSignalsCommand) CommandAction() string    { return ActionLiveSignals }
func (TabsSnapshotCommand) CommandAction() string   { return ActionTabsSnapshot }
func (TabUpdatedCommand) CommandAction() string     { return ActionTabUpdated }
func (TabRemovedCommand) CommandAction() string     { return ActionTabRemoved }
func (NavigationDoneCommand) CommandAction() string { return ActionNavigationDone }
func (TabActivatedCommand) CommandAction() string   { return ActionTabActivated }

// rawCommand is the wire shape before the action switch.
type rawCommand struct {
	Action string `json:"action"`
}

// Decode parses an inbound message into its typed command. Unknown actions
// are an error; the union is closed.
func Decode(data []byte) (Command, error) {
	var raw rawCommand
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("malformed command: %w", err)
	}

	var cmd Command
	switch raw.Action {
	case ActionScanURL:
		cmd = &ScanURLCommand{}
	case ActionGetCurrentTab:
		cmd = &GetCurrentTabCommand{}
	case ActionHighlight:
		cmd = &HighlightCommand{}
	case ActionShowAlert:
		cmd = &ShowAlertCommand{}
	case ActionHideAlert:
		cmd = &HideAlertCommand{}
	case ActionAlertDismiss:
		cmd = &AlertDismissCommand{}
	case ActionSetNotifyPref:
		cmd = &SetNotifyPrefCommand{}
	case ActionRecentScans:
		cmd = &RecentScansCommand{}
	case ActionLiveSignals:
		cmd = &LiveSignalsCommand{}
	case ActionTabsSnapshot:
		cmd = &TabsSnapshotCommand{}
	case ActionTabUpdated:
		cmd = &TabUpdatedCommand{}
	case ActionTabRemoved:
		cmd = &TabRemovedCommand{}
	case ActionNavigationDone:
		cmd = &NavigationDoneCommand{}
	case ActionTabActivated:
		cmd = &TabActivatedCommand{}
	default:
		return nil, fmt.Errorf("unknown action %q", raw.Action)
	}

	if err := json.Unmarshal(data, cmd); err != nil {
		return nil, fmt.Errorf("malformed %s payload: %w", raw.Action, err)
	}
	return cmd, nil
}
