// Package notify implements the optional desktop-notification side effect
// fired on watchdog-driven ProcessDied/IdleLockup verdicts (the watchdog
// sends SessionDied, the Session Manager sends IdleLockup when it fails a
// task for idle-lockup) (§12 supplemented feature),
// grounded on the teacher's internal/notifications/toast.go and
// manager.go (ShowToast / NotifySupervisorNeedsInput, an IsSupported()
// runtime.GOOS guard). Notification failures are never fatal and never
// block a state transition — callers only fire-and-forget here.
package notify

import (
	"log"
	"runtime"

	"github.com/go-toast/toast"
)

// Notifier sends best-effort desktop notifications.
type Notifier struct {
	appID string
}

// New constructs a Notifier. appID is the Windows toast notification
// source identity.
func New(appID string) *Notifier {
	return &Notifier{appID: appID}
}

// IsSupported reports whether the host platform can show toast
// notifications (Windows only, same as the teacher).
func (n *Notifier) IsSupported() bool {
	return runtime.GOOS == "windows"
}

// SessionDied notifies the operator that a task's session died
// unexpectedly.
func (n *Notifier) SessionDied(taskID, reason string) {
	n.show("Session died", "Task "+taskID+": "+reason)
}

// IdleLockup notifies the operator that a task's CLI went idle without
// finishing its checklist.
func (n *Notifier) IdleLockup(taskID string) {
	n.show("Idle lockup", "Task "+taskID+" is idle with unchecked work remaining")
}

func (n *Notifier) show(title, message string) {
	if !n.IsSupported() {
		log.Printf("[NOTIFY] (unsupported platform) %s: %s", title, message)
		return
	}

	notification := toast.Notification{
		AppID:   n.appID,
		Title:   title,
		Message: message,
	}
	if err := notification.Push(); err != nil {
		log.Printf("[NOTIFY] failed to show toast %q: %v", title, err)
	}
}
