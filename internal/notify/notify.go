package notify

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Notifier sends desktop notifications.
type Notifier struct {
	Enabled bool
	// run executes the platform command; tests replace it.
	run func(name string, args ...string) error
}

// New returns a notifier that is a no-op unless enabled.
func New(enabled bool) *Notifier {
	return &Notifier{Enabled: enabled}
}

// Send sends a desktop notification.
// On macOS it uses osascript, on Linux notify-send. Elsewhere it is a no-op.
func (n *Notifier) Send(title, message string) error {
	if n == nil || !n.Enabled {
		return nil
	}
	run := n.run
	if run == nil {
		run = runCommand
	}

	switch runtime.GOOS {
	case "darwin":
		return sendMacOSNotification(run, title, message)
	case "linux":
		if err := run("notify-send", title, message); err != nil {
			return fmt.Errorf("send notification: %w", err)
		}
		return nil
	default:
		return nil
	}
}

func runCommand(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

// sendMacOSNotification uses osascript to display a notification.
func sendMacOSNotification(run func(string, ...string) error, title, message string) error {
	title = strings.ReplaceAll(title, `"`, `\"`)
	message = strings.ReplaceAll(message, `"`, `\"`)

	script := fmt.Sprintf(`display notification "%s" with title "%s"`, message, title)
	if err := run("osascript", "-e", script); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}

// FormatPlanGenerated formats a plan generation notification message.
func FormatPlanGenerated(goalTitle, source string, years, keyResults int) (title, message string) {
	title = "OKR Planner: Plan Ready"
	if source == "fallback" {
		title = "OKR Planner: Baseline Plan Ready"
	}
	message = fmt.Sprintf("%s: %d yearly objectives, %d key results", goalTitle, years, keyResults)
	return title, message
}

// FormatKRAchieved formats a KR achievement notification message.
func FormatKRAchieved(krID int64, description string, current, target float64) (title, message string) {
	title = "OKR Planner: Key Result Achieved"
	message = fmt.Sprintf("KR %d: %s (%g/%g)", krID, description, current, target)
	return title, message
}

// FormatGoalProgress formats an overall progress message.
func FormatGoalProgress(goalTitle string, percent int) (title, message string) {
	title = "OKR Planner: Progress Update"
	message = fmt.Sprintf("%s is %d%% complete", goalTitle, percent)
	return title, message
}
