// Package events carries in-process notifications between the application
// core and its surfaces: shortcut and clipboard input, conversion progress,
// screen transitions and user-facing notices.
package events

import (
	"fmt"

	"tableflip.dev/wordsmith/pkg/backend"
	"tableflip.dev/wordsmith/pkg/screen"
)

// Event is anything published on a Hub.
type Event interface {
	// Describe renders the event for debug logs.
	Describe() string
}

// Level grades a Notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// ShortcutTriggered delivers text captured by the global shortcut.
type ShortcutTriggered struct {
	Text string
}

// Describe implements Event.
func (e ShortcutTriggered) Describe() string {
	return fmt.Sprintf(`shortcut chars:%d`, len([]rune(e.Text)))
}

// ClipboardProcessed delivers text read from the clipboard.
type ClipboardProcessed struct {
	Text string
}

// Describe implements Event.
func (e ClipboardProcessed) Describe() string {
	return fmt.Sprintf(`clipboard chars:%d`, len([]rune(e.Text)))
}

// ConversionStarted is published when a conversion request is sent.
type ConversionStarted struct {
	Seq  uint64
	ID   string
	Type backend.ConvertType
}

// Describe implements Event.
func (e ConversionStarted) Describe() string {
	return fmt.Sprintf(`conversion seq:%d id:%s type:%s state:"started"`, e.Seq, e.ID, e.Type)
}

// ConversionCompleted carries the output of the newest conversion.
type ConversionCompleted struct {
	Seq    uint64
	ID     string
	Output string
}

// Describe implements Event.
func (e ConversionCompleted) Describe() string {
	return fmt.Sprintf(`conversion seq:%d id:%s state:"completed"`, e.Seq, e.ID)
}

// ConversionFailed reports a failed conversion.
type ConversionFailed struct {
	Seq uint64
	ID  string
	Err error
}

// Describe implements Event.
func (e ConversionFailed) Describe() string {
	return fmt.Sprintf(`conversion seq:%d id:%s state:"failed" err:%q`, e.Seq, e.ID, e.Err)
}

// ScreenChanged reports a screen transition.
type ScreenChanged struct {
	From screen.Type
	To   screen.Type
}

// Describe implements Event.
func (e ScreenChanged) Describe() string {
	return fmt.Sprintf(`screen from:%s to:%s`, e.From, e.To)
}

// AuthChanged reports a login or logout.
type AuthChanged struct {
	Authenticated bool
	Email         string
}

// Describe implements Event.
func (e AuthChanged) Describe() string {
	return fmt.Sprintf(`auth authenticated:%t email:%q`, e.Authenticated, e.Email)
}

// SubscriptionChanged carries the new subscription mirror, nil when unknown.
type SubscriptionChanged struct {
	Status *backend.SubscriptionStatus
}

// Describe implements Event.
func (e SubscriptionChanged) Describe() string {
	if e.Status == nil {
		return "subscription status:nil"
	}
	return fmt.Sprintf(`subscription plan:%s active:%t days:%d`, e.Status.PlanType, e.Status.IsActive, e.Status.DaysRemaining)
}

// Notification is a transient message for the user.
type Notification struct {
	Level   Level
	Title   string
	Message string
}

// Describe implements Event.
func (e Notification) Describe() string {
	return fmt.Sprintf(`notification level:%s title:%q message:%q`, e.Level, e.Title, e.Message)
}

// Notify builds a Notification.
func Notify(level Level, title, message string) Notification {
	return Notification{Level: level, Title: title, Message: message}
}
