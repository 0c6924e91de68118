// Package channels defines the outbound messaging surface. The core talks
// to the channel only through the Transport interface; the WhatsApp Cloud
// API implementation lives in the whatsapp subpackage.
package channels

import (
	"context"
	"fmt"
)

// MaxBodyBytes is the channel limit for a single text body.
const MaxBodyBytes = 4096

// MaxButtonTitle is the channel limit for a reply-button title, in runes.
const MaxButtonTitle = 20

// MaxButtonID is the channel limit for a reply-button id, in bytes.
const MaxButtonID = 256

// Button id prefixes are a contract: the ingress routes inbound button
// replies by prefix, so outbound buttons must be built from these.
const (
	CompleteTaskPrefix = "complete_task_"
	DeleteTaskPrefix   = "delete_task_"
	InfoTaskPrefix     = "info_task_"
	ActionShowAllTasks = "action_show_all_tasks"
)

// Button is one interactive reply option.
type Button struct {
	ID    string
	Title string
}

// Transport sends messages to the channel.
type Transport interface {
	// SendText delivers a plain text body to the recipient address.
	SendText(ctx context.Context, to, body string) error

	// SendInteractive delivers a body with 1–3 reply buttons. On any
	// transport-level failure it falls back to SendText with the buttons
	// rendered as bulleted lines; the original error appears only in logs.
	SendInteractive(ctx context.Context, to, body string, buttons []Button) error
}

// Errors.
var (
	ErrSendFailed = fmt.Errorf("failed to send message")
	ErrBadButtons = fmt.Errorf("interactive message needs 1 to 3 buttons")
)

// ValidateButtons enforces the channel's button constraints.
func ValidateButtons(buttons []Button) error {
	if len(buttons) == 0 || len(buttons) > 3 {
		return fmt.Errorf("%w, got %d", ErrBadButtons, len(buttons))
	}
	for _, b := range buttons {
		if b.ID == "" || len(b.ID) > MaxButtonID {
			return fmt.Errorf("button %q needs an id of 1 to %d bytes", b.Title, MaxButtonID)
		}
		if n := len([]rune(b.Title)); n == 0 || n > MaxButtonTitle {
			return fmt.Errorf("button title %q must be 1 to %d characters", b.Title, MaxButtonTitle)
		}
	}
	return nil
}
