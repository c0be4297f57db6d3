// Package notify is the boundary to the user-visible alert mechanism.
package notify

import (
	"context"
	"fmt"

	"github.com/gen2brain/beeep"
	"go.uber.org/zap"
)

type Notification struct {
	Title string
	Body  string
	// Tag is stable per event id so a repeated attempt replaces rather than
	// duplicates the OS-level alert.
	Tag string
}

// DesktopNotifier shows native desktop alerts. Permission is probed once at
// construction; while not permitted, Send is a no-op and reminders stay
// best-effort.
type DesktopNotifier struct {
	logger    *zap.SugaredLogger
	permitted bool
}

func NewDesktopNotifier(logger *zap.SugaredLogger, enabled bool) *DesktopNotifier {
	if !enabled {
		logger.Infow("desktop notifications disabled, reminders will be marked but not shown")
	}

	return &DesktopNotifier{
		logger:    logger,
		permitted: enabled,
	}
}

func (n *DesktopNotifier) Permitted() bool {
	return n.permitted
}

func (n *DesktopNotifier) Send(_ context.Context, note *Notification) error {
	if !n.permitted {
		return nil
	}

	if err := beeep.Notify(note.Title, note.Body, ""); err != nil {
		return fmt.Errorf("show notification %q: %w", note.Tag, err)
	}

	return nil
}
