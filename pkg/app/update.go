package app

import (
	"context"
	"fmt"

	"tableflip.dev/wordsmith/pkg/events"
	"tableflip.dev/wordsmith/pkg/update"
)

// CheckForUpdate asks c for the latest release and publishes a notification
// when it is newer than the running version. Failures are only logged.
func (a *App) CheckForUpdate(ctx context.Context, c *update.Checker) {
	rel, newer, err := c.Check(ctx)
	if err != nil {
		a.log.Debug().Err(err).Msg("update check")
		return
	}
	if !newer {
		return
	}
	a.log.Info().Str("current", c.Current).Str("latest", rel.Version).Msg("update available")
	a.notify(events.Notify(events.LevelInfo, "Update available",
		fmt.Sprintf("wordsmith %s is out. Run `wordsmith upgrade` to install it.", rel.Version)))
}
