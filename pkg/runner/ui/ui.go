package ui

import (
	"context"
	"errors"

	"tableflip.dev/wordsmith/pkg/app"
	"tableflip.dev/wordsmith/pkg/tui"
	"tableflip.dev/wordsmith/pkg/update"
)

// UI runs the terminal interface over a started application.
type UI struct {
	App *app.App
	// Updates, when set, is checked in the background once the app starts.
	Updates *update.Checker
}

func (u *UI) Do(ctx context.Context) error {
	if u.App == nil {
		return errors.New("can not start ui, no app")
	}
	if err := u.App.Start(ctx); err != nil {
		return err
	}
	defer u.App.Stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if u.Updates != nil {
		go u.App.CheckForUpdate(ctx, u.Updates)
	}
	return tui.Run(ctx, u.App)
}
