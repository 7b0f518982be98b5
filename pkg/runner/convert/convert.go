package convert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"tableflip.dev/wordsmith/pkg/app"
	"tableflip.dev/wordsmith/pkg/backend"
	"tableflip.dev/wordsmith/pkg/printers"
)

// ErrLimitReached is returned when the free plan has no conversions left.
var ErrLimitReached = errors.New("daily limit reached")

type Convert struct {
	App  *app.App
	Text string
	Type backend.ConvertType
	JSON bool
	// Out defaults to color.Output.
	Out io.Writer
}

type result struct {
	Type   backend.ConvertType `json:"type"`
	Output string              `json:"output"`
	Today  int                 `json:"today"`
	Limit  int                 `json:"limit"`
}

func (c *Convert) Do(ctx context.Context) error {
	if c.App == nil {
		return errors.New("can not convert, no app")
	}
	out := c.Out
	if out == nil {
		out = color.Output
	}

	text, err := c.App.Convert(ctx, c.Text, c.Type)
	if err != nil {
		if backend.IsLimitExceeded(err) {
			return fmt.Errorf("%w: %d conversions used today, run `wordsmith subscription purchase` to upgrade",
				ErrLimitReached, c.App.Config().GenerationLimit)
		}
		return errors.New(backend.Message(err))
	}

	if c.JSON {
		today, _ := c.App.Usage.TodayCount(ctx)
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result{
			Type:   c.Type,
			Output: text,
			Today:  today,
			Limit:  c.App.Config().GenerationLimit,
		})
	}

	pp := printers.PrettyPrint{Out: out}
	pp.Output(c.Type, text)
	return nil
}
