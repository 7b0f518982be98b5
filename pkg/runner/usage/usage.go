package usage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"tableflip.dev/wordsmith/pkg/printers"
	"tableflip.dev/wordsmith/pkg/timeutil"
	"tableflip.dev/wordsmith/pkg/usage"
)

// Show prints the usage history.
type Show struct {
	Counter *usage.Counter
	Limit   int
	// Active lifts the limit for display.
	Active bool
	Month  bool
	JSON   bool
	Now    func() time.Time
	Out    io.Writer
}

type summary struct {
	Today  int            `json:"today"`
	Limit  int            `json:"limit"`
	Active bool           `json:"active"`
	Days   map[string]int `json:"days"`
}

func (s *Show) Do(ctx context.Context) error {
	if s.Counter == nil {
		return errors.New("can not show usage, no counter")
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	out := s.Out
	if out == nil {
		out = color.Output
	}

	records, err := s.Counter.Records(ctx)
	if err != nil {
		return err
	}
	today := usage.DateKey(now())

	if s.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summary{
			Today:  records[today],
			Limit:  s.Limit,
			Active: s.Active,
			Days:   records,
		})
	}

	pp := printers.PrettyPrint{Out: out}
	if s.Month {
		pp.UsageMonth(now().UTC(), records)
		return nil
	}
	pp.Usage(records, usage.Days(records), today, s.Limit, s.Active)
	return nil
}

// Prune drops old history.
type Prune struct {
	Counter *usage.Counter
	Keep    int
	Out     io.Writer
}

func (p *Prune) Do(ctx context.Context) error {
	if p.Counter == nil {
		return errors.New("can not prune usage, no counter")
	}
	out := p.Out
	if out == nil {
		out = color.Output
	}
	removed, err := p.Counter.Prune(ctx, p.Keep)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "removed %d day(s) outside the last %s\n", removed, timeutil.FormatDays(p.Keep))
	return err
}
