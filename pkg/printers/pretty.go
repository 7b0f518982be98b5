// Package printers renders wordsmith state for the command line.
package printers

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"tableflip.dev/wordsmith/pkg/auth"
	"tableflip.dev/wordsmith/pkg/backend"
	"tableflip.dev/wordsmith/pkg/screen"
	"tableflip.dev/wordsmith/pkg/subscription"
)

type PrettyPrint struct {
	// Out defaults to color.Output.
	Out io.Writer
}

func (pp *PrettyPrint) out() io.Writer {
	if pp.Out == nil {
		return color.Output
	}
	return pp.Out
}

func (pp *PrettyPrint) NewLine() {
	_, _ = fmt.Fprintln(pp.out(), "")
}

func (pp *PrettyPrint) Title(title string) {
	t := color.New(color.Bold, color.Underline)
	_, _ = t.Fprintln(pp.out(), title)
}

func (pp *PrettyPrint) TitleWithCount(title string, count int, noun string) {
	t := color.New(color.Bold, color.Underline)
	c := color.New(color.Faint)

	_, _ = t.Fprint(pp.out(), title)
	_, _ = c.Fprintf(pp.out(), " - %d %s", count, noun)
	if count != 1 {
		_, _ = c.Fprint(pp.out(), "s")
	}
	_, _ = fmt.Fprintln(pp.out(), "")
}

func (pp *PrettyPrint) none() {
	f := color.New(color.Faint, color.Italic)
	_, _ = f.Fprint(pp.out(), " none\n\n")
}

// Output prints a conversion result.
func (pp *PrettyPrint) Output(ct backend.ConvertType, text string) {
	f := color.New(color.Faint)
	_, _ = f.Fprintf(pp.out(), "%s\n", ct.Label())
	_, _ = fmt.Fprintln(pp.out(), text)
}

// Usage prints today's count against the limit and the per day history.
func (pp *PrettyPrint) Usage(records map[string]int, days []string, today string, limit int, active bool) {
	pp.TitleWithCount("Usage", len(days), "day")

	used := records[today]
	tbl := uitable.New()
	tbl.Separator = "  "
	bold := color.New(color.Bold)
	tbl.AddRow(bold.Sprint("Today"), todayText(used, limit, active))
	for _, d := range days {
		tbl.AddRow(d, fmt.Sprintf("%d", records[d]))
	}
	_, _ = fmt.Fprintln(pp.out(), tbl)
	pp.NewLine()
}

func todayText(used, limit int, active bool) string {
	if active {
		return fmt.Sprintf("%d (unlimited)", used)
	}
	text := fmt.Sprintf("%d / %d", used, limit)
	if used >= limit {
		return color.New(color.FgRed, color.Bold).Sprint(text + " limit reached")
	}
	return text
}

// Screen prints the current screen.
func (pp *PrettyPrint) Screen(t screen.Type) {
	b := color.New(color.Bold)
	_, _ = fmt.Fprint(pp.out(), "screen: ")
	_, _ = b.Fprintln(pp.out(), t.String())
}

// Auth prints the session state.
func (pp *PrettyPrint) Auth(st auth.State, pending string, now time.Time) {
	pp.Title("Account")
	tbl := uitable.New()
	tbl.Separator = "  "
	if st.Authenticated {
		tbl.AddRow("status", color.New(color.FgGreen).Sprint("logged in"))
		tbl.AddRow("email", st.UserEmail)
		tbl.AddRow("expires", humanUntil(st.Tokens.Expiry(), now))
	} else {
		tbl.AddRow("status", color.New(color.Faint).Sprint("logged out"))
	}
	if pending != "" {
		tbl.AddRow("pending verification", pending)
	}
	_, _ = fmt.Fprintln(pp.out(), tbl)
	pp.NewLine()
}

func humanUntil(t, now time.Time) string {
	d := t.Sub(now).Round(time.Second)
	if d <= 0 {
		return "expired"
	}
	return fmt.Sprintf("%s (in %s)", t.Local().Format(time.RFC3339), d)
}

// Subscription prints the mirrored subscription status.
func (pp *PrettyPrint) Subscription(st *backend.SubscriptionStatus, limit int) {
	pp.Title("Subscription")
	if st == nil {
		pp.none()
		return
	}
	v := subscription.Validate(st)
	line := subscription.StatusText(st, limit)
	switch {
	case v.Expired:
		line = color.New(color.FgRed).Sprint(line)
	case v.ExpiringSoon:
		line = color.New(color.FgYellow).Sprint(line)
	case st.IsActive:
		line = color.New(color.FgGreen).Sprint(line)
	}
	_, _ = fmt.Fprintln(pp.out(), line)
	if v.Message != "" {
		_, _ = color.New(color.Faint, color.Italic).Fprintln(pp.out(), v.Message)
	}
	pp.NewLine()
}

// Plans prints the plan catalog.
func (pp *PrettyPrint) Plans(plans []backend.Plan) {
	pp.TitleWithCount("Plans", len(plans), "plan")
	bold := color.New(color.Bold)
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("Plan"), bold.Sprint("Price"), bold.Sprint("Days"), bold.Sprint("Description"))
	for _, p := range plans {
		tbl.AddRow(p.Type, fmt.Sprintf("¥%d", p.PriceJPY), p.Days, p.Description)
	}
	_, _ = fmt.Fprintln(pp.out(), tbl)
	pp.NewLine()
}

// Settings prints key/value pairs in the given order.
func (pp *PrettyPrint) Settings(title string, keys []string, values map[string]string) {
	pp.Title(title)
	tbl := uitable.New()
	tbl.Separator = "  "
	for _, k := range keys {
		v := values[k]
		if v == "" {
			v = color.New(color.Faint).Sprint("-")
		}
		tbl.AddRow(k, v)
	}
	_, _ = fmt.Fprintln(pp.out(), tbl)
	pp.NewLine()
}

// Mask hides all but the last four characters of a secret.
func Mask(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}
