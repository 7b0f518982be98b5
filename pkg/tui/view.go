package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/muesli/reflow/wordwrap"

	"tableflip.dev/wordsmith/pkg/backend"
	"tableflip.dev/wordsmith/pkg/events"
	"tableflip.dev/wordsmith/pkg/screen"
	"tableflip.dev/wordsmith/pkg/subscription"
)

const defaultWidth = 80

// View implements tea.Model.
func (m *Model) View() string {
	if m.app.Screen.Loading() {
		return m.th.Panel.Subtle.Render("Loading…")
	}
	if m.showHelp {
		return m.help.View()
	}

	var body string
	switch m.current() {
	case screen.Onboarding:
		body = m.viewOnboarding()
	case screen.Main:
		body = m.viewMain()
	case screen.LimitExceeded:
		body = m.viewLimit()
	case screen.Login:
		body = m.panel("Log in", m.login.view(m.th.Form))
	case screen.Register:
		body = m.panel("Create an account", m.register.view(m.th.Form))
	case screen.EmailVerification:
		body = m.viewVerify()
	case screen.Subscription:
		body = m.viewSubscription()
	default:
		body = m.viewMain()
	}

	parts := []string{body}
	for _, t := range m.toasts {
		parts = append(parts, m.viewToast(t.n))
	}
	parts = append(parts, m.footer())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) contentWidth() int {
	w := m.width
	if w <= 0 {
		w = defaultWidth
	}
	// Frame border and padding.
	return max(w-6, 20)
}

func (m *Model) panel(title, body string) string {
	return m.th.Panel.Frame.Width(m.contentWidth() + 4).Render(
		m.th.Panel.Title.Render(title) + "\n\n" + body,
	)
}

func (m *Model) viewOnboarding() string {
	var b strings.Builder
	b.WriteString("Rewrite any text in one keystroke.\n\n")
	b.WriteString(m.th.Panel.Subtle.Render(fmt.Sprintf(
		"Free plan: %d conversions a day. Press %s anywhere to convert your input.",
		m.app.Config().GenerationLimit, m.app.Config().Shortcut,
	)))
	b.WriteString("\n\n")
	b.WriteString("Press enter to start.")
	return m.panel("Welcome to wordsmith", b.String())
}

func (m *Model) viewMain() string {
	width := m.contentWidth()

	var types []string
	for _, ct := range backend.ConvertTypes() {
		style := m.th.Panel.Unselected
		if ct == m.convertType {
			style = m.th.Panel.Selected
		}
		types = append(types, style.Render(ct.Label()))
	}

	var b strings.Builder
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, types...))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.th.Panel.Subtle.Render(fmt.Sprintf("%d/%d", len([]rune(m.input.Value())), m.app.Config().MaxLength)))
	b.WriteString("\n\n")

	switch {
	case m.busy:
		b.WriteString(m.th.Form.Pending.Render("converting…"))
	case m.output != "":
		b.WriteString(m.th.Panel.Body.Render(wordwrap.String(m.output, width)))
	default:
		b.WriteString(m.th.Panel.Subtle.Render("The result appears here."))
	}
	return m.panel("wordsmith", b.String())
}

func (m *Model) viewLimit() string {
	action := "log in to upgrade"
	if m.app.Auth.State().Authenticated {
		action = "choose a plan"
	}
	body := fmt.Sprintf(
		"You have used all %d free conversions for today.\n\nPress enter to %s, or come back tomorrow.",
		m.app.Config().GenerationLimit, action,
	)
	return m.panel("Daily limit reached", body)
}

func (m *Model) viewVerify() string {
	email, _ := m.app.Auth.PendingEmail()
	body := fmt.Sprintf("We sent a code to %s.\n\n", email) + m.verify.view(m.th.Form)
	return m.panel("Verify your email", body)
}

func (m *Model) viewSubscription() string {
	limit := m.app.Config().GenerationLimit
	var b strings.Builder
	b.WriteString(subscription.StatusText(m.app.Subscription.Status(), limit))
	b.WriteString("\n\n")

	if m.checkout != nil {
		b.WriteString("Open this URL to pay:\n")
		b.WriteString(m.th.Panel.Title.Render(m.checkout.URL))
		b.WriteString("\n\nPaste the URL you were redirected to:\n")
		b.WriteString(m.redirect.View())
		return m.panel("Checkout", b.String())
	}

	for i, p := range backend.Plans() {
		line := fmt.Sprintf("%-8s ¥%-5d %s", p.Name, p.PriceJPY, p.Description)
		if i == m.planIndex {
			b.WriteString(m.th.Panel.Selected.Render("→ " + line))
		} else {
			b.WriteString(m.th.Panel.Unselected.Render("  " + line))
		}
		b.WriteString("\n")
	}
	return m.panel("Upgrade", strings.TrimRight(b.String(), "\n"))
}

func (m *Model) viewToast(n events.Notification) string {
	style := m.th.Toast.Info
	switch n.Level {
	case events.LevelSuccess:
		style = m.th.Toast.Success
	case events.LevelWarning:
		style = m.th.Toast.Warning
	case events.LevelError:
		style = m.th.Toast.Error
	}
	text := n.Title
	if n.Message != "" {
		text += ": " + n.Message
	}
	return style.Render(text)
}

func (m *Model) footer() string {
	var left []string
	if st := m.app.Subscription.Status(); st != nil && st.IsActive {
		left = append(left, m.th.Footer.Usage.Render(subscription.StatusText(st, m.app.Config().GenerationLimit)))
	} else if n, err := m.app.Usage.TodayCount(m.ctx); err == nil {
		left = append(left, m.th.Footer.Usage.Render(fmt.Sprintf("%d/%d today", n, m.app.Config().GenerationLimit)))
	}
	if st := m.app.Auth.State(); st.Authenticated {
		left = append(left, m.th.Footer.Status.Render(st.UserEmail))
	}
	if m.status != "" {
		left = append(left, m.th.Footer.Status.Render(m.status))
	}
	return strings.Join(left, m.th.Footer.Status.Render(" · ")) + "\n" + m.th.Footer.Help.Render(m.hints())
}

func (m *Model) hints() string {
	switch m.current() {
	case screen.Onboarding:
		return "enter start · f1 help · ctrl+c quit"
	case screen.LimitExceeded:
		return "enter upgrade · f1 help · ctrl+c quit"
	case screen.Login:
		return "tab next · enter submit · ctrl+r register · esc back"
	case screen.Register:
		return "tab next · enter submit · esc back"
	case screen.EmailVerification:
		return "enter verify · ctrl+l verify and log in · esc back"
	case screen.Subscription:
		if m.checkout != nil {
			return "enter apply · esc back"
		}
		return "↑/↓ plan · enter buy · esc back"
	default:
		return fmt.Sprintf("enter convert · tab type · %s shortcut · ctrl+u upgrade · f1 help", m.app.Config().Shortcut)
	}
}
