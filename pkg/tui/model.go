// Package tui is the terminal front end. The screen machine decides which
// screen is current; Model renders it and routes keys to it.
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/v2/textinput"
	tea "github.com/charmbracelet/bubbletea/v2"

	"tableflip.dev/wordsmith/pkg/app"
	"tableflip.dev/wordsmith/pkg/backend"
	"tableflip.dev/wordsmith/pkg/events"
	"tableflip.dev/wordsmith/pkg/screen"
	"tableflip.dev/wordsmith/pkg/tui/help"
	"tableflip.dev/wordsmith/pkg/tui/theme"
)

const toastTTL = 4 * time.Second

type formID int

const (
	formLogin formID = iota
	formRegister
	formVerify
)

type (
	eventMsg       struct{ ev events.Event }
	convertDoneMsg struct {
		out string
		err error
	}
	// actionDoneMsg finishes a form submission.
	actionDoneMsg struct {
		form   formID
		next   screen.Type
		status string
		// email prefills the login form.
		email string
		err   error
	}
	checkoutMsg struct {
		co  *backend.Checkout
		err error
	}
	redirectMsg     struct{ err error }
	toastExpiredMsg struct{ id int }
)

type toast struct {
	id int
	n  events.Notification
}

// Model is the root Bubble Tea model.
type Model struct {
	app *app.App
	ctx context.Context
	th  theme.Theme

	width  int
	height int

	events      <-chan events.Event
	unsubscribe func()

	input       textinput.Model
	convertType backend.ConvertType
	output      string
	busy        bool
	busySeq     uint64

	login    form
	register form
	verify   form

	planIndex int
	checkout  *backend.Checkout
	redirect  textinput.Model

	status   string
	toasts   []toast
	toastSeq int

	help     *help.Model
	showHelp bool
}

// New builds the model over a started application.
func New(ctx context.Context, a *app.App) *Model {
	cfg := a.Config()

	in := textinput.New()
	in.Prompt = "> "
	in.Placeholder = "Type or paste text to transform"
	in.CharLimit = cfg.MaxLength
	in.Focus()

	redirect := textinput.New()
	redirect.Prompt = "> "
	redirect.Placeholder = "wordsmith://payment-success?session_id=..."

	ct, err := a.Usage.ConvertType(ctx)
	if err != nil {
		ct = backend.DefaultConvertType
	}

	ch, unsubscribe := a.Hub.Subscribe()
	m := &Model{
		app:         a,
		ctx:         ctx,
		th:          theme.Default(),
		events:      ch,
		unsubscribe: unsubscribe,
		input:       in,
		convertType: ct,
		redirect:    redirect,
		login: newForm(
			field{label: "Email", placeholder: "you@example.com"},
			field{label: "Password", secret: true},
		),
		register: newForm(
			field{label: "Email", placeholder: "you@example.com"},
			field{label: "Password", placeholder: "8+ chars, upper, lower, digit, @$!%*?&", secret: true},
			field{label: "Confirm password", secret: true},
		),
		verify: newForm(
			field{label: "Verification code", placeholder: "123456", limit: 6},
		),
		help: help.New(80, 24),
	}
	a.SetSelection(func() string { return m.input.Value() })
	return m
}

// Run starts the program and blocks until the user quits.
func Run(ctx context.Context, a *app.App) error {
	m := New(ctx, a)
	defer m.close()
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m *Model) close() {
	m.app.SetSelection(nil)
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.waitForEvent()
}

func (m *Model) waitForEvent() tea.Cmd {
	ch := m.events
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg{ev: ev}
	}
}

func (m *Model) current() screen.Type {
	return m.app.Screen.Current()
}

func (m *Model) shortcut() string {
	return strings.ToLower(strings.ReplaceAll(m.app.Config().Shortcut, " ", ""))
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.SetSize(min(msg.Width-4, 100), msg.Height-4)
	case eventMsg:
		cmds = append(cmds, m.handleEvent(msg.ev), m.waitForEvent())
	case convertDoneMsg:
		if errors.Is(msg.err, app.ErrSuperseded) {
			break
		}
		m.busy = false
		if msg.err != nil {
			m.status = errorText(msg.err)
		} else {
			m.output = msg.out
			m.status = ""
		}
	case actionDoneMsg:
		m.finishAction(msg)
	case checkoutMsg:
		if msg.err != nil {
			m.status = errorText(msg.err)
			break
		}
		m.checkout = msg.co
		m.redirect.Reset()
		cmds = append(cmds, m.redirect.Focus())
		m.status = "Checkout created"
	case redirectMsg:
		if msg.err != nil {
			m.status = errorText(msg.err)
			break
		}
		m.checkout = nil
		m.status = ""
	case toastExpiredMsg:
		for i, t := range m.toasts {
			if t.id == msg.id {
				m.toasts = append(m.toasts[:i], m.toasts[i+1:]...)
				break
			}
		}
	case tea.KeyPressMsg:
		cmds = append(cmds, m.handleKey(msg))
	}

	m.sync()
	return m, tea.Batch(cmds...)
}

// sync repairs screens whose preconditions no longer hold.
func (m *Model) sync() {
	if m.app.Screen.Loading() {
		return
	}
	if m.current() == screen.EmailVerification {
		if _, ok := m.app.Auth.PendingEmail(); !ok {
			m.app.Screen.Switch(screen.Register)
		}
	}
}

func (m *Model) handleEvent(ev events.Event) tea.Cmd {
	switch e := ev.(type) {
	case events.ConversionStarted:
		m.busy = true
		m.busySeq = e.Seq
	case events.ConversionCompleted:
		if e.Seq >= m.busySeq {
			m.busy = false
			m.output = e.Output
		}
	case events.ConversionFailed:
		if e.Seq >= m.busySeq {
			m.busy = false
		}
	case events.Notification:
		m.toastSeq++
		id := m.toastSeq
		m.toasts = append(m.toasts, toast{id: id, n: e})
		return tea.Tick(toastTTL, func(time.Time) tea.Msg { return toastExpiredMsg{id: id} })
	case events.ScreenChanged:
		m.enter(e.To)
	}
	return nil
}

// enter prepares the state of a screen that just became current.
func (m *Model) enter(t screen.Type) {
	switch t {
	case screen.Login:
		m.login.err = ""
		if m.login.value(0) != "" {
			m.login.setFocus(1)
		} else {
			m.login.setFocus(0)
		}
	case screen.Register:
		m.register.err = ""
		m.register.setFocus(0)
	case screen.EmailVerification:
		m.verify.reset()
	case screen.Subscription:
		m.checkout = nil
	}
}

func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	key := msg.String()
	if key == "ctrl+c" {
		m.close()
		return tea.Quit
	}
	if m.showHelp {
		switch key {
		case "f1", "esc", "q", "?":
			m.showHelp = false
			return nil
		}
		_, cmd := m.help.Update(msg)
		return cmd
	}
	if key == "f1" {
		m.showHelp = true
		return nil
	}
	if key == m.shortcut() {
		m.triggerShortcut()
		return nil
	}
	if m.app.Screen.Loading() {
		return nil
	}

	switch m.current() {
	case screen.Onboarding:
		return m.updateOnboarding(key)
	case screen.Main:
		return m.updateMain(msg)
	case screen.LimitExceeded:
		return m.updateLimit(key)
	case screen.Login:
		return m.updateLogin(msg)
	case screen.Register:
		return m.updateRegister(msg)
	case screen.EmailVerification:
		return m.updateVerify(msg)
	case screen.Subscription:
		return m.updateSubscription(msg)
	default:
		// Unknown is handled as MAIN, matching View.
		return m.updateMain(msg)
	}
}

// triggerShortcut fires the registered accelerator, or publishes the event
// directly when the app has not bound it.
func (m *Model) triggerShortcut() {
	if !m.app.Shortcuts.Trigger(m.shortcut()) {
		m.app.Hub.Publish(events.ShortcutTriggered{Text: m.input.Value()})
	}
	m.status = "Shortcut: converting input"
}

func (m *Model) updateOnboarding(key string) tea.Cmd {
	switch key {
	case "enter", "space", " ":
		m.app.Screen.Switch(screen.Main)
	case "?":
		m.showHelp = true
	}
	return nil
}

func (m *Model) updateMain(msg tea.KeyPressMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		text := strings.TrimSpace(m.input.Value())
		if err := m.app.Gateway.Validate(text, m.convertType); err != nil {
			m.status = errorText(err)
			return nil
		}
		m.busy = true
		m.status = ""
		return m.convertCmd(text, m.convertType)
	case "tab":
		m.cycleType(1)
		return nil
	case "shift+tab":
		m.cycleType(-1)
		return nil
	case "esc":
		m.input.Reset()
		m.status = ""
		return nil
	case "ctrl+u":
		m.app.Screen.Switch(screen.Subscription)
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) convertCmd(text string, ct backend.ConvertType) tea.Cmd {
	ctx, a := m.ctx, m.app
	return func() tea.Msg {
		out, err := a.Convert(ctx, text, ct)
		return convertDoneMsg{out: out, err: err}
	}
}

func (m *Model) cycleType(step int) {
	types := backend.ConvertTypes()
	idx := 0
	for i, ct := range types {
		if ct == m.convertType {
			idx = i
		}
	}
	m.convertType = types[(idx+step+len(types))%len(types)]
	if err := m.app.Usage.SetConvertType(m.ctx, m.convertType); err != nil {
		m.status = errorText(err)
	}
}

func (m *Model) updateLimit(key string) tea.Cmd {
	switch key {
	case "enter", "u":
		if m.app.Auth.State().Authenticated {
			m.app.Screen.Switch(screen.Subscription)
		} else {
			m.app.Screen.Switch(screen.Login)
		}
	case "?":
		m.showHelp = true
	}
	return nil
}

// formKeys handles focus movement shared by every form. It reports whether
// the key was consumed; submit is true when enter was pressed on the last
// field.
func formKeys(f *form, key string) (cmd tea.Cmd, consumed, submit bool) {
	if f.pending {
		return nil, true, false
	}
	switch key {
	case "tab", "down":
		return f.next(), true, false
	case "shift+tab", "up":
		return f.prev(), true, false
	case "enter":
		if !f.last() {
			return f.next(), true, false
		}
		return nil, true, true
	}
	return nil, false, false
}

func (m *Model) updateLogin(msg tea.KeyPressMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.app.Screen.Switch(screen.LimitExceeded)
		return nil
	case "ctrl+r":
		m.app.Screen.Switch(screen.Register)
		return nil
	}
	cmd, consumed, submit := formKeys(&m.login, msg.String())
	if submit {
		m.login.pending = true
		email, password := m.login.value(0), m.login.inputs[1].Value()
		ctx, a := m.ctx, m.app
		return func() tea.Msg {
			err := a.Auth.Login(ctx, email, password)
			return actionDoneMsg{form: formLogin, next: screen.Main, status: "Logged in as " + email, err: err}
		}
	}
	if consumed {
		return cmd
	}
	return m.login.update(msg)
}

func (m *Model) updateRegister(msg tea.KeyPressMsg) tea.Cmd {
	if msg.String() == "esc" {
		m.app.Screen.Switch(screen.Login)
		return nil
	}
	cmd, consumed, submit := formKeys(&m.register, msg.String())
	if submit {
		m.register.pending = true
		email := m.register.value(0)
		password, confirm := m.register.inputs[1].Value(), m.register.inputs[2].Value()
		ctx, a := m.ctx, m.app
		return func() tea.Msg {
			err := a.Auth.Register(ctx, email, password, confirm)
			return actionDoneMsg{form: formRegister, next: screen.EmailVerification, status: "Code sent to " + email, err: err}
		}
	}
	if consumed {
		return cmd
	}
	return m.register.update(msg)
}

func (m *Model) updateVerify(msg tea.KeyPressMsg) tea.Cmd {
	key := msg.String()
	if key == "esc" {
		m.app.Screen.Switch(screen.Register)
		return nil
	}
	if m.verify.pending {
		return nil
	}
	switch key {
	case "enter", "ctrl+l":
		m.verify.pending = true
		code := m.verify.value(0)
		email, _ := m.app.Auth.PendingEmail()
		ctx, a := m.ctx, m.app
		if key == "ctrl+l" {
			return func() tea.Msg {
				err := a.Auth.VerifyEmailAndLogin(ctx, code)
				return actionDoneMsg{form: formVerify, next: screen.Main, status: "Verified and logged in", err: err}
			}
		}
		return func() tea.Msg {
			err := a.Auth.VerifyEmail(ctx, code)
			return actionDoneMsg{form: formVerify, next: screen.Login, status: "Email verified, log in to continue", email: email, err: err}
		}
	}
	return m.verify.update(msg)
}

func (m *Model) formFor(id formID) *form {
	switch id {
	case formRegister:
		return &m.register
	case formVerify:
		return &m.verify
	default:
		return &m.login
	}
}

func (m *Model) finishAction(msg actionDoneMsg) {
	f := m.formFor(msg.form)
	f.pending = false
	if msg.err != nil {
		f.err = errorText(msg.err)
		return
	}
	f.reset()
	m.status = msg.status
	if msg.email != "" {
		m.login.setValue(0, msg.email)
		m.login.setFocus(1)
	}
	m.app.Screen.Switch(msg.next)
}

func (m *Model) updateSubscription(msg tea.KeyPressMsg) tea.Cmd {
	key := msg.String()
	ctx, a := m.ctx, m.app

	if m.checkout != nil {
		switch key {
		case "esc":
			m.checkout = nil
			return nil
		case "enter":
			raw := strings.TrimSpace(m.redirect.Value())
			if raw == "" {
				m.status = "Paste the URL the checkout redirected to"
				return nil
			}
			return func() tea.Msg {
				_, err := a.HandleRedirect(ctx, raw)
				return redirectMsg{err: err}
			}
		}
		var cmd tea.Cmd
		m.redirect, cmd = m.redirect.Update(msg)
		return cmd
	}

	plans := backend.Plans()
	switch key {
	case "up", "k":
		m.planIndex = (m.planIndex - 1 + len(plans)) % len(plans)
	case "down", "j":
		m.planIndex = (m.planIndex + 1) % len(plans)
	case "enter":
		plan := plans[m.planIndex].Type
		return func() tea.Msg {
			co, err := a.Purchase(ctx, plan)
			return checkoutMsg{co: co, err: err}
		}
	case "esc", "b":
		m.app.Screen.Switch(screen.Main)
	case "?":
		m.showHelp = true
	}
	return nil
}

func errorText(err error) string {
	return strings.TrimPrefix(backend.Message(err), "auth: ")
}
