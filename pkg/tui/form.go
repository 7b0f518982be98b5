package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/v2/textinput"
	tea "github.com/charmbracelet/bubbletea/v2"

	"tableflip.dev/wordsmith/pkg/tui/theme"
)

// field describes one input of a form.
type field struct {
	label       string
	placeholder string
	secret      bool
	limit       int
}

// form is a vertical list of text inputs with one focused at a time.
type form struct {
	labels  []string
	inputs  []textinput.Model
	focus   int
	err     string
	pending bool
}

func newForm(fields ...field) form {
	f := form{}
	for _, fd := range fields {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = fd.placeholder
		if fd.limit > 0 {
			ti.CharLimit = fd.limit
		}
		if fd.secret {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		f.labels = append(f.labels, fd.label)
		f.inputs = append(f.inputs, ti)
	}
	f.setFocus(0)
	return f
}

func (f *form) setFocus(i int) tea.Cmd {
	if len(f.inputs) == 0 {
		return nil
	}
	f.focus = (i + len(f.inputs)) % len(f.inputs)
	var cmd tea.Cmd
	for j := range f.inputs {
		if j == f.focus {
			cmd = f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
	return cmd
}

func (f *form) next() tea.Cmd { return f.setFocus(f.focus + 1) }
func (f *form) prev() tea.Cmd { return f.setFocus(f.focus - 1) }

// last reports whether the focused input is the final one.
func (f *form) last() bool {
	return f.focus == len(f.inputs)-1
}

func (f *form) update(msg tea.Msg) tea.Cmd {
	if f.pending || len(f.inputs) == 0 {
		return nil
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (f *form) value(i int) string {
	return strings.TrimSpace(f.inputs[i].Value())
}

func (f *form) setValue(i int, v string) {
	f.inputs[i].SetValue(v)
}

func (f *form) reset() {
	for i := range f.inputs {
		f.inputs[i].Reset()
	}
	f.err = ""
	f.pending = false
	f.setFocus(0)
}

func (f *form) view(th theme.FormTheme) string {
	var b strings.Builder
	for i, ti := range f.inputs {
		label := th.Label
		if i == f.focus {
			label = th.FocusedLabel
		}
		b.WriteString(label.Render(f.labels[i]))
		b.WriteString("\n")
		b.WriteString(ti.View())
		b.WriteString("\n\n")
	}
	switch {
	case f.pending:
		b.WriteString(th.Pending.Render("working…"))
	case f.err != "":
		b.WriteString(th.Error.Render(f.err))
	}
	return strings.TrimRight(b.String(), "\n")
}
