package theme

import "github.com/charmbracelet/lipgloss/v2"

// Theme centralizes Lip Gloss styles for the Bubble Tea UI.
type Theme struct {
	Footer FooterTheme
	Panel  PanelTheme
	Form   FormTheme
	Toast  ToastTheme
}

// FooterTheme groups styles used by the bottom status bar.
type FooterTheme struct {
	Help   lipgloss.Style
	Status lipgloss.Style
	Usage  lipgloss.Style
}

// PanelTheme styles framed panels and headings.
type PanelTheme struct {
	Frame  lipgloss.Style
	Title  lipgloss.Style
	Body   lipgloss.Style
	Subtle lipgloss.Style
	// Selected marks the active convert type or plan.
	Selected   lipgloss.Style
	Unselected lipgloss.Style
}

// FormTheme styles the login, register and verification forms.
type FormTheme struct {
	Label        lipgloss.Style
	FocusedLabel lipgloss.Style
	Error        lipgloss.Style
	Pending      lipgloss.Style
}

// ToastTheme styles notifications by level.
type ToastTheme struct {
	Info    lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

// Default returns the built-in theme used across the UI.
func Default() Theme {
	accent := lipgloss.Color("212")
	subtle := lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	toast := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)

	return Theme{
		Footer: FooterTheme{
			Help:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
			Status: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
			Usage:  lipgloss.NewStyle().Foreground(accent),
		},
		Panel: PanelTheme{
			Frame: lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				Padding(1, 2),
			Title:      lipgloss.NewStyle().Bold(true).Foreground(accent),
			Body:       lipgloss.NewStyle(),
			Subtle:     subtle,
			Selected:   lipgloss.NewStyle().Foreground(accent).Bold(true).Reverse(true).Padding(0, 1),
			Unselected: lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Padding(0, 1),
		},
		Form: FormTheme{
			Label:        subtle,
			FocusedLabel: lipgloss.NewStyle().Foreground(accent).Bold(true),
			Error:        lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
			Pending:      lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245")),
		},
		Toast: ToastTheme{
			Info:    toast.BorderForeground(lipgloss.Color("39")),
			Success: toast.BorderForeground(lipgloss.Color("42")),
			Warning: toast.BorderForeground(lipgloss.Color("214")),
			Error:   toast.BorderForeground(lipgloss.Color("203")),
		},
	}
}
