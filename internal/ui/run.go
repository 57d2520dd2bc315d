package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Run boots the editor and blocks until it exits.
func Run(ctx context.Context, opts Options) error {
	m := initialModel(ctx, opts)
	program := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
	_, err := program.Run()
	return err
}
