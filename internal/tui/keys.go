package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/verte-zerg/keyrace/internal/race"
)

// keyMap holds the control bindings. Controls are only live outside a race;
// while racing every key except ctrl+c is a race key.
type keyMap struct {
	Start     key.Binding
	Again     key.Binding
	Reset     key.Binding
	History   key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Start: key.NewBinding(
			key.WithKeys("enter", "s"),
			key.WithHelp("enter/s", "start"),
		),
		Again: key.NewBinding(
			key.WithKeys("enter", "s"),
			key.WithHelp("enter", "play again"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reset"),
		),
		History: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "history"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "abort"),
		),
	}
}

// apply enables bindings according to the engine's presentation state.
func (k *keyMap) apply(ui race.UIState, historyAvailable bool) {
	racing := ui.StartDisabled
	k.Start.SetEnabled(!racing && !ui.OverlayVisible)
	k.Again.SetEnabled(ui.OverlayVisible)
	k.Reset.SetEnabled(!ui.ResetDisabled)
	k.History.SetEnabled(!racing && historyAvailable)
	k.Quit.SetEnabled(!racing)
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Again, k.Reset, k.History, k.Quit, k.ForceQuit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
