package keys

import "github.com/charmbracelet/bubbles/key"

// MonitorKeys drive the per-port readiness table
type MonitorKeys struct {
	CommonKeys
	ToggleEnable key.Binding
	Drain        key.Binding
	Dump         key.Binding
	Inject       key.Binding
}

func NewMonitorKeys() MonitorKeys {
	return MonitorKeys{
		CommonKeys: NewCommonKeys(),
		ToggleEnable: key.NewBinding(
			key.WithKeys("e", "enter"),
			key.WithHelp("e/enter", "enable/disable port"),
		),
		Drain: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "drain rx fifo"),
		),
		Dump: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "dump registers"),
		),
		Inject: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "send probe"),
		),
	}
}

func (k MonitorKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.ToggleEnable, k.Dump, k.Quit}
}

func (k MonitorKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.ToggleEnable, k.Drain, k.Dump, k.Inject},
		{k.Help, k.Quit},
	}
}
