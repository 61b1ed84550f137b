package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	up         key.Binding
	down       key.Binding
	save       key.Binding
	check      key.Binding
	run        key.Binding
	stop       key.Binding
	export     key.Binding
	nextScript key.Binding
	attach     key.Binding
	detach     key.Binding
	newScene   key.Binding
	remove     key.Binding
	toggleHelp key.Binding
	quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "prev entity"),
		),
		down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "next entity"),
		),
		save: key.NewBinding(
			key.WithKeys("s", "ctrl+s"),
			key.WithHelp("s", "save scene"),
		),
		check: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "check"),
		),
		run: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "run"),
		),
		stop: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "stop run"),
		),
		export: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "export schema"),
		),
		nextScript: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next script"),
		),
		attach: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "attach script"),
		),
		detach: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "detach last script"),
		),
		newScene: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "create scene"),
		),
		remove: key.NewBinding(
			key.WithKeys("delete"),
			key.WithHelp("del", "remove entity"),
		),
		toggleHelp: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.save, k.check, k.run, k.export, k.toggleHelp, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.remove, k.newScene},
		{k.nextScript, k.attach, k.detach},
		{k.save, k.check, k.export},
		{k.run, k.stop, k.toggleHelp, k.quit},
	}
}
