// Package tui is the terminal front end of the editor. It drives
// editor.Editor from the bubbletea event loop: every frame tick and every
// wake-up from a background worker calls Editor.Tick.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/leapstack-labs/sceneforge/internal/editor"
	"github.com/leapstack-labs/sceneforge/internal/scene"
	"github.com/leapstack-labs/sceneforge/pkg/core"
)

// DefaultTickInterval is the frame interval when none is configured.
const DefaultTickInterval = 50 * time.Millisecond

const (
	maxDiagnostics = 8
	logTail        = 10
)

type tickMsg time.Time

type wakeMsg struct{}

// Waker forwards editor wake-ups into a running program. It is safe to call
// Wake before the program starts or after it exits.
type Waker struct {
	p atomic.Pointer[tea.Program]
}

// Wake asks the program for an extra frame.
func (w *Waker) Wake() {
	if p := w.p.Load(); p != nil {
		go p.Send(wakeMsg{})
	}
}

// Model is the bubbletea model of the editor screen.
type Model struct {
	ed       *editor.Editor
	interval time.Duration

	keys   keyMap
	help   help.Model
	styles styles

	width  int
	height int

	// pick is the schema script offered for attaching. It belongs to the
	// selected entity and resets when the selection changes.
	pick       int
	pickEntity int

	notice   string
	showHelp bool
}

// New creates the model for ed. A zero interval uses DefaultTickInterval.
func New(ed *editor.Editor, interval time.Duration) Model {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return Model{
		ed:         ed,
		interval:   interval,
		keys:       newKeyMap(),
		help:       help.New(),
		styles:     newStyles(),
		pickEntity: ed.Selection().Entity,
	}
}

// Run runs the program until the user quits or ctx is done.
func Run(ctx context.Context, ed *editor.Editor, waker *Waker, interval time.Duration, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(New(ed, interval), opts...)
	if waker != nil {
		waker.p.Store(p)
		defer waker.p.Store(nil)
	}
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		m.ed.Tick()
		m.syncPick()
		return m, m.tick()

	case wakeMsg:
		m.ed.Tick()
		m.syncPick()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""
	// The selection may have moved since the last tick.
	m.syncPick()

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
	case key.Matches(msg, m.keys.up):
		m.ed.SelectPrev()
	case key.Matches(msg, m.keys.down):
		m.ed.SelectNext()
	case key.Matches(msg, m.keys.save):
		_ = m.ed.Save()
	case key.Matches(msg, m.keys.check):
		m.ed.RequestCheck()
	case key.Matches(msg, m.keys.run):
		_ = m.ed.StartRun()
	case key.Matches(msg, m.keys.stop):
		m.ed.StopRun()
	case key.Matches(msg, m.keys.export):
		m.ed.Export(context.Background())
	case key.Matches(msg, m.keys.newScene):
		_ = m.ed.CreateScene()
	case key.Matches(msg, m.keys.remove):
		m.report(m.ed.RemoveSelected())
	case key.Matches(msg, m.keys.nextScript):
		if names := m.candidates(); len(names) > 0 {
			m.pick = (m.pick + 1) % len(names)
		}
	case key.Matches(msg, m.keys.attach):
		names := m.candidates()
		if len(names) == 0 {
			m.notice = "no script to attach"
			break
		}
		m.report(m.ed.AttachScript(names[m.pick]))
		m.pick = 0
	case key.Matches(msg, m.keys.detach):
		ent := m.ed.Selected()
		if ent == nil || len(ent.Scripts) == 0 {
			m.notice = "no script to detach"
			break
		}
		m.report(m.ed.DetachScript(len(ent.Scripts) - 1))
	}

	m.syncPick()
	return m, nil
}

func (m *Model) report(err error) {
	if err != nil {
		m.notice = err.Error()
	}
}

// candidates lists the schema scripts not yet attached to the selected entity.
func (m Model) candidates() []string {
	ent := m.ed.Selected()
	sess := m.ed.Session()
	if ent == nil || sess == nil || sess.Schema().Schema() == nil {
		return nil
	}
	var out []string
	for _, name := range sess.Schema().Schema().Names() {
		if !ent.HasScript(name) {
			out = append(out, name)
		}
	}
	return out
}

// syncPick resets the pick when the selected entity changed and keeps it
// inside the candidate list.
func (m *Model) syncPick() {
	if sel := m.ed.Selection().Entity; sel != m.pickEntity {
		m.pickEntity = sel
		m.pick = 0
	}
	if n := len(m.candidates()); m.pick >= n {
		m.pick = 0
	}
}

func (m Model) View() string {
	var b strings.Builder
	s := m.styles

	sess := m.ed.Session()
	if sess == nil {
		b.WriteString(s.title.Render("sceneforge") + "\n\n")
		b.WriteString(s.subtle.Render("no project open") + "\n")
	} else {
		title := s.title.Render(sess.Config().Name)
		if m.ed.Dirty() {
			title += " " + s.dirty.Render("[modified]")
		}
		if m.ed.Running() {
			title += " " + s.okText.Render("[running]")
		}
		b.WriteString(title + "  " + s.subtle.Render(sess.Root()) + "\n\n")
		m.viewScene(&b, sess.Scene())
		m.viewDiagnostics(&b, m.ed.Diagnostics())
	}
	m.viewLog(&b)

	status := m.ed.Status()
	if m.notice != "" {
		status = m.notice
	}
	b.WriteString(s.status.Render(status) + "\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) viewScene(b *strings.Builder, doc *scene.Doc) {
	s := m.styles
	b.WriteString(s.section.Render("Scene") + "\n")
	if doc == nil {
		b.WriteString(s.subtle.Render("no scene; press n to create one") + "\n\n")
		return
	}
	if len(doc.Entities) == 0 {
		b.WriteString(s.subtle.Render("(no entities)") + "\n\n")
		return
	}

	sel := m.ed.Selection().Entity
	for i, e := range doc.Entities {
		line := fmt.Sprintf("  %s", e.ID)
		if i == sel {
			line = s.selected.Render("> " + e.ID)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")

	ent := m.ed.Selected()
	if ent == nil {
		return
	}
	kinds := make([]string, 0, len(ent.Components))
	for _, c := range ent.Components {
		kinds = append(kinds, c.TypeID())
	}
	b.WriteString(s.section.Render("Entity "+ent.ID) + "\n")
	fmt.Fprintf(b, "  components: %s\n", strings.Join(kinds, ", "))
	scripts := make([]string, 0, len(ent.Scripts))
	for _, sc := range ent.Scripts {
		scripts = append(scripts, sc.Name)
	}
	fmt.Fprintf(b, "  scripts:    %s\n", strings.Join(scripts, ", "))
	if names := m.candidates(); len(names) > 0 {
		fmt.Fprintf(b, "  attach:     %s %s\n", s.selected.Render(names[m.pick]), s.subtle.Render(fmt.Sprintf("(%d/%d, tab to cycle)", m.pick+1, len(names))))
	}
	b.WriteString("\n")
}

func (m Model) viewDiagnostics(b *strings.Builder, diags []core.Diagnostic) {
	s := m.styles
	if len(diags) == 0 {
		if m.ed.LastCheck() != nil {
			b.WriteString(s.okText.Render("no diagnostics") + "\n\n")
		}
		return
	}
	b.WriteString(s.section.Render(fmt.Sprintf("Diagnostics (%d)", len(diags))) + "\n")
	for _, d := range diags[:min(len(diags), maxDiagnostics)] {
		b.WriteString(s.errText.Render(d.String()) + "\n")
	}
	if len(diags) > maxDiagnostics {
		b.WriteString(s.subtle.Render(fmt.Sprintf("... %d more", len(diags)-maxDiagnostics)) + "\n")
	}
	b.WriteString("\n")
}

func (m Model) viewLog(b *strings.Builder) {
	lines := m.ed.Log().Tail(logTail)
	if len(lines) == 0 {
		return
	}
	b.WriteString(m.styles.section.Render("Console") + "\n")
	for _, l := range lines {
		b.WriteString(m.styles.logLine.Render(l) + "\n")
	}
	b.WriteString("\n")
}
