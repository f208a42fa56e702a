package ui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/appscope/appscope/pkg/tree"
)

// askOverlay is the modal state for an in-flight Ask.
type askOverlay struct {
	message string
	choices []string
	cursor  int
	reply   chan<- string
}

// Model is the bubbletea host around the sync engine.
type Model struct {
	engine *tree.Engine
	theme  Theme

	view        TreeView
	spinner     spinner.Model
	filterInput textinput.Model
	docView     viewport.Model

	// busyMessages maps outstanding busy handle ids to their text. The
	// status bar shows the newest one.
	busyMessages map[int]string
	busyOrder    []int

	toast      string
	toastIsErr bool

	overlay  *askOverlay
	showDocs bool

	tenant    string
	filtering bool
	ready     bool
	width     int
	height    int
}

// NewModel wires a model around an engine. The engine's callbacks must be
// routed through a Bridge before the program starts processing input.
func NewModel(engine *tree.Engine, theme Theme, tenant string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Renderer.NewStyle().Foreground(theme.Primary)

	fi := textinput.New()
	fi.Placeholder = "filter by name prefix"
	fi.CharLimit = 120
	fi.Width = 40

	return Model{
		engine:       engine,
		theme:        theme,
		view:         NewTreeView(theme),
		spinner:      sp,
		filterInput:  fi,
		busyMessages: make(map[int]string),
		tenant:       tenant,
	}
}

// Init starts the spinner and kicks off engine initialization.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg {
			m.engine.Initialize(context.Background())
			return nil
		},
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.view.SetSize(msg.Width, msg.Height-4)
		m.docView.Width = msg.Width - 4
		m.docView.Height = msg.Height - 6
		m.ready = true

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case TreeChangedMsg:
		m.view.SetRoots(m.engine.Roots())

	case BusyShowMsg:
		m.busyMessages[msg.ID] = msg.Message
		m.busyOrder = append(m.busyOrder, msg.ID)

	case BusyHideMsg:
		delete(m.busyMessages, msg.ID)

	case InfoMsg:
		m.toast = string(msg)
		m.toastIsErr = false

	case ErrorMsg:
		m.toast = string(msg)
		m.toastIsErr = true

	case AskMsg:
		m.overlay = &askOverlay{message: msg.Message, choices: msg.Choices, reply: msg.Reply}

	case DocsMsg:
		rendered, err := glamour.Render(msg.Markdown, "auto")
		if err != nil {
			rendered = msg.Markdown
		}
		m.docView.SetContent(rendered)
		m.docView.GotoTop()
		m.showDocs = true

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.overlay != nil {
		return m.handleOverlayKey(msg)
	}
	if m.showDocs {
		return m.handleDocsKey(msg)
	}
	if m.filtering {
		return m.handleFilterKey(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "j", "down":
		m.view.MoveDown()
	case "k", "up":
		m.view.MoveUp()
	case "ctrl+d":
		m.view.PageDown()
	case "ctrl+u":
		m.view.PageUp()
	case "g":
		m.view.JumpToTop()
	case "G":
		m.view.JumpToBottom()

	case "enter", " ", "l", "right":
		if pending := m.view.ToggleExpand(); pending != nil {
			return m, m.resolveCmd(pending)
		}
	case "h", "left":
		m.view.CollapseOrJumpToParent()

	case "r":
		return m, func() tea.Msg {
			m.engine.TriggerRebuild(context.Background(), nil)
			return nil
		}

	case "/":
		m.filtering = true
		m.filterInput.SetValue(m.engine.Filter())
		m.filterInput.Focus()
		return m, textinput.Blink

	case "esc":
		m.toast = ""
		if m.engine.Filter() != "" {
			return m, m.filterCmd("")
		}

	case "c", "y":
		m.copySelected()
	}

	return m, nil
}

func (m Model) handleOverlayKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ov := m.overlay
	switch msg.String() {
	case "left", "h":
		if ov.cursor > 0 {
			ov.cursor--
		}
	case "right", "l", "tab":
		if ov.cursor < len(ov.choices)-1 {
			ov.cursor++
		}
	case "enter":
		ov.reply <- ov.choices[ov.cursor]
		m.overlay = nil
	case "esc", "q":
		ov.reply <- ""
		m.overlay = nil
	}
	return m, nil
}

func (m Model) handleDocsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.showDocs = false
		return m, nil
	}
	var cmd tea.Cmd
	m.docView, cmd = m.docView.Update(msg)
	return m, cmd
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.filtering = false
		m.filterInput.Blur()
		return m, m.filterCmd(m.filterInput.Value())
	case "esc":
		m.filtering = false
		m.filterInput.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	return m, cmd
}

func (m Model) resolveCmd(node *tree.Node) tea.Cmd {
	return func() tea.Msg {
		m.engine.ResolveChildren(context.Background(), node)
		return nil
	}
}

func (m Model) filterCmd(filter string) tea.Cmd {
	return func() tea.Msg {
		m.engine.ApplyFilter(context.Background(), filter)
		return nil
	}
}

func (m *Model) copySelected() {
	sel := m.view.Selected()
	if sel == nil || sel.Value == "" {
		return
	}
	if err := clipboard.WriteAll(sel.Value); err != nil {
		m.toast = fmt.Sprintf("Copy failed: %v", err)
		m.toastIsErr = true
		return
	}
	m.toast = fmt.Sprintf("Copied %q", sel.Value)
	m.toastIsErr = false
}

func (m Model) View() string {
	if !m.ready {
		return "Starting…"
	}

	var sb strings.Builder
	sb.WriteString(m.renderHeader())
	sb.WriteString("\n")
	sb.WriteString(m.view.View())
	sb.WriteString(m.renderStatusBar())

	base := sb.String()
	if m.overlay != nil {
		return m.renderOverlay(base)
	}
	if m.showDocs {
		return m.renderDocs()
	}
	return base
}

func (m Model) renderHeader() string {
	r := m.theme.Renderer
	title := r.NewStyle().Foreground(m.theme.Primary).Bold(true).Render("appscope")

	var parts []string
	parts = append(parts, title)
	if m.tenant != "" {
		parts = append(parts, r.NewStyle().Foreground(m.theme.Muted).Render(m.tenant))
	}
	if m.filtering {
		parts = append(parts, "/"+m.filterInput.View())
	} else if f := m.engine.Filter(); f != "" {
		parts = append(parts, r.NewStyle().Foreground(m.theme.Highlight).Render("filter: "+f))
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderStatusBar() string {
	r := m.theme.Renderer

	if msg := m.newestBusy(); msg != "" {
		return m.spinner.View() + " " + r.NewStyle().Foreground(m.theme.Muted).Render(msg)
	}
	if m.toast != "" {
		color := m.theme.Muted
		if m.toastIsErr {
			color = m.theme.Danger
		}
		return r.NewStyle().Foreground(color).Render(m.toast)
	}
	help := "j/k move · enter expand · / filter · r refresh · c copy · q quit"
	return r.NewStyle().Foreground(m.theme.Muted).Render(help)
}

// newestBusy returns the most recently shown busy message that is still
// outstanding.
func (m Model) newestBusy() string {
	if len(m.busyMessages) == 0 {
		return ""
	}
	order := append([]int(nil), m.busyOrder...)
	sort.Sort(sort.Reverse(sort.IntSlice(order)))
	for _, id := range order {
		if msg, ok := m.busyMessages[id]; ok {
			return msg
		}
	}
	return ""
}

func (m Model) renderOverlay(base string) string {
	_ = base
	r := m.theme.Renderer
	ov := m.overlay

	var choices []string
	for i, c := range ov.choices {
		style := r.NewStyle().Padding(0, 1)
		if i == ov.cursor {
			style = style.Background(m.theme.Primary).Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1a1a1a"}).Bold(true)
		}
		choices = append(choices, style.Render(c))
	}

	box := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Primary).
		Padding(1, 2).
		Width(minInt(m.width-4, 72)).
		Render(ov.message + "\n\n" + strings.Join(choices, " "))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) renderDocs() string {
	r := m.theme.Renderer
	box := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Secondary).
		Padding(0, 1).
		Render(m.docView.View() + "\n" + r.NewStyle().Foreground(m.theme.Muted).Render("esc to close"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
