package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"

	"github.com/raphi011/gw/internal/config"
	"github.com/raphi011/gw/internal/git"
	"github.com/raphi011/gw/internal/hooks"
	"github.com/raphi011/gw/internal/store"
	gwsync "github.com/raphi011/gw/internal/sync"
)

// engineController is the slice of the refresh engine the session needs.
// It exists so model tests can drive the session without a repository.
type engineController interface {
	Events() <-chan gwsync.Event
	Generation(path string) uint64
	Invalidate(paths ...string)
	Refresh(ctx context.Context)
	RefreshPaths(ctx context.Context, paths ...string)
}

// row is a cached store row plus its validation state in this session.
type row struct {
	store.Row

	Detached bool

	// LocalFresh is set once the local refresh phase (or a mutation
	// refresh) has confirmed the local column group this session.
	LocalFresh bool

	// RemoteFresh is set once the remote phase has confirmed the
	// remote column group this session.
	RemoteFresh bool
}

type mode int

const (
	modeList mode = iota
	modeInput
	modeConfirm
)

type inputKind int

const (
	inputCreate inputKind = iota
	inputCreateFromSelected
	inputRename
	inputFilter
)

type (
	eventMsg  struct{ ev gwsync.Event }
	closedMsg struct{}

	// opDoneMsg reports a finished mutation command.
	opDoneMsg struct {
		verb string
		err  error
	}

	refreshStartedMsg struct{}
)

// Params configures an interactive session.
type Params struct {
	Root          string
	Config        config.Config
	DefaultBranch string
	Rows          []store.Row
	Engine        *gwsync.Engine

	// InitialPath positions the cursor on the worktree selected in the
	// previous session.
	InitialPath string
}

type model struct {
	ctx  context.Context
	eng  engineController
	root string
	cfg  config.Config

	defaultBranch string

	rows    []row
	visible []int // indexes into rows, filter applied
	cursor  int   // index into visible
	filter  string

	mode  mode
	kind  inputKind
	input textinput.Model

	// confirm state
	confirmPrompt string
	confirmCmd    tea.Cmd

	// rename needs the pre-input selection pinned down
	target row

	spin       spinner.Model
	busy       bool
	refreshing bool
	status     string
	statusErr  bool

	width  int
	height int

	selected string
	quitting bool
}

func newModel(ctx context.Context, eng engineController, p Params) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	in := textinput.New()
	in.CharLimit = 200

	m := model{
		ctx:           ctx,
		eng:           eng,
		root:          p.Root,
		cfg:           p.Config,
		defaultBranch: p.DefaultBranch,
		input:         in,
		spin:          sp,
	}
	for _, r := range p.Rows {
		m.rows = append(m.rows, row{Row: r})
	}
	m.sortRows()
	m.applyFilter()

	if p.InitialPath != "" {
		for vi, ri := range m.visible {
			if m.rows[ri].Path == p.InitialPath {
				m.cursor = vi
				break
			}
		}
	}
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, waitForEvent(m.eng.Events()), m.fullRefreshCmd())
}

func waitForEvent(ch <-chan gwsync.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return eventMsg{ev: ev}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case refreshStartedMsg:
		m.refreshing = true
		return m, nil

	case eventMsg:
		m = m.applyEvent(msg.ev)
		return m, waitForEvent(m.eng.Events())

	case closedMsg:
		return m, nil

	case opDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.status = fmt.Sprintf("%s failed: %v", msg.verb, msg.err)
			m.statusErr = true
		} else {
			m.status = msg.verb + " done"
			m.statusErr = false
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeInput:
			return m.updateInput(msg)
		case modeConfirm:
			return m.updateConfirm(msg)
		default:
			return m.updateList(msg)
		}
	}
	return m, nil
}

func (m model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		if m.filter != "" && msg.String() == "esc" {
			m.filter = ""
			m.applyFilter()
			return m, nil
		}
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}
		return m, nil

	case "enter":
		if r, ok := m.current(); ok {
			m.selected = r.Path
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case "/":
		m.mode = modeInput
		m.kind = inputFilter
		m.input.Placeholder = "filter branches"
		m.input.SetValue(m.filter)
		m.input.Focus()
		return m, textinput.Blink

	case "y":
		if r, ok := m.current(); ok {
			if err := clipboard.WriteAll(r.Path); err != nil {
				m.status = fmt.Sprintf("copy failed: %v", err)
				m.statusErr = true
			} else {
				m.status = "copied " + r.Path
				m.statusErr = false
			}
		}
		return m, nil

	case "r":
		if m.busy || m.refreshing {
			return m, nil
		}
		return m, m.fullRefreshCmd()

	case "n":
		if m.busy {
			return m, nil
		}
		m.target = row{}
		return m.promptInput(inputCreate, "new branch from "+m.defaultBranch)

	case "N":
		if m.busy {
			return m, nil
		}
		r, ok := m.current()
		if !ok {
			return m, nil
		}
		if r.Detached {
			m.status = "cannot branch off a detached worktree"
			m.statusErr = true
			return m, nil
		}
		m.target = r
		return m.promptInput(inputCreateFromSelected, "new branch from "+r.Branch)

	case "R":
		if m.busy {
			return m, nil
		}
		r, ok := m.current()
		if !ok {
			return m, nil
		}
		if r.Detached {
			m.status = "cannot rename a detached worktree"
			m.statusErr = true
			return m, nil
		}
		m.target = r
		return m.promptInput(inputRename, "rename "+r.Branch+" to")

	case "d":
		if m.busy {
			return m, nil
		}
		r, ok := m.current()
		if !ok {
			return m, nil
		}
		m.target = r
		m.confirmPrompt = m.deletePrompt(r)
		m.confirmCmd = m.deleteCmd(r.Path, r.Branch)
		m.mode = modeConfirm
		return m, nil

	case "p":
		if m.busy {
			return m, nil
		}
		if r, ok := m.current(); ok && !r.Detached {
			m.busy = true
			m.status = "pulling " + r.Branch
			m.statusErr = false
			return m, m.pullCmd(r.Path)
		}
		return m, nil

	case "P":
		if m.busy {
			return m, nil
		}
		if r, ok := m.current(); ok && !r.Detached {
			m.busy = true
			m.status = "pushing " + r.Branch
			m.statusErr = false
			return m, m.pushCmd(r.Path, r.Branch)
		}
		return m, nil
	}
	return m, nil
}

func (m model) promptInput(kind inputKind, placeholder string) (tea.Model, tea.Cmd) {
	m.mode = modeInput
	m.kind = kind
	m.input.Placeholder = placeholder
	m.input.SetValue("")
	m.input.Focus()
	return m, textinput.Blink
}

func (m model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "esc":
		m.mode = modeList
		m.input.Blur()
		if m.kind == inputFilter {
			m.filter = ""
			m.applyFilter()
		}
		return m, nil

	case "enter":
		value := strings.TrimSpace(m.input.Value())
		m.mode = modeList
		m.input.Blur()

		switch m.kind {
		case inputFilter:
			m.filter = value
			m.applyFilter()
			return m, nil

		case inputCreate, inputCreateFromSelected:
			if value == "" {
				return m, nil
			}
			base := m.defaultBranch
			if m.kind == inputCreateFromSelected {
				base = m.target.Branch
			}
			m.busy = true
			m.status = "creating " + value
			m.statusErr = false
			return m, m.createCmd(value, base)

		case inputRename:
			if value == "" || value == m.target.Branch {
				return m, nil
			}
			m.busy = true
			m.status = "renaming " + m.target.Branch
			m.statusErr = false
			return m, m.renameCmd(m.target.Branch, m.target.Path, value)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.kind == inputFilter {
		m.filter = m.input.Value()
		m.applyFilter()
	}
	return m, cmd
}

func (m model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.mode = modeList
		m.busy = true
		m.status = "deleting " + m.target.Branch
		m.statusErr = false
		return m, m.confirmCmd
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	default:
		m.mode = modeList
		m.status = "cancelled"
		m.statusErr = false
		return m, nil
	}
}

// deletePrompt folds safety warnings into the confirmation text, so the
// user sees exactly what forcing the delete discards. It reads the
// row's cached sync state rather than asking git, keeping the input
// loop free of subprocess calls.
func (m model) deletePrompt(r row) string {
	var warnings []string
	if r.Dirty {
		warnings = append(warnings, "uncommitted changes")
	}
	if r.Push > 0 {
		warnings = append(warnings, "unpushed commits")
	}
	name := r.Branch
	if name == "" {
		name = r.Path
	}
	if len(warnings) == 0 {
		return fmt.Sprintf("delete %s?", name)
	}
	return fmt.Sprintf("delete %s? it has %s", name, strings.Join(warnings, " and "))
}

func (m model) applyEvent(ev gwsync.Event) model {
	switch ev := ev.(type) {
	case gwsync.RowLocal:
		if ev.Gen < m.eng.Generation(ev.Path) {
			return m
		}
		i := m.rowIndex(ev.Path)
		if i < 0 {
			m.rows = append(m.rows, row{Row: store.Row{Path: ev.Path}})
			i = len(m.rows) - 1
		}
		r := &m.rows[i]
		r.Branch = ev.Fields.Branch
		r.LastCommitTS = ev.Fields.LastCommitTS
		r.Pull = ev.Fields.Pull
		r.Push = ev.Fields.Push
		r.Dirty = ev.Fields.Dirty
		r.Added = ev.Fields.Added
		r.Removed = ev.Fields.Removed
		r.Detached = ev.Detached
		r.LocalFresh = true
		m.sortRows()
		m.applyFilter()

	case gwsync.RowRemote:
		if ev.Gen < m.eng.Generation(ev.Path) {
			return m
		}
		i := m.rowIndex(ev.Path)
		if i < 0 {
			// remote results never introduce rows
			return m
		}
		r := &m.rows[i]
		r.Ahead = ev.Fields.Ahead
		r.Behind = ev.Fields.Behind
		r.PRNumber = ev.Fields.PRNumber
		r.PRTargetBranch = ev.Fields.PRTargetBranch
		r.PRMerged = ev.Fields.PRMerged
		r.PRUpstreamDeleted = ev.Fields.PRUpstreamDeleted
		r.ChecksPassed = ev.Fields.ChecksPassed
		r.ChecksTotal = ev.Fields.ChecksTotal
		r.ChecksPending = ev.Fields.ChecksPending
		r.RemoteFresh = true
		m.applyFilter()

	case gwsync.RowGone:
		if i := m.rowIndex(ev.Path); i >= 0 {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			m.applyFilter()
		}

	case gwsync.PhaseDone:
		if ev.Err != nil {
			m.status = fmt.Sprintf("refresh failed: %v", ev.Err)
			m.statusErr = true
			m.refreshing = false
			return m
		}
		if ev.Phase == gwsync.PhaseRemote {
			m.refreshing = false
		}

	case gwsync.ForgeUnavailable:
		m.status = "gh unavailable, review details disabled"
		m.statusErr = false
	}
	return m
}

func (m *model) rowIndex(path string) int {
	for i := range m.rows {
		if m.rows[i].Path == path {
			return i
		}
	}
	return -1
}

func (m *model) sortRows() {
	sort.SliceStable(m.rows, func(i, j int) bool {
		if m.rows[i].LastCommitTS != m.rows[j].LastCommitTS {
			return m.rows[i].LastCommitTS > m.rows[j].LastCommitTS
		}
		return m.rows[i].Path < m.rows[j].Path
	})
}

// applyFilter recomputes the visible row set and keeps the cursor on a
// valid entry.
func (m *model) applyFilter() {
	prev := ""
	if m.cursor < len(m.visible) && m.visible[m.cursor] < len(m.rows) {
		prev = m.rows[m.visible[m.cursor]].Path
	}

	m.visible = m.visible[:0]
	if m.filter == "" {
		for i := range m.rows {
			m.visible = append(m.visible, i)
		}
	} else {
		names := make([]string, len(m.rows))
		for i, r := range m.rows {
			names[i] = r.Branch
		}
		for _, match := range fuzzy.Find(m.filter, names) {
			m.visible = append(m.visible, match.Index)
		}
	}

	m.cursor = 0
	for vi, ri := range m.visible {
		if m.rows[ri].Path == prev {
			m.cursor = vi
			break
		}
	}
	if m.cursor >= len(m.visible) {
		m.cursor = 0
	}
}

func (m model) current() (row, bool) {
	if m.cursor >= len(m.visible) {
		return row{}, false
	}
	return m.rows[m.visible[m.cursor]], true
}

func (m model) fullRefreshCmd() tea.Cmd {
	ctx, eng := m.ctx, m.eng
	return tea.Batch(
		func() tea.Msg { return refreshStartedMsg{} },
		func() tea.Msg {
			eng.Refresh(ctx)
			return nil
		},
	)
}

func (m model) createCmd(branch, base string) tea.Cmd {
	ctx, eng, root := m.ctx, m.eng, m.root
	opts := git.CreateOptions{BaseBranch: base}
	if base == m.defaultBranch && m.cfg.ShouldPullBeforeCreate() {
		basePath := git.WorktreePath(root, base)
		if _, err := os.Stat(basePath); err == nil {
			opts.PullBasePath = basePath
		}
	}
	return func() tea.Msg {
		path, err := git.Create(ctx, root, branch, opts)
		if err != nil {
			return opDoneMsg{verb: "create " + branch, err: err}
		}
		// Hook failures are reported but never undo the worktree.
		var hookErr error
		if err := hooks.Run(ctx, root, hooks.PostWorktreeCreation, path); err != nil {
			hookErr = err
		}
		eng.Invalidate(path)
		eng.RefreshPaths(ctx, path)
		return opDoneMsg{verb: "create " + branch, err: hookErr}
	}
}

func (m model) renameCmd(oldBranch, oldPath, newBranch string) tea.Cmd {
	ctx, eng, root := m.ctx, m.eng, m.root
	return func() tea.Msg {
		newPath, err := git.Rename(ctx, root, oldBranch, oldPath, newBranch)
		if err != nil {
			return opDoneMsg{verb: "rename " + oldBranch, err: err}
		}
		eng.Invalidate(oldPath, newPath)
		eng.RefreshPaths(ctx, oldPath, newPath)
		return opDoneMsg{verb: "rename " + oldBranch}
	}
}

func (m model) deleteCmd(path, branch string) tea.Cmd {
	ctx, eng, root := m.ctx, m.eng, m.root
	verb := "delete " + branch
	if branch == "" {
		verb = "delete " + path
	}
	return func() tea.Msg {
		err := git.Delete(ctx, root, path, branch, git.DeleteOptions{Force: true})
		if err != nil {
			return opDoneMsg{verb: verb, err: err}
		}
		eng.Invalidate(path)
		eng.RefreshPaths(ctx, path)
		return opDoneMsg{verb: verb}
	}
}

func (m model) pullCmd(path string) tea.Cmd {
	ctx, eng := m.ctx, m.eng
	return func() tea.Msg {
		err := git.Pull(ctx, path)
		if err == nil {
			eng.Invalidate(path)
			eng.RefreshPaths(ctx, path)
		}
		return opDoneMsg{verb: "pull", err: err}
	}
}

func (m model) pushCmd(path, branch string) tea.Cmd {
	ctx, eng, root := m.ctx, m.eng, m.root
	return func() tea.Msg {
		var err error
		if _, ok := git.Upstream(ctx, root, branch); ok {
			err = git.Push(ctx, path)
		} else {
			err = git.PushSetUpstream(ctx, path, branch)
		}
		if err == nil {
			eng.Invalidate(path)
			eng.RefreshPaths(ctx, path)
		}
		return opDoneMsg{verb: "push", err: err}
	}
}

// Run starts the interactive session and blocks until the user selects
// a worktree or quits. It returns the selected worktree path, or ""
// when the session was cancelled.
func Run(ctx context.Context, p Params) (string, error) {
	m := newModel(ctx, p.Engine, p)

	// The table renders on stderr so stdout carries nothing but the
	// final selection, which the shell wrapper consumes with cd.
	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx), tea.WithOutput(os.Stderr))
	final, err := prog.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("interactive session: %w", err)
	}
	fm, ok := final.(model)
	if !ok {
		return "", nil
	}
	return fm.selected, nil
}
