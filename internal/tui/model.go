// Package tui provides the Bubble Tea race interface.
package tui

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/verte-zerg/keyrace/internal/model"
	"github.com/verte-zerg/keyrace/internal/race"
	"github.com/verte-zerg/keyrace/internal/statsui"
	"github.com/verte-zerg/keyrace/internal/store"
)

// Options configures the race UI.
type Options struct {
	Target       uint32
	Affirmations []string
	RepeatWindow time.Duration
	Store        *store.Store
	Stats        model.StatsConfig
	// Now and Rand default to the wall clock and a time-seeded source.
	Now  func() time.Time
	Rand race.Rand
}

// finishGrace is how long after a finish trailing race keys are dropped
// instead of being read as controls.
const finishGrace = 500 * time.Millisecond

type finishResult struct {
	seconds     float64
	affirmation string
	at          time.Time
}

// Model implements the Bubble Tea race UI. It owns the engine and is the
// engine's presenter, so every engine call happens inside Update.
type Model struct {
	engine   *race.Engine
	store    *store.Store
	statsCfg model.StatsConfig
	filter   *releaseFilter
	now      func() time.Time

	keys     keyMap
	help     help.Model
	progress progress.Model
	ui       race.UIState

	tallies     map[string]int
	trail       []trailEntry
	finish      *finishResult
	pendingSave bool

	lastSeconds float64
	lastRate    float64
	hasLast     bool
	bestSeconds float64
	hasBest     bool
	races       int

	history *statsui.Model

	width  int
	height int
}

var (
	titleStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	buttonStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Padding(0, 1).Border(lipgloss.RoundedBorder(), true).BorderForeground(lipgloss.Color("#C89A3A"))
	disabledButtonStyle = buttonStyle.Foreground(lipgloss.Color("#6E6E6E")).BorderForeground(lipgloss.Color("#4A4A4A"))
	statsStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("#B0B0B0"))
	countedKeyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	ignoredKeyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	overlayStyle        = lipgloss.NewStyle().Border(lipgloss.RoundedBorder(), true).BorderForeground(lipgloss.Color("#C89A3A")).Padding(1, 3).Align(lipgloss.Center)
	overlayTimeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	affirmationStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Italic(true)
	footerStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

type funcClock func() time.Time

func (f funcClock) Now() time.Time {
	return f()
}

// NewModel constructs a race TUI model with an idle engine.
func NewModel(opts Options) *Model {
	m := &Model{
		store:    opts.Store,
		statsCfg: opts.Stats,
		filter:   newReleaseFilter(opts.RepeatWindow),
		now:      opts.Now,
		keys:     newKeyMap(),
		help:     help.New(),
		progress: progress.New(progress.WithDefaultGradient()),
		tallies:  map[string]int{},
	}
	if m.now == nil {
		m.now = time.Now
	}
	m.engine = race.New(race.Options{
		Target:       opts.Target,
		Clock:        funcClock(m.now),
		Rand:         opts.Rand,
		Presenter:    m,
		Affirmations: opts.Affirmations,
	})
	m.syncUI()
	return m
}

// Engine exposes the race engine for inspection.
func (m *Model) Engine() *race.Engine {
	return m.engine
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.progress.Width = progressWidth(msg.Width)
		if m.history != nil {
			_, cmd := m.history.Update(msg)
			return m, cmd
		}
		return m, nil
	case statsui.CloseMsg:
		m.history = nil
		return m, tea.ClearScreen
	case tea.BlurMsg:
		m.engine.Blur()
		m.filter.Reset()
		logrus.Debug("focus lost, held keys cleared")
		return m, nil
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.ForceQuit) {
			return m, tea.Quit
		}
		if m.history != nil {
			_, cmd := m.history.Update(msg)
			return m, cmd
		}
		if m.engine.State() != race.Running && !m.inFinishGrace() {
			if cmd, handled := m.handleControl(msg); handled {
				return m, cmd
			}
		}
		m.handleRaceKey(msg.String())
		return m, nil
	}
	if m.history != nil {
		_, cmd := m.history.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleControl(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Again):
		m.engine.Reset()
		m.start()
	case key.Matches(msg, m.keys.Start):
		m.start()
	case key.Matches(msg, m.keys.Reset):
		m.filter.Reset()
		m.engine.Reset()
	case key.Matches(msg, m.keys.History):
		m.openHistory()
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit, true
	default:
		return nil, false
	}
	return nil, true
}

func (m *Model) inFinishGrace() bool {
	if m.engine.State() != race.Finished || m.finish == nil {
		return false
	}
	return m.now().Sub(m.finish.at) < finishGrace
}

func (m *Model) start() {
	m.filter.Reset()
	m.engine.Start()
}

func (m *Model) handleRaceKey(k string) {
	ev := m.filter.Observe(k, m.now())
	if ev.release != "" {
		m.engine.KeyUp(ev.release)
	}
	running := m.engine.State() == race.Running
	counted := m.engine.KeyDown(ev.key, ev.repeat)
	if counted {
		m.tallies[ev.key]++
	}
	if running {
		m.trail = pushTrail(m.trail, trailEntry{key: ev.key, counted: counted})
	}
	if m.pendingSave {
		m.pendingSave = false
		m.saveRace()
	}
}

func (m *Model) openHistory() {
	if m.store == nil {
		return
	}
	m.history = statsui.NewModel(m.store, m.statsCfg)
	if m.width > 0 && m.height > 0 {
		m.history.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
	}
}

// RenderFull implements race.Presenter.
func (m *Model) RenderFull(state race.State, _ race.Snapshot) {
	if state != race.Finished {
		m.finish = nil
	}
	if state == race.Running {
		m.tallies = map[string]int{}
		m.trail = nil
	}
	m.syncUI()
	logrus.WithField("state", state.String()).Debug("race state changed")
}

// RenderProgress implements race.Presenter.
func (m *Model) RenderProgress(race.Snapshot) {
	m.syncUI()
}

// RenderFinished implements race.Presenter. Persisting waits until the
// finishing key has been tallied.
func (m *Model) RenderFinished(totalSeconds float64, affirmation string) {
	m.finish = &finishResult{seconds: totalSeconds, affirmation: affirmation, at: m.now()}
	m.pendingSave = true
	m.syncUI()
	logrus.WithFields(logrus.Fields{
		"target":  m.engine.Target(),
		"seconds": totalSeconds,
	}).Info("race finished")
}

func (m *Model) syncUI() {
	m.ui = m.engine.UIState()
	m.keys.apply(m.ui, m.store != nil)
}

func (m *Model) saveRace() {
	if m.finish == nil {
		return
	}
	target := int(m.engine.Target())
	durationMs := int64(math.Round(m.finish.seconds * 1000))
	endedAt := m.now()
	result := model.RaceResult{
		StartedAt:   endedAt.Add(-time.Duration(durationMs) * time.Millisecond),
		EndedAt:     endedAt,
		Target:      target,
		Presses:     target,
		DurationMs:  durationMs,
		Affirmation: m.finish.affirmation,
	}

	m.races++
	m.lastSeconds = m.finish.seconds
	m.lastRate = m.engine.Snapshot().Rate
	m.hasLast = true
	if !m.hasBest || m.finish.seconds < m.bestSeconds {
		m.bestSeconds = m.finish.seconds
		m.hasBest = true
	}

	if m.store == nil {
		return
	}
	ctx := context.Background()
	if _, err := m.store.InsertRace(ctx, result, tallyStats(m.tallies)); err != nil {
		logrus.WithError(err).Warn("failed to save race")
		return
	}
	best, ok, err := m.store.BestRace(ctx, target)
	if err != nil {
		logrus.WithError(err).Warn("failed to load best race")
		return
	}
	if ok {
		m.bestSeconds = float64(best.DurationMs) / 1000.0
		m.hasBest = true
	}
}

func tallyStats(tallies map[string]int) []model.KeyStats {
	out := make([]model.KeyStats, 0, len(tallies))
	for k, n := range tallies {
		out = append(out, model.KeyStats{Key: k, Presses: n})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key < out[j].Key
	})
	return out
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.history != nil {
		return m.history.View()
	}
	contentWidth := int(float64(m.width) * 0.70)
	parts := []string{
		m.renderHeader(),
		"",
		m.progress.ViewAs(m.ui.ProgressPercent / 100),
		statsStyle.Render(m.ui.StatsText),
		"",
	}
	if m.ui.OverlayVisible && m.finish != nil {
		parts = append(parts, m.renderOverlay())
	} else if len(m.trail) > 0 {
		parts = append(parts, wrapStyledTokens(buildStyledTokens(m.trail), contentWidth))
	}
	content := lipgloss.JoinVertical(lipgloss.Center, parts...)
	bottom := m.help.View(m.keys)
	if footer := m.renderFooter(); footer != "" {
		bottom = footer + "\n" + bottom
	}
	if m.width == 0 || m.height == 0 {
		return content + "\n\n" + bottom
	}
	bottomHeight := lipgloss.Height(bottom)
	if m.height <= bottomHeight+1 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-bottomHeight, lipgloss.Center, lipgloss.Center, content)
	footerBlock := lipgloss.Place(m.width, bottomHeight, lipgloss.Center, lipgloss.Bottom, bottom)
	return body + "\n" + footerBlock
}

func (m *Model) renderHeader() string {
	start := buttonStyle
	if m.ui.StartDisabled {
		start = disabledButtonStyle
	}
	reset := buttonStyle
	if m.ui.ResetDisabled {
		reset = disabledButtonStyle
	}
	buttons := lipgloss.JoinHorizontal(lipgloss.Center, start.Render(m.ui.StartLabel), " ", reset.Render("Reset"))
	title := titleStyle.Render(fmt.Sprintf("keyrace · %d keys", m.engine.Target()))
	return lipgloss.JoinVertical(lipgloss.Center, title, buttons)
}

func (m *Model) renderOverlay() string {
	lines := []string{
		"Finished!",
		overlayTimeStyle.Render(fmt.Sprintf("%.3f s", m.finish.seconds)),
		affirmationStyle.Render(m.finish.affirmation),
	}
	return overlayStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) renderFooter() string {
	var segments []string
	if m.hasLast {
		segments = append(segments, fmt.Sprintf("Last %.3f s · %.1f keys/s", m.lastSeconds, m.lastRate))
	}
	if m.hasBest {
		segments = append(segments, fmt.Sprintf("Best %.3f s", m.bestSeconds))
	}
	if m.races > 0 {
		segments = append(segments, fmt.Sprintf("Races %d", m.races))
	}
	if len(segments) == 0 {
		return ""
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func progressWidth(total int) int {
	w := int(float64(total) * 0.70)
	if w < 10 {
		return 10
	}
	if w > 80 {
		return 80
	}
	return w
}
