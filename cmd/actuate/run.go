package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/actuate/pkg/action"
	"github.com/gwillem/actuate/pkg/control"
	"github.com/gwillem/actuate/pkg/mission"
	"github.com/gwillem/actuate/pkg/robot"
	"github.com/gwillem/actuate/pkg/scheduler"
	"github.com/gwillem/actuate/pkg/telemetry"
)

type RunCommand struct {
	Hz       int    `long:"hz" default:"50" description:"Control loop frequency"`
	Sim      bool   `long:"sim" description:"Run against simulated hardware"`
	Mission  string `long:"mission" default:"basket" choice:"basket" choice:"init" description:"Routine to run"`
	Samples  int    `long:"samples" default:"3" description:"Grab-and-score cycles of the basket routine"`
	LogFile  string `long:"log-file" description:"Append log records to this file"`
	Headless bool   `long:"headless" description:"Run the routine to completion without the chart, logging to stderr"`
}

const (
	headerHeight    = 2 // title + blank line
	legendHeight    = 2 // legend row + blank
	telemetryHeight = 8 // telemetry box height
	footerHeight    = 7 // log box height
	maxLogs         = 5 // number of log messages to show
	borderSize      = 2 // chart border
)

// Series drawn on the chart, as a percentage of each mechanism's travel.
const (
	seriesLift       = "lift"
	seriesLiftTarget = "lift target"
	seriesArm        = "arm"
	seriesWrist      = "wrist"
)

var seriesOrder = []string{seriesLift, seriesLiftTarget, seriesArm, seriesWrist}

var seriesColors = map[string]string{
	seriesLift:       "196", // red
	seriesLiftTarget: "241", // grey
	seriesArm:        "46",  // green
	seriesWrist:      "51",  // cyan
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type runModel struct {
	sched      *scheduler.Scheduler
	robot      *robot.Robot
	chart      *streamlinechart.Model
	width      int      // terminal width
	height     int      // terminal height
	logs       []string // last N log messages
	telemetry  []string
	running    int
	quitting   bool
	lastSample map[string]float64 // previous sample, to freeze the chart when idle
}

func (m *runModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// sample converts a state into chart values.
func (m *runModel) sample(st scheduler.State) map[string]float64 {
	// Calibrated positions run from -100 at one end of travel to 100 at the other.
	travel := func(name robot.MotorName) float64 {
		return (st.Normalized[name] + 100) / 2
	}
	span := m.robot.Calibration()[robot.LiftLeft].Span()
	var liftTarget float64
	if span != 0 {
		liftTarget = float64(st.Targets[robot.LiftLeft]) * 100 / float64(span)
	}
	wristDeg := control.NormalizeDegrees(control.TicksToDegrees(st.Positions[robot.Wrist], m.robot.Wrist.TicksPerRotation()))

	return map[string]float64{
		seriesLift:       travel(robot.LiftLeft),
		seriesLiftTarget: liftTarget,
		seriesArm:        travel(robot.Arm),
		seriesWrist:      float64(wristDeg) * 100 / 360,
	}
}

// hasMovement checks if any value has changed from the last sample
func (m *runModel) hasMovement(sample map[string]float64) bool {
	if m.lastSample == nil {
		return true
	}
	for name, v := range sample {
		if last, ok := m.lastSample[name]; !ok || v != last {
			return true
		}
	}
	return false
}

// Messages from the scheduler
type stateMsg scheduler.State
type logMsg string

func waitForState(s *scheduler.Scheduler) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-s.States())
	}
}

func waitForLog(s *scheduler.Scheduler) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-s.Logs())
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *runModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - legendHeight - telemetryHeight - footerHeight - borderSize
	if height < 10 {
		height = 10
	}
	return width, height
}

func (m *runModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func initialRunModel(s *scheduler.Scheduler, r *robot.Robot) runModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(-10, 110),
	)

	for _, name := range seriesOrder {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(seriesColors[name]))
		chart.SetDataSetStyles(name, runes.ThinLineStyle, style)
	}

	return runModel{
		sched: s,
		robot: r,
		chart: &chart,
	}
}

func (m runModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.sched),
		waitForLog(m.sched),
	)
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case stateMsg:
		state := scheduler.State(msg)
		m.telemetry = state.Telemetry
		m.running = state.Running
		if state.Positions != nil {
			sample := m.sample(state)
			// Only update chart if there's movement (freeze when idle)
			if m.hasMovement(sample) {
				for name, v := range sample {
					m.chart.PushDataSet(name, v)
				}
				m.chart.DrawAll()
				m.lastSample = sample
			}
		}
		return m, waitForState(m.sched)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.sched)
	}

	return m, nil
}

func (m runModel) View() string {
	if m.quitting {
		return "Run stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("actuate run"))
	sb.WriteString(fmt.Sprintf(" - %d Hz", m.sched.Hz()))
	if m.robot.Simulated() {
		sb.WriteString(statusStyle.Render("  [sim]"))
	}
	if m.running == 0 {
		sb.WriteString(statusStyle.Render("  idle"))
	} else {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  %d running", m.running)))
	}
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	// Telemetry box
	telemetryStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.width - 4).
		Height(telemetryHeight - 2)
	lines := m.telemetry
	if len(lines) > telemetryHeight-2 {
		lines = lines[:telemetryHeight-2]
	}
	sb.WriteString(telemetryStyle.Render(strings.Join(lines, "\n")))
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.width - 4).
		Foreground(lipgloss.Color("9")) // bright red

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Press 'q' to quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderLegend() string {
	var items []string
	for _, name := range seriesOrder {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(seriesColors[name])).Bold(true)
		item := colorStyle.Render("━━") + " " + name
		items = append(items, item)
	}
	return strings.Join(items, "  ")
}

// newLogger returns the logger for a run. The TUI owns the terminal, so
// records go to path, or to fallback when path is empty.
func newLogger(path string, fallback io.Writer) (*log.Logger, func(), error) {
	w := fallback
	closeFn := func() {}
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = func() { f.Close() }
	}

	level := log.InfoLevel
	if opts.Verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{Level: level, ReportTimestamp: true}), closeFn, nil
}

func buildMission(r *robot.Robot, c *RunCommand) (action.Action, error) {
	switch c.Mission {
	case "init":
		return mission.Init(r)
	default:
		return mission.Basket(r, mission.BasketConfig{Samples: c.Samples, ScoreLevel: -1})
	}
}

func (c *RunCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.Sim)
	if err != nil {
		fmt.Fprintf(os.Stderr, "No configuration found at %s. Run 'actuate setup' first or pass --sim.\n", opts.Config)
		os.Exit(1)
	}

	fallback := io.Discard
	if c.Headless {
		fallback = os.Stderr
	}
	logger, closeLog, err := newLogger(c.LogFile, fallback)
	if err != nil {
		return err
	}
	defer closeLog()

	var r *robot.Robot
	if c.Sim {
		r, err = robot.NewSim(cfg, logger.WithPrefix("robot"))
	} else {
		r, err = robot.Open(cfg, logger.WithPrefix("robot"))
	}
	if err != nil {
		log.Fatal("Failed to create robot", "err", err)
	}
	defer r.Close()

	routine, err := buildMission(r, c)
	if err != nil {
		log.Fatal("Failed to build routine", "mission", c.Mission, "err", err)
	}

	sched := scheduler.New(r, scheduler.Config{
		Hz:     c.Hz,
		Logger: logger.WithPrefix("scheduler"),
		Sink:   telemetry.LogSink{Logger: logger.WithPrefix("telemetry")},
	})
	sched.Schedule(c.Mission, routine)

	if c.Headless {
		return runHeadless(sched, r, logger)
	}

	// Start scheduler in background
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := sched.Start(ctx); err != nil && err != context.Canceled {
			logger.Error("Scheduler error", "err", err)
		}
	}()

	// Run TUI
	p := tea.NewProgram(initialRunModel(sched, r), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatal("Error running program", "err", err)
	}

	return nil
}

// runHeadless drives the routine until it finishes or the process is interrupted.
func runHeadless(sched *scheduler.Scheduler, r *robot.Robot, logger *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := r.Enable(ctx); err != nil {
		return fmt.Errorf("enable torque: %w", err)
	}
	defer r.Disable(context.Background())

	if err := sched.RunUntilIdle(ctx); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	logger.Info("routine finished", "lift", r.Lift.CurrentPosition(), "arm", r.Arm.CurrentPosition())
	return nil
}
