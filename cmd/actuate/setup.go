package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/gwillem/actuate/pkg/robot"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type SetupCommand struct{}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("actuate setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━"))
	fmt.Println()

	config := robot.DefaultConfig()
	if robot.ConfigExistsAt(opts.Config) {
		existing, err := robot.LoadConfigFrom(opts.Config)
		if err != nil {
			return err
		}
		config = existing
	}

	// Step 1: Find the servo bus
	config.Port = scanForBus()

	// Step 2: Record ranges
	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Recording Mechanism Ranges ━━━"))
	fmt.Println()
	config.Calibration = recordRanges(config.Port)

	// Save after calibration
	if err := config.SaveTo(opts.Config); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	// Step 3: Levels and mounting
	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Levels ━━━"))
	fmt.Println()
	askLevels(config)

	// Save final config
	if err := config.SaveTo(opts.Config); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Run the basket routine with: " + headerStyle.Render("actuate run"))

	return nil
}

func scanForBus() string {
	fmt.Println("Scanning serial ports...")
	fmt.Println()

	buses := findBuses()

	if len(buses) == 0 {
		fmt.Println("No actuator bus found.")
		fmt.Printf("Make sure the controller is connected and all %d servos are powered.\n", len(robot.AllMotors()))
		os.Exit(1)
	}

	var port string
	for _, bus := range buses {
		switch {
		case port != "":
			bus.bus.Close()
		case len(buses) == 1:
			bus.bus.Close()
			port = bus.port
		case confirmWithWiggle(bus):
			port = bus.port
		}
	}
	if port != "" {
		fmt.Println(successStyle.Render("Using bus on " + port))
		return port
	}

	fmt.Println("No bus selected.")
	os.Exit(1)
	return ""
}

type busInfo struct {
	port   string
	servos []feetech.FoundServo
	bus    *feetech.Bus
}

func openBus(port string) (*feetech.Bus, error) {
	return feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
}

func findBuses() []busInfo {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		return nil
	}

	var buses []busInfo

	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)

		bus, err := openBus(port)
		if err != nil {
			cancel()
			continue
		}

		servos, err := bus.Scan(ctx, 1, len(robot.AllMotors()))
		cancel()

		if err != nil {
			bus.Close()
			continue
		}

		if isActuatorBus(servos) {
			fmt.Printf("  Found actuator bus on %s\n", port)
			buses = append(buses, busInfo{
				port:   port,
				servos: servos,
				bus:    bus,
			})
		} else {
			bus.Close()
		}
	}

	return buses
}

// isActuatorBus reports whether servos holds exactly the IDs 1..n, one per motor.
func isActuatorBus(servos []feetech.FoundServo) bool {
	n := len(robot.AllMotors())
	if len(servos) != n {
		return false
	}

	ids := make(map[int]bool)
	for _, s := range servos {
		ids[s.ID] = true
	}

	for i := 1; i <= n; i++ {
		if !ids[i] {
			return false
		}
	}

	return true
}

func confirmWithWiggle(b busInfo) bool {
	defer b.bus.Close()

	ctx := context.Background()

	// The claw wiggle is visible and harmless
	id := slices.Index(robot.AllMotors(), robot.Claw) + 1
	servo := feetech.NewServo(b.bus, id, nil)

	originalPos, err := servo.Position(ctx)
	if err != nil {
		fmt.Printf("  Error reading position: %v\n", err)
		return false
	}

	if err := servo.Enable(ctx); err != nil {
		fmt.Printf("  Error enabling servo: %v\n", err)
		return false
	}

	fmt.Printf("\n  Wiggling claw on %s...\n", b.port)

	wiggleAmount := 30
	moveTimeMs := 500
	servo.SetPositionWithTime(ctx, originalPos+wiggleAmount, moveTimeMs)
	time.Sleep(time.Duration(moveTimeMs+100) * time.Millisecond)
	servo.SetPositionWithTime(ctx, originalPos-wiggleAmount, moveTimeMs)
	time.Sleep(time.Duration(moveTimeMs+100) * time.Millisecond)
	servo.SetPositionWithTime(ctx, originalPos, moveTimeMs)
	time.Sleep(time.Duration(moveTimeMs+100) * time.Millisecond)

	servo.Disable(ctx)

	var use bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Did the claw on %s just move?", b.port)).
				Affirmative("Use this bus").
				Negative("Skip").
				Value(&use),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	return use
}

func recordRanges(port string) robot.Calibration {
	bus, err := openBus(port)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to bus: %v\n", err)
		os.Exit(1)
	}
	defer bus.Close()

	motors := robot.AllMotors()
	servoMap := make(map[int]*feetech.Servo)
	for i := range motors {
		servoMap[i+1] = feetech.NewServo(bus, i+1, nil)
	}

	// Disable all servos so the mechanisms can be moved by hand
	ctx := context.Background()
	for _, servo := range servoMap {
		servo.Disable(ctx)
	}

	fmt.Println(subHeaderStyle.Render("Record range of motion"))
	fmt.Println("Move the lift, arm and claw to both ends of their travel.")
	fmt.Println("The wrist and intake turn freely; their range is not used.")
	fmt.Println()

	curPositions := make(map[robot.MotorName]int)
	minPositions := make(map[robot.MotorName]int)
	maxPositions := make(map[robot.MotorName]int)
	for i, motorName := range motors {
		pos, _ := servoMap[i+1].Position(ctx)
		curPositions[motorName] = pos
		minPositions[motorName] = pos
		maxPositions[motorName] = pos
	}

	model := newCalibrationModel(motors, servoMap, curPositions, minPositions, maxPositions)
	p := tea.NewProgram(model)
	finalModel, err := p.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running calibration: %v\n", err)
		os.Exit(1)
	}
	cm := finalModel.(calibrationModel)

	reversed := askReversed()

	calibration := make(robot.Calibration)
	for i, motorName := range motors {
		mc := robot.MotorCalibration{
			ID:       i + 1,
			RangeMin: cm.minPositions[motorName],
			RangeMax: cm.maxPositions[motorName],
		}
		if slices.Contains(reversed, motorName) {
			mc.DriveMode = 1
		}
		calibration[motorName] = mc
	}
	return calibration
}

func askReversed() []robot.MotorName {
	var options []huh.Option[robot.MotorName]
	for _, name := range robot.AllMotors() {
		options = append(options, huh.NewOption(string(name), name))
	}

	var reversed []robot.MotorName
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[robot.MotorName]().
				Title("Which motors are mounted reversed?").
				Description("Their ticks count down as the mechanism moves up or out").
				Options(options...).
				Value(&reversed),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	return reversed
}

func askLevels(config *robot.Config) {
	liftLevels := formatLevels(config.Lift.Levels)
	armLevels := formatLevels(config.Arm.Levels)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Lift levels").
				Description(fmt.Sprintf("Comma separated ticks, 0..%d", config.Calibration[robot.LiftLeft].Span())).
				Value(&liftLevels).
				Validate(validateLevels),
			huh.NewInput().
				Title("Arm levels").
				Description(fmt.Sprintf("Comma separated ticks, 0..%d", config.Calibration[robot.Arm].Span())).
				Value(&armLevels).
				Validate(validateLevels),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}

	config.Lift.Levels, _ = parseLevels(liftLevels)
	config.Arm.Levels, _ = parseLevels(armLevels)
}

func validateLevels(s string) error {
	_, err := parseLevels(s)
	return err
}

// parseLevels parses a comma separated list of tick values.
func parseLevels(s string) ([]int, error) {
	var levels []int
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("level %q is not a whole number of ticks", field)
		}
		levels = append(levels, v)
	}
	return levels, nil
}

func formatLevels(levels []int) string {
	fields := make([]string, len(levels))
	for i, v := range levels {
		fields[i] = strconv.Itoa(v)
	}
	return strings.Join(fields, ", ")
}

// Calibration TUI model
type calibrationModel struct {
	motors       []robot.MotorName
	servoMap     map[int]*feetech.Servo
	curPositions map[robot.MotorName]int
	minPositions map[robot.MotorName]int
	maxPositions map[robot.MotorName]int
	quitting     bool
}

type tickMsg time.Time

func newCalibrationModel(
	motors []robot.MotorName,
	servoMap map[int]*feetech.Servo,
	curPositions, minPositions, maxPositions map[robot.MotorName]int,
) calibrationModel {
	return calibrationModel{
		motors:       motors,
		servoMap:     servoMap,
		curPositions: curPositions,
		minPositions: minPositions,
		maxPositions: maxPositions,
	}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m calibrationModel) Init() tea.Cmd {
	return tick()
}

func (m calibrationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		ctx := context.Background()
		for i, motorName := range m.motors {
			pos, err := m.servoMap[i+1].Position(ctx)
			if err != nil {
				continue
			}
			m.curPositions[motorName] = pos
			if pos < m.minPositions[motorName] {
				m.minPositions[motorName] = pos
			}
			if pos > m.maxPositions[motorName] {
				m.maxPositions[motorName] = pos
			}
		}
		return m, tick()
	}

	return m, nil
}

func (m calibrationModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder

	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableMotorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableCurrentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	tableRangeGoodStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	tableRangeLowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	rows := make([][]string, 0, len(m.motors))
	ranges := make([]int, 0, len(m.motors))
	for _, motorName := range m.motors {
		rangeSize := m.maxPositions[motorName] - m.minPositions[motorName]
		ranges = append(ranges, rangeSize)
		rows = append(rows, []string{
			string(motorName),
			strconv.Itoa(m.curPositions[motorName]),
			strconv.Itoa(m.minPositions[motorName]),
			strconv.Itoa(m.maxPositions[motorName]),
			strconv.Itoa(rangeSize),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Motor", "Current", "Min", "Max", "Range").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			switch col {
			case 0:
				return tableMotorStyle
			case 1:
				return tableCurrentStyle
			case 4:
				if row >= 0 && row < len(ranges) && ranges[row] > 500 {
					return tableRangeGoodStyle
				}
				return tableRangeLowStyle
			default:
				return tableCellStyle
			}
		})

	sb.WriteString(t.Render())
	sb.WriteString("\n\n")
	sb.WriteString(dimStyle.Render("Press Enter when done"))

	return sb.String()
}
