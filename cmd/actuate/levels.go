package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/actuate/pkg/control"
	"github.com/gwillem/actuate/pkg/robot"
)

type LevelsCommand struct {
	Sim bool `long:"sim" description:"Use simulator defaults when no config file exists"`
}

func (c *LevelsCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.Sim)
	if err != nil {
		fmt.Fprintf(os.Stderr, "No configuration found at %s. Run 'actuate setup' first or pass --sim.\n", opts.Config)
		os.Exit(1)
	}

	// Building the robot applies the same deduplication a run would.
	r, err := robot.NewSim(cfg, nil)
	if err != nil {
		return fmt.Errorf("load mechanisms: %w", err)
	}

	rows := [][]string{}
	for i, ticks := range r.Lift.Levels() {
		rows = append(rows, []string{"lift", strconv.Itoa(i), strconv.Itoa(ticks), "-"})
	}
	for i, ticks := range r.Arm.Levels() {
		rows = append(rows, []string{"arm", strconv.Itoa(i), strconv.Itoa(ticks), degrees(ticks, r.Arm.TicksPerRotation())})
	}
	for i, ticks := range r.Wrist.RotationPositions() {
		rows = append(rows, []string{"wrist", strconv.Itoa(i), strconv.Itoa(ticks), degrees(ticks, r.Wrist.TicksPerRotation())})
	}

	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	nameStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Mechanism", "Index", "Ticks", "Degrees").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return tableHeaderStyle
			case col == 0:
				return nameStyle
			default:
				return cellStyle
			}
		})

	fmt.Println(t.Render())
	lo, hi, _ := r.Lift.Bounds()
	fmt.Println(dimStyle.Render(fmt.Sprintf("Lift travel %d..%d ticks", lo, hi)))
	return nil
}

func degrees(ticks, ticksPerRotation int) string {
	return strconv.Itoa(control.TicksToDegrees(ticks, ticksPerRotation))
}
