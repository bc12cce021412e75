// Command actuator-info scans serial ports for servo buses and prints the
// raw position of every servo it finds. With an actuate.json in the working
// directory it also prints the calibrated position of every mechanism.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/log"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/gwillem/actuate/pkg/robot"
)

// ticksPerTurn is the resolution of an STS servo.
const ticksPerTurn = 4096

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)
)

func main() {
	fmt.Println("Actuator bus scanner")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing ports: %v\n", err)
		os.Exit(1)
	}

	found := 0
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}
		if scanPort(port) {
			found++
		}
	}

	if found == 0 {
		fmt.Println("No servos found.")
		fmt.Println("Make sure the controller is connected and powered on.")
		os.Exit(1)
	}

	if robot.ConfigExists() {
		if err := printCalibrated(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading calibrated positions: %v\n", err)
			os.Exit(1)
		}
	}
}

// printCalibrated opens the configured robot and prints each mechanism's
// position on the calibrated [-100, 100] scale.
func printCalibrated() error {
	cfg, err := robot.LoadConfig()
	if err != nil {
		return err
	}
	r, err := robot.Open(cfg, log.New(io.Discard))
	if err != nil {
		return err
	}
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	positions, err := r.ReadPositions(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Calibrated (%s)\n", cfg.Port)
	fmt.Println(calibratedTable(positions).Render())
	return nil
}

func calibratedTable(positions map[robot.MotorName]float64) *table.Table {
	rows := make([][]string, 0, len(positions))
	for _, name := range robot.AllMotors() {
		pos, ok := positions[name]
		if !ok {
			continue
		}
		rows = append(rows, []string{string(name), strconv.FormatFloat(pos, 'f', 1, 64)})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Motor", "Position").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func scanPort(port string) bool {
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return false
	}
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	motors := robot.AllMotors()
	servos, err := bus.Scan(ctx, 1, len(motors))
	if err != nil || len(servos) == 0 {
		return false
	}

	rows := make([][]string, 0, len(servos))
	for _, s := range servos {
		name := "?"
		if s.ID >= 1 && s.ID <= len(motors) {
			name = string(motors[s.ID-1])
		}

		servo := feetech.NewServo(bus, s.ID, s.Model)
		pos, err := servo.Position(ctx)
		if err != nil {
			rows = append(rows, []string{strconv.Itoa(s.ID), name, "error", err.Error()})
			continue
		}
		rows = append(rows, []string{
			strconv.Itoa(s.ID),
			name,
			strconv.Itoa(pos),
			strconv.FormatFloat(rawToDegrees(pos), 'f', 1, 64),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("ID", "Motor", "Raw", "Degrees").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row >= 0 && row < len(rows) && rows[row][2] == "error" {
				return errStyle
			}
			return cellStyle
		})

	fmt.Println(port)
	fmt.Println(t.Render())
	fmt.Println()
	return true
}

func rawToDegrees(raw int) float64 {
	return float64(raw) * 360 / ticksPerTurn
}
