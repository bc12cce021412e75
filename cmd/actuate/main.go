package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/jessevdk/go-flags"

	"github.com/gwillem/actuate/pkg/robot"
)

type Options struct {
	Config  string `long:"config" default:"actuate.json" description:"Path to the robot configuration"`
	Verbose bool   `short:"v" long:"verbose" description:"Log telemetry at debug level"`

	Setup  SetupCommand  `command:"setup" description:"Find the servo bus and record the mechanism ranges"`
	Run    RunCommand    `command:"run" description:"Run an actuator routine with a live chart"`
	Levels LevelsCommand `command:"levels" description:"Show the configured setpoints"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "actuate - lift, linkage and claw control for the scoring subsystem"
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		if opts.Verbose {
			log.SetLevel(log.DebugLevel)
		}
		if cmd == nil {
			return nil
		}
		return cmd.Execute(args)
	}

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}

// loadConfig reads the config named by --config, falling back to the
// simulator defaults when sim is set and no file exists.
func loadConfig(sim bool) (*robot.Config, error) {
	if sim && !robot.ConfigExistsAt(opts.Config) {
		log.Info("no config file, using simulator defaults", "path", opts.Config)
		return robot.DefaultConfig(), nil
	}
	return robot.LoadConfigFrom(opts.Config)
}
