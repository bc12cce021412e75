// Package effector holds the simple end effectors: servo claws and rollers.
// Like the controllers in package control they are commanded through actions.
package effector

import (
	"errors"
	"fmt"

	"github.com/gwillem/actuate/pkg/action"
	"github.com/gwillem/actuate/pkg/hardware"
	"github.com/gwillem/actuate/pkg/telemetry"
)

// ErrNoServos is returned when a claw is built without servos.
var ErrNoServos = errors.New("claw needs at least one servo")

// ClawConfig configures a Claw. Positions are in the servo's [0, 1] range.
type ClawConfig struct {
	Name      string
	OpenPos   float64
	ClosedPos float64
	StartOpen bool
}

// Claw moves one or more servos together between an open and a closed position.
type Claw struct {
	name      string
	servos    []hardware.Servo
	openPos   float64
	closedPos float64
	open      bool
}

// NewClaw returns a claw and moves its servos to the start position.
func NewClaw(cfg ClawConfig, servos ...hardware.Servo) (*Claw, error) {
	if len(servos) == 0 {
		return nil, fmt.Errorf("%s: %w", cfg.Name, ErrNoServos)
	}
	c := &Claw{
		name:      cfg.Name,
		servos:    servos,
		openPos:   cfg.OpenPos,
		closedPos: cfg.ClosedPos,
		open:      cfg.StartOpen,
	}
	c.write(c.open)
	return c, nil
}

// Name returns the claw name used in telemetry.
func (c *Claw) Name() string { return c.name }

// IsOpen reports the last commanded state.
func (c *Claw) IsOpen() bool { return c.open }

func (c *Claw) write(open bool) {
	pos := c.closedPos
	if open {
		pos = c.openPos
	}
	for _, s := range c.servos {
		s.SetPosition(pos)
	}
}

func (c *Claw) set(open bool) action.Action {
	c.open = open
	return action.Func(func(p *telemetry.Packet) bool {
		c.write(open)
		if open {
			p.Put(c.name, "open")
		} else {
			p.Put(c.name, "closed")
		}
		return false
	})
}

// Open returns an action opening the claw.
func (c *Claw) Open() action.Action { return c.set(true) }

// Close returns an action closing the claw.
func (c *Claw) Close() action.Action { return c.set(false) }

// Toggle returns an action moving the claw to the opposite of its last
// commanded state.
func (c *Claw) Toggle() action.Action { return c.set(!c.open) }
