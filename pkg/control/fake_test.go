package control

import "github.com/gwillem/actuate/pkg/hardware"

// fakeMotor is a hand-driven motor: tests set position and busy directly.
type fakeMotor struct {
	name      string
	position  int
	busy      bool
	power     float64
	target    int
	tolerance int
	mode      hardware.RunMode
	calls     []string
}

var _ hardware.Motor = (*fakeMotor)(nil)

func (f *fakeMotor) Name() string               { return f.name }
func (f *fakeMotor) CurrentPosition() int       { return f.position }
func (f *fakeMotor) IsBusy() bool               { return f.busy }
func (f *fakeMotor) Power() float64             { return f.power }
func (f *fakeMotor) TargetPosition() int        { return f.target }
func (f *fakeMotor) Mode() hardware.RunMode     { return f.mode }
func (f *fakeMotor) SetPower(p float64)         { f.power = p; f.calls = append(f.calls, "power") }
func (f *fakeMotor) SetTargetPosition(t int)    { f.target = t; f.calls = append(f.calls, "target") }
func (f *fakeMotor) SetTolerance(t int)         { f.tolerance = t; f.calls = append(f.calls, "tolerance") }
func (f *fakeMotor) RunToPosition()             { f.setMode(hardware.RunToPosition) }
func (f *fakeMotor) RunWithoutEncoder()         { f.setMode(hardware.RunWithoutEncoder) }
func (f *fakeMotor) RunUsingEncoder()           { f.setMode(hardware.RunUsingEncoder) }
func (f *fakeMotor) StopAndReset()              { f.position = 0; f.setMode(hardware.StopAndReset) }
func (f *fakeMotor) setMode(m hardware.RunMode) { f.mode = m; f.calls = append(f.calls, m.String()) }
