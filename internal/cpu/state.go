package cpu

import (
	"bytes"
	"encoding/gob"
)

type snapshot struct {
	A, F       byte
	B, C       byte
	D, E       byte
	H, L       byte
	SP, PC     uint16
	IME        bool
	EIPending  int
	Halted     bool
	HaltBug    bool
	Stopped    bool
	DoubleSpeed bool
	Locked     bool
}

// SaveState serializes every register and in-flight flag (IME, the
// pending-EI countdown, HALT/STOP/double-speed/lock state) needed to
// resume execution mid-instruction-boundary exactly where it left off.
func (c *CPU) SaveState() []byte {
	s := snapshot{
		A: c.A, F: c.F, B: c.B, C: c.C, D: c.D, E: c.E, H: c.H, L: c.L,
		SP: c.SP, PC: c.PC,
		IME: c.IME, EIPending: c.eiPending,
		Halted: c.halted, HaltBug: c.haltBug,
		Stopped: c.stopped, DoubleSpeed: c.doubleSpeed, Locked: c.locked,
	}
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(s)
	return buf.Bytes()
}

func (c *CPU) LoadState(data []byte) {
	var s snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return
	}
	c.A, c.F, c.B, c.C, c.D, c.E, c.H, c.L = s.A, s.F, s.B, s.C, s.D, s.E, s.H, s.L
	c.SP, c.PC = s.SP, s.PC
	c.IME, c.eiPending = s.IME, s.EIPending
	c.halted, c.haltBug = s.Halted, s.HaltBug
	c.stopped, c.doubleSpeed, c.locked = s.Stopped, s.DoubleSpeed, s.Locked
}
