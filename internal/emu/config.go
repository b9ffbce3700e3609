package emu

// Model selects which hardware the Machine emulates.
type Model int

const (
	ModelDMG Model = iota
	ModelCGB
)

// Config contains settings that affect emulation behavior.
type Config struct {
	Model           Model
	Trace           bool // log PC and registers to stderr before each CPU instruction
	LimitFPS        bool // not read by Machine: Step never throttles
	BootROM         []byte
	AudioLowLatency bool
}
