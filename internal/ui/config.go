package ui

// Config contains window/input/audio settings for the ebiten host.
type Config struct {
	Title           string // window title
	Scale           int    // integer upscaling factor
	AudioLowLatency bool   // hard-cap audio buffering for minimal latency
}

// Defaults fills missing fields with reasonable defaults.
func (c *Config) Defaults() {
	if c.Title == "" {
		c.Title = "gogbcore"
	}
	if c.Scale <= 0 {
		c.Scale = 3
	}
}
