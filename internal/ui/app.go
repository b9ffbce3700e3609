// Package ui hosts the emulator inside an ebiten window: keyboard input in,
// pixels and audio out. Everything emulation-specific lives in internal/emu;
// this package only bridges it to a real display and speakers.
package ui

import (
	"fmt"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/nilhelm/gogbcore/internal/emu"
)

// App is an ebiten.Game driving one Machine: poll keys, step until a frame
// completes, blit the result, and keep the audio stream fed from the APU's
// ring independently of the video frame rate.
type App struct {
	cfg Config
	m   *emu.Machine

	tex    *ebiten.Image
	paused bool
	fast   bool

	audioCtx    *audio.Context
	audioPlayer *audio.Player
	audioSrc    *apuStream

	showStats  bool
	toastMsg   string
	toastUntil time.Time

	statePath string
}

// NewApp wires an ebiten window around an already-loaded Machine.
// statePath is where F5/F9 save and load a single save-state slot.
func NewApp(cfg Config, m *emu.Machine, statePath string) *App {
	cfg.Defaults()
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(160*cfg.Scale, 144*cfg.Scale)
	return &App{cfg: cfg, m: m, statePath: statePath, audioCtx: audio.NewContext(48000)}
}

// Run blocks until the window is closed.
func (a *App) Run() error { return ebiten.RunGame(a) }

func (a *App) Update() error {
	if a.audioPlayer == nil {
		a.audioSrc = &apuStream{m: a.m, lowLatency: a.cfg.AudioLowLatency}
		if p, err := a.audioCtx.NewPlayer(a.audioSrc); err == nil {
			a.audioPlayer = p
			a.applyPlayerBufferSize()
			a.audioPlayer.Play()
		}
	}

	var btn emu.Buttons
	if ebiten.IsKeyPressed(ebiten.KeyRight) {
		btn.Right = true
	}
	if ebiten.IsKeyPressed(ebiten.KeyLeft) {
		btn.Left = true
	}
	if ebiten.IsKeyPressed(ebiten.KeyUp) {
		btn.Up = true
	}
	if ebiten.IsKeyPressed(ebiten.KeyDown) {
		btn.Down = true
	}
	if ebiten.IsKeyPressed(ebiten.KeyZ) {
		btn.A = true
	}
	if ebiten.IsKeyPressed(ebiten.KeyX) {
		btn.B = true
	}
	if ebiten.IsKeyPressed(ebiten.KeyEnter) {
		btn.Start = true
	}
	if ebiten.IsKeyPressed(ebiten.KeyShiftRight) {
		btn.Select = true
	}
	a.m.SetControllerState(btn)

	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		a.paused = !a.paused
	}
	a.fast = ebiten.IsKeyPressed(ebiten.KeyTab)
	a.applyPlayerBufferSize()

	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		ebiten.SetFullscreen(!ebiten.IsFullscreen())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		a.showStats = !a.showStats
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF5) {
		a.saveState()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF9) {
		a.loadState()
	}

	if a.paused {
		return nil
	}
	startFrame := a.m.Bus().PPU().Frame()
	steps := 1
	if a.fast {
		steps = 4
	}
	for s := 0; s < steps; s++ {
		for a.m.Bus().PPU().Frame() == startFrame {
			a.m.Step()
		}
		startFrame = a.m.Bus().PPU().Frame()
	}
	return nil
}

func (a *App) saveState() {
	blob, err := a.m.SaveSaveState()
	if err != nil {
		a.toast(fmt.Sprintf("save failed: %v", err))
		return
	}
	if err := os.WriteFile(a.statePath, blob, 0o644); err != nil {
		a.toast(fmt.Sprintf("save failed: %v", err))
		return
	}
	a.toast("state saved")
}

func (a *App) loadState() {
	blob, err := os.ReadFile(a.statePath)
	if err != nil {
		a.toast(fmt.Sprintf("load failed: %v", err))
		return
	}
	if err := a.m.LoadSaveState(blob); err != nil {
		a.toast(fmt.Sprintf("load failed: %v", err))
		return
	}
	a.toast("state loaded")
}

func (a *App) toast(msg string) {
	a.toastMsg = msg
	a.toastUntil = time.Now().Add(2 * time.Second)
}

func (a *App) Draw(screen *ebiten.Image) {
	if a.tex == nil {
		a.tex = ebiten.NewImage(160, 144)
	}
	a.tex.WritePixels(a.m.FrontBuffer())
	screen.DrawImage(a.tex, nil)

	if a.showStats {
		bf := a.m.Bus().APU().StereoAvailable()
		ms := (bf * 1000) / 48000
		und := 0
		if a.audioSrc != nil {
			und = a.audioSrc.underruns
		}
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("Buf: %d (~%dms)  Under: %d", bf, ms, und), 4, 4)
	}
	if a.toastMsg != "" && time.Now().Before(a.toastUntil) {
		ebitenutil.DebugPrintAt(screen, a.toastMsg, 6, 4)
	}
}

func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	return 160, 144
}
