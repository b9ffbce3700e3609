// Command gbemu is the windowed front end: load a ROM, open an ebiten
// window, play it.
package main

import (
	"flag"
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nilhelm/gogbcore/internal/emu"
	"github.com/nilhelm/gogbcore/internal/ui"
)

type cliFlags struct {
	romPath string
	bootROM string
	cgb     bool
	scale   int
	title   string
	trace   bool
	saveRAM bool

	headless bool
	frames   int
	pngOut   string
	expect   string
}

func parseFlags() cliFlags {
	var f cliFlags
	flag.StringVar(&f.romPath, "rom", "", "path to ROM (.gb/.gbc)")
	flag.StringVar(&f.bootROM, "bootrom", "", "optional boot ROM")
	flag.BoolVar(&f.cgb, "cgb", false, "emulate Game Boy Color hardware")
	flag.IntVar(&f.scale, "scale", 3, "window scale")
	flag.StringVar(&f.title, "title", "gogbcore", "window title")
	flag.BoolVar(&f.trace, "trace", false, "CPU trace log")
	flag.BoolVar(&f.saveRAM, "save", true, "persist battery RAM to ROM.sav")

	flag.BoolVar(&f.headless, "headless", false, "run without a window")
	flag.IntVar(&f.frames, "frames", 300, "frames to run in headless mode")
	flag.StringVar(&f.pngOut, "outpng", "", "write the last framebuffer to PNG at this path")
	flag.StringVar(&f.expect, "expect", "", "assert framebuffer CRC32 (hex)")
	flag.Parse()
	return f
}

func mustRead(path string) []byte {
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}
	return b
}

func runHeadless(m *emu.Machine, frames int, pngPath, expectCRC string) error {
	if frames <= 0 {
		frames = 1
	}
	start := time.Now()
	startFrame := m.Bus().PPU().Frame()
	for i := 0; i < frames; i++ {
		target := startFrame + uint64(i) + 1
		for m.Bus().PPU().Frame() < target {
			m.Step()
		}
	}
	dur := time.Since(start)

	fb := m.FrontBuffer()
	crc := crc32.ChecksumIEEE(fb)
	fps := float64(frames) / dur.Seconds()
	log.Printf("headless: frames=%d elapsed=%s fps=%.2f fb_crc32=%08x", frames, dur.Truncate(time.Millisecond), fps, crc)

	if pngPath != "" {
		if err := saveFramePNG(fb, 160, 144, pngPath); err != nil {
			return fmt.Errorf("write PNG: %w", err)
		}
		log.Printf("wrote %s", pngPath)
	}
	if expectCRC != "" {
		want := strings.TrimPrefix(strings.ToLower(expectCRC), "0x")
		got := fmt.Sprintf("%08x", crc)
		if got != want {
			return fmt.Errorf("checksum mismatch: got %s, want %s", got, want)
		}
	}
	return nil
}

func saveFramePNG(pix []byte, w, h int, path string) error {
	img := &image.RGBA{Pix: make([]byte, len(pix)), Stride: 4 * w, Rect: image.Rect(0, 0, w, h)}
	copy(img.Pix, pix)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func main() {
	f := parseFlags()
	rom := mustRead(f.romPath)
	if len(rom) == 0 {
		log.Fatal("no ROM supplied (-rom)")
	}
	boot := mustRead(f.bootROM)

	model := emu.ModelDMG
	if f.cgb {
		model = emu.ModelCGB
	}
	m := emu.New(emu.Config{Model: model, Trace: f.trace, BootROM: boot})
	if err := m.LoadROM(rom, f.romPath); err != nil {
		log.Fatalf("load ROM: %v", err)
	}
	if h := m.Header(); h != nil {
		log.Printf("ROM: %q type=%s banks=%d ram=%dB", h.Title, h.CartTypeStr, h.ROMBanks, h.RAMSizeBytes)
	}
	if boot != nil {
		m.RunUntilBoot()
	}

	var savPath string
	if f.saveRAM {
		abs := f.romPath
		if a, err := filepath.Abs(f.romPath); err == nil {
			abs = a
		}
		savPath = strings.TrimSuffix(abs, filepath.Ext(abs)) + ".sav"
		if data, err := os.ReadFile(savPath); err == nil {
			m.LoadBattery(data)
		}
	}

	writeSav := func() {
		if !f.saveRAM || savPath == "" {
			return
		}
		if data, ok := m.SaveBattery(); ok {
			if err := os.WriteFile(savPath, data, 0o644); err == nil {
				log.Printf("wrote %s", savPath)
			}
		}
	}

	if f.headless {
		if err := runHeadless(m, f.frames, f.pngOut, f.expect); err != nil {
			log.Fatal(err)
		}
		writeSav()
		return
	}

	uiCfg := ui.Config{Title: f.title, Scale: f.scale}
	statePath := strings.TrimSuffix(f.romPath, filepath.Ext(f.romPath)) + ".state"
	app := ui.NewApp(uiCfg, m, statePath)
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
	writeSav()
}
