package dma

import "testing"

type fakeBus struct{ mem [0x10000]byte }

func (b *fakeBus) Read(addr uint16) byte { return b.mem[addr] }

type fakeOAM struct{ bytes [0xA0]byte }

func (o *fakeOAM) WriteOAMByte(index int, value byte) { o.bytes[index] = value }

func TestOAM_StartDelayBeforeCopying(t *testing.T) {
	var o OAM
	bus := &fakeBus{}
	bus.mem[0x1000] = 0x42
	oam := &fakeOAM{}

	o.Start(0x10)
	for i := 0; i < 8-1; i++ {
		o.Tick(bus, oam)
		if o.Copying() {
			t.Fatalf("should not be copying before the 2-M-cycle start delay elapses (tick %d)", i)
		}
	}
}

func TestOAM_RemapsHighSourceByte(t *testing.T) {
	var o OAM
	o.Start(0xE0) // > 0xDF, should remap to 0xC0
	if o.source != 0xC000 {
		t.Fatalf("source = %#x, want 0xC000 after remap", o.source)
	}
}

func TestOAM_CopiesOneBytePerMCycle(t *testing.T) {
	var o OAM
	bus := &fakeBus{}
	for i := 0; i < 0xA0; i++ {
		bus.mem[0x1000+i] = byte(i)
	}
	oam := &fakeOAM{}
	o.Start(0x10)

	for i := 0; i < 8; i++ { // burn the start delay
		o.Tick(bus, oam)
	}
	if !o.Copying() {
		t.Fatalf("should be copying after the start delay")
	}
	for i := 0; i < 4; i++ {
		o.Tick(bus, oam)
	}
	if oam.bytes[0] != 0 {
		t.Fatalf("first byte not copied after one M-cycle: got %#x", oam.bytes[0])
	}
}

func TestOAM_CompletesAfter160MCycles(t *testing.T) {
	var o OAM
	bus := &fakeBus{}
	oam := &fakeOAM{}
	o.Start(0x10)

	total := (2 + 160) * 4
	for i := 0; i < total; i++ {
		o.Tick(bus, oam)
	}
	if o.Active() {
		t.Fatalf("transfer should be complete after 2+160 M-cycles")
	}
}

func TestOAM_SaveLoadStateRoundTrip(t *testing.T) {
	var o OAM
	bus := &fakeBus{}
	oam := &fakeOAM{}
	o.Start(0x80)
	for i := 0; i < 20; i++ {
		o.Tick(bus, oam)
	}
	state := o.SaveState()

	var o2 OAM
	o2.LoadState(state)
	if o2.source != o.source || o2.byteIndex != o.byteIndex || o2.active != o.active {
		t.Fatalf("restored OAM DMA state mismatch")
	}
}
