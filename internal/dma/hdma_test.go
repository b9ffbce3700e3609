package dma

import "testing"

func TestHDMA_GeneralPurposeReturnsImmediateTransfer(t *testing.T) {
	var h HDMA
	h.WriteSourceHigh(0x40)
	h.WriteSourceLow(0x00)
	h.WriteDestHigh(0x08)
	h.WriteDestLow(0x00)

	tr := h.WriteHDMA5(0x00) // 1 row, general-purpose
	if tr == nil {
		t.Fatalf("general-purpose write should return an immediate transfer")
	}
	if tr.Length != 16 {
		t.Fatalf("length = %d, want 16 for a single row", tr.Length)
	}
	if tr.Source != 0x4000 {
		t.Fatalf("source = %#x, want 0x4000", tr.Source)
	}
	if h.Active() {
		t.Fatalf("general-purpose transfers should not leave Active() set")
	}
}

func TestHDMA_HBlankModeStepsOneRowAtATime(t *testing.T) {
	var h HDMA
	h.WriteSourceHigh(0x40)
	h.WriteSourceLow(0x00)
	h.WriteDestHigh(0x08)
	h.WriteDestLow(0x00)

	tr := h.WriteHDMA5(0x80 | 0x02) // bit 7 set, 3 rows
	if tr != nil {
		t.Fatalf("H-blank-mode start should not return an immediate transfer")
	}
	if !h.Active() {
		t.Fatalf("H-blank transfer should be active after starting")
	}

	var got []*Transfer
	for i := 0; i < 3; i++ {
		step := h.Step()
		if step == nil {
			t.Fatalf("expected a row on step %d", i)
		}
		got = append(got, step)
	}
	if h.Active() {
		t.Fatalf("transfer should be done after all rows are stepped")
	}
	if h.Step() != nil {
		t.Fatalf("stepping past completion should return nil")
	}
	if got[1].Source != got[0].Source+16 {
		t.Fatalf("source should advance by 16 bytes per row")
	}
}

func TestHDMA_TerminatesActiveTransferOnBit7Clear(t *testing.T) {
	var h HDMA
	h.WriteHDMA5(0x80 | 0x05)
	if !h.Active() {
		t.Fatalf("expected transfer active")
	}
	tr := h.WriteHDMA5(0x00)
	if tr != nil {
		t.Fatalf("terminating an active transfer should not also start a new one")
	}
	if h.Active() {
		t.Fatalf("transfer should be terminated")
	}
}

func TestHDMA_SaveLoadStateRoundTrip(t *testing.T) {
	var h HDMA
	h.WriteSourceHigh(0x40)
	h.WriteHDMA5(0x80 | 0x02)
	state := h.SaveState()

	var h2 HDMA
	h2.LoadState(state)
	if h2.Active() != h.Active() || h2.srcHigh != h.srcHigh || h2.rowsLeft != h.rowsLeft {
		t.Fatalf("restored HDMA state mismatch")
	}
}
