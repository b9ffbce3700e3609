package cpu

// This file decodes every opcode using the classic (x,y,z,p,q) bitfield
// breakdown of the SM83's one-byte encoding:
//
//	x = bits 7-6, y = bits 5-3, z = bits 2-0, p = y>>1, q = y&1
//
// r[z]/r[y] index the 8-bit operand table (B,C,D,E,H,L,(HL),A); rp[p]
// indexes the 16-bit pair table used by most instructions (BC,DE,HL,SP);
// rp2[p] is the variant PUSH/POP use instead (BC,DE,HL,AF); cc[y] indexes
// the four condition codes used by conditional jumps/calls/returns.

func (c *CPU) get8(idx byte) byte {
	switch idx {
	case 0:
		return c.B
	case 1:
		return c.C
	case 2:
		return c.D
	case 3:
		return c.E
	case 4:
		return c.H
	case 5:
		return c.L
	case 6:
		return c.readMem(c.getHL())
	default:
		return c.A
	}
}

func (c *CPU) set8(idx byte, v byte) {
	switch idx {
	case 0:
		c.B = v
	case 1:
		c.C = v
	case 2:
		c.D = v
	case 3:
		c.E = v
	case 4:
		c.H = v
	case 5:
		c.L = v
	case 6:
		c.writeMem(c.getHL(), v)
	default:
		c.A = v
	}
}

func (c *CPU) getRP(p byte) uint16 {
	switch p {
	case 0:
		return c.getBC()
	case 1:
		return c.getDE()
	case 2:
		return c.getHL()
	default:
		return c.SP
	}
}

func (c *CPU) setRP(p byte, v uint16) {
	switch p {
	case 0:
		c.setBC(v)
	case 1:
		c.setDE(v)
	case 2:
		c.setHL(v)
	default:
		c.SP = v
	}
}

func (c *CPU) getRP2(p byte) uint16 {
	switch p {
	case 0:
		return c.getBC()
	case 1:
		return c.getDE()
	case 2:
		return c.getHL()
	default:
		return c.getAF()
	}
}

func (c *CPU) setRP2(p byte, v uint16) {
	switch p {
	case 0:
		c.setBC(v)
	case 1:
		c.setDE(v)
	case 2:
		c.setHL(v)
	default:
		c.setAF(v)
	}
}

func (c *CPU) testCC(y byte) bool {
	switch y {
	case 0:
		return !c.flag(flagZ)
	case 1:
		return c.flag(flagZ)
	case 2:
		return !c.flag(flagC)
	default:
		return c.flag(flagC)
	}
}

// execute decodes and runs a single already-fetched opcode.
func (c *CPU) execute(opcode byte) {
	if c.locked {
		return
	}

	x := opcode >> 6
	y := (opcode >> 3) & 7
	z := opcode & 7
	p := y >> 1
	q := y & 1

	switch x {
	case 0:
		c.executeX0(y, z, p, q)
	case 1:
		if z == 6 && y == 6 {
			ie := c.bus.Read(ieAddr)
			iflag := c.bus.Read(ifAddr)
			if !c.IME && ie&iflag&0x1F != 0 {
				// The HALT bug: IME is off and an interrupt is already
				// pending, so HALT doesn't actually suspend the CPU. It
				// falls through, but the next fetch replays the byte at
				// PC once instead of advancing past it.
				c.haltBug = true
				return
			}
			c.halted = true
			return
		}
		c.set8(y, c.get8(z))
	case 2:
		c.aluOp(y, c.get8(z))
	default:
		c.executeX3(opcode, y, z, p, q)
	}
}

func (c *CPU) executeX0(y, z, p, q byte) {
	switch z {
	case 0:
		switch {
		case y == 0:
			// NOP
		case y == 1:
			addr := c.fetch16()
			lo, hi := byte(c.SP), byte(c.SP>>8)
			c.writeMem(addr, lo)
			c.writeMem(addr+1, hi)
		case y == 2:
			c.fetch8() // STOP is followed by one ignored byte on real hardware
			c.stopped = true
		case y == 3:
			c.jumpRelative(true)
		default:
			c.jumpRelative(c.testCC(y - 4))
		}
	case 1:
		if q == 0 {
			c.setRP(p, c.fetch16())
		} else {
			c.addHL(c.getRP(p))
		}
	case 2:
		addr := c.indirectAddr(p)
		if q == 0 {
			c.writeMem(addr, c.A)
		} else {
			c.A = c.readMem(addr)
		}
	case 3:
		c.internalCycle()
		if q == 0 {
			c.setRP(p, c.getRP(p)+1)
		} else {
			c.setRP(p, c.getRP(p)-1)
		}
	case 4:
		c.set8(y, c.inc8(c.get8(y)))
	case 5:
		c.set8(y, c.dec8(c.get8(y)))
	case 6:
		c.set8(y, c.fetch8())
	default:
		c.miscRotateA(y)
	}
}

// indirectAddr resolves the (BC)/(DE)/(HL+)/(HL-) addressing used by
// z=2 LD A,(xx)/LD (xx),A forms, applying HL's post-increment/decrement.
func (c *CPU) indirectAddr(p byte) uint16 {
	switch p {
	case 0:
		return c.getBC()
	case 1:
		return c.getDE()
	case 2:
		addr := c.getHL()
		c.setHL(addr + 1)
		return addr
	default:
		addr := c.getHL()
		c.setHL(addr - 1)
		return addr
	}
}

func (c *CPU) jumpRelative(take bool) {
	offset := int8(c.fetch8())
	if !take {
		return
	}
	c.internalCycle()
	c.PC = uint16(int32(c.PC) + int32(offset))
}

func (c *CPU) executeX3(opcode, y, z, p, q byte) {
	switch z {
	case 0:
		switch {
		case y <= 3:
			c.internalCycle()
			if c.testCC(y) {
				c.PC = c.pop16()
				c.internalCycle()
			}
		case y == 4:
			c.writeMem(0xFF00+uint16(c.fetch8()), c.A)
		case y == 5:
			c.addSPOffset()
		case y == 6:
			c.A = c.readMem(0xFF00 + uint16(c.fetch8()))
		default:
			c.ldHLSPOffset()
		}
	case 1:
		if q == 0 {
			c.setRP2(p, c.pop16())
			return
		}
		switch p {
		case 0:
			c.PC = c.pop16()
			c.internalCycle()
		case 1:
			c.PC = c.pop16()
			c.internalCycle()
			c.IME = true
		case 2:
			c.PC = c.getHL()
		default:
			c.internalCycle()
			c.SP = c.getHL()
		}
	case 2:
		switch {
		case y <= 3:
			addr := c.fetch16()
			if c.testCC(y) {
				c.internalCycle()
				c.PC = addr
			}
		case y == 4:
			c.writeMem(0xFF00+uint16(c.C), c.A)
		case y == 5:
			c.writeMem(c.fetch16(), c.A)
		case y == 6:
			c.A = c.readMem(0xFF00 + uint16(c.C))
		default:
			c.A = c.readMem(c.fetch16())
		}
	case 3:
		switch y {
		case 0:
			addr := c.fetch16()
			c.internalCycle()
			c.PC = addr
		case 1:
			c.executeCB(c.fetch8())
		case 6:
			c.IME = false
			c.eiPending = 0
		case 7:
			c.eiPending = 2
		default:
			c.illegal()
		}
	case 4:
		if y <= 3 {
			addr := c.fetch16()
			if c.testCC(y) {
				c.internalCycle()
				c.push16(c.PC)
				c.PC = addr
			}
		} else {
			c.illegal()
		}
	case 5:
		if q == 0 {
			c.internalCycle()
			c.push16(c.getRP2(p))
			return
		}
		if p == 0 {
			addr := c.fetch16()
			c.internalCycle()
			c.push16(c.PC)
			c.PC = addr
			return
		}
		c.illegal()
	case 6:
		c.aluOp(y, c.fetch8())
	default:
		c.internalCycle()
		c.push16(c.PC)
		c.PC = uint16(y) * 8
	}
	_ = opcode
}

// illegal models the 11 undefined SM83 opcodes: real hardware locks the
// bus and stops responding to everything but a reset.
func (c *CPU) illegal() { c.locked = true }

func (c *CPU) addSPOffset() {
	offset := int8(c.fetch8())
	sp := c.SP
	result := uint16(int32(sp) + int32(offset))
	h := (sp&0xF)+(uint16(byte(offset))&0xF) > 0xF
	cy := (sp&0xFF)+uint16(byte(offset)) > 0xFF
	c.internalCycle()
	c.internalCycle()
	c.SP = result
	c.setFlags(false, false, h, cy)
}

func (c *CPU) ldHLSPOffset() {
	offset := int8(c.fetch8())
	sp := c.SP
	result := uint16(int32(sp) + int32(offset))
	h := (sp&0xF)+(uint16(byte(offset))&0xF) > 0xF
	cy := (sp&0xFF)+uint16(byte(offset)) > 0xFF
	c.internalCycle()
	c.setHL(result)
	c.setFlags(false, false, h, cy)
}

func (c *CPU) addHL(v uint16) {
	hl := c.getHL()
	result := uint32(hl) + uint32(v)
	h := (hl&0xFFF)+(v&0xFFF) > 0xFFF
	c.internalCycle()
	c.setHL(uint16(result))
	c.setFlags(c.flag(flagZ), false, h, result > 0xFFFF)
}

func (c *CPU) inc8(v byte) byte {
	result := v + 1
	c.setFlags(result == 0, false, v&0xF == 0xF, c.flag(flagC))
	return result
}

func (c *CPU) dec8(v byte) byte {
	result := v - 1
	c.setFlags(result == 0, true, v&0xF == 0, c.flag(flagC))
	return result
}

// miscRotateA handles the x=0,z=7 block: rotate-A variants plus DAA, CPL,
// SCF, CCF. Unlike the CB-prefixed rotate table, these always clear Z.
func (c *CPU) miscRotateA(y byte) {
	switch y {
	case 0:
		cy := c.A&0x80 != 0
		c.A = c.A<<1 | b2byte(cy)
		c.setFlags(false, false, false, cy)
	case 1:
		cy := c.A&0x01 != 0
		c.A = c.A>>1 | b2byte(cy)<<7
		c.setFlags(false, false, false, cy)
	case 2:
		cy := c.A&0x80 != 0
		c.A = c.A<<1 | b2byte(c.flag(flagC))
		c.setFlags(false, false, false, cy)
	case 3:
		cy := c.A&0x01 != 0
		c.A = c.A>>1 | b2byte(c.flag(flagC))<<7
		c.setFlags(false, false, false, cy)
	case 4:
		c.daa()
	case 5:
		c.A = ^c.A
		c.setFlags(c.flag(flagZ), true, true, c.flag(flagC))
	case 6:
		c.setFlags(c.flag(flagZ), false, false, true)
	default:
		c.setFlags(c.flag(flagZ), false, false, !c.flag(flagC))
	}
}

func (c *CPU) daa() {
	a := int(c.A)
	n := c.flag(flagN)
	h := c.flag(flagH)
	cy := c.flag(flagC)

	if !n {
		if h || a&0xF > 9 {
			a += 0x06
		}
		if cy || a > 0x9F {
			a += 0x60
			cy = true
		}
	} else {
		if h {
			a = (a - 0x06) & 0xFF
		}
		if cy {
			a -= 0x60
		}
	}
	c.A = byte(a)
	c.setFlags(c.A == 0, n, false, cy)
}

func b2byte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
