package gadget

import "golang.org/x/arch/x86/x86asm"

// isPlainMem reports whether m addresses memory the way REG_LOAD/REG_STORE
// require: no segment override, no index register, unit scale, zero
// displacement — i.e. a bare "[reg]" dereference.
func isPlainMem(m Mem) bool {
	return m.Segment == 0 && m.Index == 0 && m.Scale == 1 && m.Disp == 0
}

// Classify tags g's Class in place based on its opcode and operand shape,
// following the table in the original autopsy's analyseGadgets: POP reg ->
// REG_INIT, XOR reg,reg (same reg) -> REG_RESET, MOV reg,[reg] / MOV [reg],reg
// with plain addressing -> REG_LOAD / REG_STORE, XCHG reg,reg (distinct) ->
// REG_XCHG, anything else -> UNDEFINED.
func Classify(g *Microgadget) {
	op0, op1 := g.Operands[0], g.Operands[1]

	switch g.Op {
	case x86asm.POP:
		if op0.Kind == KindReg {
			g.Class = RegInit
			return
		}

	case x86asm.XOR:
		if op0.Kind == KindReg && op1.Kind == KindReg {
			if eq, err := Equal(op0, op1); err == nil && eq {
				g.Class = RegReset
				return
			}
		}

	case x86asm.MOV:
		switch {
		case op0.Kind == KindReg && op1.Kind == KindMem && isPlainMem(op1.Mem):
			g.Class = RegLoad
			return
		case op1.Kind == KindReg && op0.Kind == KindMem && isPlainMem(op0.Mem):
			g.Class = RegStore
			return
		}

	case x86asm.XCHG:
		if op0.Kind == KindReg && op1.Kind == KindReg {
			if eq, err := Equal(op0, op1); err == nil && !eq {
				g.Class = RegXchg
				return
			}
		}
	}

	g.Class = Undefined
}

// ClassifyAll classifies every gadget in the slice in place.
func ClassifyAll(gadgets []Microgadget) {
	for i := range gadgets {
		Classify(&gadgets[i])
	}
}
