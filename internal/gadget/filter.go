package gadget

import (
	"log"

	"golang.org/x/arch/x86/x86asm"
)

func isESP(op Operand) bool {
	switch op.Kind {
	case KindReg:
		return op.Reg == x86asm.ESP
	case KindMem:
		return op.Mem.Base == x86asm.ESP
	default:
		return false
	}
}

func hasBadMemAddressing(op Operand) bool {
	if op.Kind != KindMem {
		return false
	}

	return op.Mem.Base == 0 || op.Mem.Index != 0 || op.Mem.Segment != 0
}

func excluded(g Microgadget) bool {
	for _, op := range g.Operands {
		if isESP(op) {
			return true
		}
		if hasBadMemAddressing(op) {
			return true
		}
	}

	return false
}

// Filter removes gadgets whose operands touch the stack pointer or use
// unsupported memory addressing modes (invalid base, or any index/segment
// register), returning the surviving subset.
func Filter(gadgets []Microgadget, verbose bool) []Microgadget {
	survivors := gadgets[:0:0]
	excludedCount := 0

	for _, g := range gadgets {
		if excluded(g) {
			excludedCount++
			if verbose {
				log.Printf("[GadgetFilter] excluded: %s", g.Key)
			}
			continue
		}
		survivors = append(survivors, g)
	}

	if verbose {
		log.Printf("[GadgetFilter] %d gadgets have been excluded", excludedCount)
	}

	return survivors
}
