// Package gadget mines, classifies, and filters microgadgets: single
// non-RET x86 instructions immediately preceding a RET inside an executable
// section.
package gadget

import (
	"fmt"
	"strings"

	"golang.org/x/arch/x86/x86asm"
)

// Class is the semantic tag assigned to a Microgadget.
type Class int

const (
	Undefined Class = iota
	RegInit
	RegReset
	RegLoad
	RegStore
	RegXchg
)

func (c Class) String() string {
	switch c {
	case RegInit:
		return "REG_INIT"
	case RegReset:
		return "REG_RESET"
	case RegLoad:
		return "REG_LOAD"
	case RegStore:
		return "REG_STORE"
	case RegXchg:
		return "REG_XCHG"
	default:
		return "UNDEFINED"
	}
}

// OperandKind tags which case of the Operand union is populated.
type OperandKind int

const (
	KindNone OperandKind = iota
	KindReg
	KindImm
	KindMem
)

// Mem is a memory operand's addressing components. A zero Reg value means
// "none" for Index and Segment; Base uses x86asm.Reg(0) the same way to mean
// an invalid/absent base register.
type Mem struct {
	Base    x86asm.Reg
	Index   x86asm.Reg
	Scale   uint8
	Disp    int64
	Segment x86asm.Reg
}

// Operand is a tagged union over register / immediate / memory, copied out
// of the decoder's instruction so a Microgadget owns its data independent of
// any decoder-internal storage.
type Operand struct {
	Kind OperandKind
	Reg  x86asm.Reg
	Imm  int64
	Mem  Mem
}

// operandFromArg copies arg into an owned Operand. arg is never nil here;
// callers skip nil args before calling. It returns ErrUnsupportedOperand for
// any argument kind other than register, immediate, or memory — e.g.
// x86asm.Rel, which can appear on a short JMP/CALL inside the retrograde scan
// window.
func operandFromArg(arg x86asm.Arg) (Operand, error) {
	switch a := arg.(type) {
	case x86asm.Reg:
		return Operand{Kind: KindReg, Reg: a}, nil
	case x86asm.Imm:
		return Operand{Kind: KindImm, Imm: int64(a)}, nil
	case x86asm.Mem:
		return Operand{
			Kind: KindMem,
			Mem: Mem{
				Base:    a.Base,
				Index:   a.Index,
				Scale:   a.Scale,
				Disp:    a.Disp,
				Segment: a.Segment,
			},
		}, nil
	default:
		return Operand{}, fmt.Errorf("%w: %T", ErrUnsupportedOperand, arg)
	}
}

// Microgadget is a single non-RET instruction observed immediately before a
// RET at a decodable address inside an executable section.
type Microgadget struct {
	// Addr is the virtual address of the instruction (not the RET).
	Addr uint64

	// Op is the architectural opcode (POP, XOR, MOV, XCHG, ...).
	Op x86asm.Op

	// Operands holds up to two operands; unused slots have Kind KindNone.
	Operands [2]Operand

	// Key is the deduplication key: "<mnemonic> <op_str>;".
	Key string

	// Class is the semantic tag assigned by Classify.
	Class Class
}

// NumOperands returns how many of Operands are populated.
func (g Microgadget) NumOperands() int {
	n := 0
	for _, op := range g.Operands {
		if op.Kind != KindNone {
			n++
		}
	}
	return n
}

// fromInst builds a Microgadget from a decoded instruction, or returns
// ErrUnsupportedOperand if one of its first two operands is a kind this
// package doesn't model.
func fromInst(addr uint64, inst x86asm.Inst) (Microgadget, error) {
	g := Microgadget{
		Addr: addr,
		Op:   inst.Op,
		Key:  mnemonicKey(inst),
	}

	for i, arg := range inst.Args {
		if i >= 2 {
			break
		}
		if arg == nil {
			break
		}
		op, err := operandFromArg(arg)
		if err != nil {
			return Microgadget{}, err
		}
		g.Operands[i] = op
	}

	return g, nil
}

// mnemonicKey renders the canonical "<mnemonic> <op_str>;" deduplication key
// for inst, e.g. "pop eax;" or "xchg eax, ecx;".
func mnemonicKey(inst x86asm.Inst) string {
	mnemonic := strings.ToLower(inst.Op.String())

	var operands []string
	for _, arg := range inst.Args {
		if arg == nil {
			break
		}
		operands = append(operands, operandString(arg))
	}

	if len(operands) == 0 {
		return fmt.Sprintf("%s;", mnemonic)
	}

	return fmt.Sprintf("%s %s;", mnemonic, strings.Join(operands, ", "))
}

func operandString(arg x86asm.Arg) string {
	switch a := arg.(type) {
	case x86asm.Reg:
		return strings.ToLower(a.String())
	case x86asm.Imm:
		return fmt.Sprintf("0x%x", int64(a))
	case x86asm.Mem:
		return memString(a)
	default:
		return strings.ToLower(arg.String())
	}
}

func memString(m x86asm.Mem) string {
	var sb strings.Builder
	sb.WriteString("dword ptr ")
	if m.Segment != 0 {
		sb.WriteString(strings.ToLower(m.Segment.String()))
		sb.WriteString(":")
	}
	sb.WriteString("[")

	wrote := false
	if m.Base != 0 {
		sb.WriteString(strings.ToLower(m.Base.String()))
		wrote = true
	}
	if m.Index != 0 {
		if wrote {
			sb.WriteString("+")
		}
		sb.WriteString(strings.ToLower(m.Index.String()))
		fmt.Fprintf(&sb, "*%d", m.Scale)
		wrote = true
	}
	if m.Disp != 0 || !wrote {
		if wrote && m.Disp >= 0 {
			sb.WriteString("+")
		}
		fmt.Fprintf(&sb, "%#x", m.Disp)
	}
	sb.WriteString("]")

	return sb.String()
}
