// Package autopsy is the Binary Autopsy facade: it runs the full ELF ->
// sections/symbols -> gadget mining -> classification -> filtering ->
// exchange-graph pipeline once per binary and exposes the read-only query
// surface consumed by ROP chain synthesis.
package autopsy

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/arch/x86/x86asm"

	"binautopsy/internal/elfscan"
	"binautopsy/internal/gadget"
	"binautopsy/internal/xchggraph"
)

// Symbol is a dynamic symbol usable as a gadget base address.
type Symbol = elfscan.Symbol

// Section is an executable code region of the analysed binary.
type Section = elfscan.Section

// Microgadget is a single non-RET instruction immediately preceding a RET.
type Microgadget = gadget.Microgadget

// Class is the semantic tag assigned to a Microgadget.
type Class = gadget.Class

const (
	Undefined = gadget.Undefined
	RegInit   = gadget.RegInit
	RegReset  = gadget.RegReset
	RegLoad   = gadget.RegLoad
	RegStore  = gadget.RegStore
	RegXchg   = gadget.RegXchg
)

// Autopsy holds the immutable tables produced by analysing one binary, plus
// the exchange graph, read-only after construction.
type Autopsy struct {
	path string

	symbols  []Symbol
	sections []Section
	gadgets  []Microgadget
	byKey    map[string]*Microgadget
	xgraph   *xchggraph.Graph
	rng      *rand.Rand
}

// New opens path, validates it is an ELF object, and runs the full analysis
// pipeline to completion. Construction either succeeds with a fully
// populated, read-only Autopsy, or fails with ErrInvalidBinary / ErrNoSymbols.
func New(path string, cfg Config) (*Autopsy, error) {
	bin, err := elfscan.Read(path, elfscan.Options{SkipBaseVersionSymbols: cfg.SkipBaseVersionSymbols})
	if err != nil {
		return nil, fmt.Errorf("autopsy: failed to read %s: %w", path, err)
	}

	if cfg.Verbose {
		log.Printf("[*] found %d symbols", len(bin.Symbols))
	}

	gadgets := gadget.Mine(bin.Sections, cfg.Verbose)
	gadget.ClassifyAll(gadgets)
	gadgets = gadget.Filter(gadgets, cfg.Verbose)

	if len(gadgets) == 0 && cfg.Verbose {
		log.Printf("[*] %s", ErrNoGadgets)
	}

	xgraph := xchggraph.New()
	if cfg.Verbose {
		log.Printf("[XchgGraph] building the exchange graph ...")
	}
	for _, g := range gadgets {
		if g.Class != RegXchg {
			continue
		}
		a, b := g.Operands[0].Reg, g.Operands[1].Reg
		xgraph.AddEdge(a, b)
		if cfg.Verbose {
			log.Printf("[XchgGraph] added edge: %s, %s", a, b)
		}
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	byKey := make(map[string]*Microgadget, len(gadgets))
	for i := range gadgets {
		if _, exists := byKey[gadgets[i].Key]; !exists {
			byKey[gadgets[i].Key] = &gadgets[i]
		}
	}

	return &Autopsy{
		path:     path,
		symbols:  bin.Symbols,
		sections: bin.Sections,
		gadgets:  gadgets,
		byKey:    byKey,
		xgraph:   xgraph,
		rng:      rand.New(rand.NewSource(seed)),
	}, nil
}

// Path returns the originating binary path.
func (a *Autopsy) Path() string { return a.path }

// Symbols returns the full symbol table.
func (a *Autopsy) Symbols() []Symbol { return a.symbols }

// Sections returns the full executable section table.
func (a *Autopsy) Sections() []Section { return a.sections }

// Gadgets returns the full, filtered microgadget table.
func (a *Autopsy) Gadgets() []Microgadget { return a.gadgets }

// RandomSymbol returns one symbol chosen uniformly from the symbol table.
// Not safe to call concurrently on the same *Autopsy without external
// synchronization, since it advances a per-Autopsy PRNG; distinct *Autopsy
// values never share PRNG state.
func (a *Autopsy) RandomSymbol() Symbol {
	return a.symbols[a.rng.Intn(len(a.symbols))]
}

// GadgetByKey looks up the single microgadget with the given mnemonic key.
func (a *Autopsy) GadgetByKey(key string) (Microgadget, bool) {
	g, ok := a.byKey[key]
	if !ok {
		return Microgadget{}, false
	}
	return *g, true
}

// opTypeUnset is the sentinel meaning "the second operand type is not
// constrained" for GadgetsByOpcodeAndOperandTypes.
const opTypeUnset = gadget.KindNone

// GadgetsByOpcodeAndOperandTypes returns every gadget whose opcode is op and
// whose operand kinds match op0Kind (and op1Kind, unless op1Kind is
// opTypeUnset).
func (a *Autopsy) GadgetsByOpcodeAndOperandTypes(op x86asm.Op, op0Kind, op1Kind gadget.OperandKind) []Microgadget {
	var out []Microgadget
	for _, g := range a.gadgets {
		if g.Op != op {
			continue
		}
		if g.Operands[0].Kind != op0Kind {
			continue
		}
		if op1Kind != opTypeUnset && g.Operands[1].Kind != op1Kind {
			continue
		}
		out = append(out, g)
	}
	return out
}

// regInvalid is the sentinel meaning "the second operand register is not
// constrained" for GadgetsByOpcodeAndRegisters, supporting single-operand
// forms like POP reg.
const regInvalid x86asm.Reg = 0

// GadgetsByOpcodeAndRegisters returns every gadget whose opcode is op, whose
// first operand is register reg0, and whose second operand is register reg1
// (unless reg1 is regInvalid, in which case the second operand is
// unconstrained).
func (a *Autopsy) GadgetsByOpcodeAndRegisters(op x86asm.Op, reg0, reg1 x86asm.Reg) []Microgadget {
	var out []Microgadget
	for _, g := range a.gadgets {
		if g.Op != op {
			continue
		}
		if g.Operands[0].Kind != gadget.KindReg || g.Operands[0].Reg != reg0 {
			continue
		}
		if reg1 != regInvalid {
			if g.Operands[1].Kind != gadget.KindReg || g.Operands[1].Reg != reg1 {
				continue
			}
		}
		out = append(out, g)
	}
	return out
}

// GadgetsByClass returns every gadget tagged with the given semantic class.
func (a *Autopsy) GadgetsByClass(class Class) []Microgadget {
	var out []Microgadget
	for _, g := range a.gadgets {
		if g.Class == class {
			out = append(out, g)
		}
	}
	return out
}

// CanInitReg reports whether some REG_INIT gadget pops into reg.
func (a *Autopsy) CanInitReg(reg x86asm.Reg) bool {
	for _, g := range a.gadgets {
		if g.Class == RegInit && g.Operands[0].Reg == reg {
			return true
		}
	}
	return false
}

// InitialisableRegs returns the set of registers for which CanInitReg is
// true.
func (a *Autopsy) InitialisableRegs() []x86asm.Reg {
	var out []x86asm.Reg
	for _, g := range a.GadgetsByClass(RegInit) {
		out = append(out, g.Operands[0].Reg)
	}
	return out
}

// CheckXchgPath reports whether reg1 and reg2 are connected in the exchange
// graph. If reg3 is non-empty, it also requires reg2 and reg3[0] to be
// connected; any further elements of reg3 are ignored.
func (a *Autopsy) CheckXchgPath(reg1, reg2 x86asm.Reg, reg3 ...x86asm.Reg) bool {
	if len(reg3) == 0 {
		return a.xgraph.CheckPath(reg1, reg2)
	}
	return a.xgraph.CheckPath3(reg1, reg2, reg3[0])
}

// GetXchgPath returns the XCHG microgadgets realizing a shortest exchange
// path from reg1 to reg2, in application order. For each graph edge (u, v) it
// selects the first XCHG gadget with operand order (u, v); if none exists,
// it falls back to operand order (v, u), since the decoder fixes a
// canonical operand order per decoded instance even though XCHG is
// commutative.
func (a *Autopsy) GetXchgPath(reg1, reg2 x86asm.Reg) []Microgadget {
	edges := a.xgraph.Path(reg1, reg2)

	var path []Microgadget
	for _, e := range edges {
		candidates := a.GadgetsByOpcodeAndRegisters(x86asm.XCHG, e.From, e.To)
		if len(candidates) == 0 {
			candidates = a.GadgetsByOpcodeAndRegisters(x86asm.XCHG, e.To, e.From)
		}
		if len(candidates) == 0 {
			continue
		}
		path = append(path, candidates[0])
	}
	return path
}
