// dissect loads a 32-bit x86 ELF binary, runs the Binary Autopsy pipeline
// over it, and prints the sizes of the resulting section, symbol, and
// microgadget tables to stdout; on request it also lists the microgadgets by
// class, draws a random symbol, or prints an exchange path. The symbol and
// section tables themselves are not listed. It stands in for the compiler pass that would otherwise
// consume the autopsy package's query surface when synthesizing ROP chains.
package main

import (
	"flag"
	"fmt"
	"log"
	"sort"

	"golang.org/x/arch/x86/x86asm"

	"binautopsy/autopsy"
)

func main() {
	log.SetFlags(0)

	if err := mainWithError(); err != nil {
		log.Fatalf("fatal: %s", err)
	}
}

func mainWithError() error {
	binPath := flag.String(
		"bin",
		"",
		"Path to the 32-bit x86 ELF binary to dissect")

	verbose := flag.Bool(
		"v",
		false,
		"Enable verbose analysis narration")

	skipBase := flag.Bool(
		"skip-base-version",
		false,
		"Drop dynamic symbols whose resolved version is the pseudo-version \"Base\"")

	seed := flag.Int64(
		"seed",
		0,
		"PRNG seed for -random-symbol (0 seeds from the wall clock)")

	showGadgets := flag.Bool(
		"gadgets",
		false,
		"List every surviving microgadget, grouped by class")

	randomSymbol := flag.Bool(
		"random-symbol",
		false,
		"Print one symbol chosen uniformly from the symbol table")

	xchgFrom := flag.String(
		"xchg-from",
		"",
		"Register to find an exchange path from, e.g. eax")

	xchgTo := flag.String(
		"xchg-to",
		"",
		"Register to find an exchange path to, e.g. edx")

	flag.Parse()

	if *binPath == "" {
		return fmt.Errorf("please specify '-bin'")
	}

	a, err := autopsy.New(*binPath, autopsy.Config{
		Verbose:                *verbose,
		SkipBaseVersionSymbols: *skipBase,
		Seed:                   *seed,
	})
	if err != nil {
		return fmt.Errorf("failed to dissect %s: %w", *binPath, err)
	}

	fmt.Printf("sections: %d, symbols: %d, gadgets: %d\n",
		len(a.Sections()), len(a.Symbols()), len(a.Gadgets()))

	if *showGadgets {
		printGadgetsByClass(a)
	}

	if *randomSymbol {
		sym := a.RandomSymbol()
		fmt.Printf("random symbol: %s\n", sym.Label)
		if directive := sym.SymVerDirective(); directive != "" {
			fmt.Printf("  %s\n", directive)
		}
	}

	if *xchgFrom != "" && *xchgTo != "" {
		from, ok := parseReg(*xchgFrom)
		if !ok {
			return fmt.Errorf("%w: %q", autopsy.ErrUnknownRegisterMapping, *xchgFrom)
		}
		to, ok := parseReg(*xchgTo)
		if !ok {
			return fmt.Errorf("%w: %q", autopsy.ErrUnknownRegisterMapping, *xchgTo)
		}

		if !a.CheckXchgPath(from, to) {
			fmt.Printf("no exchange path from %s to %s\n", *xchgFrom, *xchgTo)
			return nil
		}

		for _, g := range a.GetXchgPath(from, to) {
			fmt.Printf("0x%x: %s\n", g.Addr, g.Key)
		}
	}

	return nil
}

func printGadgetsByClass(a *autopsy.Autopsy) {
	classes := []autopsy.Class{
		autopsy.RegInit,
		autopsy.RegReset,
		autopsy.RegLoad,
		autopsy.RegStore,
		autopsy.RegXchg,
		autopsy.Undefined,
	}

	for _, class := range classes {
		gadgets := a.GadgetsByClass(class)

		sort.Slice(gadgets, func(i, j int) bool {
			return gadgets[i].Addr < gadgets[j].Addr
		})

		fmt.Printf("-- %s (%d) --\n", class, len(gadgets))
		for _, g := range gadgets {
			fmt.Printf("0x%x: %s\n", g.Addr, g.Key)
		}
	}
}

func parseReg(name string) (x86asm.Reg, bool) {
	regs := map[string]x86asm.Reg{
		"eax": x86asm.EAX,
		"ecx": x86asm.ECX,
		"edx": x86asm.EDX,
		"ebx": x86asm.EBX,
		"esi": x86asm.ESI,
		"edi": x86asm.EDI,
		"ebp": x86asm.EBP,
	}

	r, ok := regs[name]
	return r, ok
}
