package autopsy

import (
	"errors"

	"binautopsy/internal/elfscan"
)

// ErrInvalidBinary is returned when the target file does not pass the "is
// an ELF object" check.
var ErrInvalidBinary = elfscan.ErrInvalidBinary

// ErrNoSymbols is returned when the dynamic symbol table yields zero
// eligible symbols; fatal, since every ROP chain references a symbol as a
// base address.
var ErrNoSymbols = elfscan.ErrNoSymbols

// ErrNoGadgets describes the case where zero microgadgets survive filtering.
// It is not fatal: New does not return it, it only logs it when
// Config.Verbose is set, and every gadget-dependent query then returns empty.
var ErrNoGadgets = errors.New("autopsy: no microgadgets survived filtering")

// ErrUnknownRegisterMapping is a programmer error: a caller asked about a
// register that isn't part of the fixed GPR enumeration this Autopsy
// operates over.
var ErrUnknownRegisterMapping = errors.New("autopsy: unknown register mapping")
