package elfscan

import "errors"

// ErrInvalidBinary is returned when the file at the given path does not pass
// the "is an ELF object" check.
var ErrInvalidBinary = errors.New("elfscan: not a valid ELF object")

// ErrNoSymbols is returned when the dynamic symbol table yields zero
// eligible symbols.
var ErrNoSymbols = errors.New("elfscan: no eligible dynamic symbols found")
