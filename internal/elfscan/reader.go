// Package elfscan opens a 32-bit x86 ELF object and extracts the tables the
// Autopsy needs: executable sections and eligible dynamic symbols.
package elfscan

import (
	"debug/elf"
	"fmt"
)

// Section is an executable code region of the analysed binary.
type Section struct {
	Name    string
	Addr    uint64
	Length  uint64
	RawData []byte
}

// Symbol is one entry of the dynamic symbol table eligible as a ROP base
// address: a global function symbol, not _init/_fini.
type Symbol struct {
	Label   string
	Version string
	Addr    uint64
}

// SymVerDirective assembles the inline-asm directive needed to pin the
// static linker to this symbol's version.
func (s Symbol) SymVerDirective() string {
	if s.Version == "" {
		return ""
	}
	return fmt.Sprintf(".symver %s,%s@%s", s.Label, s.Label, s.Version)
}

// Binary holds everything read out of one ELF file.
type Binary struct {
	Path     string
	Sections []Section
	Symbols  []Symbol
}

// Options controls reader behavior for open questions left unresolved by
// the original implementation.
type Options struct {
	// SkipBaseVersionSymbols drops symbols whose resolved version is the
	// pseudo-version "Base" (no explicit symbol version, i.e. VER_NDX_GLOBAL).
	// The original leaves a TODO to do this but never implements it; default
	// false preserves that (bug-compatible) behavior.
	SkipBaseVersionSymbols bool
}

const (
	excludedInit = "_init"
	excludedFini = "_fini"
)

// Read opens path, validates it is an ELF object, and extracts executable
// sections and eligible dynamic symbols.
func Read(path string, opts Options) (*Binary, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrInvalidBinary, path, err)
	}
	defer f.Close()

	sections, err := dumpSections(f)
	if err != nil {
		return nil, err
	}

	symbols, err := dumpDynamicSymbols(f, opts)
	if err != nil {
		return nil, err
	}

	if len(symbols) == 0 {
		return nil, ErrNoSymbols
	}

	return &Binary{
		Path:     path,
		Sections: sections,
		Symbols:  symbols,
	}, nil
}

func dumpSections(f *elf.File) ([]Section, error) {
	var sections []Section

	for _, s := range f.Sections {
		if s.Flags&elf.SHF_EXECINSTR == 0 {
			continue
		}

		name := s.Name
		if name == "" {
			name = "<unnamed>"
		}

		data, err := s.Data()
		if err != nil {
			return nil, fmt.Errorf("elfscan: failed to read section %s: %w", name, err)
		}

		sections = append(sections, Section{
			Name:    name,
			Addr:    s.Addr,
			Length:  s.Size,
			RawData: data,
		})
	}

	return sections, nil
}

func dumpDynamicSymbols(f *elf.File, opts Options) ([]Symbol, error) {
	syms, err := f.DynamicSymbols()
	if err != nil {
		// A binary with no .dynsym section at all simply has no eligible
		// symbols; surface this the same way as zero eligible entries.
		return nil, nil
	}

	versions := resolveVersions(f, len(syms))

	var out []Symbol
	for i, sym := range syms {
		if elf.ST_TYPE(sym.Info) != elf.STT_FUNC {
			continue
		}
		if elf.ST_BIND(sym.Info) != elf.STB_GLOBAL {
			continue
		}
		if sym.Name == excludedInit || sym.Name == excludedFini {
			continue
		}

		version := ""
		if i < len(versions) {
			version = versions[i]
		}

		if opts.SkipBaseVersionSymbols && version == "Base" {
			continue
		}

		out = append(out, Symbol{
			Label:   sym.Name,
			Version: version,
			Addr:    sym.Value,
		})
	}

	return out, nil
}
