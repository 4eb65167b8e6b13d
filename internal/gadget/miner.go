package gadget

import (
	"log"

	"binautopsy/internal/asm"
	"binautopsy/internal/elfscan"
)

// Mine scans every section for RET opcodes and, at every RET, tries every
// retrograde decode depth MaxDepth down to 0 (largest depth first), in
// ascending section order and ascending byte offset. Every depth that
// decodes to a new mnemonic key is inserted as its own Microgadget; a depth
// whose key has already been seen is discarded, but distinct depths at the
// same RET can and do each contribute a distinct gadget.
func Mine(sections []elfscan.Section, verbose bool) []Microgadget {
	seen := make(map[string]bool)
	var gadgets []Microgadget

	for _, s := range sections {
		if verbose {
			log.Printf("[*] searching gadgets in section %s ...", s.Name)
		}

		found := 0
		buf := s.RawData

		for i := 0; i < len(buf); i++ {
			if buf[i] != asm.RetOpcode {
				continue
			}

			for _, c := range asm.DecodeRetrograde(buf, i) {
				start := i - c.Depth + 1
				addr := s.Addr + uint64(start)

				g, err := fromInst(addr, c.Inst)
				if err != nil {
					if verbose {
						log.Printf("[*] skipped gadget at 0x%x: %s", addr, err)
					}
					continue
				}

				if seen[g.Key] {
					continue
				}

				seen[g.Key] = true
				gadgets = append(gadgets, g)
				found++
			}
		}

		if verbose {
			log.Printf("[*] %d found", found)
		}
	}

	if verbose {
		log.Printf("[*] found %d unique microgadgets", len(gadgets))
	}

	return gadgets
}
