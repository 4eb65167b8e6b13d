package elfscan

import (
	"debug/elf"
	"encoding/binary"
)

// resolveVersions returns, for each of the first n entries returned by
// f.DynamicSymbols(), the version string bound to that symbol (possibly
// empty). debug/elf does not expose per-symbol version strings directly, so
// this parses .gnu.version (SHT_GNU_versym, one uint16 per dynamic symbol)
// and .gnu.version_d (SHT_GNU_verdef, a linked list of version definitions)
// by hand, the way libbfd's bfd_get_symbol_version_string does internally.
func resolveVersions(f *elf.File, n int) []string {
	versym := f.Section(".gnu.version")
	verdef := f.Section(".gnu.version_d")
	if versym == nil || verdef == nil {
		return make([]string, n)
	}

	versymData, err := versym.Data()
	if err != nil {
		return make([]string, n)
	}

	verdefData, err := verdef.Data()
	if err != nil {
		return make([]string, n)
	}

	strTab := dynStrTab(f)

	ndxToName := parseVerdef(verdefData, strTab, f.ByteOrder)

	// .dynsym entry 0 is the null symbol that f.DynamicSymbols() omits, so
	// raw versym index i+1 corresponds to DynamicSymbols()[i].
	out := make([]string, n)
	for i := 0; i < n; i++ {
		rawIdx := i + 1
		off := rawIdx * 2
		if off+2 > len(versymData) {
			continue
		}

		ndx := f.ByteOrder.Uint16(versymData[off:]) &^ 0x8000 // mask VERSYM_HIDDEN

		switch ndx {
		case 0:
			// VER_NDX_LOCAL: no version.
		case 1:
			// VER_NDX_GLOBAL: versioned binary, but this symbol carries no
			// explicit version definition. libbfd surfaces this as "Base".
			out[i] = "Base"
		default:
			out[i] = ndxToName[ndx]
		}
	}

	return out
}

func dynStrTab(f *elf.File) []byte {
	s := f.Section(".dynstr")
	if s == nil {
		return nil
	}

	data, err := s.Data()
	if err != nil {
		return nil
	}

	return data
}

func parseVerdef(data []byte, strTab []byte, order binary.ByteOrder) map[uint16]string {
	out := make(map[uint16]string)

	off := uint32(0)
	for {
		if int(off)+20 > len(data) {
			break
		}

		vdNdx := order.Uint16(data[off+4:])
		vdAux := order.Uint32(data[off+12:])
		vdNext := order.Uint32(data[off+16:])

		auxOff := off + vdAux
		if int(auxOff)+8 <= len(data) {
			vdaName := order.Uint32(data[auxOff:])
			out[vdNdx] = cString(strTab, vdaName)
		}

		if vdNext == 0 {
			break
		}
		off += vdNext
	}

	return out
}

func cString(tab []byte, off uint32) string {
	if int(off) >= len(tab) {
		return ""
	}

	end := off
	for int(end) < len(tab) && tab[end] != 0 {
		end++
	}

	return string(tab[off:end])
}
