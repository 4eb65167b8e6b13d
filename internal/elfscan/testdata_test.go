package elfscan

import (
	"bytes"
	"encoding/binary"
)

// testSym describes one entry to place in the synthetic ELF's .dynsym.
type testSym struct {
	name  string
	value uint32
	bind  uint8 // STB_LOCAL=0, STB_GLOBAL=1
	typ   uint8 // STT_NOTYPE=0, STT_FUNC=2
}

// buildELF32 assembles a minimal, valid little-endian ELF32 shared object
// containing one executable .text section holding code, and (when syms is
// non-nil) a .dynsym/.dynstr pair describing syms. When syms is nil, no
// dynamic symbol table is emitted at all.
func buildELF32(code []byte, codeAddr uint32, syms []testSym) []byte {
	const ehdrSize = 52
	const shdrSize = 40
	const symSize = 16

	textOff := uint32(ehdrSize)
	textData := code

	var dynstr, dynsym bytes.Buffer
	nameOff := map[string]uint32{}

	haveSyms := syms != nil

	if haveSyms {
		dynstr.WriteByte(0)
		dynsym.Write(make([]byte, symSize)) // null symbol at index 0

		for _, s := range syms {
			nameOff[s.name] = uint32(dynstr.Len())
			dynstr.WriteString(s.name)
			dynstr.WriteByte(0)
		}

		for _, s := range syms {
			binary.Write(&dynsym, binary.LittleEndian, nameOff[s.name]) // st_name
			binary.Write(&dynsym, binary.LittleEndian, s.value)         // st_value
			binary.Write(&dynsym, binary.LittleEndian, uint32(0))      // st_size
			dynsym.WriteByte((s.bind << 4) | (s.typ & 0xf))            // st_info
			dynsym.WriteByte(0)                                        // st_other
			binary.Write(&dynsym, binary.LittleEndian, uint16(1))      // st_shndx (.text)
		}
	}

	dynstrOff := textOff + uint32(len(textData))
	dynsymOff := dynstrOff + uint32(dynstr.Len())

	shstrtabOff := dynsymOff + uint32(dynsym.Len())

	var shstrtab bytes.Buffer
	shstrtab.WriteByte(0)
	secNameOff := func(name string) uint32 {
		off := uint32(shstrtab.Len())
		shstrtab.WriteString(name)
		shstrtab.WriteByte(0)
		return off
	}

	textNameOff := secNameOff(".text")
	var dynsymNameOff, dynstrNameOff uint32
	if haveSyms {
		dynsymNameOff = secNameOff(".dynsym")
		dynstrNameOff = secNameOff(".dynstr")
	}
	shstrtabNameOff := secNameOff(".shstrtab")

	shOff := shstrtabOff + uint32(shstrtab.Len())

	type shdr struct {
		Name      uint32
		Type      uint32
		Flags     uint32
		Addr      uint32
		Offset    uint32
		Size      uint32
		Link      uint32
		Info      uint32
		AddrAlign uint32
		EntSize   uint32
	}

	const (
		shtNull    = 0
		shtProgbit = 1
		shtStrtab  = 3
		shtDynsym  = 11

		shfWrite = 0x1
		shfAlloc = 0x2
		shfExec  = 0x4
	)

	var shdrs []shdr
	shdrs = append(shdrs, shdr{}) // NULL section
	shdrs = append(shdrs, shdr{
		Name: textNameOff, Type: shtProgbit, Flags: shfAlloc | shfExec,
		Addr: codeAddr, Offset: textOff, Size: uint32(len(textData)), AddrAlign: 1,
	})

	if haveSyms {
		dynsymIdx := uint32(len(shdrs))
		shdrs = append(shdrs, shdr{
			Name: dynsymNameOff, Type: shtDynsym, Flags: shfAlloc,
			Offset: dynsymOff, Size: uint32(dynsym.Len()),
			Link: dynsymIdx + 1, Info: 1, AddrAlign: 4, EntSize: symSize,
		})
		shdrs = append(shdrs, shdr{
			Name: dynstrNameOff, Type: shtStrtab, Flags: shfAlloc,
			Offset: dynstrOff, Size: uint32(dynstr.Len()), AddrAlign: 1,
		})
	}

	shstrtabIdx := uint32(len(shdrs))
	shdrs = append(shdrs, shdr{
		Name: shstrtabNameOff, Type: shtStrtab, Offset: shstrtabOff,
		Size: uint32(shstrtab.Len()), AddrAlign: 1,
	})

	var out bytes.Buffer

	// e_ident
	out.Write([]byte{0x7f, 'E', 'L', 'F', 1, 1, 1, 0, 0})
	out.Write(make([]byte, 7)) // pad e_ident to 16 bytes

	type ehdr struct {
		Type      uint16
		Machine   uint16
		Version   uint32
		Entry     uint32
		Phoff     uint32
		Shoff     uint32
		Flags     uint32
		Ehsize    uint16
		Phentsize uint16
		Phnum     uint16
		Shentsize uint16
		Shnum     uint16
		Shstrndx  uint16
	}

	binary.Write(&out, binary.LittleEndian, ehdr{
		Type:      3, // ET_DYN
		Machine:   3, // EM_386
		Version:   1,
		Shoff:     shOff,
		Ehsize:    ehdrSize,
		Shentsize: shdrSize,
		Shnum:     uint16(len(shdrs)),
		Shstrndx:  uint16(shstrtabIdx),
	})

	out.Write(textData)
	out.Write(dynstr.Bytes())
	out.Write(dynsym.Bytes())
	out.Write(shstrtab.Bytes())

	for _, s := range shdrs {
		binary.Write(&out, binary.LittleEndian, s)
	}

	return out.Bytes()
}
