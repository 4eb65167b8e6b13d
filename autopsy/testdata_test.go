package autopsy

import (
	"bytes"
	"encoding/binary"
)

// buildMinimalELF32 assembles a minimal valid little-endian ELF32 shared
// object with one executable .text section holding code and a single
// eligible dynamic symbol, enough to drive Autopsy construction through the
// gadget/exchange-graph pipeline in tests.
func buildMinimalELF32(code []byte, codeAddr uint32) []byte {
	const ehdrSize = 52
	const shdrSize = 40
	const symSize = 16

	textOff := uint32(ehdrSize)

	var dynstr, dynsym bytes.Buffer
	dynstr.WriteByte(0)
	dynsym.Write(make([]byte, symSize)) // null symbol

	const symName = "base_symbol"
	nameOff := uint32(dynstr.Len())
	dynstr.WriteString(symName)
	dynstr.WriteByte(0)

	binary.Write(&dynsym, binary.LittleEndian, nameOff)
	binary.Write(&dynsym, binary.LittleEndian, codeAddr)
	binary.Write(&dynsym, binary.LittleEndian, uint32(0))
	dynsym.WriteByte((1 << 4) | 2) // STB_GLOBAL, STT_FUNC
	dynsym.WriteByte(0)
	binary.Write(&dynsym, binary.LittleEndian, uint16(1))

	dynstrOff := textOff + uint32(len(code))
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
	dynsymNameOff := secNameOff(".dynsym")
	dynstrNameOff := secNameOff(".dynstr")
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
		shtProgbit = 1
		shtStrtab  = 3
		shtDynsym  = 11
		shfAlloc   = 0x2
		shfExec    = 0x4
	)

	shdrs := []shdr{
		{}, // NULL
		{Name: textNameOff, Type: shtProgbit, Flags: shfAlloc | shfExec,
			Addr: codeAddr, Offset: textOff, Size: uint32(len(code)), AddrAlign: 1},
		{Name: dynsymNameOff, Type: shtDynsym, Flags: shfAlloc,
			Offset: dynsymOff, Size: uint32(dynsym.Len()), Link: 3, Info: 1,
			AddrAlign: 4, EntSize: symSize},
		{Name: dynstrNameOff, Type: shtStrtab, Flags: shfAlloc,
			Offset: dynstrOff, Size: uint32(dynstr.Len()), AddrAlign: 1},
		{Name: shstrtabNameOff, Type: shtStrtab, Offset: shstrtabOff,
			Size: uint32(shstrtab.Len()), AddrAlign: 1},
	}

	var out bytes.Buffer
	out.Write([]byte{0x7f, 'E', 'L', 'F', 1, 1, 1, 0, 0})
	out.Write(make([]byte, 7))

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
		Type: 3, Machine: 3, Version: 1,
		Shoff: shOff, Ehsize: ehdrSize, Shentsize: shdrSize,
		Shnum: uint16(len(shdrs)), Shstrndx: 4,
	})

	out.Write(code)
	out.Write(dynstr.Bytes())
	out.Write(dynsym.Bytes())
	out.Write(shstrtab.Bytes())

	for _, s := range shdrs {
		binary.Write(&out, binary.LittleEndian, s)
	}

	return out.Bytes()
}

// buildELF32NoSymbols assembles a minimal ELF32 shared object with an
// executable .text section and no .dynsym/.dynstr pair at all.
func buildELF32NoSymbols(code []byte, codeAddr uint32) []byte {
	const ehdrSize = 52
	const shdrSize = 40

	textOff := uint32(ehdrSize)
	shstrtabOff := textOff + uint32(len(code))

	var shstrtab bytes.Buffer
	shstrtab.WriteByte(0)
	secNameOff := func(name string) uint32 {
		off := uint32(shstrtab.Len())
		shstrtab.WriteString(name)
		shstrtab.WriteByte(0)
		return off
	}

	textNameOff := secNameOff(".text")
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
		shtProgbit = 1
		shtStrtab  = 3
		shfAlloc   = 0x2
		shfExec    = 0x4
	)

	shdrs := []shdr{
		{}, // NULL
		{Name: textNameOff, Type: shtProgbit, Flags: shfAlloc | shfExec,
			Addr: codeAddr, Offset: textOff, Size: uint32(len(code)), AddrAlign: 1},
		{Name: shstrtabNameOff, Type: shtStrtab, Offset: shstrtabOff,
			Size: uint32(shstrtab.Len()), AddrAlign: 1},
	}

	var out bytes.Buffer
	out.Write([]byte{0x7f, 'E', 'L', 'F', 1, 1, 1, 0, 0})
	out.Write(make([]byte, 7))

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
		Type: 3, Machine: 3, Version: 1,
		Shoff: shOff, Ehsize: ehdrSize, Shentsize: shdrSize,
		Shnum: uint16(len(shdrs)), Shstrndx: 2,
	})

	out.Write(code)
	out.Write(shstrtab.Bytes())

	for _, s := range shdrs {
		binary.Write(&out, binary.LittleEndian, s)
	}

	return out.Bytes()
}
