// Package asm wraps golang.org/x/arch/x86/x86asm to decode raw bytes from a
// 32-bit x86 binary into instructions, forward and in retrograde from a known
// RET byte.
package asm

import (
	"fmt"

	"golang.org/x/arch/x86/x86asm"
)

// Mode is the x86asm decode mode for 32-bit code.
const Mode = 32

// RetOpcode is the single-byte encoding of a near RET with no operand.
const RetOpcode = 0xc3

// MaxDepth is the largest retrograde window size, in bytes and counting the
// RET byte itself, tried when mining for a two-instruction gadget; at most
// MaxDepth-1 bytes before the RET are examined.
const MaxDepth = 4

// Decoder decodes x86-32 instructions from a byte buffer.
type Decoder struct{}

// NewDecoder returns a Decoder for 32-bit x86 code.
func NewDecoder() Decoder {
	return Decoder{}
}

// DecodeAll decodes instructions starting at index 0 of buf until the
// decoder runs out of bytes or hits an error, invoking onDecode for each
// instruction decoded. pc is the virtual address of buf[0].
func (Decoder) DecodeAll(buf []byte, pc uint64, onDecode func(inst x86asm.Inst, addr uint64)) error {
	index := 0
	for index < len(buf) {
		inst, err := x86asm.Decode(buf[index:], Mode)
		if err != nil {
			return fmt.Errorf("failed to decode instruction at offset %d: %w", index, err)
		}

		onDecode(inst, pc+uint64(index))
		index += inst.Len
	}

	return nil
}

// DecodeFirst decodes a single instruction at the start of buf.
func (Decoder) DecodeFirst(buf []byte) (x86asm.Inst, error) {
	return x86asm.Decode(buf, Mode)
}

// RetrogradeCandidate is one window size that successfully decoded to a
// single non-RET instruction immediately followed by RET.
type RetrogradeCandidate struct {
	Inst  x86asm.Inst
	Depth int
}

// DecodeRetrograde tries every window size MaxDepth down to 0 bytes ending at
// the RET byte located at buf[retOffset] (inclusive), returning every window
// size that decodes to exactly a non-RET instruction followed by RET, in
// descending depth order. Distinct depths at the same RET offset can each
// decode a different instruction (e.g. a window that starts one byte earlier
// swallows an extra preceding instruction's trailing bytes as a different
// opcode), so every qualifying depth is reported rather than just the first.
// This mirrors the original's retrograde scan, which never stops early after
// a successful decode (original_source/BinAutopsy.cpp's depth loop runs
// MAXDEPTH down to 0 unconditionally).
func DecodeRetrograde(buf []byte, retOffset int) []RetrogradeCandidate {
	var candidates []RetrogradeCandidate

	for depth := MaxDepth; depth >= 0; depth-- {
		start := retOffset - depth + 1
		if start < 0 {
			continue
		}

		window := buf[start : retOffset+1]

		var insts []x86asm.Inst
		index := 0
		for index < len(window) {
			inst, err := x86asm.Decode(window[index:], Mode)
			if err != nil {
				break
			}

			insts = append(insts, inst)
			index += inst.Len

			if len(insts) > 2 {
				break
			}
		}

		if len(insts) == 2 && insts[0].Op != x86asm.RET && insts[1].Op == x86asm.RET {
			candidates = append(candidates, RetrogradeCandidate{Inst: insts[0], Depth: depth})
		}
	}

	return candidates
}
