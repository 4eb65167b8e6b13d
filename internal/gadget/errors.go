package gadget

import "errors"

// ErrUnsupportedOperand is a programmer error: the caller asked to compare
// or classify an operand kind this package does not model (e.g. one that
// isn't register, immediate, or memory).
var ErrUnsupportedOperand = errors.New("gadget: unsupported operand kind")

// Equal reports whether two operands are identical. It returns
// ErrUnsupportedOperand if either operand is KindNone, since there is
// nothing meaningful to compare.
func Equal(a, b Operand) (bool, error) {
	if a.Kind == KindNone || b.Kind == KindNone {
		return false, ErrUnsupportedOperand
	}
	if a.Kind != b.Kind {
		return false, nil
	}

	switch a.Kind {
	case KindReg:
		return a.Reg == b.Reg, nil
	case KindImm:
		return a.Imm == b.Imm, nil
	case KindMem:
		return a.Mem == b.Mem, nil
	default:
		return false, ErrUnsupportedOperand
	}
}
