// Package mos6502 is a sample Platform plug-in (§6) for the 6502 family,
// grounded on the opcode/addressing-mode tables of beevik/go6502 and
// newhook/6502 (see other_examples/02899b48_beevik-go6502__instructions.go.go
// and 39ca82d7_beevik-go6502__cpu-instructions.go.go) — reworked from a
// runtime CPU emulator's dispatch table into a compile-time instruction
// pattern table matched by pkg/platform.Table. It exists to exercise the
// instruction selector (C4) and assembler (C5) against a real, familiar
// CPU rather than only through mocks.
package mos6502

import (
	"fmt"
	"math/big"

	"github.com/wiz-lang/wiz/pkg/ast"
	"github.com/wiz-lang/wiz/pkg/platform"
	"github.com/wiz-lang/wiz/pkg/source"
)

// Platform implements platform.Platform for the baseline NMOS 6502: an
// 8-bit accumulator and index registers, a 16-bit address bus, no mode
// switching (unlike the 65816 this spec's other platforms target).
type Platform struct {
	table *platform.Table
	a, x, y *ast.BuiltinRegister
	zero, carry *ast.BuiltinRegister
	u8 *ast.BuiltinIntegerType
}

// New constructs the 6502 platform plug-in. The instruction table is
// not populated until ReserveDefinitions runs, since several entries
// (BEQ/BNE) are keyed by the zero-flag Definition that ReserveDefinitions
// allocates.
func New() *Platform {
	p := &Platform{}
	p.table = platform.NewTable()
	//
	return p
}

// Name implements platform.Platform.
func (p *Platform) Name() string { return "mos6502" }

// ReserveDefinitions implements platform.Platform: seeds registers A/X/Y,
// the zero and carry flags, and the 8-bit integer type `u8`, per §6
// "seeds the builtin scope with registers, intrinsics, integer types,
// mode attributes".
func (p *Platform) ReserveDefinitions(scope platform.BuiltinScope) {
	loc := source.Location{}
	//
	p.u8 = ast.NewBuiltinIntegerType(loc, "u8", 1, 0, 0xFF, false)
	scope.Define("u8", p.u8)
	//
	p.a = ast.NewBuiltinRegister(loc, "a", 8, false)
	scope.Define("a", p.a)
	//
	p.x = ast.NewBuiltinRegister(loc, "x", 8, false)
	scope.Define("x", p.x)
	//
	p.y = ast.NewBuiltinRegister(loc, "y", 8, false)
	scope.Define("y", p.y)
	//
	p.zero = ast.NewBuiltinRegister(loc, "zero", 1, true)
	scope.Define("zero", p.zero)
	//
	p.carry = ast.NewBuiltinRegister(loc, "carry", 1, true)
	scope.Define("carry", p.carry)
	//
	registerOpcodes(p, p.table)
}

// GetPointerSizedType implements platform.Platform: the 6502's address
// bus is 16 bits wide.
func (p *Platform) GetPointerSizedType() ast.Definition {
	return &ast.BuiltinIntegerType{SizeBytes: 2, Min: 0, Max: 0xFFFF}
}

// GetFarPointerSizedType implements platform.Platform. The baseline 6502
// has no bank-switched far pointers; a far pointer is simply a pointer
// plus one bank byte.
func (p *Platform) GetFarPointerSizedType() ast.Definition {
	return &ast.BuiltinIntegerType{SizeBytes: 3, Min: 0, Max: 0xFFFFFF}
}

// GetPlaceholderValue implements platform.Platform: $AAAA is a
// recognizable, distinctively non-zero 16-bit placeholder bit pattern.
func (p *Platform) GetPlaceholderValue() *platform.Int128 {
	return big.NewInt(0xAAAA)
}

// GetZeroFlag implements platform.Platform: the 6502's Z flag is set by
// most arithmetic/logical/transfer instructions, so for-loop lowering
// can rely on it rather than emitting an explicit CMP #0.
func (p *Platform) GetZeroFlag() (ast.Definition, bool) {
	return p.zero, true
}

// GetTestAndBranch implements platform.Platform's §4.4.1 protocol for
// equality and inequality only: CMP followed by BEQ or BNE on the zero
// flag. Every other operator reports no test-and-branch.
func (p *Platform) GetTestAndBranch(
	op ast.BinaryOperator, left, right platform.InstructionOperand, distanceHint int,
) (platform.TestAndBranch, bool) {
	switch op {
	case ast.BinaryEq:
		return platform.TestAndBranch{
			TestInstructionType: "CMP",
			TestOperands:        []platform.InstructionOperand{left, right},
			Branches: []platform.BranchDescriptor{
				{Flag: p.zero, SuccessIfFlagEquals: true, Taken: true},
			},
		}, true
	case ast.BinaryNotEq:
		return platform.TestAndBranch{
			TestInstructionType: "CMP",
			TestOperands:        []platform.InstructionOperand{left, right},
			Branches: []platform.BranchDescriptor{
				{Flag: p.zero, SuccessIfFlagEquals: false, Taken: true},
			},
		}, true
	default:
		// The baseline 6502 has no direct </<=/>/>= test; the selector
		// falls back to commutative flips and then structural
		// decomposition per §4.4.1.
		return platform.TestAndBranch{}, false
	}
}

// InstructionTable implements platform.Platform.
func (p *Platform) InstructionTable() *platform.Table {
	return p.table
}

func registerOpcodes(p *Platform, t *platform.Table) {
	mode := platform.NewModeMask()
	//
	// LDA #imm / STA addr — the canonical load/store pair used by
	// assignment lowering.
	t.Add(platform.Entry{
		Signature: platform.Signature{Kind: platform.OpBinary, BinaryOp: ast.BinaryAssign, ModeMask: mode,
			OperandPatterns: []platform.OperandPattern{isRegisterA, isImmediateByte}},
		Encoding: fixedOpcode(0xA9, 1),
	})
	t.Add(platform.Entry{
		Signature: platform.Signature{Kind: platform.OpBinary, BinaryOp: ast.BinaryAssign, ModeMask: mode,
			OperandPatterns: []platform.OperandPattern{isAbsoluteAddress, isRegisterA}},
		Encoding: fixedOpcode(0x8D, 2),
	})
	// ADC #imm — one of the arithmetic binary operators.
	t.Add(platform.Entry{
		Signature: platform.Signature{Kind: platform.OpBinary, BinaryOp: ast.BinaryAdd, ModeMask: mode,
			OperandPatterns: []platform.OperandPattern{isRegisterA, isImmediateByte}},
		Encoding: fixedOpcode(0x69, 1),
	})
	// INC addr — the unary increment form for..next step lowering reaches
	// for. There is no DEC entry.
	t.Add(platform.Entry{
		Signature: platform.Signature{Kind: platform.OpUnary, UnaryOp: ast.UnaryPos, ModeMask: mode,
			OperandPatterns: []platform.OperandPattern{isAbsoluteAddress}},
		Encoding: fixedOpcode(0xEE, 2),
	})
	// JMP addr — unconditional goto.
	t.Add(platform.Entry{
		Signature: platform.Signature{Kind: platform.OpBranch, ModeMask: mode,
			OperandPatterns: []platform.OperandPattern{isAbsoluteAddress}},
		Encoding: fixedOpcode(0x4C, 2),
	})
	// CMP #imm (immediate form only) — the test half of GetTestAndBranch's Eq/NotEq
	// protocol, looked up by the selector under the original comparison
	// operator rather than under its own mnemonic.
	t.Add(platform.Entry{
		Signature: platform.Signature{Kind: platform.OpBinary, BinaryOp: ast.BinaryEq, ModeMask: mode,
			OperandPatterns: []platform.OperandPattern{isRegisterA, isImmediateByte}},
		Encoding: fixedOpcode(0xC9, 1),
	})
	t.Add(platform.Entry{
		Signature: platform.Signature{Kind: platform.OpBinary, BinaryOp: ast.BinaryNotEq, ModeMask: mode,
			OperandPatterns: []platform.OperandPattern{isRegisterA, isImmediateByte}},
		Encoding: fixedOpcode(0xC9, 1),
	})
	// BEQ rel — taken when Z is set, the "left == right" case.
	t.Add(platform.Entry{
		Signature: platform.Signature{Kind: platform.OpBranch, Flag: p.zero, FlagEquals: true, ModeMask: mode,
			OperandPatterns: []platform.OperandPattern{isRelativeAddress}},
		Encoding: relativeOpcode(0xF0),
	})
	// BNE rel — taken when Z is clear, the "left != right" case.
	t.Add(platform.Entry{
		Signature: platform.Signature{Kind: platform.OpBranch, Flag: p.zero, FlagEquals: false, ModeMask: mode,
			OperandPatterns: []platform.OperandPattern{isRelativeAddress}},
		Encoding: relativeOpcode(0xD0),
	})
	// RTS — a bare, operandless OpBranch entry distinguishes the
	// physical function return from JMP by operand count alone.
	t.Add(platform.Entry{
		Signature: platform.Signature{Kind: platform.OpBranch, ModeMask: mode},
		Encoding:  fixedOpcode(0x60, 0),
	})
}

var isRegisterA = platform.OperandPattern{
	Matches: func(o platform.InstructionOperand) bool {
		r, ok := o.(platform.Register)
		return ok && r.Definition != nil && r.Definition.Name() == "a"
	},
	Capture: func(platform.InstructionOperand) []byte { return nil },
}

var isImmediateByte = platform.OperandPattern{
	Matches: func(o platform.InstructionOperand) bool {
		i, ok := o.(platform.Integer)
		return ok && i.Value >= 0 && i.Value <= 0xFF
	},
	Capture: func(o platform.InstructionOperand) []byte {
		return []byte{byte(o.(platform.Integer).Value)}
	},
}

var isAbsoluteAddress = platform.OperandPattern{
	Matches: func(o platform.InstructionOperand) bool {
		switch v := o.(type) {
		case platform.Integer:
			return v.Value >= 0 && v.Value <= 0xFFFF
		case platform.Dereference:
			return !v.Far
		default:
			return false
		}
	},
	Capture: func(o platform.InstructionOperand) []byte {
		v, _ := o.(platform.Integer)
		return []byte{byte(v.Value), byte(v.Value >> 8)}
	},
}

var isRelativeAddress = platform.OperandPattern{
	Matches: func(o platform.InstructionOperand) bool {
		_, ok := o.(platform.Integer)
		return ok
	},
	Capture: func(o platform.InstructionOperand) []byte {
		v, _ := o.(platform.Integer)
		return []byte{byte(v.Value), byte(v.Value >> 8)}
	},
}

// fixedOpcode implements a fixed-size opcode-byte-plus-operand-bytes
// encoding, the common case for everything but PC-relative branches.
type fixedEncoding struct {
	opcode byte
	operandSize int
}

func fixedOpcode(opcode byte, operandSize int) platform.Encoding {
	return fixedEncoding{opcode, operandSize}
}

func (e fixedEncoding) Size([][]byte) int { return 1 + e.operandSize }

func (e fixedEncoding) Write(captures [][]byte, address uint64) ([]byte, error) {
	out := []byte{e.opcode}
	for _, c := range captures {
		out = append(out, c...)
	}
	//
	if len(out) != e.Size(captures) {
		return nil, fmt.Errorf("mos6502: encoded length %d does not match declared size %d", len(out), e.Size(captures))
	}
	//
	return out, nil
}

// relativeEncoding implements an 8-bit PC-relative branch, computing
// target - (pc + instrLen) and verifying it fits a signed byte (§4.5
// pass 2: "PC-relative encodings compute target − (pc + instrLen) and
// verify it fits the signed range they support").
type relativeEncoding struct {
	opcode byte
}

func relativeOpcode(opcode byte) platform.Encoding {
	return relativeEncoding{opcode}
}

func (relativeEncoding) Size([][]byte) int { return 2 }

func (e relativeEncoding) Write(captures [][]byte, address uint64) ([]byte, error) {
	if len(captures) != 1 || len(captures[0]) != 2 {
		return nil, fmt.Errorf("mos6502: relative branch expects one 16-bit target capture")
	}
	//
	target := int64(captures[0][0]) | int64(captures[0][1])<<8
	offset := target - (int64(address) + 2)
	//
	if offset < -128 || offset > 127 {
		return nil, fmt.Errorf("mos6502: branch target out of range (%d)", offset)
	}
	//
	return []byte{e.opcode, byte(int8(offset))}, nil
}
