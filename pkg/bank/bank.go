// Package bank implements the Bank Layout & Assembler (C5, §4.5): the
// two-pass walk over the flat IrNode sequence C4 produces that assigns
// every Label/Func/Var a real address, then re-walks the same sequence
// to emit the final bytes.
//
// Grounded on the teacher's pkg/asm/assembler/linker.go (register
// components, then a second pass that links buses/expressions against
// the now-known registration) for the two-pass shape, and
// pkg/asm/assemble.go's flat-instruction-list-plus-worklist idiom for
// the peephole elision precompute. The concrete domain (byte-addressed
// CPU memory banks rather than a constraint system's register/bus
// allocation) is new.
package bank

import (
	"fmt"

	"github.com/wiz-lang/wiz/pkg/ast"
	"github.com/wiz-lang/wiz/pkg/ir"
	"github.com/wiz-lang/wiz/pkg/platform"
	"github.com/wiz-lang/wiz/pkg/reduce"
	"github.com/wiz-lang/wiz/pkg/report"
	"github.com/wiz-lang/wiz/pkg/source"
	"github.com/wiz-lang/wiz/pkg/symbol"
	"github.com/wiz-lang/wiz/pkg/util/collection/stack"
)

// Assembler drives C5 over the IrNode list C4 (pkg/ir) produced,
// sharing the same Reducer (and through it, Resolver/Report/Platform)
// the rest of the core uses.
type Assembler struct {
	*reduce.Reducer

	images    map[string]*Image
	bankStack *stack.Stack[string]
}

// New constructs an Assembler over an already-populated Reducer.
func New(rd *reduce.Reducer) *Assembler {
	return &Assembler{Reducer: rd, images: map[string]*Image{}}
}

// Images returns every bank image touched during assembly, keyed by bank
// name, once Emit has run.
func (as *Assembler) Images() map[string]*Image {
	return as.images
}

// Layout runs pass 1 (§4.5): walks nodes once, switching banks at
// PushRelocation/PopRelocation, assigning every Label/Func its address,
// and reserving (without writing) the bytes each Code/Var will occupy.
func (as *Assembler) Layout(nodes []ir.Node) {
	as.bankStack = stack.NewStack[string]()
	elided := computeElidedGotos(nodes)
	//
	for i, n := range nodes {
		switch v := n.(type) {
		case *ir.PushRelocation:
			as.pushRelocation(v)
		case *ir.PopRelocation:
			if !as.bankStack.IsEmpty() {
				as.bankStack.Pop()
			}
		case *ir.Label:
			if img, ok := as.currentImage(v.Location()); ok {
				as.layoutLabel(v, img)
			}
		case *ir.Code:
			if elided[i] {
				continue
			}
			//
			if img, ok := as.currentImage(v.Location()); ok {
				as.layoutCode(v, img)
			}
		case *ir.Var:
			if img, ok := as.currentImage(v.Location()); ok {
				as.layoutVar(v, img)
			}
		}
	}
}

// Emit runs pass 2 (§4.5): rewinds every bank touched in pass 1 and
// re-walks nodes, this time producing the final bytes. Labels are
// validated against the address pass 1 already committed to them; Code
// operands are rebuilt now that every address exists, so link-time
// arithmetic (a goto to a forward label, a var's own address used as a
// byte constant, ...) resolves for real.
func (as *Assembler) Emit(nodes []ir.Node) {
	for _, img := range as.images {
		img.pos = 0
	}
	//
	as.bankStack = stack.NewStack[string]()
	elided := computeElidedGotos(nodes)
	//
	for i, n := range nodes {
		switch v := n.(type) {
		case *ir.PushRelocation:
			as.pushRelocation(v)
		case *ir.PopRelocation:
			if !as.bankStack.IsEmpty() {
				as.bankStack.Pop()
			}
		case *ir.Label:
			if img, ok := as.currentImage(v.Location()); ok {
				as.emitLabel(v, img)
			}
		case *ir.Code:
			if elided[i] {
				continue
			}
			//
			if img, ok := as.currentImage(v.Location()); ok {
				as.emitCode(v, img)
			}
		case *ir.Var:
			if img, ok := as.currentImage(v.Location()); ok {
				as.emitVar(v, img)
			}
		}
	}
}

func (as *Assembler) pushRelocation(v *ir.PushRelocation) {
	as.bankStack.Push(v.Bank)
	//
	img, ok := as.currentImage(v.Location())
	if !ok || v.Address == nil {
		return
	}
	//
	reduced, ok := as.Reduce(as.Root(), v.Address)
	if !ok {
		return
	}
	//
	lit, ok := reduced.(*ast.IntegerLiteral)
	if !ok {
		as.Report.Errorf(report.NonConstantInitializer, v.Location(), "bank seek address is not a compile-time constant")
		return
	}
	//
	rel := uint64(lit.Value)
	if img.Origin != nil {
		rel -= *img.Origin
	}
	//
	img.seek(rel)
}

// currentImage resolves the bank named on top of the stack to its
// Image, lazily creating one (and computing its origin) the first time
// a bank is pushed — mirroring pkg/ir's own lazy currentBank lookup,
// since neither phase can precompute every bank up front without
// walking the whole scope tree for no benefit.
func (as *Assembler) currentImage(loc source.Location) (*Image, bool) {
	if as.bankStack.IsEmpty() {
		as.Report.Errorf(report.InternalInvariantViolation, loc, "no active bank")
		return nil, false
	}
	//
	return as.image(as.bankStack.Peek(0), loc)
}

func (as *Assembler) image(name string, loc source.Location) (*Image, bool) {
	if img, ok := as.images[name]; ok {
		return img, true
	}
	//
	def, n := symbol.ResolveIdentifier(as.Root(), []string{name}, loc, as.Report)
	bank, ok := def.(*ast.Bank)
	if !ok || n != 1 || bank.Handle == nil {
		as.Report.Errorf(report.Unresolved, loc, "'%s' is not a bank", name)
		return nil, false
	}
	//
	img := &Image{Name: name, Capacity: bank.Handle.Capacity}
	//
	if bank.AddressExpr != nil {
		if reduced, ok := as.Reduce(as.Root(), bank.AddressExpr); ok {
			if lit, ok := reduced.(*ast.IntegerLiteral); ok {
				origin := uint64(lit.Value)
				img.Origin = &origin
				bank.Handle.Origin = &origin
				//
				as.checkPlatformRange(bank, origin, loc)
			} else {
				as.Report.Errorf(report.NonConstantInitializer, loc, "bank '%s' address is not a compile-time constant", name)
			}
		}
	}
	//
	as.images[name] = img
	return img, true
}

// checkPlatformRange reports BankStartExceedsPlatformRange when a bank's
// computed origin (plus its declared capacity) would run past what the
// platform's own pointer width can address.
func (as *Assembler) checkPlatformRange(bank *ast.Bank, origin uint64, loc source.Location) {
	pt, ok := as.Platform.GetPointerSizedType().(*ast.BuiltinIntegerType)
	if !ok || pt.Max < 0 {
		return
	}
	//
	max := uint64(pt.Max)
	top := origin
	if bank.Handle.Capacity > 0 {
		top = origin + bank.Handle.Capacity - 1
	}
	//
	if top > max {
		as.Report.Errorf(report.BankStartExceedsPlatformRange, loc,
			"bank '%s' at $%X exceeds the platform's addressable range ($%X)", bank.Name(), origin, max)
	}
}

func (as *Assembler) layoutLabel(v *ir.Label, img *Image) {
	abs := img.absolute()
	v.Target.SetAddress(&ast.Address{Bank: img.Name, RelativePosition: img.pos, Absolute: &abs})
}

func (as *Assembler) emitLabel(v *ir.Label, img *Image) {
	addr := v.Target.GetAddress()
	if addr == nil || addr.RelativePosition != img.pos {
		as.Report.Errorf(report.InternalInvariantViolation, v.Location(),
			"label '%s' drifted between layout and emission passes", v.Target.TargetName())
	}
}

func (as *Assembler) layoutCode(v *ir.Code, img *Image) {
	size := v.Entry.Encoding.Size(rawCaptures(v))
	//
	if _, err := img.reserve(uint64(size)); err != nil {
		as.Report.Errorf(report.BankOverflow, v.Location(), "%v", err)
	}
}

func (as *Assembler) emitCode(v *ir.Code, img *Image) {
	operands := make([]platform.InstructionOperand, len(v.Operands))
	for i, root := range v.Operands {
		op, err := as.resolveOperand(root)
		if err != nil {
			as.Report.Errorf(report.InternalInvariantViolation, v.Location(), "%v", err)
			return
		}
		//
		operands[i] = op
	}
	//
	captures := make([][]byte, len(operands))
	for i, op := range operands {
		if i < len(v.Entry.Signature.OperandPatterns) {
			captures[i] = v.Entry.Signature.OperandPatterns[i].Capture(op)
		}
	}
	//
	bytes, err := v.Entry.Encoding.Write(captures, img.absolute())
	if err != nil {
		as.Report.Errorf(report.AddressOutsideRange, v.Location(), "%v", err)
		return
	}
	//
	if err := img.write(img.pos, bytes); err != nil {
		as.Report.Errorf(report.BankOverflow, v.Location(), "%v", err)
		return
	}
	//
	img.pos += uint64(len(bytes))
}

// rawCaptures extracts pass-1 capture bytes straight from the operand
// shapes C4 already built (placeholders and all): every Encoding in this
// core sizes itself from capture length alone, never from the captured
// value, so the placeholder bytes emitted before addresses exist are
// exactly as good as the real ones for sizing purposes.
func rawCaptures(v *ir.Code) [][]byte {
	captures := make([][]byte, len(v.Operands))
	for i, root := range v.Operands {
		if i < len(v.Entry.Signature.OperandPatterns) {
			captures[i] = v.Entry.Signature.OperandPatterns[i].Capture(root.Operand)
		}
	}
	//
	return captures
}

func (as *Assembler) layoutVar(v *ir.Var, img *Image) {
	def := v.Def
	//
	var size uint64
	if def.StorageSize != nil {
		size = *def.StorageSize
	}
	//
	if def.ResolvedAddr != nil && def.ResolvedAddr.Bank == "" && def.ResolvedAddr.Absolute != nil {
		// An explicit `@addr` was recorded by R3 before a bank (and
		// therefore an origin) was known; honor it now as a temporary
		// seek (§4.5 "honoring an explicit @ via temporary seek").
		rel := *def.ResolvedAddr.Absolute
		if img.Origin != nil {
			rel -= *img.Origin
		}
		//
		img.seek(rel)
	}
	//
	start, err := img.reserve(size)
	if err != nil {
		as.Report.Errorf(report.BankOverflow, v.Location(), "%v", err)
		return
	}
	//
	abs := img.absoluteAt(start)
	def.ResolvedAddr = &ast.Address{Bank: img.Name, RelativePosition: start, Absolute: &abs}
}

func (as *Assembler) emitVar(v *ir.Var, img *Image) {
	def := v.Def
	if def.Initializer == nil || def.ResolvedAddr == nil {
		return
	}
	//
	bytes, ok := as.serializeConstantInitializer(def.Initializer, def.ReducedType, v.Location())
	if !ok {
		return
	}
	//
	if err := img.write(def.ResolvedAddr.RelativePosition, bytes); err != nil {
		as.Report.Errorf(report.BankOverflow, v.Location(), "%v", err)
	}
}

// resolveOperand rebuilds the final platform.InstructionOperand for one
// operand root now that addresses exist (§4.5 pass 2: "re-reduces each
// operand... rebuilds the operand list"). A Target-carrying root (a
// goto/branch destination, or a bare variable used as its own address)
// resolves directly off the address pass 1 assigned it; anything else
// is rebuilt structurally from its original expression by resolveExpr,
// mirroring pkg/ir's createOperandFromExpression but substituting a
// variable's real resolved address for the link-time placeholder it
// carried during emission.
func (as *Assembler) resolveOperand(root ir.OperandRoot) (platform.InstructionOperand, error) {
	if root.Target != nil {
		addr := root.Target.GetAddress()
		if addr == nil {
			return nil, fmt.Errorf("'%s' has no resolved address", root.Target.TargetName())
		}
		//
		return platform.Integer{Value: int64(as.absoluteOf(addr))}, nil
	}
	//
	return as.resolveExpr(root.Expr)
}

func (as *Assembler) absoluteOf(addr *ast.Address) uint64 {
	if addr.Absolute != nil {
		return *addr.Absolute
	}
	//
	if img, ok := as.images[addr.Bank]; ok {
		return img.absoluteAt(addr.RelativePosition)
	}
	//
	return addr.RelativePosition
}

func (as *Assembler) resolveExpr(e ast.Expression) (platform.InstructionOperand, error) {
	switch v := e.(type) {
	case *ast.IntegerLiteral:
		return platform.Integer{Value: v.Value}, nil
	case *ast.BooleanLiteral:
		return platform.Boolean{Value: v.Value}, nil
	case *ast.ResolvedIdentifier:
		switch d := v.Definition.(type) {
		case *ast.BuiltinRegister:
			return platform.Register{Definition: d}, nil
		case *ast.Var:
			if d.ResolvedAddr == nil {
				return nil, fmt.Errorf("'%s' has no resolved address", d.Name())
			}
			//
			return platform.Integer{Value: int64(as.absoluteOf(d.ResolvedAddr))}, nil
		case *ast.EnumMember:
			return platform.Integer{Value: d.ResolvedValue}, nil
		default:
			return nil, fmt.Errorf("'%s' does not resolve to an instruction operand", d.Name())
		}
	case *ast.UnaryOperation:
		return as.resolveUnary(v)
	case *ast.BinaryOperation:
		return as.resolveBinary(v)
	case *ast.FieldAccess:
		if v.Index == nil {
			return nil, fmt.Errorf("field access is not a valid instruction operand")
		}
		//
		base, err := as.resolveExpr(v.Operand)
		if err != nil {
			return nil, err
		}
		//
		index, err := as.resolveExpr(v.Index)
		if err != nil {
			return nil, err
		}
		//
		return platform.Index{Base: base, IndexOp: index, Scale: 1, ElementSize: elementSize(v.Info())}, nil
	default:
		return nil, fmt.Errorf("expression does not reduce to an instruction operand")
	}
}

func (as *Assembler) resolveUnary(v *ast.UnaryOperation) (platform.InstructionOperand, error) {
	switch v.Op {
	case ast.UnaryDeref:
		addr, err := as.resolveExpr(v.Operand)
		if err != nil {
			return nil, err
		}
		//
		return platform.Dereference{Address: addr, Size: elementSize(v.Info())}, nil
	case ast.UnaryAddrOf, ast.UnaryFarAddrOf, ast.UnaryGrouping:
		return as.resolveExpr(v.Operand)
	default:
		operand, err := as.resolveExpr(v.Operand)
		if err != nil {
			return nil, err
		}
		//
		return platform.Unary{Op: v.Op, Operand: operand}, nil
	}
}

func (as *Assembler) resolveBinary(v *ast.BinaryOperation) (platform.InstructionOperand, error) {
	if v.Op == ast.BinaryBitIndex {
		value, err := as.resolveExpr(v.Left)
		if err != nil {
			return nil, err
		}
		//
		bit, ok := asConstantUint(v.Right)
		if !ok {
			return nil, fmt.Errorf("bit index is not a compile-time constant")
		}
		//
		return platform.BitIndex{Value: value, Bit: bit}, nil
	}
	//
	left, err := as.resolveExpr(v.Left)
	if err != nil {
		return nil, err
	}
	//
	right, err := as.resolveExpr(v.Right)
	if err != nil {
		return nil, err
	}
	//
	return platform.Binary{Op: v.Op, Left: left, Right: right}, nil
}

func elementSize(info *ast.ExpressionInfo) uint {
	if info == nil || info.Type == nil {
		return 1
	}
	//
	if it, ok := info.Type.(*ast.ResolvedIdentifierType); ok {
		if bt, ok := it.Definition.(*ast.BuiltinIntegerType); ok {
			return bt.SizeBytes
		}
	}
	//
	return 1
}

func asConstantUint(e ast.Expression) (uint, bool) {
	lit, ok := e.(*ast.IntegerLiteral)
	if !ok || lit.Value < 0 {
		return 0, false
	}
	//
	return uint(lit.Value), true
}

// computeElidedGotos marks, by node index, every unconditional-goto Code
// node whose destination is one of the Label nodes immediately following
// it — through any number of same-position labels — so both passes skip
// it entirely (§4.5 "a peephole optimization... deleted").
func computeElidedGotos(nodes []ir.Node) map[int]bool {
	elided := map[int]bool{}
	//
	for i, n := range nodes {
		code, ok := n.(*ir.Code)
		if !ok {
			continue
		}
		//
		if code.Entry.Signature.Kind != platform.OpBranch || code.Entry.Signature.Flag != nil {
			continue
		}
		//
		if len(code.Operands) != 1 || code.Operands[0].Target == nil {
			continue
		}
		//
		target := code.Operands[0].Target
		for j := i + 1; j < len(nodes); j++ {
			label, ok := nodes[j].(*ir.Label)
			if !ok {
				break
			}
			//
			if label.Target == target {
				elided[i] = true
				break
			}
		}
	}
	//
	return elided
}
