package bank

import (
	"github.com/wiz-lang/wiz/pkg/ast"
	"github.com/wiz-lang/wiz/pkg/report"
	"github.com/wiz-lang/wiz/pkg/source"
)

// serializeConstantInitializer turns a fully-reduced constant expression
// into the little-endian bytes its declared type occupies (§4.5
// "serializeConstantInitializer"): integers per their BuiltinIntegerType
// width, booleans as one byte, array elements sequentially, struct
// members in declaration order, union members padded to the union's
// total size. An expression that never folded down to a literal (the
// reducer leaves a runtime-only node behind, e.g. a register read)
// reports NonConstantInitializer — the closest existing diagnostic kind
// to the "NotAConstant" failure this operation is specified to raise;
// see DESIGN.md.
func (as *Assembler) serializeConstantInitializer(e ast.Expression, t ast.TypeExpression, loc source.Location) ([]byte, bool) {
	switch v := e.(type) {
	case *ast.IntegerLiteral:
		size, ok := as.CalculateStorageSize(t, "initializer")
		if !ok {
			return nil, false
		}
		//
		return littleEndian(uint64(v.Value), size), true
	case *ast.BooleanLiteral:
		if v.Value {
			return []byte{1}, true
		}
		//
		return []byte{0}, true
	case *ast.ResolvedIdentifier:
		if m, ok := v.Definition.(*ast.EnumMember); ok {
			size, ok := as.CalculateStorageSize(t, "initializer")
			if !ok {
				return nil, false
			}
			//
			return littleEndian(uint64(m.ResolvedValue), size), true
		}
		//
		as.Report.Errorf(report.NonConstantInitializer, loc, "initializer is not a compile-time constant")
		return nil, false
	case *ast.TupleLiteral:
		return as.serializeTuple(v, t, loc)
	case *ast.ArrayLiteral:
		return as.serializeArray(v, t, loc)
	case *ast.ArrayPadLiteral:
		return as.serializeArrayPad(v, t, loc)
	case *ast.StructLiteral:
		return as.serializeStruct(v, t, loc)
	default:
		as.Report.Errorf(report.NonConstantInitializer, loc, "initializer is not a compile-time constant")
		return nil, false
	}
}

func (as *Assembler) serializeTuple(v *ast.TupleLiteral, t ast.TypeExpression, loc source.Location) ([]byte, bool) {
	tt, ok := t.(*ast.TupleType)
	if !ok || len(tt.Elements) != len(v.Elements) {
		as.Report.Errorf(report.NonConstantInitializer, loc, "tuple initializer does not match its type")
		return nil, false
	}
	//
	var out []byte
	for i, elem := range v.Elements {
		bytes, ok := as.serializeConstantInitializer(elem, tt.Elements[i], loc)
		if !ok {
			return nil, false
		}
		//
		out = append(out, bytes...)
	}
	//
	return out, true
}

func (as *Assembler) serializeArray(v *ast.ArrayLiteral, t ast.TypeExpression, loc source.Location) ([]byte, bool) {
	at, ok := t.(*ast.ArrayType)
	if !ok {
		as.Report.Errorf(report.NonConstantInitializer, loc, "array initializer does not match its type")
		return nil, false
	}
	//
	var out []byte
	for _, elem := range v.Elements {
		bytes, ok := as.serializeConstantInitializer(elem, at.Element, loc)
		if !ok {
			return nil, false
		}
		//
		out = append(out, bytes...)
	}
	//
	return out, true
}

func (as *Assembler) serializeArrayPad(v *ast.ArrayPadLiteral, t ast.TypeExpression, loc source.Location) ([]byte, bool) {
	at, ok := t.(*ast.ArrayType)
	if !ok {
		as.Report.Errorf(report.NonConstantInitializer, loc, "array-pad initializer does not match its type")
		return nil, false
	}
	//
	count, ok := v.Count.(*ast.IntegerLiteral)
	if !ok {
		as.Report.Errorf(report.NonConstantInitializer, loc, "array-pad count is not a compile-time constant")
		return nil, false
	}
	//
	elemBytes, ok := as.serializeConstantInitializer(v.Value, at.Element, loc)
	if !ok {
		return nil, false
	}
	//
	out := make([]byte, 0, int(count.Value)*len(elemBytes))
	for i := int64(0); i < count.Value; i++ {
		out = append(out, elemBytes...)
	}
	//
	return out, true
}

func (as *Assembler) serializeStruct(v *ast.StructLiteral, t ast.TypeExpression, loc source.Location) ([]byte, bool) {
	sdef, ok := structDefinitionOf(t)
	if !ok {
		as.Report.Errorf(report.NonConstantInitializer, loc, "struct initializer does not match its type")
		return nil, false
	}
	//
	if sdef.Kind == ast.KindUnion {
		return as.serializeUnion(v, sdef, loc)
	}
	//
	var out []byte
	for _, name := range v.FieldOrder {
		member := findMember(sdef, name)
		if member == nil {
			as.Report.Errorf(report.NonConstantInitializer, loc, "'%s' has no member '%s'", sdef.Name(), name)
			return nil, false
		}
		//
		bytes, ok := as.serializeConstantInitializer(v.Fields[name], member.TypeExpr, loc)
		if !ok {
			return nil, false
		}
		//
		out = append(out, bytes...)
	}
	//
	return out, true
}

func (as *Assembler) serializeUnion(v *ast.StructLiteral, sdef *ast.Struct, loc source.Location) ([]byte, bool) {
	if len(v.FieldOrder) != 1 {
		as.Report.Errorf(report.NonConstantInitializer, loc, "union initializer '%s' must set exactly one member", sdef.Name())
		return nil, false
	}
	//
	name := v.FieldOrder[0]
	member := findMember(sdef, name)
	if member == nil {
		as.Report.Errorf(report.NonConstantInitializer, loc, "'%s' has no member '%s'", sdef.Name(), name)
		return nil, false
	}
	//
	bytes, ok := as.serializeConstantInitializer(v.Fields[name], member.TypeExpr, loc)
	if !ok {
		return nil, false
	}
	//
	total := uint64(len(bytes))
	if sdef.TotalSize != nil {
		total = *sdef.TotalSize
	}
	//
	if uint64(len(bytes)) > total {
		as.Report.Errorf(report.NonConstantInitializer, loc, "'%s' member '%s' overflows the union", sdef.Name(), name)
		return nil, false
	}
	//
	padded := make([]byte, total)
	copy(padded, bytes)
	return padded, true
}

func structDefinitionOf(t ast.TypeExpression) (*ast.Struct, bool) {
	rt, ok := t.(*ast.ResolvedIdentifierType)
	if !ok {
		return nil, false
	}
	//
	s, ok := rt.Definition.(*ast.Struct)
	return s, ok
}

func findMember(s *ast.Struct, name string) *ast.StructMember {
	for _, m := range s.Members {
		if m.Name() == name {
			return m
		}
	}
	//
	return nil
}

func littleEndian(v uint64, size uint64) []byte {
	out := make([]byte, size)
	for i := uint64(0); i < size; i++ {
		out[i] = byte(v >> (8 * i))
	}
	//
	return out
}
