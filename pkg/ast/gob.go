package ast

import "encoding/gob"

// init registers every concrete Statement/Expression/TypeExpression/
// Definition variant with the standard encoding/gob, so a []Statement
// program tree can round-trip through gob the same way pkg/bank/dump.go
// gob-encodes its Images map. This is what lets cmd/wizc's "compile"
// subcommand accept a program as a plain file: the parser itself is out
// of this core's scope (spec.md §1), but a gob-encoded statement tree is
// a realistic stand-in a driver or test harness can produce.
func init() {
	gob.Register(&File{})
	gob.Register(&ImportReference{})
	gob.Register(&Attribution{})
	gob.Register(&NamespaceStmt{})
	gob.Register(&LetStmt{})
	gob.Register(&EnumStmt{})
	gob.Register(&StructStmt{})
	gob.Register(&VarStmt{})
	gob.Register(&FuncStmt{})
	gob.Register(&BankStmt{})
	gob.Register(&TypeAliasStmt{})
	gob.Register(&Label{})
	gob.Register(&Branch{})
	gob.Register(&If{})
	gob.Register(&While{})
	gob.Register(&DoWhile{})
	gob.Register(&For{})
	gob.Register(&InlineFor{})
	gob.Register(&ExpressionStmt{})
	gob.Register(&In{})
	gob.Register(&ConfigStmt{})

	gob.Register(&IntegerLiteral{})
	gob.Register(&BooleanLiteral{})
	gob.Register(&StringLiteral{})
	gob.Register(&Identifier{})
	gob.Register(&ResolvedIdentifier{})
	gob.Register(&UnaryOperation{})
	gob.Register(&BinaryOperation{})
	gob.Register(&Call{})
	gob.Register(&Cast{})
	gob.Register(&TupleLiteral{})
	gob.Register(&ArrayLiteral{})
	gob.Register(&StructLiteral{})
	gob.Register(&ArrayPadLiteral{})
	gob.Register(&ArrayComprehension{})
	gob.Register(&RangeLiteral{})
	gob.Register(&FieldAccess{})
	gob.Register(&TypeOf{})
	gob.Register(&TypeQuery{})
	gob.Register(&OffsetOf{})
	gob.Register(&Embed{})
	gob.Register(&SideEffect{})

	gob.Register(&ArrayType{})
	gob.Register(&PointerType{})
	gob.Register(&FunctionType{})
	gob.Register(&TupleType{})
	gob.Register(&IdentifierType{})
	gob.Register(&ResolvedIdentifierType{})
	gob.Register(&TypeOfType{})
	gob.Register(&DesignatedStorageType{})

	gob.Register(&Var{})
	gob.Register(&Func{})
	gob.Register(&Let{})
	gob.Register(&Bank{})
	gob.Register(&Namespace{})
	gob.Register(&Enum{})
	gob.Register(&EnumMember{})
	gob.Register(&Struct{})
	gob.Register(&StructMember{})
	gob.Register(&TypeAlias{})
	gob.Register(&BuiltinRegister{})
	gob.Register(&BuiltinIntegerType{})
	gob.Register(&BuiltinBoolType{})
	gob.Register(&BuiltinBankType{})
	gob.Register(&BuiltinRangeType{})
	gob.Register(&BuiltinVoidIntrinsic{})
	gob.Register(&BuiltinLoadIntrinsic{})
}
