package config

import (
	"testing"

	"github.com/wiz-lang/wiz/pkg/ast"
)

func Test_ParsePath_RoundTrips(t *testing.T) {
	p := ParsePath("linker.fill_byte")
	//
	if got := p.String(); got != "linker.fill_byte" {
		t.Fatalf("expected round-tripped dotted string, got %q", got)
	}
}

func Test_Path_Extend(t *testing.T) {
	p := NewPath("linker").Extend("fill_byte")
	//
	if got := p.String(); got != "linker.fill_byte" {
		t.Fatalf("expected extended path to join with a dot, got %q", got)
	}
}

func Test_Config_NormalizesEquivalentKeys(t *testing.T) {
	c := NewConfig()
	a := &ast.IntegerLiteral{Value: 1}
	b := &ast.IntegerLiteral{Value: 2}
	//
	c.Set("linker.fill_byte", a)
	c.Set(NewPath("linker", "fill_byte").String(), b)
	//
	got, ok := c.Get("linker.fill_byte")
	if !ok || got != ast.Expression(b) {
		t.Fatal("expected the second Set, under an equivalent joined key, to overwrite the first")
	}
	//
	if len(c.Keys()) != 1 {
		t.Fatal("expected the normalized key not to appear twice in Keys")
	}
}
