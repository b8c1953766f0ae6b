package bank

import (
	"bytes"
	"testing"
)

func Test_Dump_RoundTrips(t *testing.T) {
	images := map[string]*Image{
		"rom": {Name: "rom", data: []byte{0xA9, 0x01, 0x60}},
	}
	//
	dump, err := NewDump(images, map[string]string{"platform": "mos6502"})
	if err != nil {
		t.Fatalf("NewDump failed: %v", err)
	}
	//
	encoded, err := dump.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}
	//
	var decoded Dump
	if err := decoded.UnmarshalBinary(encoded); err != nil {
		t.Fatalf("UnmarshalBinary failed: %v", err)
	}
	//
	if !bytes.Equal(decoded.Images["rom"], images["rom"].data) {
		t.Fatalf("expected 'rom' image to round-trip, got %v", decoded.Images["rom"])
	}
	//
	meta, err := decoded.Metadata()
	if err != nil {
		t.Fatalf("Metadata failed: %v", err)
	}
	if meta["platform"] != "mos6502" {
		t.Fatalf("expected metadata platform=mos6502, got %v", meta)
	}
}

func Test_DumpHeader_RejectsIncompatibleMagic(t *testing.T) {
	var d Dump
	if err := d.UnmarshalBinary([]byte("not a valid dump at all")); err == nil {
		t.Fatal("expected an error decoding garbage input")
	}
}
