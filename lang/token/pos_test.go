package token

import "testing"

func TestMakePos(t *testing.T) {
	p := MakePos(12, 34)
	line, col := p.LineCol()
	if line != 12 || col != 34 {
		t.Fatalf("want (12, 34), got (%d, %d)", line, col)
	}
}

func TestPosUnknown(t *testing.T) {
	if !MakePos(0, 5).Unknown() {
		t.Fatal("want unknown pos when line is 0")
	}
	if !MakePos(5, 0).Unknown() {
		t.Fatal("want unknown pos when col is 0")
	}
	if MakePos(1, 1).Unknown() {
		t.Fatal("want known pos when both line and col are set")
	}
}

func TestFileSet(t *testing.T) {
	fset := NewFileSet()
	f := fset.AddFile("chunk.lua")
	if f.Name() != "chunk.lua" {
		t.Fatalf("want chunk.lua, got %s", f.Name())
	}
	if fset.File(MakePos(1, 1)) != f {
		t.Fatal("want the last-added file to be returned")
	}
}
