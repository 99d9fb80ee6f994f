package image

import (
	"testing"

	"github.com/chazu/regvm/runtime"
	"github.com/chazu/regvm/vm"
)

func sampleCode() *vm.RegisterCode {
	b := vm.NewRegisterCodeBuilder(2)
	b.AddConst(runtime.FromSmallInt(41))
	b.AddConst(runtime.NewString("ok"))
	b.AddName("total")
	b.EmitReg(vm.OpReturnValue, 0, 0, 0, 0, 0)
	return b.Build(&runtime.FunctionValue{Name: "sample", ArgCount: 0})
}

func TestPutGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	code := sampleCode()
	key := store.Key([]byte("some stack bytecode blob"))

	if store.Has(key) {
		t.Fatal("expected no cache entry before Put")
	}
	if err := store.Put(key, code); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !store.Has(key) {
		t.Fatal("expected a cache entry after Put")
	}

	got, ok, err := store.Get(key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if got.NumRegisters != code.NumRegisters {
		t.Errorf("NumRegisters = %d, want %d", got.NumRegisters, code.NumRegisters)
	}
	if len(got.Consts) != len(code.Consts) {
		t.Fatalf("got %d consts, want %d", len(got.Consts), len(code.Consts))
	}
	if got.Consts[0].SmallInt() != 41 {
		t.Errorf("const[0] = %v, want smallint 41", got.Consts[0])
	}
	if runtime.GetStringContent(got.Consts[1]) != "ok" {
		t.Errorf("const[1] = %v, want string %q", got.Consts[1], "ok")
	}
	if len(got.Names) != 1 || got.Names[0] != "total" {
		t.Errorf("names = %v, want [total]", got.Names)
	}
	if string(got.Instructions) != string(code.Instructions) {
		t.Errorf("instructions did not round-trip")
	}
}

func TestGetMissReturnsFalse(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	key := store.Key([]byte("never written"))
	_, ok, err := store.Get(key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected a cache miss")
	}
}

func TestKeyIsContentAddressed(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	a := store.Key([]byte("same bytes"))
	b := store.Key([]byte("same bytes"))
	c := store.Key([]byte("different bytes"))
	if a != b {
		t.Error("identical bytecode blobs must produce identical keys")
	}
	if a == c {
		t.Error("distinct bytecode blobs must not collide")
	}
}
