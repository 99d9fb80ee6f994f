package statsstore

import (
	"path/filepath"
	"testing"

	"github.com/chazu/regvm/vm"
)

func TestRecordRunAndTotalsByOpcode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	stats := []vm.OpcodeStat{
		{Op: vm.OpBinaryAdd, Count: 10, TotalNanos: 1000},
		{Op: vm.OpReturnValue, Count: 3, TotalNanos: 300},
	}
	if err := store.RecordRun("run-1", stats); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	count, nanos, err := store.TotalsByOpcode(vm.OpBinaryAdd.String())
	if err != nil {
		t.Fatalf("TotalsByOpcode: %v", err)
	}
	if count != 10 || nanos != 1000 {
		t.Errorf("got count=%d nanos=%d, want count=10 nanos=1000", count, nanos)
	}

	// A second run accumulates against the same opcode across runs.
	if err := store.RecordRun("run-2", []vm.OpcodeStat{
		{Op: vm.OpBinaryAdd, Count: 5, TotalNanos: 500},
	}); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	count, nanos, err = store.TotalsByOpcode(vm.OpBinaryAdd.String())
	if err != nil {
		t.Fatalf("TotalsByOpcode: %v", err)
	}
	if count != 15 || nanos != 1500 {
		t.Errorf("got count=%d nanos=%d, want count=15 nanos=1500 across runs", count, nanos)
	}
}

func TestRecordRunReplacesPriorRowsForSameRunID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	if err := store.RecordRun("run-1", []vm.OpcodeStat{
		{Op: vm.OpBinaryAdd, Count: 100, TotalNanos: 9999},
	}); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	// Re-recording the same run ID with different data must replace, not add.
	if err := store.RecordRun("run-1", []vm.OpcodeStat{
		{Op: vm.OpBinaryAdd, Count: 1, TotalNanos: 1},
	}); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	count, nanos, err := store.TotalsByOpcode(vm.OpBinaryAdd.String())
	if err != nil {
		t.Fatalf("TotalsByOpcode: %v", err)
	}
	if count != 1 || nanos != 1 {
		t.Errorf("got count=%d nanos=%d, want count=1 nanos=1 after replace", count, nanos)
	}
}

func TestTotalsByOpcodeUnknownOpcodeIsZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	count, nanos, err := store.TotalsByOpcode("NOT_A_REAL_OPCODE")
	if err != nil {
		t.Fatalf("TotalsByOpcode: %v", err)
	}
	if count != 0 || nanos != 0 {
		t.Errorf("got count=%d nanos=%d, want zeros for an unrecorded opcode", count, nanos)
	}
}
