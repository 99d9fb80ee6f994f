// Package image persists compiled RegisterCode to disk across process
// restarts. Package vm's lazy-compile path does not consult it: a function
// is compiled once per process, on first observed call, and memoised in
// memory. Entries are content-addressed: the cache key is a UUID v5 derived
// from the function's stack-bytecode blob, so two processes that compile
// the same function body independently agree on where to find (or write)
// the cached artifact without coordination.
package image

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/chazu/regvm/runtime"
	"github.com/chazu/regvm/vm"
)

// cacheNamespace roots every content-addressed key this package mints, so
// cache files never collide with UUIDs minted for an unrelated purpose.
var cacheNamespace = uuid.MustParse("6f9e2b1a-2f0e-4f4f-9a8e-2a9b7d9c3e10")

// wireConst is the on-disk representation of a RegisterCode constant. A
// raw NaN-boxed runtime.Value is not portable across processes (object-
// tagged values embed a live heap pointer), so constants are re-expressed
// in this small tagged form and reconstructed on load.
type wireConst struct {
	Kind byte    `cbor:"k"`
	I    int64   `cbor:"i,omitempty"`
	F    float64 `cbor:"f,omitempty"`
	S    string  `cbor:"s,omitempty"`
}

const (
	wireConstNone byte = iota
	wireConstTrue
	wireConstFalse
	wireConstInt
	wireConstFloat
	wireConstString
)

type wireCode struct {
	Instructions []byte      `cbor:"ins"`
	NumRegisters int         `cbor:"nr"`
	Consts       []wireConst `cbor:"c"`
	Names        []string    `cbor:"n"`
	NumCells     int         `cbor:"nc"`
}

// Store is an on-disk cache rooted at Dir. Zero value is invalid; use
// NewStore.
type Store struct {
	dir     string
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewStore opens (creating if necessary) a cache directory at dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("image: creating cache dir: %w", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("image: zstd writer: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("image: zstd reader: %w", err)
	}
	return &Store{dir: dir, encoder: enc, decoder: dec}, nil
}

// Close releases the store's zstd resources.
func (s *Store) Close() {
	s.encoder.Close()
	s.decoder.Close()
}

// Key computes the content-addressed cache key for a raw stack-bytecode
// blob. Neither package compiler nor package vm calls it.
func (s *Store) Key(stackBytecode []byte) uuid.UUID {
	return uuid.NewSHA1(cacheNamespace, stackBytecode)
}

func (s *Store) path(key uuid.UUID) string {
	return filepath.Join(s.dir, key.String()+".rc")
}

// Put writes code to the cache under key, compressing the CBOR encoding
// with zstd.
func (s *Store) Put(key uuid.UUID, code *vm.RegisterCode) error {
	wc := toWire(code)
	raw, err := cbor.Marshal(wc)
	if err != nil {
		return fmt.Errorf("image: cbor marshal: %w", err)
	}
	compressed := s.encoder.EncodeAll(raw, nil)
	return os.WriteFile(s.path(key), compressed, 0o644)
}

// Get reads and decodes the RegisterCode cached under key, if present.
func (s *Store) Get(key uuid.UUID) (*vm.RegisterCode, bool, error) {
	compressed, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("image: read cache entry: %w", err)
	}
	raw, err := s.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, false, fmt.Errorf("image: zstd decode: %w", err)
	}
	var wc wireCode
	if err := cbor.Unmarshal(raw, &wc); err != nil {
		return nil, false, fmt.Errorf("image: cbor unmarshal: %w", err)
	}
	return fromWire(&wc), true, nil
}

// Has reports whether a cache entry exists for key without decoding it.
func (s *Store) Has(key uuid.UUID) bool {
	_, err := os.Stat(s.path(key))
	return err == nil
}

func toWire(code *vm.RegisterCode) *wireCode {
	wc := &wireCode{
		Instructions: bytes.Clone(code.Instructions),
		NumRegisters: code.NumRegisters,
		Names:        append([]string(nil), code.Names...),
		NumCells:     code.NumCells,
	}
	wc.Consts = make([]wireConst, len(code.Consts))
	for i, c := range code.Consts {
		wc.Consts[i] = constToWire(c)
	}
	return wc
}

func fromWire(wc *wireCode) *vm.RegisterCode {
	consts := make([]runtime.Value, len(wc.Consts))
	for i, c := range wc.Consts {
		consts[i] = constFromWire(c)
	}
	return &vm.RegisterCode{
		Instructions: wc.Instructions,
		NumRegisters: wc.NumRegisters,
		Consts:       consts,
		Names:        wc.Names,
		NumCells:     wc.NumCells,
	}
}

func constToWire(v runtime.Value) wireConst {
	switch {
	case v == runtime.Nil:
		return wireConst{Kind: wireConstNone}
	case v == runtime.True:
		return wireConst{Kind: wireConstTrue}
	case v == runtime.False:
		return wireConst{Kind: wireConstFalse}
	case v.IsSmallInt():
		return wireConst{Kind: wireConstInt, I: v.SmallInt()}
	case v.IsFloat():
		return wireConst{Kind: wireConstFloat, F: v.Float64()}
	case runtime.IsStringValue(v):
		return wireConst{Kind: wireConstString, S: runtime.GetStringContent(v)}
	default:
		// Non-literal constants (tuples, functions, ...) are not expected
		// in a cached function's consts pool; fall back to None rather
		// than fail the whole cache write.
		return wireConst{Kind: wireConstNone}
	}
}

func constFromWire(c wireConst) runtime.Value {
	switch c.Kind {
	case wireConstTrue:
		return runtime.True
	case wireConstFalse:
		return runtime.False
	case wireConstInt:
		return runtime.FromSmallInt(c.I)
	case wireConstFloat:
		return runtime.FromFloat64(c.F)
	case wireConstString:
		return runtime.NewString(c.S)
	default:
		return runtime.Nil
	}
}
