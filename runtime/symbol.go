package runtime

import "sync"

// SymbolTable interns symbol strings to unique IDs, backing the `names`
// tuple LOAD_ATTR/STORE_ATTR/LOAD_NAME family consult and the
// NaN-boxed symbol tag.
type SymbolTable struct {
	mu     sync.RWMutex
	byName map[string]uint32
	byID   []string
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		byName: make(map[string]uint32),
		byID:   make([]string, 0, 256),
	}
}

// Intern returns the ID for a symbol, creating a new one if needed.
func (st *SymbolTable) Intern(name string) uint32 {
	st.mu.RLock()
	if id, ok := st.byName[name]; ok {
		st.mu.RUnlock()
		return id
	}
	st.mu.RUnlock()

	st.mu.Lock()
	defer st.mu.Unlock()

	if id, ok := st.byName[name]; ok {
		return id
	}

	id := uint32(len(st.byID))
	st.byName[name] = id
	st.byID = append(st.byID, name)
	return id
}

// Lookup returns the ID for a symbol without interning it.
func (st *SymbolTable) Lookup(name string) (uint32, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	id, ok := st.byName[name]
	return id, ok
}

func (st *SymbolTable) Name(id uint32) string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if int(id) >= len(st.byID) {
		return ""
	}
	return st.byID[id]
}

func (st *SymbolTable) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.byID)
}

func (st *SymbolTable) All() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	result := make([]string, len(st.byID))
	copy(result, st.byID)
	return result
}

// SymbolValue interns name and wraps it as a NaN-boxed symbol Value.
func (st *SymbolTable) SymbolValue(name string) Value {
	return FromSymbolID(st.Intern(name))
}
