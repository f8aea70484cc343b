// Package modes holds the mode capability tables of an IRC session.
//
// Every mode character maps to a Definition carrying its kind and a flag bit.
// Flag bits are allocated per (scope, kind) table and are never reused or
// changed once handed out, so a bitmask stored in channel or client state
// stays meaningful for the whole session even as the server advertises new
// modes through ISUPPORT or sends characters the client has never seen.
package modes

import (
	"fmt"
	"strings"

	"github.com/yourusername/modewatch/internal/errors"
	"github.com/yourusername/modewatch/internal/output"
)

// MaxFlags is the number of flag bits available in each table
const MaxFlags = 64

// Kind is the parameter behaviour of a mode. Kinds are ordered from least to
// most specific; a character defined in several kinds resolves to the most
// specific one.
type Kind int

const (
	// Boolean modes are a single flag with no parameter
	Boolean Kind = iota
	// Parameter modes carry a value when set
	Parameter
	// List modes hold a set of entries, such as bans
	List
	// Prefix modes are per-member status flags, such as op or voice
	Prefix
)

// String returns the name of the kind
func (k Kind) String() string {
	switch k {
	case Boolean:
		return "boolean"
	case Parameter:
		return "parameter"
	case List:
		return "list"
	case Prefix:
		return "prefix"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Scope selects channel or user mode tables
type Scope int

const (
	// Channel scope covers modes set on channels and their members
	Channel Scope = iota
	// User scope covers modes set on a client's own connection
	User
)

// String returns the name of the scope
func (s Scope) String() string {
	if s == User {
		return "user"
	}
	return "channel"
}

// Definition describes one mode character
type Definition struct {
	Code  byte
	Kind  Kind
	Flag  uint64
	Scope Scope

	// UnsetTakesParam is set for parameter modes that consume a parameter on
	// removal too, such as the channel key
	UnsetTakesParam bool

	// Symbol is the NAMES prefix of a prefix mode, such as '@' for op
	Symbol byte
}

type tableKey struct {
	scope Scope
	kind  Kind
}

type activeKey struct {
	scope Scope
	code  byte
}

// table holds the definitions of one (scope, kind) pair in registration order
type table struct {
	defs  map[byte]Definition
	order []byte
	next  uint
}

func newTable() *table {
	return &table{defs: make(map[byte]Definition)}
}

// allocate hands out the next unused flag bit
func (t *table) allocate() (uint64, bool) {
	if t.next >= MaxFlags {
		return 0, false
	}
	flag := uint64(1) << t.next
	t.next++
	return flag, true
}

// Registry maps mode characters to definitions. It is append-only: a
// character can be moved to a different kind (through ISUPPORT) but the flag
// it already holds in its previous table is never invalidated.
type Registry struct {
	tables      map[tableKey]*table
	active      map[activeKey]Kind
	prefixOrder []byte // rank order from the latest PREFIX token
	chanTypes   string
	caseMapping string
	logger      output.Logger
}

// NewRegistry creates an empty registry. Use LoadDefaults or ApplyISupport to
// populate it.
func NewRegistry(logger output.Logger) *Registry {
	if logger == nil {
		logger = output.NopLogger{}
	}
	return &Registry{
		tables:      make(map[tableKey]*table),
		active:      make(map[activeKey]Kind),
		chanTypes:   "#&",
		caseMapping: "rfc1459",
		logger:      logger,
	}
}

func (r *Registry) table(scope Scope, kind Kind) *table {
	key := tableKey{scope: scope, kind: kind}
	t, ok := r.tables[key]
	if !ok {
		t = newTable()
		r.tables[key] = t
	}
	return t
}

// Classify looks a character up in one specific table
func (r *Registry) Classify(scope Scope, kind Kind, code byte) (Definition, bool) {
	t, ok := r.tables[tableKey{scope: scope, kind: kind}]
	if !ok {
		return Definition{}, false
	}
	def, ok := t.defs[code]
	return def, ok
}

// Lookup returns the definition a character currently resolves to in scope
func (r *Registry) Lookup(scope Scope, code byte) (Definition, bool) {
	kind, ok := r.active[activeKey{scope: scope, code: code}]
	if !ok {
		return Definition{}, false
	}
	return r.Classify(scope, kind, code)
}

// Define registers a character in the given table, or returns its existing
// definition there. The character resolves to that kind afterwards unless it
// is already active as a more specific kind.
func (r *Registry) Define(scope Scope, kind Kind, code byte) (Definition, error) {
	t := r.table(scope, kind)
	if def, ok := t.defs[code]; ok {
		r.activate(scope, kind, code)
		return def, nil
	}

	flag, ok := t.allocate()
	if !ok {
		return Definition{}, errors.NewCapacityError(tableName(scope, kind), code)
	}

	def := Definition{Code: code, Kind: kind, Flag: flag, Scope: scope}
	t.defs[code] = def
	t.order = append(t.order, code)
	r.activate(scope, kind, code)
	return def, nil
}

// activate makes code resolve to kind unless it already resolves to a more
// specific kind (prefix > list > parameter > boolean)
func (r *Registry) activate(scope Scope, kind Kind, code byte) {
	key := activeKey{scope: scope, code: code}
	if current, ok := r.active[key]; ok && current > kind {
		return
	}
	r.active[key] = kind
}

// demote makes code resolve to the most specific kind below prefix it still
// has a definition in, or forgets it when there is none
func (r *Registry) demote(scope Scope, code byte) {
	key := activeKey{scope: scope, code: code}
	for kind := List; kind >= Boolean; kind-- {
		if _, ok := r.Classify(scope, kind, code); ok {
			r.active[key] = kind
			return
		}
	}
	delete(r.active, key)
}

// DefineParameter registers a channel parameter mode and records whether
// removing it consumes a parameter
func (r *Registry) DefineParameter(code byte, unsetTakesParam bool) (Definition, error) {
	def, err := r.Define(Channel, Parameter, code)
	if err != nil {
		return def, err
	}
	def.UnsetTakesParam = unsetTakesParam
	r.tables[tableKey{scope: Channel, kind: Parameter}].defs[code] = def
	return def, nil
}

// DefinePrefix registers a channel prefix mode with its NAMES symbol
func (r *Registry) DefinePrefix(code, symbol byte) (Definition, error) {
	def, err := r.Define(Channel, Prefix, code)
	if err != nil {
		return def, err
	}
	def.Symbol = symbol
	r.tables[tableKey{scope: Channel, kind: Prefix}].defs[code] = def
	return def, nil
}

// RegisterUnknown registers a character the server used without advertising.
// Calling it again for the same character returns the same definition.
func (r *Registry) RegisterUnknown(scope Scope, kind Kind, code byte) (Definition, error) {
	if def, ok := r.Classify(scope, kind, code); ok {
		return def, nil
	}

	def, err := r.Define(scope, kind, code)
	if err != nil {
		r.logger.Error("Cannot register %s mode '%c': %v", scope, code, err)
		return def, err
	}

	r.logger.Warning("Registered unknown %s %s mode '%c' with flag %#x", scope, kind, code, def.Flag)
	return def, nil
}

// Definitions returns the definitions of one table in registration order
func (r *Registry) Definitions(scope Scope, kind Kind) []Definition {
	t, ok := r.tables[tableKey{scope: scope, kind: kind}]
	if !ok {
		return nil
	}
	defs := make([]Definition, 0, len(t.order))
	for _, code := range t.order {
		defs = append(defs, t.defs[code])
	}
	return defs
}

// ModeString renders the characters of a table whose flags are set in mask,
// as a +-prefixed mode string. It returns "" when no flag is set.
func (r *Registry) ModeString(scope Scope, kind Kind, mask uint64) string {
	var sb strings.Builder
	for _, def := range r.Definitions(scope, kind) {
		if mask&def.Flag != 0 {
			sb.WriteByte(def.Code)
		}
	}
	if sb.Len() == 0 {
		return ""
	}
	return "+" + sb.String()
}

// PrefixBySymbol resolves a NAMES symbol such as '@' to its prefix mode
func (r *Registry) PrefixBySymbol(symbol byte) (Definition, bool) {
	for _, def := range r.rankedPrefixes() {
		if def.Symbol == symbol {
			return def, true
		}
	}
	return Definition{}, false
}

// StatusSymbols renders a member's status mask as NAMES symbols, highest rank first
func (r *Registry) StatusSymbols(mask uint64) string {
	var sb strings.Builder
	for _, def := range r.rankedPrefixes() {
		if mask&def.Flag != 0 && def.Symbol != 0 {
			sb.WriteByte(def.Symbol)
		}
	}
	return sb.String()
}

// rankedPrefixes returns the active prefix modes in PREFIX rank order
func (r *Registry) rankedPrefixes() []Definition {
	defs := make([]Definition, 0, len(r.prefixOrder))
	for _, code := range r.prefixOrder {
		if def, ok := r.Classify(Channel, Prefix, code); ok && r.isActive(def) {
			defs = append(defs, def)
		}
	}
	return defs
}

// IsChannel reports whether name starts with one of the channel type characters
func (r *Registry) IsChannel(name string) bool {
	return name != "" && strings.IndexByte(r.chanTypes, name[0]) >= 0
}

// ChanTypes returns the channel type characters in effect
func (r *Registry) ChanTypes() string {
	return r.chanTypes
}

func (r *Registry) isActive(def Definition) bool {
	kind, ok := r.active[activeKey{scope: def.Scope, code: def.Code}]
	return ok && kind == def.Kind
}

func tableName(scope Scope, kind Kind) string {
	return scope.String() + " " + kind.String()
}
