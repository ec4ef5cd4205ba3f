// Package settings exposes the configuration record by name.
//
// Every field descriptor of the layout package is registered under its
// dotted name ("network.ip", "port2.universe", "sacn.preview") with a text
// codec, so the shell, daemon flags and settings documents all drive the
// store through the same typed setters:
//
//	reg := settings.New(st)
//	reg.Set("sacn.priority", "120")
//	reg.Apply([]byte("network:\n  dhcp: true\n"))
package settings

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/xtxerr/dmxnode/internal/errors"
	"github.com/xtxerr/dmxnode/internal/layout"
	"github.com/xtxerr/dmxnode/internal/logging"
	"github.com/xtxerr/dmxnode/internal/storage/store"
	"github.com/xtxerr/dmxnode/internal/validation"
)

var log = logging.Component("settings")

// Kind is the text encoding of a setting.
type Kind int

const (
	KindInteger Kind = iota
	KindIPv4
	KindCID
	KindTimecode
	KindText
	KindList
	KindFlag
)

var kindNames = map[Kind]string{
	KindInteger:  "integer",
	KindIPv4:     "ipv4",
	KindCID:      "uuid",
	KindTimecode: "timecode",
	KindText:     "text",
	KindList:     "list",
	KindFlag:     "flag",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// byte and uint8 are the same type, so these byte-array fields are told
// apart by name.
var (
	textFields = map[string]bool{
		layout.IdentityShortName.Name(): true,
		layout.IdentityLongName.Name():  true,
		layout.NetworkHostname.Name():   true,
		layout.SACNSourceName.Name():    true,
		layout.RdmDeviceLabel.Name():    true,
	}
	timecodeFields = map[string]bool{
		layout.LtcStartFrame.Name(): true,
		layout.LtcStopFrame.Name():  true,
	}
)

// Info describes one setting.
type Info struct {
	Name     string
	Sub      layout.SubRecordID
	Kind     Kind
	Default  string
	Capacity int
}

type entry struct {
	info  Info
	get   func(s *store.Store) string
	value func(s *store.Store) any
	set   func(s *store.Store, items []string) (bool, error)
}

// Registry maps setting names to typed accessors of one store.
type Registry struct {
	st      *store.Store
	entries map[string]*entry
	order   []string
}

// New registers every layout descriptor against st.
func New(st *store.Store) *Registry {
	r := &Registry{
		st:      st,
		entries: make(map[string]*entry),
	}
	for _, d := range layout.Fields() {
		r.add(d)
	}
	return r
}

func (r *Registry) add(d layout.Descriptor) {
	if _, err := validation.ParseSettingName(d.Name()); err != nil {
		panic(fmt.Sprintf("settings: descriptor %q: %v", d.Name(), err))
	}

	var e *entry

	switch f := d.(type) {
	case layout.Flag:
		e = flagEntry(f)
	case layout.Field[uint8]:
		e = integerEntry(f)
	case layout.Field[uint16]:
		e = integerEntry(f)
	case layout.Field[uint32]:
		e = integerEntry(f)
	case layout.Field[int16]:
		e = integerEntry(f)
	case layout.Field[[4]byte]:
		if timecodeFields[f.Name()] {
			e = scalarEntry(f, KindTimecode, parseTimecode, formatTimecode)
		} else {
			e = scalarEntry(f, KindIPv4, parseIPv4, formatIPv4)
		}
	case layout.Field[[16]byte]:
		e = scalarEntry(f, KindCID, parseCID, formatCID)
	case layout.ArrayField[byte]:
		if textFields[f.Name()] {
			e = textEntry(f)
		} else {
			e = listEntry(f, parseInteger[byte], formatInteger[byte], ints[byte])
		}
	case layout.ArrayField[uint16]:
		e = listEntry(f, parseInteger[uint16], formatInteger[uint16], ints[uint16])
	case layout.ArrayField[int16]:
		e = listEntry(f, parseInteger[int16], formatInteger[int16], ints[int16])
	case layout.ArrayField[[4]byte]:
		e = listEntry(f, parseIPv4, formatIPv4, func(v [][4]byte) any {
			out := make([]string, len(v))
			for i := range v {
				out[i] = formatIPv4(v[i])
			}
			return out
		})
	default:
		// A new descriptor type in the layout package needs a codec here.
		panic(fmt.Sprintf("settings: unsupported descriptor %T (%s)", d, d.Name()))
	}

	r.entries[e.info.Name] = e
	r.order = append(r.order, e.info.Name)
}

// =============================================================================
// Entry constructors
// =============================================================================

func scalarEntry[T comparable](f layout.Field[T], kind Kind, parse func(string, string) (T, error), format func(T) string) *entry {
	return &entry{
		info: Info{Name: f.Name(), Sub: f.Sub(), Kind: kind, Default: format(f.Default()), Capacity: 1},
		get: func(s *store.Store) string {
			return format(store.ValueOrDefault(s, f))
		},
		value: func(s *store.Store) any {
			return format(store.Get(s, f))
		},
		set: func(s *store.Store, items []string) (bool, error) {
			if len(items) != 1 {
				return false, errors.NewInvalidValue(f.Name(), strings.Join(items, ","), "expected a single value")
			}
			v, err := parse(f.Name(), items[0])
			if err != nil {
				return false, err
			}
			return store.Update(s, f, v), nil
		},
	}
}

func integerEntry[T integer](f layout.Field[T]) *entry {
	e := scalarEntry(f, KindInteger, parseInteger[T], formatInteger[T])
	e.value = func(s *store.Store) any {
		return int64(store.Get(s, f))
	}
	return e
}

func textEntry(f layout.ArrayField[byte]) *entry {
	capacity := f.Cap()
	return &entry{
		info: Info{Name: f.Name(), Sub: f.Sub(), Kind: KindText, Capacity: capacity},
		get: func(s *store.Store) string {
			return store.GetString(s, f)
		},
		value: func(s *store.Store) any {
			return store.GetString(s, f)
		},
		set: func(s *store.Store, items []string) (bool, error) {
			v := strings.Join(items, ",")
			if err := validation.ValidateLabel(v, capacity); err != nil {
				return false, errors.NewInvalidValue(f.Name(), v, err.Error())
			}
			if f.Name() == layout.NetworkHostname.Name() {
				if err := validation.ValidateHostname(v); err != nil {
					return false, errors.NewInvalidValue(f.Name(), v, err.Error())
				}
			}
			return store.UpdateString(s, f, v), nil
		},
	}
}

func listEntry[E comparable](f layout.ArrayField[E], parse func(string, string) (E, error), format func(E) string, dump func([]E) any) *entry {
	capacity := f.Cap()
	return &entry{
		info: Info{Name: f.Name(), Sub: f.Sub(), Kind: KindList, Capacity: capacity},
		get: func(s *store.Store) string {
			v := store.GetArray(s, f)
			parts := make([]string, len(v))
			for i := range v {
				parts[i] = format(v[i])
			}
			return strings.Join(parts, ",")
		},
		value: func(s *store.Store) any {
			return dump(store.GetArray(s, f))
		},
		set: func(s *store.Store, items []string) (bool, error) {
			v, err := parseList(f.Name(), items, capacity, parse)
			if err != nil {
				return false, err
			}
			return store.UpdateArray(s, f, v), nil
		},
	}
}

func flagEntry(f layout.Flag) *entry {
	return &entry{
		info: Info{Name: f.Name(), Sub: f.Sub(), Kind: KindFlag, Default: "false", Capacity: 1},
		get: func(s *store.Store) string {
			return strconv.FormatBool(s.IsFlagSet(f))
		},
		value: func(s *store.Store) any {
			return s.IsFlagSet(f)
		},
		set: func(s *store.Store, items []string) (bool, error) {
			if len(items) != 1 {
				return false, errors.NewInvalidValue(f.Name(), strings.Join(items, ","), "expected a single value")
			}
			on, err := parseBool(f.Name(), items[0])
			if err != nil {
				return false, err
			}
			return s.SetFlagTo(f, on), nil
		},
	}
}

func formatInteger[T integer](v T) string {
	return strconv.FormatInt(int64(v), 10)
}

func ints[E integer](v []E) any {
	out := make([]int64, len(v))
	for i := range v {
		out[i] = int64(v[i])
	}
	return out
}

// =============================================================================
// Access by name
// =============================================================================

// Store returns the store the registry writes to.
func (r *Registry) Store() *store.Store {
	return r.st
}

// Names returns every setting name in record order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Match returns the setting names starting with prefix, sorted.
func (r *Registry) Match(prefix string) []string {
	var out []string
	for _, name := range r.order {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Lookup returns the description of a setting.
func (r *Registry) Lookup(name string) (Info, bool) {
	e, ok := r.entries[name]
	if !ok {
		return Info{}, false
	}
	return e.info, true
}

// Get returns the effective value of a setting: the stored value, or the
// default while a scalar field is still zero.
func (r *Registry) Get(name string) (string, error) {
	e, ok := r.entries[name]
	if !ok {
		return "", errors.NewUnknownField(name)
	}
	return e.get(r.st), nil
}

// Set parses value and stores it. Lists are comma separated. It reports
// whether the record changed.
func (r *Registry) Set(name, value string) (bool, error) {
	e, ok := r.entries[name]
	if !ok {
		return false, errors.NewUnknownField(name)
	}
	changed, err := e.set(r.st, itemsOf(e, value))
	if err != nil {
		return false, err
	}
	if changed {
		log.Debug("setting changed", "name", name, "value", value)
	}
	return changed, nil
}

func itemsOf(e *entry, value string) []string {
	if e.info.Kind == KindList {
		return splitList(value)
	}
	return []string{value}
}
