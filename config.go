package guide

import (
	"fmt"
	"io"
	"runtime"
	"sort"
	"strings"
)

type Config map[string]*cfgVal

// NewConfig creates a new configuration object primed with all the
// default values expected by the matcher, the bitmask helpers and
// the batch filler.
func NewConfig() *Config {
	m := make(Config)
	// number of accepted steps that can be undone with Rollback
	m.SetInt("matcher.max_rollback_tokens", 0)
	// report termination as soon as the root rule can end, without
	// waiting for a stop token
	m.SetBool("matcher.terminate_without_stop_token", false)
	// entries kept in the per matcher LRU of computed masks, zero
	// disables the cache
	m.SetInt("matcher.mask_cache_size", 128)
	// frames a single derivation path may hold.  Input nesting
	// deeper is rejected, a grammar whose start needs more fails
	// with an InternalError
	m.SetInt("matcher.max_stack_depth", 2048)
	// bytes a single jump-forward query may return
	m.SetInt("jump_forward.max_bytes", 4096)
	// hint for the embedding application that bitmasks will be
	// copied to an accelerator, so the memory should be pinned
	m.SetBool("bitmask.pin_memory", false)
	// goroutines used by BatchFillNextTokenBitmask
	m.SetInt("batch.max_workers", runtime.GOMAXPROCS(0))
	return &m
}

// Debug writes every setting, sorted by key, to `w`.
func (c *Config) Debug(w io.Writer) {
	fmt.Fprintln(w, "Configuration")

	keys := c.Keys()
	width := 0
	for _, k := range keys {
		width = max(width, len(k))
	}
	for _, k := range keys {
		fmt.Fprintf(w, "%s%s : %s\n", k, strings.Repeat(" ", width-len(k)), (*c)[k].String())
	}
}

// Keys returns the sorted list of settings present in the config.
func (c *Config) Keys() []string {
	keys := make([]string, 0, len(*c))
	for k := range *c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether `path` was set, either by NewConfig or by the
// caller.  Optional settings such as `matcher.override_stop_tokens`
// have no default and are only present once assigned.
func (c *Config) Has(path string) bool {
	_, ok := (*c)[path]
	return ok
}

type cfgValType int

const (
	cfgValType_Undefined cfgValType = iota
	cfgValType_Bool
	cfgValType_Int
	cfgValType_Ints
	cfgValType_String
)

func (vt cfgValType) String() string {
	return map[cfgValType]string{
		cfgValType_Undefined: "undefined",
		cfgValType_Bool:      "bool",
		cfgValType_Int:       "int",
		cfgValType_Ints:      "[]int",
		cfgValType_String:    "string",
	}[vt]
}

type cfgVal struct {
	typ      cfgValType
	asBool   bool
	asInt    int
	asInts   []int
	asString string
}

// assignType is mostly for preventing programming errors, it panics
// if a value changes type after being assigned.
func (v *cfgVal) assignType(vt cfgValType) {
	if v.typ != vt && v.typ != cfgValType_Undefined {
		panic(fmt.Sprintf("Can't assign `%s` to type `%s`", vt, v.typ))
	}
	v.typ = vt
}

func (v *cfgVal) checkType(vt cfgValType) {
	if v.typ != vt {
		panic(fmt.Sprintf("Can't retrieve `%s` from `%s` variable", vt, v.typ))
	}
}

func (v *cfgVal) String() string {
	switch v.typ {
	case cfgValType_Bool:
		return fmt.Sprintf("%t (bool)", v.asBool)
	case cfgValType_Int:
		return fmt.Sprintf("%d (int)", v.asInt)
	case cfgValType_Ints:
		return fmt.Sprintf("%v ([]int)", v.asInts)
	case cfgValType_String:
		return fmt.Sprintf("%s (string)", v.asString)
	case cfgValType_Undefined:
		return "(undefined)"
	default:
		panic(fmt.Sprintf("unknown cfgVal type: %v", v.typ))
	}
}

func (c *Config) SetBool(path string, v bool) {
	(*c)[path] = &cfgVal{}
	(*c)[path].assignType(cfgValType_Bool)
	(*c)[path].asBool = v
}

func (c *Config) SetInt(path string, v int) {
	(*c)[path] = &cfgVal{}
	(*c)[path].assignType(cfgValType_Int)
	(*c)[path].asInt = v
}

func (c *Config) SetInts(path string, v ...int) {
	(*c)[path] = &cfgVal{}
	(*c)[path].assignType(cfgValType_Ints)
	(*c)[path].asInts = append([]int(nil), v...)
}

func (c *Config) SetString(path string, v string) {
	(*c)[path] = &cfgVal{}
	(*c)[path].assignType(cfgValType_String)
	(*c)[path].asString = v
}

func (c *Config) GetBool(path string) bool {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValType_Bool)
		return val.asBool
	}
	panic(fmt.Sprintf("Bool setting `%s` does not exist", path))
}

func (c *Config) GetInt(path string) int {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValType_Int)
		return val.asInt
	}
	panic(fmt.Sprintf("Int setting `%s` does not exist", path))
}

func (c *Config) GetInts(path string) []int {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValType_Ints)
		return append([]int(nil), val.asInts...)
	}
	panic(fmt.Sprintf("Ints setting `%s` does not exist", path))
}

func (c *Config) GetString(path string) string {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValType_String)
		return val.asString
	}
	panic(fmt.Sprintf("String setting `%s` does not exist", path))
}
