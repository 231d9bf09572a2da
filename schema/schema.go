// Package schema converts JSON Schema documents into grammars whose
// language is the set of JSON texts valid against the schema.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/clarete/guide"
)

const schemaURL = "schema://root.json"

// Options changes the shape of the documents the grammar accepts
type Options struct {
	// Compact forbids whitespace outside of strings
	Compact bool

	// Strict forbids object properties and array items that aren't
	// described by the schema, unless `additionalProperties` or
	// `items` say otherwise
	Strict bool
}

// DefaultOptions allows whitespace and rejects undescribed members
var DefaultOptions = Options{Strict: true}

// UnsupportedError is returned for keywords that restrict documents
// in ways the grammar can't express
type UnsupportedError struct {
	Keyword  string
	Location string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("schema: `%s` is not supported (at %s)", e.Keyword, e.Location)
}

// Compile validates `schemaJSON` against its meta-schema and resolves
// local references.  Remote references are refused.
func Compile(schemaJSON string) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	c.LoadURL = func(url string) (io.ReadCloser, error) {
		return nil, fmt.Errorf("remote $ref not allowed: %s", url)
	}
	if err := c.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	s, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	return s, nil
}

// EBNF returns a grammar, rooted at the production `root`, accepting
// the JSON documents valid against `schemaJSON`.  A nil `opts` means
// DefaultOptions.
func EBNF(schemaJSON string, opts *Options) (string, error) {
	s, err := Compile(schemaJSON)
	if err != nil {
		return "", err
	}
	if opts == nil {
		opts = &DefaultOptions
	}
	g := newGenerator(*opts)
	if _, err := g.ruleFor(s, "root"); err != nil {
		return "", err
	}
	text := g.String()
	slog.Debug("schema converted", "rules", len(g.order), "primitives", len(g.used), "bytes", len(text))
	return text, nil
}

// Grammar is EBNF followed by guide.ParseEBNFString
func Grammar(schemaJSON string, opts *Options) (*guide.Grammar, error) {
	text, err := EBNF(schemaJSON, opts)
	if err != nil {
		return nil, err
	}
	return guide.ParseEBNFString(text, "root")
}

type generator struct {
	opts  Options
	rules map[*jsonschema.Schema]string
	defs  map[string]string
	order []string
	taken map[string]bool
	used  map[string]bool
}

func newGenerator(opts Options) *generator {
	g := &generator{
		opts:  opts,
		rules: make(map[*jsonschema.Schema]string),
		defs:  make(map[string]string),
		taken: make(map[string]bool),
		used:  make(map[string]bool),
	}
	for name := range primitives {
		g.taken[name] = true
	}
	return g
}

// String renders the rules in the order they were created, followed
// by the primitives they use
func (g *generator) String() string {
	var b strings.Builder
	for _, name := range g.order {
		fmt.Fprintf(&b, "%s = %s .\n", name, g.defs[name])
	}

	used := make(map[string]bool)
	var visit func(string)
	visit = func(name string) {
		if used[name] {
			return
		}
		used[name] = true
		for _, dep := range primitives[name].deps {
			visit(dep)
		}
	}
	for name := range g.used {
		visit(name)
	}
	names := make([]string, 0, len(used))
	for name := range used {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return primitives[names[i]].order < primitives[names[j]].order })
	for _, name := range names {
		def := primitives[name].def
		if name == "ws" && g.opts.Compact {
			def = ""
		}
		fmt.Fprintf(&b, "%s = %s .\n", name, def)
	}
	return b.String()
}

// ruleFor returns the production matching `s`, creating it on first
// use.  The name is reserved before the body is generated, so
// recursive schemas refer back to it.
func (g *generator) ruleFor(s *jsonschema.Schema, base string) (string, error) {
	if name, ok := g.rules[s]; ok {
		return name, nil
	}
	name := g.newName(base)
	g.rules[s] = name
	g.order = append(g.order, name)
	expr, err := g.expr(s)
	if err != nil {
		return "", err
	}
	g.defs[name] = expr
	return name, nil
}

func (g *generator) newName(base string) string {
	base = sanitize(base)
	name := base
	for i := 2; g.taken[name]; i++ {
		name = fmt.Sprintf("%s_%d", base, i)
	}
	g.taken[name] = true
	return name
}

func (g *generator) use(name string) string {
	g.used[name] = true
	return name
}

// expr returns the expression matching `s` in place
func (g *generator) expr(s *jsonschema.Schema) (string, error) {
	switch {
	case s.Always != nil && *s.Always:
		return g.use("value"), nil
	case s.Always != nil:
		return "", &UnsupportedError{Keyword: "false", Location: s.Location}
	case s.Not != nil:
		return "", &UnsupportedError{Keyword: "not", Location: s.Location}
	case s.If != nil:
		return "", &UnsupportedError{Keyword: "if", Location: s.Location}
	case len(s.AllOf) > 1:
		return "", &UnsupportedError{Keyword: "allOf", Location: s.Location}
	}

	if s.Ref != nil {
		return g.ruleFor(s.Ref, refName(s.Ref.Location))
	}
	if s.DynamicRef != nil {
		return g.ruleFor(s.DynamicRef, refName(s.DynamicRef.Location))
	}
	if len(s.AllOf) == 1 {
		return g.expr(s.AllOf[0])
	}
	if len(s.Constant) > 0 {
		return literal(s.Constant[0])
	}
	if len(s.Enum) > 0 {
		alts := make([]string, 0, len(s.Enum))
		for _, v := range s.Enum {
			lit, err := literal(v)
			if err != nil {
				return "", err
			}
			alts = append(alts, lit)
		}
		return alternation(alts), nil
	}
	if branches := slices.Concat(s.AnyOf, s.OneOf); len(branches) > 0 {
		alts := make([]string, 0, len(branches))
		for _, branch := range branches {
			e, err := g.expr(branch)
			if err != nil {
				return "", err
			}
			alts = append(alts, e)
		}
		return alternation(alts), nil
	}

	if len(s.Types) == 0 {
		return g.use("value"), nil
	}
	alts := make([]string, 0, len(s.Types))
	for _, typ := range s.Types {
		e, err := g.typeExpr(s, typ)
		if err != nil {
			return "", err
		}
		alts = append(alts, e)
	}
	return alternation(alts), nil
}

func (g *generator) typeExpr(s *jsonschema.Schema, typ string) (string, error) {
	switch typ {
	case "object":
		return g.object(s)
	case "array":
		return g.array(s)
	case "string":
		return g.str(s)
	case "number":
		return g.use("number"), nil
	case "integer":
		g.use("integer")
		if nonNegative(s) {
			return "integer", nil
		}
		return `[ "-" ] integer`, nil
	case "boolean":
		return `( "true" | "false" )`, nil
	case "null":
		return `"null"`, nil
	}
	return "", &UnsupportedError{Keyword: "type: " + typ, Location: s.Location}
}

// object lays the properties out with the required ones first, in
// the order of `required`, followed by the optional ones sorted by
// name.  Extra members, when allowed, come last.
func (g *generator) object(s *jsonschema.Schema) (string, error) {
	g.use("ws")

	var (
		names    []string
		required = make(map[string]bool, len(s.Required))
		optional []string
	)
	for _, name := range s.Required {
		if !required[name] {
			required[name] = true
			names = append(names, name)
		}
	}
	for name := range s.Properties {
		if !required[name] {
			optional = append(optional, name)
		}
	}
	sort.Strings(optional)
	names = append(names, optional...)

	members := make([]string, len(names))
	for i, name := range names {
		var value string
		if prop, ok := s.Properties[name]; ok {
			var err error
			if value, err = g.expr(prop); err != nil {
				return "", err
			}
		} else {
			value = g.use("value")
		}
		key, err := literal(name)
		if err != nil {
			return "", err
		}
		members[i] = seq(key, "ws", `":"`, "ws", value)
	}

	var extra string
	switch ap := s.AdditionalProperties.(type) {
	case *jsonschema.Schema:
		value, err := g.expr(ap)
		if err != nil {
			return "", err
		}
		extra = seq(g.use("string"), "ws", `":"`, "ws", value)
	case bool:
		if ap {
			extra = seq(g.use("string"), "ws", `":"`, "ws", g.use("value"))
		}
	case nil:
		if !g.opts.Strict {
			extra = seq(g.use("string"), "ws", `":"`, "ws", g.use("value"))
		}
	}

	// tail[i] follows at least one member and lists the members
	// from i on, start[i] is the same when nothing was written yet
	n := len(members)
	tail := make([]string, n+1)
	start := make([]string, n+1)
	if extra != "" {
		tail[n] = "{ " + seq("ws", `","`, "ws", extra) + " }"
		start[n] = "[ " + seq(extra, tail[n]) + " ]"
	}
	for i := n - 1; i >= 0; i-- {
		if required[names[i]] {
			tail[i] = seq("ws", `","`, "ws", members[i], tail[i+1])
			start[i] = seq(members[i], tail[i+1])
			continue
		}
		tail[i] = seq("[", "ws", `","`, "ws", members[i], "]", tail[i+1])
		if start[i+1] == "" {
			start[i] = "[ " + seq(members[i], tail[i+1]) + " ]"
		} else {
			start[i] = alternation([]string{seq(members[i], tail[i+1]), start[i+1]})
		}
	}
	if start[0] == "" {
		return seq(`"{"`, "ws", `"}"`), nil
	}
	return seq(`"{"`, "ws", start[0], "ws", `"}"`), nil
}

// array supports tuples through `prefixItems` (or the array form of
// `items` in older drafts) followed by items of a single schema
func (g *generator) array(s *jsonschema.Schema) (string, error) {
	g.use("ws")

	prefix := s.PrefixItems
	var items *jsonschema.Schema
	switch it := s.Items.(type) {
	case *jsonschema.Schema:
		items = it
	case []*jsonschema.Schema:
		prefix = it
		if additional, ok := s.AdditionalItems.(*jsonschema.Schema); ok {
			items = additional
		}
	}
	if s.Items2020 != nil {
		items = s.Items2020
	}

	var (
		itemExpr string
		err      error
	)
	switch {
	case items != nil:
		if itemExpr, err = g.expr(items); err != nil {
			return "", err
		}
	case len(prefix) == 0 || !g.opts.Strict:
		itemExpr = g.use("value")
	}
	prefixExprs := make([]string, len(prefix))
	for i, p := range prefix {
		if prefixExprs[i], err = g.expr(p); err != nil {
			return "", err
		}
	}

	lo := max(s.MinItems, 0)
	hi := s.MaxItems
	if itemExpr == "" && (hi == -1 || hi > len(prefix)) {
		hi = len(prefix)
	}
	if hi != -1 && lo > hi {
		return "", fmt.Errorf("schema: array at %s needs %d items but allows at most %d", s.Location, lo, hi)
	}

	elem := func(i int) string {
		if i < len(prefixExprs) {
			return prefixExprs[i]
		}
		return itemExpr
	}
	// rest returns the items from position i on, given that i > 0
	// items were already written
	var rest func(i int) string
	rest = func(i int) string {
		if i == hi {
			return ""
		}
		if hi == -1 && i >= len(prefixExprs) && i >= lo {
			return "{ " + seq("ws", `","`, "ws", itemExpr) + " }"
		}
		step := seq("ws", `","`, "ws", elem(i), rest(i+1))
		if i < lo {
			return step
		}
		return "[ " + step + " ]"
	}

	if hi == 0 {
		return seq(`"["`, "ws", `"]"`), nil
	}
	body := seq(elem(0), rest(1))
	if lo == 0 {
		body = "[ " + seq(body, "ws") + " ]"
	} else {
		body = seq(body, "ws")
	}
	return seq(`"["`, "ws", body, `"]"`), nil
}

// str handles `format`, `pattern` and the length bounds, in this
// order of precedence
func (g *generator) str(s *jsonschema.Schema) (string, error) {
	if body, ok := formats[s.Format]; ok {
		for _, dep := range body.deps {
			g.use(dep)
		}
		return seq(`"\""`, body.def, `"\""`), nil
	}
	if s.Pattern != nil {
		return g.pattern(s.Pattern.String(), s.Location)
	}
	if s.MinLength <= 0 && s.MaxLength == -1 {
		return g.use("string"), nil
	}
	g.use("character")
	return seq(`"\""`, bounded("character", max(s.MinLength, 0), s.MaxLength), `"\""`), nil
}

// bounded repeats `item` between lo and hi times, hi == -1 meaning
// no upper bound
func bounded(item string, lo, hi int) string {
	parts := make([]string, 0, lo+1)
	for i := 0; i < lo; i++ {
		parts = append(parts, item)
	}
	switch {
	case hi == -1:
		parts = append(parts, "{ "+item+" }")
	case hi > lo:
		parts = append(parts, strings.Repeat("[ "+item+" ", hi-lo)+strings.TrimSpace(strings.Repeat("] ", hi-lo)))
	}
	return seq(parts...)
}

func nonNegative(s *jsonschema.Schema) bool {
	return (s.Minimum != nil && s.Minimum.Sign() >= 0) ||
		(s.ExclusiveMinimum != nil && s.ExclusiveMinimum.Sign() >= 0)
}

// literal returns the EBNF token matching the compact JSON encoding
// of `v`
func literal(v interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("schema: encode %v: %w", v, err)
	}
	return strconv.Quote(strings.TrimSuffix(buf.String(), "\n")), nil
}

func seq(parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

func alternation(alts []string) string {
	if len(alts) == 1 {
		return alts[0]
	}
	return "( " + strings.Join(alts, " | ") + " )"
}

// refName derives a production name from the location of a
// referenced schema, e.g. `schema://root.json#/$defs/node` is `node`
func refName(location string) string {
	_, frag, _ := strings.Cut(location, "#")
	if i := strings.LastIndex(frag, "/"); i >= 0 {
		frag = frag[i+1:]
	}
	if frag == "" {
		return "root"
	}
	return frag
}

// sanitize turns `name` into a lowercase production name, which
// x/exp/ebnf treats as lexical
func sanitize(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if out == "" || out[0] < 'a' || out[0] > 'z' {
		out = "r_" + out
	}
	return out
}
