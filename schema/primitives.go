package schema

type primitive struct {
	order int
	def   string
	deps  []string
}

// primitives are the building blocks shared by every generated
// grammar.  Only the ones referenced, directly or through deps, are
// written out.
var primitives = map[string]primitive{
	"value": {
		order: 0,
		def:   `object | array | string | number | "true" | "false" | "null"`,
		deps:  []string{"object", "array", "string", "number"},
	},
	"object": {
		order: 1,
		def:   `"{" ws [ string ws ":" ws value ws { "," ws string ws ":" ws value ws } ] "}"`,
		deps:  []string{"ws", "string", "value"},
	},
	"array": {
		order: 2,
		def:   `"[" ws [ value ws { "," ws value ws } ] "]"`,
		deps:  []string{"ws", "value"},
	},
	"string": {
		order: 3,
		def:   `"\"" { character } "\""`,
		deps:  []string{"character"},
	},
	"character": {
		order: 4,
		def:   `unescaped | escaped`,
		deps:  []string{"unescaped", "escaped"},
	},
	"unescaped": {
		order: 5,
		def:   `" " | "!" | "#" … "[" | "]" … "\U0010FFFF"`,
	},
	"escaped": {
		order: 6,
		def:   `"\\" ( "\"" | "\\" | "/" | "b" | "f" | "n" | "r" | "t" | "u" hex hex hex hex )`,
		deps:  []string{"hex"},
	},
	"number": {
		order: 7,
		def:   `[ "-" ] integer [ fraction ] [ exponent ]`,
		deps:  []string{"integer", "fraction", "exponent"},
	},
	"integer": {
		order: 8,
		def:   `"0" | onenine { digit }`,
		deps:  []string{"onenine", "digit"},
	},
	"fraction": {
		order: 9,
		def:   `"." digit { digit }`,
		deps:  []string{"digit"},
	},
	"exponent": {
		order: 10,
		def:   `( "e" | "E" ) [ "+" | "-" ] digit { digit }`,
		deps:  []string{"digit"},
	},
	"date": {
		order: 11,
		def:   `digit digit digit digit "-" digit digit "-" digit digit`,
		deps:  []string{"digit"},
	},
	"time": {
		order: 12,
		def:   `digit digit ":" digit digit ":" digit digit [ "." digit { digit } ] ( "Z" | "z" | ( "+" | "-" ) digit digit ":" digit digit )`,
		deps:  []string{"digit"},
	},
	"uuid": {
		order: 13,
		def: `hex hex hex hex hex hex hex hex "-" hex hex hex hex "-" hex hex hex hex "-" ` +
			`hex hex hex hex "-" hex hex hex hex hex hex hex hex hex hex hex hex`,
		deps: []string{"hex"},
	},
	"hex": {
		order: 14,
		def:   `"0" … "9" | "A" … "F" | "a" … "f"`,
	},
	"digit": {
		order: 15,
		def:   `"0" … "9"`,
	},
	"onenine": {
		order: 16,
		def:   `"1" … "9"`,
	},
	"ws": {
		order: 17,
		def:   `{ " " | "\t" | "\n" | "\r" }`,
	},
}

// formats maps the `format` values the grammar enforces to the body
// of the string, without its quotes.  Other formats are plain strings.
var formats = map[string]struct {
	def  string
	deps []string
}{
	"date":      {def: "date", deps: []string{"date"}},
	"time":      {def: "time", deps: []string{"time"}},
	"date-time": {def: `date ( "T" | "t" ) time`, deps: []string{"date", "time"}},
	"uuid":      {def: "uuid", deps: []string{"uuid"}},
}
