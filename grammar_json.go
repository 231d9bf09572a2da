package guide

import "sync"

// JSONGrammarEBNF describes RFC 8259 JSON documents, including
// whitespace around the top level value.  String characters cover
// the whole Unicode range except for the quote, the backslash and
// the control characters.
const JSONGrammarEBNF = `
json = element .

value = object | array | string | number | "true" | "false" | "null" .

object = "{" ws "}" | "{" members "}" .
members = member { "," member } .
member = ws string ws ":" element .

array = "[" ws "]" | "[" elements "]" .
elements = element { "," element } .
element = ws value ws .

string = "\"" { character } "\"" .
character = unescaped | escaped .
unescaped = " " | "!" | "#" … "[" | "]" … "\U0010FFFF" .
escaped = "\\" ( "\"" | "\\" | "/" | "b" | "f" | "n" | "r" | "t" | unicode ) .
unicode = "u" hex hex hex hex .
hex = "0" … "9" | "A" … "F" | "a" … "f" .

number = [ "-" ] integer [ fraction ] [ exponent ] .
integer = "0" | onenine { digit } .
fraction = "." digit { digit } .
exponent = ( "e" | "E" ) [ "+" | "-" ] digit { digit } .
digit = "0" … "9" .
onenine = "1" … "9" .

ws = { " " | "\t" | "\n" | "\r" } .
`

var (
	jsonGrammar     *Grammar
	jsonGrammarOnce sync.Once
)

// JSONGrammar returns the grammar of JSONGrammarEBNF rooted at
// `json`.  The value is built once and shared, grammars are never
// mutated after construction.
func JSONGrammar() *Grammar {
	jsonGrammarOnce.Do(func() {
		g, err := ParseEBNFString(JSONGrammarEBNF, "json")
		if err != nil {
			panic("json grammar: " + err.Error())
		}
		jsonGrammar = g
	})
	return jsonGrammar
}
