// Package ascii provides ANSI escape codes under semantic names so the
// grammar printer and the command line output can share one theme.
package ascii

import "fmt"

const (
	Reset = "\033[0m"
	Red   = "\033[1;31m"
	Green = "\033[1;32m"
	Cyan  = "\033[1;36m"
	Gray  = "\033[90m"
	Bold  = "\033[1m"

	// 256-color palette
	Orange  = "\033[38;5;208m"
	Gray245 = "\033[1;38;5;245m"
	Purple  = "\033[1;38;5;99m"
	Pink    = "\033[1;38;5;127m"
)

// Theme maps the pieces of the output to colors
type Theme struct {
	Error   string
	Success string
	Muted   string // secondary text, e.g. the prefix already consumed
	Accent  string // the forced continuation in jump-forward output

	// grammar printing
	Rule     string
	Operator string
	Literal  string
	Class    string
}

// DefaultTheme is meant to look fine on both dark and light terminals
var DefaultTheme = Theme{
	Error:   Red,
	Success: Green,
	Muted:   Gray,
	Accent:  Cyan,

	Rule:     Pink,
	Operator: Purple,
	Literal:  Gray245,
	Class:    Orange,
}

// Color wraps the formatted string with `color` and a reset
func Color(color, format string, args ...any) string {
	return fmt.Sprintf(color+format+Reset, args...)
}
