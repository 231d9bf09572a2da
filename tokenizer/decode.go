package tokenizer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// VocabType tells how the surface form of a token maps to the bytes
// it produces
type VocabType int

const (
	// Raw tokens are their own bytes
	Raw VocabType = iota

	// ByteFallback tokens are sentencepiece pieces: `▁` stands for a
	// space and `<0xNN>` for the single byte NN
	ByteFallback

	// ByteLevel tokens spell every byte with a printable rune, as done
	// by GPT-2 style BPE vocabularies
	ByteLevel
)

func (t VocabType) String() string {
	switch t {
	case Raw:
		return "raw"
	case ByteFallback:
		return "byte_fallback"
	case ByteLevel:
		return "byte_level"
	default:
		return fmt.Sprintf("VocabType(%d)", int(t))
	}
}

// ParseVocabType is the inverse of VocabType.String
func ParseVocabType(s string) (VocabType, error) {
	switch strings.ToLower(s) {
	case "raw":
		return Raw, nil
	case "byte_fallback", "bytefallback":
		return ByteFallback, nil
	case "byte_level", "bytelevel":
		return ByteLevel, nil
	}
	return Raw, fmt.Errorf("unknown vocabulary type %q", s)
}

const metaspace = "▁"

var (
	byteToRune [256]rune
	runeToByte = make(map[rune]byte, 256)
)

func init() {
	// printable latin-1 bytes keep their codepoint, the others are
	// shifted past 255 in byte order
	printable := func(b int) bool {
		return (b >= '!' && b <= '~') || (b >= 0xA1 && b <= 0xAC) || (b >= 0xAE && b <= 0xFF)
	}
	shifted := 0
	for b := 0; b < 256; b++ {
		r := rune(b)
		if !printable(b) {
			r = rune(256 + shifted)
			shifted++
		}
		byteToRune[b] = r
		runeToByte[r] = byte(b)
	}
}

// Decode returns the bytes produced by the token `surface`
func Decode(surface string, typ VocabType) []byte {
	switch typ {
	case ByteFallback:
		if b, ok := fallbackByte(surface); ok {
			return []byte{b}
		}
		return []byte(strings.ReplaceAll(surface, metaspace, " "))
	case ByteLevel:
		out := make([]byte, 0, len(surface))
		for _, r := range surface {
			if b, ok := runeToByte[r]; ok {
				out = append(out, b)
				continue
			}
			out = utf8.AppendRune(out, r)
		}
		return out
	default:
		return []byte(surface)
	}
}

// Encode returns the surface form of a token producing `b`.  It's the
// inverse of Decode for byte level vocabularies and is mostly useful
// for writing tests and fixtures.
func Encode(b []byte, typ VocabType) string {
	switch typ {
	case ByteLevel:
		var sb strings.Builder
		for _, c := range b {
			sb.WriteRune(byteToRune[c])
		}
		return sb.String()
	case ByteFallback:
		if len(b) == 1 && b[0] >= 0x80 {
			return fmt.Sprintf("<0x%02X>", b[0])
		}
		return strings.ReplaceAll(string(b), " ", metaspace)
	default:
		return string(b)
	}
}

// fallbackByte parses the `<0xNN>` pieces of sentencepiece vocabularies
func fallbackByte(s string) (byte, bool) {
	if len(s) != 6 || !strings.HasPrefix(s, "<0x") || s[5] != '>' {
		return 0, false
	}
	v, err := strconv.ParseUint(s[3:5], 16, 8)
	if err != nil {
		return 0, false
	}
	return byte(v), true
}
