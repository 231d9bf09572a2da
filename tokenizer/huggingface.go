package tokenizer

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"slices"

	"github.com/buger/jsonparser"

	"github.com/clarete/guide"
)

var ErrNoVocabulary = errors.New("tokenizer has no model vocabulary")

// Info is the vocabulary of a tokenizer as stored on disk, before
// the surface form of each token is decoded into bytes
type Info struct {
	// Tokens holds the surface form of each token, indexed by id.
	// Ids missing from the file are empty.
	Tokens []string

	Type VocabType

	// Special lists the ids of the added tokens flagged as special,
	// in increasing order
	Special []int32
}

// LoadHuggingFace reads a `tokenizer.json` file
func LoadHuggingFace(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	info, err := ParseHuggingFace(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return info, nil
}

// ParseHuggingFace reads the contents of a `tokenizer.json` file.
// Token to id objects (BPE, WordPiece, WordLevel) and piece arrays
// (Unigram) are supported, and added tokens override the model
// vocabulary.
func ParseHuggingFace(data []byte) (*Info, error) {
	var (
		byID    = make(map[int32]string)
		special []int32
		maxID   = int32(-1)
	)
	set := func(id int64, token string) error {
		if id < 0 || id > math.MaxInt32 {
			return fmt.Errorf("token %q has an invalid id %d", token, id)
		}
		byID[int32(id)] = token
		maxID = max(maxID, int32(id))
		return nil
	}

	vocab, typ, _, err := jsonparser.Get(data, "model", "vocab")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoVocabulary, err)
	}
	switch typ {
	case jsonparser.Object:
		err = jsonparser.ObjectEach(vocab, func(key, value []byte, _ jsonparser.ValueType, _ int) error {
			id, err := jsonparser.ParseInt(value)
			if err != nil {
				return fmt.Errorf("token %q: %w", key, err)
			}
			return set(id, string(key))
		})
	case jsonparser.Array:
		var (
			index int64
			perr  error
		)
		_, err = jsonparser.ArrayEach(vocab, func(value []byte, _ jsonparser.ValueType, _ int, _ error) {
			if perr != nil {
				return
			}
			piece, err := jsonparser.GetString(value, "[0]")
			if err != nil {
				perr = fmt.Errorf("piece %d: %w", index, err)
				return
			}
			perr = set(index, piece)
			index++
		})
		err = errors.Join(err, perr)
	default:
		return nil, fmt.Errorf("%w: model.vocab is a %v", ErrNoVocabulary, typ)
	}
	if err != nil {
		return nil, fmt.Errorf("model.vocab: %w", err)
	}

	var aerr error
	_, err = jsonparser.ArrayEach(data, func(value []byte, _ jsonparser.ValueType, _ int, _ error) {
		if aerr != nil {
			return
		}
		id, err := jsonparser.GetInt(value, "id")
		if err != nil {
			aerr = fmt.Errorf("added token without id: %w", err)
			return
		}
		content, err := jsonparser.GetString(value, "content")
		if err != nil {
			aerr = fmt.Errorf("added token %d without content: %w", id, err)
			return
		}
		if aerr = set(id, content); aerr != nil {
			return
		}
		if isSpecial, _ := jsonparser.GetBoolean(value, "special"); isSpecial {
			special = append(special, int32(id))
		}
	}, "added_tokens")
	if err != nil && !errors.Is(err, jsonparser.KeyPathNotFoundError) {
		return nil, fmt.Errorf("added_tokens: %w", err)
	}
	if aerr != nil {
		return nil, fmt.Errorf("added_tokens: %w", aerr)
	}

	info := &Info{
		Tokens: make([]string, maxID+1),
		Type:   detectVocabType(data),
	}
	for id, token := range byID {
		info.Tokens[id] = token
	}
	slices.Sort(special)
	info.Special = slices.Compact(special)

	slog.Debug("tokenizer loaded", "tokens", len(info.Tokens), "type", info.Type, "special", len(info.Special))
	return info, nil
}

// detectVocabType looks at the decoder pipeline, where the byte
// encoding of the vocabulary is undone
func detectVocabType(data []byte) VocabType {
	steps := make(map[string]bool)
	if typ, err := jsonparser.GetString(data, "decoder", "type"); err == nil {
		steps[typ] = true
	}
	if typ, err := jsonparser.GetString(data, "pre_tokenizer", "type"); err == nil && typ == "ByteLevel" {
		steps[typ] = true
	}
	jsonparser.ArrayEach(data, func(value []byte, _ jsonparser.ValueType, _ int, _ error) {
		if typ, err := jsonparser.GetString(value, "type"); err == nil {
			steps[typ] = true
		}
	}, "decoder", "decoders")
	fallback, _ := jsonparser.GetBoolean(data, "model", "byte_fallback")

	switch {
	case steps["ByteLevel"]:
		return ByteLevel
	case fallback || steps["ByteFallback"] || steps["Metaspace"]:
		return ByteFallback
	default:
		return Raw
	}
}

// Vocabulary decodes every token into the bytes it produces.  Special
// tokens are kept verbatim so their names can be used to detect stop
// tokens.  `opts` are applied after the special tokens of the file.
func (i *Info) Vocabulary(opts ...guide.VocabularyOption) (*guide.Vocabulary, error) {
	tokens := make([][]byte, len(i.Tokens))
	for id, surface := range i.Tokens {
		if _, found := slices.BinarySearch(i.Special, int32(id)); found {
			tokens[id] = []byte(surface)
			continue
		}
		tokens[id] = Decode(surface, i.Type)
	}
	opts = append([]guide.VocabularyOption{guide.WithSpecialTokens(i.Special...)}, opts...)
	return guide.NewVocabulary(tokens, opts...)
}
