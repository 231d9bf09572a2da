package guide

import "fmt"

// Device tells where the memory of a bitmask lives.  Matchers only
// write to CPU bitmasks, the caller copies them to an accelerator.
type Device int

const (
	DeviceCPU Device = iota
	DeviceAccelerator
)

func (d Device) String() string {
	switch d {
	case DeviceCPU:
		return "cpu"
	case DeviceAccelerator:
		return "accelerator"
	default:
		return fmt.Sprintf("device(%d)", int(d))
	}
}

// TokenBitmask is a batch of packed token masks.  Each row has
// ceil(VocabSize/32) words, and the bit for token j lives in word
// j/32 at position j%32.  Set bits are allowed tokens.
type TokenBitmask struct {
	Data      []int32
	BatchSize int
	VocabSize int
	Device    Device

	// Pinned asks the embedding application to page lock Data
	// before copying it to an accelerator
	Pinned bool
}

// BitmaskShape returns the dimensions of the bitmask for a batch of
// `batchSize` rows over a vocabulary of `vocabSize` tokens
func BitmaskShape(batchSize, vocabSize int) (rows, words int) {
	return batchSize, (vocabSize + 31) / 32
}

// AllocateTokenBitmask creates a CPU bitmask with every token
// allowed.  `cfg` may be nil, in which case defaults are used.
func AllocateTokenBitmask(batchSize, vocabSize int, cfg *Config) (*TokenBitmask, error) {
	if batchSize <= 0 || vocabSize <= 0 {
		return nil, &BitmaskError{
			Message: fmt.Sprintf("invalid shape: batch size %d, vocab size %d", batchSize, vocabSize),
		}
	}
	if cfg == nil {
		cfg = NewConfig()
	}
	rows, words := BitmaskShape(batchSize, vocabSize)
	data := make([]int32, rows*words)
	for i := range data {
		data[i] = -1
	}
	return &TokenBitmask{
		Data:      data,
		BatchSize: batchSize,
		VocabSize: vocabSize,
		Device:    DeviceCPU,
		Pinned:    cfg.GetBool("bitmask.pin_memory"),
	}, nil
}

// Words returns the number of int32 words per row
func (b *TokenBitmask) Words() int {
	_, words := BitmaskShape(b.BatchSize, b.VocabSize)
	return words
}

// Row returns the words of row `index`, sharing memory with Data
func (b *TokenBitmask) Row(index int) []int32 {
	w := b.Words()
	return b.Data[index*w : (index+1)*w : (index+1)*w]
}

// Allowed reports whether `token` is allowed in row `index`
func (b *TokenBitmask) Allowed(index int, token int32) bool {
	if token < 0 || int(token) >= b.VocabSize {
		return false
	}
	return b.Row(index)[token/32]&(1<<(uint32(token)%32)) != 0
}

// AllowedTokens returns the ids allowed in row `index`, in order
func (b *TokenBitmask) AllowedTokens(index int) []int32 {
	var (
		row     = b.Row(index)
		allowed []int32
	)
	for id := 0; id < b.VocabSize; id++ {
		if row[id/32]&(1<<(uint32(id)%32)) != 0 {
			allowed = append(allowed, int32(id))
		}
	}
	return allowed
}

// check validates that row `index` can be filled for a vocabulary
// of `vocabSize` tokens
func (b *TokenBitmask) check(index, vocabSize int) error {
	switch {
	case b == nil:
		return &BitmaskError{Message: "nil bitmask"}
	case b.Device != DeviceCPU:
		return &BitmaskError{Message: fmt.Sprintf("bitmask must live on the cpu, found %s", b.Device)}
	case b.VocabSize < vocabSize:
		return &BitmaskError{
			Message: fmt.Sprintf("bitmask vocab size %d is smaller than the vocabulary (%d)", b.VocabSize, vocabSize),
		}
	case len(b.Data) != b.BatchSize*b.Words():
		return &BitmaskError{
			Message: fmt.Sprintf("bitmask has %d words, expected %d rows of %d", len(b.Data), b.BatchSize, b.Words()),
		}
	case index < 0 || index >= b.BatchSize:
		return &BitmaskError{Message: fmt.Sprintf("row %d out of range [0, %d)", index, b.BatchSize)}
	}
	return nil
}

func setBit(row []int32, id int32)   { row[id/32] |= 1 << (uint32(id) % 32) }
func clearBit(row []int32, id int32) { row[id/32] &^= 1 << (uint32(id) % 32) }
