package envconfig

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/clarete/guide"
)

var (
	// Set via GUIDE_DEBUG in the environment
	Debug bool
	// Set when GUIDE_DEBUG is 2 or higher, enables per token logging
	Trace bool
	// Set via GUIDE_MASK_CACHE_SIZE in the environment
	MaskCacheSize int
	// Set via GUIDE_MAX_ROLLBACK_TOKENS in the environment
	MaxRollbackTokens int
	// Set via GUIDE_MAX_WORKERS in the environment
	MaxWorkers int
)

// unset marks integer settings absent from the environment
const unset = -1

type EnvVar struct {
	Name        string
	Value       any
	Description string
}

func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"GUIDE_DEBUG":               {"GUIDE_DEBUG", Debug, "Show additional debug information (e.g. GUIDE_DEBUG=1, GUIDE_DEBUG=2 for tracing)"},
		"GUIDE_MASK_CACHE_SIZE":     {"GUIDE_MASK_CACHE_SIZE", MaskCacheSize, "Number of token masks cached per matcher (default 128)"},
		"GUIDE_MAX_ROLLBACK_TOKENS": {"GUIDE_MAX_ROLLBACK_TOKENS", MaxRollbackTokens, "Number of steps a matcher can roll back (default 0)"},
		"GUIDE_MAX_WORKERS":         {"GUIDE_MAX_WORKERS", MaxWorkers, "Goroutines used to fill batched bitmasks (default GOMAXPROCS)"},
	}
}

func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}

// Clean quotes and spaces from the value
func clean(key string) string {
	return strings.Trim(os.Getenv(key), "\"' ")
}

func init() {
	LoadConfig()
}

func LoadConfig() {
	Debug, Trace = false, false
	if debug := clean("GUIDE_DEBUG"); debug != "" {
		if n, err := strconv.Atoi(debug); err == nil {
			Debug = n > 0
			Trace = n > 1
		} else if d, err := strconv.ParseBool(debug); err == nil {
			Debug = d
		} else {
			Debug = true
		}
	}

	MaskCacheSize = loadInt("GUIDE_MASK_CACHE_SIZE", 0)
	MaxRollbackTokens = loadInt("GUIDE_MAX_ROLLBACK_TOKENS", 0)
	MaxWorkers = loadInt("GUIDE_MAX_WORKERS", 1)
}

// loadInt reads an integer no smaller than `least`, invalid values
// are logged and ignored
func loadInt(key string, least int) int {
	v := clean(key)
	if v == "" {
		return unset
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < least {
		slog.Error("invalid setting, ignoring", key, v, "error", err)
		return unset
	}
	return n
}

// ApplyTo overlays the settings found in the environment on `cfg`
func ApplyTo(cfg *guide.Config) {
	if MaskCacheSize != unset {
		cfg.SetInt("matcher.mask_cache_size", MaskCacheSize)
	}
	if MaxRollbackTokens != unset {
		cfg.SetInt("matcher.max_rollback_tokens", MaxRollbackTokens)
	}
	if MaxWorkers != unset {
		cfg.SetInt("batch.max_workers", MaxWorkers)
	}
}
