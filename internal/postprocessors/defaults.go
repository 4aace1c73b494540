package postprocessors

import (
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/postprocessors/chunker"
	"github.com/custodia-labs/docchat/internal/postprocessors/cleaner"
)

// DefaultProcessors is the stock processor order: clean, then chunk.
var DefaultProcessors = []string{"cleaner", "chunker"}

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry) {
	r.Register("cleaner", buildCleaner)
	r.Register("chunker", buildChunker)
	r.MarkTerminal("chunker")
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): Maximum characters per chunk (default: 800)
//   - overlap (int): Characters carried between chunks (default: 100)
//   - min_chunk_size (int): Shorter chunks are dropped (default: 50)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if cfg != nil {
		if size := getIntFromConfig(cfg, "chunk_size"); size > 0 {
			opts = append(opts, chunker.WithChunkSize(size))
		}
		if _, ok := cfg["overlap"]; ok {
			opts = append(opts, chunker.WithOverlap(getIntFromConfig(cfg, "overlap")))
		}
		if _, ok := cfg["min_chunk_size"]; ok {
			opts = append(opts, chunker.WithMinChunkSize(getIntFromConfig(cfg, "min_chunk_size")))
		}
	}

	return chunker.New(opts...), nil
}

// buildCleaner creates a cleaner processor from generic config.
// Supported config keys:
//   - alpha_ratio (float): Minimum letter share of text units (default: 0.5)
//   - min_length (int): Minimum text unit length (default: 10)
func buildCleaner(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []cleaner.Option

	if cfg != nil {
		if v, ok := cfg["alpha_ratio"]; ok {
			if ratio, ok := toFloat(v); ok {
				opts = append(opts, cleaner.WithAlphaRatio(ratio))
			}
		}
		if _, ok := cfg["min_length"]; ok {
			opts = append(opts, cleaner.WithMinLength(getIntFromConfig(cfg, "min_length")))
		}
	}

	return cleaner.New(opts...), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func toFloat(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
