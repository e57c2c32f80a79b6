package cyberchef

import (
	"bytes"
	"compress/bzip2"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"sync"

	"github.com/andybalholm/brotli"
	dsbzip2 "github.com/dsnet/compress/bzip2"
)

// FallbackFunc is a native implementation of one operation: raw bytes in,
// raw bytes out, with the step's arguments keyed by schema name. A fallback
// must be byte-for-byte compatible with the operation library's own output
// for the argument values it claims to handle.
type FallbackFunc func(input []byte, args map[string]any) ([]byte, error)

// FallbackRegistry maps operation names to native implementations used when
// the selected engine cannot run the operation itself. Safe for concurrent
// use.
type FallbackRegistry struct {
	mu  sync.RWMutex
	fns map[string]FallbackFunc
}

// NewFallbackRegistry returns an empty registry.
func NewFallbackRegistry() *FallbackRegistry {
	return &FallbackRegistry{fns: make(map[string]FallbackFunc)}
}

// DefaultFallbacks returns a registry pre-populated with the compression
// operations that misbehave on the smaller engines.
func DefaultFallbacks() *FallbackRegistry {
	r := NewFallbackRegistry()
	r.Register("Zlib Deflate", zlibDeflate)
	r.Register("Zlib Inflate", zlibInflate)
	r.Register("Raw Deflate", rawDeflate)
	r.Register("Raw Inflate", rawInflate)
	r.Register("Gzip", gzipCompress)
	r.Register("Gunzip", gunzip)
	r.Register("Bzip2 Compress", bzip2Compress)
	r.Register("Bzip2 Decompress", bzip2Decompress)
	r.Register("Brotli Compress", brotliCompress)
	r.Register("Brotli Decompress", brotliDecompress)
	return r
}

// Register adds or replaces the fallback for an operation name.
func (r *FallbackRegistry) Register(name string, fn FallbackFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fns[name] = fn
}

// Unregister removes the fallback for an operation name.
func (r *FallbackRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.fns, name)
}

// Lookup returns the fallback for an operation name, if any.
func (r *FallbackRegistry) Lookup(name string) (FallbackFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.fns[name]
	return fn, ok
}

// compressionLevel maps the operation library's "Compression type" argument
// to the flate level that reproduces its byte output. The library's dynamic
// Huffman mode corresponds to the default level.
func compressionLevel(args map[string]any) int {
	switch args["Compression type"] {
	case "None (Store)":
		return flate.NoCompression
	case "Fixed Huffman Coding":
		return flate.BestSpeed
	default:
		return flate.DefaultCompression
	}
}

func intArg(args map[string]any, name string, fallback int) int {
	switch v := args[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

func zlibDeflate(input []byte, args map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, compressionLevel(args))
	if err != nil {
		return nil, fmt.Errorf("%w: zlib deflate: %v", ErrOperation, err)
	}
	if _, err := w.Write(input); err != nil {
		return nil, fmt.Errorf("%w: zlib deflate: %v", ErrOperation, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: zlib deflate: %v", ErrOperation, err)
	}
	return buf.Bytes(), nil
}

func zlibInflate(input []byte, args map[string]any) ([]byte, error) {
	if start := intArg(args, "Start index", 0); start > 0 {
		if start > len(input) {
			return nil, fmt.Errorf("%w: zlib inflate: start index %d beyond input", ErrOperation, start)
		}
		input = input[start:]
	}
	r, err := zlib.NewReader(bytes.NewReader(input))
	if err != nil {
		return nil, fmt.Errorf("%w: zlib inflate: %v", ErrOperation, err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: zlib inflate: %v", ErrOperation, err)
	}
	return out, nil
}

func rawDeflate(input []byte, args map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, compressionLevel(args))
	if err != nil {
		return nil, fmt.Errorf("%w: raw deflate: %v", ErrOperation, err)
	}
	if _, err := w.Write(input); err != nil {
		return nil, fmt.Errorf("%w: raw deflate: %v", ErrOperation, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: raw deflate: %v", ErrOperation, err)
	}
	return buf.Bytes(), nil
}

func rawInflate(input []byte, args map[string]any) ([]byte, error) {
	if start := intArg(args, "Start index", 0); start > 0 {
		if start > len(input) {
			return nil, fmt.Errorf("%w: raw inflate: start index %d beyond input", ErrOperation, start)
		}
		input = input[start:]
	}
	r := flate.NewReader(bytes.NewReader(input))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: raw inflate: %v", ErrOperation, err)
	}
	return out, nil
}

func gzipCompress(input []byte, args map[string]any) ([]byte, error) {
	level := compressionLevel(args)
	// The gzip container has no stored-block mode switch worth preserving;
	// level 0 would emit stored blocks that the library's gzip never does.
	if level == flate.NoCompression {
		level = flate.BestSpeed
	}
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("%w: gzip: %v", ErrOperation, err)
	}
	w.Name = stringArg(args, "Filename (optional)")
	w.Comment = stringArg(args, "Comment (optional)")
	if _, err := w.Write(input); err != nil {
		return nil, fmt.Errorf("%w: gzip: %v", ErrOperation, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: gzip: %v", ErrOperation, err)
	}
	return buf.Bytes(), nil
}

func gunzip(input []byte, _ map[string]any) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(input))
	if err != nil {
		return nil, fmt.Errorf("%w: gunzip: %v", ErrOperation, err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: gunzip: %v", ErrOperation, err)
	}
	return out, nil
}

func bzip2Compress(input []byte, args map[string]any) ([]byte, error) {
	level := intArg(args, "Block size (100s of kb)", 9)
	if level < dsbzip2.BestSpeed {
		level = dsbzip2.BestSpeed
	}
	if level > dsbzip2.BestCompression {
		level = dsbzip2.BestCompression
	}
	var buf bytes.Buffer
	w, err := dsbzip2.NewWriter(&buf, &dsbzip2.WriterConfig{Level: level})
	if err != nil {
		return nil, fmt.Errorf("%w: bzip2 compress: %v", ErrOperation, err)
	}
	if _, err := w.Write(input); err != nil {
		return nil, fmt.Errorf("%w: bzip2 compress: %v", ErrOperation, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: bzip2 compress: %v", ErrOperation, err)
	}
	return buf.Bytes(), nil
}

func bzip2Decompress(input []byte, _ map[string]any) ([]byte, error) {
	out, err := io.ReadAll(bzip2.NewReader(bytes.NewReader(input)))
	if err != nil {
		return nil, fmt.Errorf("%w: bzip2 decompress: %v", ErrOperation, err)
	}
	return out, nil
}

func brotliCompress(input []byte, args map[string]any) ([]byte, error) {
	quality := intArg(args, "Quality", 11)
	if quality < brotli.BestSpeed {
		quality = brotli.BestSpeed
	}
	if quality > brotli.BestCompression {
		quality = brotli.BestCompression
	}
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, quality)
	if _, err := w.Write(input); err != nil {
		return nil, fmt.Errorf("%w: brotli compress: %v", ErrOperation, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: brotli compress: %v", ErrOperation, err)
	}
	return buf.Bytes(), nil
}

func brotliDecompress(input []byte, _ map[string]any) ([]byte, error) {
	out, err := io.ReadAll(brotli.NewReader(bytes.NewReader(input)))
	if err != nil {
		return nil, fmt.Errorf("%w: brotli decompress: %v", ErrOperation, err)
	}
	return out, nil
}
