package cyberchef

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"testing"
)

func TestDefaultFallbacksCoverCompressionModule(t *testing.T) {
	reg := newRegistry(t)
	fallbacks := DefaultFallbacks()
	for _, op := range reg.Operations() {
		if op.Module != "Compression" {
			continue
		}
		if _, ok := fallbacks.Lookup(op.Name); !ok {
			t.Errorf("compression operation %q has no native fallback", op.Name)
		}
	}
}

func TestZlibRoundTrip(t *testing.T) {
	input := []byte("the quick brown fox jumps over the lazy dog")
	for _, mode := range []string{"Dynamic Huffman Coding", "Fixed Huffman Coding", "None (Store)"} {
		t.Run(mode, func(t *testing.T) {
			args := map[string]any{"Compression type": mode}
			compressed, err := zlibDeflate(input, args)
			if err != nil {
				t.Fatalf("zlibDeflate: %v", err)
			}
			out, err := zlibInflate(compressed, map[string]any{})
			if err != nil {
				t.Fatalf("zlibInflate: %v", err)
			}
			if !bytes.Equal(out, input) {
				t.Fatal("round trip mismatch")
			}
		})
	}
}

func TestZlibInflateStartIndex(t *testing.T) {
	input := []byte("payload")
	compressed, err := zlibDeflate(input, map[string]any{})
	if err != nil {
		t.Fatalf("zlibDeflate: %v", err)
	}
	prefixed := append([]byte{0xde, 0xad}, compressed...)
	out, err := zlibInflate(prefixed, map[string]any{"Start index": 2})
	if err != nil {
		t.Fatalf("zlibInflate: %v", err)
	}
	if !bytes.Equal(out, input) {
		t.Fatal("start index trim failed")
	}
}

func TestRawDeflateHasNoZlibHeader(t *testing.T) {
	input := []byte("headerless")
	compressed, err := rawDeflate(input, map[string]any{})
	if err != nil {
		t.Fatalf("rawDeflate: %v", err)
	}
	if compressed[0] == 0x78 {
		t.Fatal("raw deflate output starts with a zlib header")
	}
	out, err := rawInflate(compressed, map[string]any{})
	if err != nil {
		t.Fatalf("rawInflate: %v", err)
	}
	if !bytes.Equal(out, input) {
		t.Fatal("round trip mismatch")
	}
}

func TestGzipRoundTripWithHeaders(t *testing.T) {
	input := []byte("gzip me")
	compressed, err := gzipCompress(input, map[string]any{
		"Filename (optional)": "note.txt",
		"Comment (optional)":  "a comment",
	})
	if err != nil {
		t.Fatalf("gzipCompress: %v", err)
	}
	r, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	if r.Name != "note.txt" || r.Comment != "a comment" {
		t.Fatalf("gzip header = %q / %q", r.Name, r.Comment)
	}
	out, err := gunzip(compressed, nil)
	if err != nil {
		t.Fatalf("gunzip: %v", err)
	}
	if !bytes.Equal(out, input) {
		t.Fatal("round trip mismatch")
	}
}

func TestBzip2RoundTrip(t *testing.T) {
	input := bytes.Repeat([]byte("bzip2 block "), 100)
	compressed, err := bzip2Compress(input, map[string]any{"Block size (100s of kb)": 1})
	if err != nil {
		t.Fatalf("bzip2Compress: %v", err)
	}
	out, err := bzip2Decompress(compressed, nil)
	if err != nil {
		t.Fatalf("bzip2Decompress: %v", err)
	}
	if !bytes.Equal(out, input) {
		t.Fatal("round trip mismatch")
	}
}

func TestBrotliRoundTrip(t *testing.T) {
	input := []byte("brotli payload")
	compressed, err := brotliCompress(input, map[string]any{"Quality": 5})
	if err != nil {
		t.Fatalf("brotliCompress: %v", err)
	}
	out, err := brotliDecompress(compressed, nil)
	if err != nil {
		t.Fatalf("brotliDecompress: %v", err)
	}
	if !bytes.Equal(out, input) {
		t.Fatal("round trip mismatch")
	}
}

func TestCompressionLevelMapping(t *testing.T) {
	if got := compressionLevel(map[string]any{"Compression type": "None (Store)"}); got != flate.NoCompression {
		t.Fatalf("store level = %d", got)
	}
	if got := compressionLevel(map[string]any{"Compression type": "Fixed Huffman Coding"}); got != flate.BestSpeed {
		t.Fatalf("fixed level = %d", got)
	}
	if got := compressionLevel(map[string]any{}); got != flate.DefaultCompression {
		t.Fatalf("default level = %d", got)
	}
}

func TestStoredZlibLayout(t *testing.T) {
	input := []byte("hello")
	got, err := zlibDeflate(input, map[string]any{"Compression type": "None (Store)"})
	if err != nil {
		t.Fatalf("zlibDeflate: %v", err)
	}

	var want bytes.Buffer
	w, err := zlib.NewWriterLevel(&want, zlib.NoCompression)
	if err != nil {
		t.Fatalf("zlib.NewWriterLevel: %v", err)
	}
	if _, err := w.Write(input); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !bytes.Equal(got, want.Bytes()) {
		t.Fatalf("stored zlib bytes differ:\n got %x\nwant %x", got, want.Bytes())
	}
}

func TestRegisterAndUnregister(t *testing.T) {
	reg := NewFallbackRegistry()
	reg.Register("Custom", func(in []byte, _ map[string]any) ([]byte, error) { return in, nil })
	if _, ok := reg.Lookup("Custom"); !ok {
		t.Fatal("registered fallback missing")
	}
	reg.Unregister("Custom")
	if _, ok := reg.Lookup("Custom"); ok {
		t.Fatal("unregistered fallback still present")
	}
}
