// Package digest computes content fingerprints for files.
//
// Files are streamed in fixed-size chunks into a running hash. Cancellation is
// observed only between chunks, so a read that is already in flight always
// completes; the worst-case latency of a cancel is one chunk of I/O.
package digest

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"
)

// DefaultChunkSize is the read granularity used when no chunk size is configured.
const DefaultChunkSize = 8 * 1024

// MaxChunkSize bounds the per-worker read buffer.
const MaxChunkSize = 64 * 1024 * 1024

// Fingerprint is the hex-encoded digest of a file's full byte stream.
type Fingerprint string

// Short returns the first 16 characters, for display.
func (f Fingerprint) Short() string {
	if len(f) <= 16 {
		return string(f)
	}
	return string(f[:16])
}

// Algorithm names a supported hash function.
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	SHA1   Algorithm = "sha1"
	MD5    Algorithm = "md5"
)

// ParseAlgorithm resolves a case-insensitive algorithm name.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(name))) {
	case SHA256, "":
		return SHA256, nil
	case SHA1:
		return SHA1, nil
	case MD5:
		return MD5, nil
	default:
		return "", fmt.Errorf("unsupported hash algorithm: %s", name)
	}
}

func (a Algorithm) newHash() func() hash.Hash {
	switch a {
	case MD5:
		return md5.New
	case SHA1:
		return sha1.New
	default:
		return sha256.New
	}
}

// Opener opens a file by its provider ID. storage.Provider satisfies it.
type Opener interface {
	OpenFile(ctx context.Context, id string) (io.ReadCloser, error)
}

// Error is a digest failure tagged with the path it happened on.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("digest %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Engine hashes files with one algorithm and chunk size. It is safe for
// concurrent use; every call allocates its own hash state and buffer.
type Engine struct {
	algo      Algorithm
	newHash   func() hash.Hash
	chunkSize int
}

// Option configures an Engine.
type Option func(*Engine)

// WithChunkSize sets the read chunk size. Non-positive values keep the
// default; values above MaxChunkSize are capped.
func WithChunkSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.chunkSize = min(n, MaxChunkSize)
		}
	}
}

// New creates an Engine for the given algorithm.
func New(algo Algorithm, opts ...Option) *Engine {
	e := &Engine{
		algo:      algo,
		newHash:   algo.newHash(),
		chunkSize: DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Algorithm returns the engine's hash algorithm.
func (e *Engine) Algorithm() Algorithm { return e.algo }

// ChunkSize returns the read chunk size in bytes.
func (e *Engine) ChunkSize() int { return e.chunkSize }

// Digest opens path through src and fingerprints its content. Every failure,
// including cancellation, comes back as an *Error carrying the path.
func (e *Engine) Digest(ctx context.Context, src Opener, path string) (Fingerprint, error) {
	if err := ctx.Err(); err != nil {
		return "", &Error{Path: path, Err: err}
	}

	rc, err := src.OpenFile(ctx, path)
	if err != nil {
		return "", &Error{Path: path, Err: err}
	}
	defer rc.Close()

	fp, err := e.Sum(ctx, rc)
	if err != nil {
		return "", &Error{Path: path, Err: err}
	}
	return fp, nil
}

// Sum reads r to EOF in chunks and returns the fingerprint of everything read.
// ctx is checked before each read.
func (e *Engine) Sum(ctx context.Context, r io.Reader) (Fingerprint, error) {
	hasher := e.newHash()
	buf := make([]byte, e.chunkSize)

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		n, err := r.Read(buf)
		if n > 0 {
			hasher.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read: %w", err)
		}
	}

	return Fingerprint(hex.EncodeToString(hasher.Sum(nil))), nil
}
