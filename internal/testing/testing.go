// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/hpx/internal/storage"
)

// ErrInjected is returned by doubles configured to fail.
var ErrInjected = errors.New("injected failure")

// RecordingStorage wraps a [storage.Memory] and counts calls per operation.
//
// Setting FailGet, FailSet or FailRemove makes the matching operation return [ErrInjected].
type RecordingStorage struct {
	*storage.Memory

	mu         sync.Mutex
	Gets       int
	Sets       int
	Removes    int
	FailGet    bool
	FailSet    bool
	FailRemove bool
}

// NewRecordingStorage returns a [RecordingStorage] seeded with values.
func NewRecordingStorage(seed map[string]string) *RecordingStorage {
	return &RecordingStorage{Memory: storage.NewMemory(seed)}
}

func (r *RecordingStorage) Get(ctx context.Context, key string) (string, bool, error) {
	r.mu.Lock()
	r.Gets++
	fail := r.FailGet
	r.mu.Unlock()

	if fail {
		return "", false, ErrInjected
	}
	return r.Memory.Get(ctx, key)
}

func (r *RecordingStorage) Set(ctx context.Context, key, value string) error {
	r.mu.Lock()
	r.Sets++
	fail := r.FailSet
	r.mu.Unlock()

	if fail {
		return ErrInjected
	}
	return r.Memory.Set(ctx, key, value)
}

func (r *RecordingStorage) Remove(ctx context.Context, key string) error {
	r.mu.Lock()
	r.Removes++
	fail := r.FailRemove
	r.mu.Unlock()

	if fail {
		return ErrInjected
	}
	return r.Memory.Remove(ctx, key)
}

// Writes returns the number of Set and Remove calls.
func (r *RecordingStorage) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Sets + r.Removes
}

// Value returns the stored value for key, or "" when absent.
func (r *RecordingStorage) Value(key string) string {
	v, _, _ := r.Memory.Get(context.Background(), key)
	return v
}

// Has reports whether key is stored.
func (r *RecordingStorage) Has(key string) bool {
	_, ok, _ := r.Memory.Get(context.Background(), key)
	return ok
}

// StaticAuth is a fixed authentication flag for router tests.
type StaticAuth bool

func (s StaticAuth) IsAuthenticated() bool { return bool(s) }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
