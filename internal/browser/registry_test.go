package browser

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

// stubPage is the minimal Page used to exercise the registry.
type stubPage struct {
	mu       sync.Mutex
	closed   bool
	closeErr error
}

func (p *stubPage) Goto(string, time.Duration) error { return nil }

func (p *stubPage) WaitNetworkIdle(time.Duration) error { return nil }

func (p *stubPage) IsVisible(string) bool { return false }

func (p *stubPage) WaitVisible(string, time.Duration) error { return nil }

func (p *stubPage) Fill(string, string, time.Duration) error { return nil }

func (p *stubPage) Click(string, time.Duration) error { return nil }

func (p *stubPage) Screenshot() ([]byte, error) { return []byte("png"), nil }

func (p *stubPage) Content() (string, error) { return "", nil }

func (p *stubPage) URL() string { return "" }

func (p *stubPage) FrameURLs() []string { return nil }

func (p *stubPage) Evaluate(string) error { return nil }

func (p *stubPage) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *stubPage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return p.closeErr
}

func TestRegistryStoreLookupRelease(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	page := &stubPage{}

	r.Store("job-1", page)
	require.True(t, r.Has("job-1"))
	require.Equal(t, 1, r.Len())

	got, ok := r.Lookup("job-1")
	require.True(t, ok)
	assert.Same(t, page, got)

	released := r.Release("job-1")
	assert.True(t, released)
	assert.True(t, page.Closed())
	assert.False(t, r.Has("job-1"))
}

func TestRegistryReleaseIsIdempotent(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	r.Store("job-1", &stubPage{})

	assert.True(t, r.Release("job-1"))
	assert.False(t, r.Release("job-1"))
	assert.False(t, r.Release("never-existed"))
}

func TestRegistryReleaseSwallowsCloseError(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	r.Store("job-1", &stubPage{closeErr: errors.New("already gone")})

	// A failing close must still drop the entry.
	assert.True(t, r.Release("job-1"))
	assert.False(t, r.Has("job-1"))
}

func TestRegistryStoreDisplacesPriorSession(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	first := &stubPage{}
	second := &stubPage{}

	r.Store("job-1", first)
	r.Store("job-1", second)

	assert.True(t, first.Closed(), "displaced session must be closed")
	got, ok := r.Lookup("job-1")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryConcurrentAccess(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := NewRegistry(zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n%4))
			r.Store(id, &stubPage{})
			r.Lookup(id)
			r.Release(id)
		}(i)
	}
	wg.Wait()

	// Whatever interleaving happened, nothing may remain after ReleaseAll.
	r.ReleaseAll()
	assert.Equal(t, 0, r.Len())
}
