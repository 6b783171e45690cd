package connpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClient struct {
	closed int32
}

func (f *fakeClient) Close() error {
	atomic.StoreInt32(&f.closed, 1)
	return nil
}

func TestGetBuildsOnceConcurrently(t *testing.T) {
	var builds int32
	p := New(time.Hour, func(ctx context.Context, userID, tenantID, kind string) (Client, error) {
		atomic.AddInt32(&builds, 1)
		time.Sleep(10 * time.Millisecond)
		return &fakeClient{}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Get(context.Background(), "u1", "t1", "erp/odoo"); err != nil {
				t.Errorf("Get() error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&builds); got != 1 {
		t.Errorf("builds = %d, want 1", got)
	}
	if p.Len() != 1 {
		t.Errorf("Len() = %d, want 1", p.Len())
	}
}

func TestInvalidateClosesClient(t *testing.T) {
	var built *fakeClient
	p := New(time.Hour, func(ctx context.Context, userID, tenantID, kind string) (Client, error) {
		built = &fakeClient{}
		return built, nil
	})

	if _, err := p.Get(context.Background(), "u1", "t1", "drive/oauth"); err != nil {
		t.Fatalf("Get() error: %v", err)
	}

	p.Invalidate("u1", "t1", "drive/oauth")

	if p.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after invalidate", p.Len())
	}
	if atomic.LoadInt32(&built.closed) != 1 {
		t.Error("expected client to be closed on invalidate")
	}
}

func TestSweepEvictsExpiredEntries(t *testing.T) {
	p := New(5*time.Millisecond, func(ctx context.Context, userID, tenantID, kind string) (Client, error) {
		return &fakeClient{}, nil
	})

	if _, err := p.Get(context.Background(), "u1", "t1", "erp/odoo"); err != nil {
		t.Fatalf("Get() error: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	// A second Get for a different key triggers the post-response sweep.
	if _, err := p.Get(context.Background(), "u2", "t2", "erp/odoo"); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	p.mu.RLock()
	_, stillThere := p.entries[key("u1", "t1", "erp/odoo")]
	p.mu.RUnlock()

	if stillThere {
		t.Error("expected expired entry to be swept")
	}
}

func TestFailureObserverTracksConsecutiveFailuresPerTenantAndKind(t *testing.T) {
	boom := errors.New("boom")
	p := New(time.Hour, func(ctx context.Context, userID, tenantID, kind string) (Client, error) {
		return nil, boom
	})

	var mu sync.Mutex
	var seen []int
	p.WithFailureObserver(func(tenantID, kind string, consecutive int, err error) {
		mu.Lock()
		seen = append(seen, consecutive)
		mu.Unlock()
	})

	for i := 0; i < 3; i++ {
		if _, err := p.Get(context.Background(), "u1", "t1", "erp/odoo"); err == nil {
			t.Fatal("expected build error")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 {
		t.Fatalf("observer called %d times, want 3", len(seen))
	}
	for i, count := range seen {
		if count != i+1 {
			t.Errorf("call %d: consecutive = %d, want %d", i, count, i+1)
		}
	}
}

func TestFailureObserverResetsOnSuccessfulBuild(t *testing.T) {
	fail := true
	p := New(time.Hour, func(ctx context.Context, userID, tenantID, kind string) (Client, error) {
		if fail {
			return nil, errors.New("boom")
		}
		return &fakeClient{}, nil
	})

	var mu sync.Mutex
	var seen []int
	p.WithFailureObserver(func(tenantID, kind string, consecutive int, err error) {
		mu.Lock()
		seen = append(seen, consecutive)
		mu.Unlock()
	})

	if _, err := p.Get(context.Background(), "u1", "t1", "erp/odoo"); err == nil {
		t.Fatal("expected build error")
	}

	fail = false
	if _, err := p.Get(context.Background(), "u1", "t1", "erp/odoo"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fail = true
	p.Invalidate("u1", "t1", "erp/odoo")
	if _, err := p.Get(context.Background(), "u1", "t1", "erp/odoo"); err == nil {
		t.Fatal("expected build error")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 {
		t.Fatalf("observer called %d times, want 2", len(seen))
	}
	if seen[1] != 1 {
		t.Errorf("expected consecutive count to reset to 1 after the intervening success, got %d", seen[1])
	}
}

func TestClearAllClosesEverything(t *testing.T) {
	clients := []*fakeClient{}
	var mu sync.Mutex
	p := New(time.Hour, func(ctx context.Context, userID, tenantID, kind string) (Client, error) {
		c := &fakeClient{}
		mu.Lock()
		clients = append(clients, c)
		mu.Unlock()
		return c, nil
	})

	p.Get(context.Background(), "u1", "t1", "erp/odoo")
	p.Get(context.Background(), "u2", "t2", "drive/oauth")

	p.ClearAll()

	if p.Len() != 0 {
		t.Errorf("Len() = %d, want 0", p.Len())
	}
	for _, c := range clients {
		if atomic.LoadInt32(&c.closed) != 1 {
			t.Error("expected all clients closed after ClearAll")
		}
	}
}
