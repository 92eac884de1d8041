package providers

import (
	"context"
	"errors"
	"testing"
)

// fakeProvider is a minimal in-test adapter. The registry only touches
// Name and Close.
type fakeProvider struct {
	name     string
	closed   bool
	closeErr error
}

func (f *fakeProvider) Invoke(ctx context.Context, req *Request) (*Response, error) {
	return &Response{ID: req.ID, Provider: f.name}, nil
}

func (f *fakeProvider) HealthCheck(ctx context.Context) error { return nil }

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Close() error {
	f.closed = true
	return f.closeErr
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	p := &fakeProvider{name: "openai-primary"}
	r.Register(p)

	got, err := r.Get("openai-primary")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != p {
		t.Error("Expected the registered provider back")
	}

	if _, err := r.Get("missing"); err == nil {
		t.Error("Expected error for an unregistered provider")
	}
}

func TestRegistry_RegisterClosesReplaced(t *testing.T) {
	r := NewRegistry()
	old := &fakeProvider{name: "openai-primary"}
	r.Register(old)

	replacement := &fakeProvider{name: "openai-primary"}
	r.Register(replacement)

	if !old.closed {
		t.Error("Expected replaced provider closed")
	}
	if replacement.closed {
		t.Error("Expected replacement left open")
	}

	got, _ := r.Get("openai-primary")
	if got != replacement {
		t.Error("Expected replacement registered")
	}
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeProvider{name: "b"})
	r.Register(&fakeProvider{name: "a"})
	r.Register(&fakeProvider{name: "c"})

	names := r.Names()
	if len(names) != 3 || names[0] != "a" || names[1] != "b" || names[2] != "c" {
		t.Errorf("Expected sorted names, got %v", names)
	}
	if r.Len() != 3 {
		t.Errorf("Expected 3 providers, got %d", r.Len())
	}
}

func TestRegistry_Close(t *testing.T) {
	r := NewRegistry()
	a := &fakeProvider{name: "a", closeErr: errors.New("close failed")}
	b := &fakeProvider{name: "b"}
	r.Register(a)
	r.Register(b)

	err := r.Close()
	if err == nil {
		t.Error("Expected first close error propagated")
	}
	if !a.closed || !b.closed {
		t.Error("Expected every provider closed")
	}
	if r.Len() != 0 {
		t.Errorf("Expected registry cleared, got %d providers", r.Len())
	}
}
