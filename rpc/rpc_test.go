package rpc_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/google/go-cmp/cmp"

	"github.com/tailored-agentic-units/silo/config"
	"github.com/tailored-agentic-units/silo/rpc"
	"github.com/tailored-agentic-units/silo/store"
	"github.com/tailored-agentic-units/silo/watch"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()

	cfg := store.DefaultConfig()
	cfg.Silo.Observer = "noop"
	cfg.State = map[string]any{
		"count": 0,
		"list":  []any{1, 2, 3},
	}
	cfg.Modifiers = []config.ModifierConfig{
		{Slot: "count", Name: "increment", Type: "increment"},
		{Slot: "list", Name: "double", Kind: config.ModifierKindIndexed, Type: "expr", Expr: "current * 2"},
	}

	st, err := store.New(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	return st
}

func setup(t *testing.T) (*store.Store, *rpc.Client) {
	t.Helper()

	st := newStore(t)
	path, handler := rpc.NewHandler(st, nil)
	mux := http.NewServeMux()
	mux.Handle(path, handler)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	t.Cleanup(st.Close)

	return st, rpc.NewClient(srv.Client(), srv.URL)
}

func settle(t *testing.T, st *store.Store) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := st.Settle(ctx); err != nil {
		t.Fatalf("Settle() error = %v", err)
	}
}

func TestGetState(t *testing.T) {
	_, client := setup(t)

	update, err := client.GetState(context.Background(), "")
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}

	if update.Node != "root" || update.Sequence != 0 {
		t.Errorf("update = (%q, %d), want (root, 0)", update.Node, update.Sequence)
	}
	wantValue := map[string]any{"count": 0.0, "list": []any{1.0, 2.0, 3.0}}
	if diff := cmp.Diff(wantValue, update.Value); diff != "" {
		t.Errorf("Value mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantValue, update.State); diff != "" {
		t.Errorf("State mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"double", "increment"}, update.Modifiers); diff != "" {
		t.Errorf("Modifiers mismatch (-want +got):\n%s", diff)
	}
	if update.Time.IsZero() {
		t.Error("Time should be set")
	}
}

func TestInvoke(t *testing.T) {
	st, client := setup(t)
	ctx := context.Background()

	if err := client.Invoke(ctx, "count", "increment", nil, 2); err != nil {
		t.Fatalf("Invoke(increment) error = %v", err)
	}
	if err := client.Invoke(ctx, "list", "double", 1, nil); err != nil {
		t.Fatalf("Invoke(double) error = %v", err)
	}
	settle(t, st)

	count, err := client.GetState(ctx, "count")
	if err != nil {
		t.Fatalf("GetState(count) error = %v", err)
	}
	if count.Value != 2.0 {
		t.Errorf("count = %v, want 2", count.Value)
	}

	list, err := client.GetState(ctx, "list")
	if err != nil {
		t.Fatalf("GetState(list) error = %v", err)
	}
	if diff := cmp.Diff([]any{1.0, 4.0, 3.0}, list.Value); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}
}

func TestErrors(t *testing.T) {
	_, client := setup(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		want connect.Code
	}{
		{
			name: "unknown path",
			call: func() error { _, err := client.GetState(ctx, "ghost"); return err },
			want: connect.CodeNotFound,
		},
		{
			name: "unknown modifier",
			call: func() error { return client.Invoke(ctx, "count", "reset", nil, nil) },
			want: connect.CodeNotFound,
		},
		{
			name: "missing modifier name",
			call: func() error { return client.Invoke(ctx, "count", "", nil, nil) },
			want: connect.CodeInvalidArgument,
		},
		{
			name: "indexed without index",
			call: func() error { return client.Invoke(ctx, "list", "double", nil, nil) },
			want: connect.CodeInvalidArgument,
		},
		{
			name: "index out of range",
			call: func() error { return client.Invoke(ctx, "list", "double", 7, nil) },
			want: connect.CodeNotFound,
		},
		{
			name: "watch unknown path",
			call: func() error {
				return client.Watch(ctx, "ghost", func(watch.Update) error { return nil })
			},
			want: connect.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if err == nil {
				t.Fatal("call should fail")
			}
			if code := connect.CodeOf(err); code != tt.want {
				t.Errorf("CodeOf(%v) = %v, want %v", err, code, tt.want)
			}
		})
	}
}

func TestWatch(t *testing.T) {
	_, client := setup(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var updates []watch.Update
	err := client.Watch(ctx, "count", func(u watch.Update) error {
		updates = append(updates, u)
		if len(updates) == 1 {
			return client.Invoke(ctx, "count", "increment", nil, nil)
		}
		return rpc.ErrStopWatch
	})
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if len(updates) != 2 {
		t.Fatalf("received %d updates, want 2", len(updates))
	}
	if updates[0].Sequence != 0 || updates[0].Value != 0.0 {
		t.Errorf("first update = (%d, %v), want (0, 0)", updates[0].Sequence, updates[0].Value)
	}
	if updates[1].Sequence != 1 || updates[1].Value != 1.0 || updates[1].Node != "root_count" {
		t.Errorf("second update = (%s, %d, %v), want (root_count, 1, 1)",
			updates[1].Node, updates[1].Sequence, updates[1].Value)
	}
}

func TestServer_Serve(t *testing.T) {
	st := newStore(t)
	defer st.Close()

	cfg := config.DefaultServerConfig()
	cfg.ShutdownTimeout = time.Second
	srv := rpc.NewServer(st, cfg, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	client := rpc.NewClient(http.DefaultClient, "http://"+ln.Addr().String())
	if _, err := client.GetState(context.Background(), "count"); err != nil {
		t.Fatalf("GetState() error = %v", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}
