package rpc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/silo/watch"
)

// ErrStopWatch can be returned by a Client.Watch callback to end the stream
// without an error.
var ErrStopWatch = errors.New("stop watch")

// Client calls a remote silo service.
type Client struct {
	getState *connect.Client[structpb.Struct, structpb.Struct]
	invoke   *connect.Client[structpb.Struct, structpb.Struct]
	watch    *connect.Client[structpb.Struct, structpb.Struct]
}

// NewClient creates a client for the service at baseURL.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		getState: connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+GetStateProcedure, opts...),
		invoke:   connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+InvokeProcedure, opts...),
		watch:    connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+WatchProcedure, opts...),
	}
}

// GetState fetches the node at path with the state visible from it.
func (c *Client) GetState(ctx context.Context, path string) (watch.Update, error) {
	req, err := toStruct(map[string]any{"path": path})
	if err != nil {
		return watch.Update{}, err
	}

	resp, err := c.getState.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return watch.Update{}, fmt.Errorf("get state %q: %w", path, err)
	}
	return decodeUpdate(resp.Msg)
}

// Invoke queues a modifier invocation on the remote silo. Pass a nil index
// for node-scoped modifiers.
func (c *Client) Invoke(ctx context.Context, path, modifier string, index, payload any) error {
	fields := map[string]any{
		"path":     path,
		"modifier": modifier,
		"payload":  payload,
	}
	if index != nil {
		fields["index"] = index
	}

	req, err := toStruct(fields)
	if err != nil {
		return err
	}

	if _, err := c.invoke.CallUnary(ctx, connect.NewRequest(req)); err != nil {
		return fmt.Errorf("invoke %s on %q: %w", modifier, path, err)
	}
	return nil
}

// Watch streams updates of the node at path to fn until ctx is done, the
// server ends the stream or fn returns an error. Returning ErrStopWatch
// ends the stream cleanly.
func (c *Client) Watch(ctx context.Context, path string, fn func(watch.Update) error) error {
	req, err := toStruct(map[string]any{"path": path})
	if err != nil {
		return err
	}

	stream, err := c.watch.CallServerStream(ctx, connect.NewRequest(req))
	if err != nil {
		return fmt.Errorf("watch %q: %w", path, err)
	}
	defer stream.Close()

	for stream.Receive() {
		update, err := decodeUpdate(stream.Msg())
		if err != nil {
			return err
		}
		if err := fn(update); err != nil {
			if errors.Is(err, ErrStopWatch) {
				return nil
			}
			return err
		}
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("watch %q: %w", path, err)
	}
	return nil
}
