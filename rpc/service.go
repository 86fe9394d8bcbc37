// Package rpc serves a store over connect. Messages are
// google.protobuf.Struct values, so any connect, gRPC or gRPC-Web client can
// call the service without generated stubs.
//
//	silo.v1.SiloService/GetState  {path}                          -> update
//	silo.v1.SiloService/Invoke    {path, modifier, index, payload} -> {}
//	silo.v1.SiloService/Watch     {path}                          -> stream of updates
//
// An update carries node, sequence, time, value, state and modifiers. A watch
// stream starts with the node's current snapshot at sequence 0.
package rpc

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/silo/silo"
	"github.com/tailored-agentic-units/silo/store"
	"github.com/tailored-agentic-units/silo/watch"
)

const (
	ServiceName = "silo.v1.SiloService"

	GetStateProcedure = "/" + ServiceName + "/GetState"
	InvokeProcedure   = "/" + ServiceName + "/Invoke"
	WatchProcedure    = "/" + ServiceName + "/Watch"
)

type service struct {
	store  *store.Store
	logger *slog.Logger
}

// NewHandler builds the service handlers for st and returns the path prefix
// to mount them on.
func NewHandler(st *store.Store, logger *slog.Logger, opts ...connect.HandlerOption) (string, http.Handler) {
	if logger == nil {
		logger = slog.Default()
	}
	svc := &service{store: st, logger: logger}

	mux := http.NewServeMux()
	mux.Handle(GetStateProcedure, connect.NewUnaryHandler(GetStateProcedure, svc.getState, opts...))
	mux.Handle(InvokeProcedure, connect.NewUnaryHandler(InvokeProcedure, svc.invoke, opts...))
	mux.Handle(WatchProcedure, connect.NewServerStreamHandler(WatchProcedure, svc.watch, opts...))

	return "/" + ServiceName + "/", mux
}

func (svc *service) getState(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	n, err := svc.store.Resolve(stringField(req.Msg, "path"))
	if err != nil {
		return nil, connectError(err)
	}

	msg, err := encodeUpdate(snapshotUpdate(n))
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

func (svc *service) invoke(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	modifier := stringField(req.Msg, "modifier")
	if modifier == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("modifier is required"))
	}

	err := svc.store.Invoke(
		ctx,
		stringField(req.Msg, "path"),
		modifier,
		anyField(req.Msg, "index"),
		anyField(req.Msg, "payload"),
	)
	if err != nil {
		return nil, connectError(err)
	}

	return connect.NewResponse(&structpb.Struct{}), nil
}

func (svc *service) watch(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
	stream *connect.ServerStream[structpb.Struct],
) error {
	path := stringField(req.Msg, "path")

	n, err := svc.store.Resolve(path)
	if err != nil {
		return connectError(err)
	}

	w, err := svc.store.Feed().Watch(n)
	if err != nil {
		return connectError(err)
	}
	defer w.Close()

	svc.logger.DebugContext(
		ctx,
		"watch stream opened",
		slog.String("node", n.Name()),
		slog.String("watch_id", w.ID().String()),
	)

	update := snapshotUpdate(n)
	for {
		msg, err := encodeUpdate(update)
		if err != nil {
			return connect.NewError(connect.CodeInternal, err)
		}
		if err := stream.Send(msg); err != nil {
			return err
		}

		update, err = w.Receive(ctx)
		if err != nil {
			if errors.Is(err, watch.ErrClosed) || ctx.Err() != nil {
				svc.logger.DebugContext(
					ctx,
					"watch stream closed",
					slog.String("node", n.Name()),
					slog.String("watch_id", w.ID().String()),
				)
				return nil
			}
			return connectError(err)
		}
	}
}

func connectError(err error) error {
	switch {
	case errors.Is(err, silo.ErrNodeNotFound),
		errors.Is(err, silo.ErrChildNotFound),
		errors.Is(err, silo.ErrNotCallable):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, store.ErrIndexRequired),
		errors.Is(err, silo.ErrModifierKind),
		errors.Is(err, silo.ErrKindMismatch),
		errors.Is(err, silo.ErrNotScope):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, silo.ErrClosed),
		errors.Is(err, watch.ErrClosed):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
