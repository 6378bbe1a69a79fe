// Package gateway implements the request gateway (spec.md §4.9, C9): a
// single execution context that owns one tree and serializes every
// operation against it onto one goroutine, so in-memory mutations never
// race and effects become visible in the order requests arrive.
//
// ShubhamNegi4-DaemonDB calls BPlusTree methods directly from its own REPL
// goroutine rather than through a request/response layer; this implements
// the single-owner-goroutine serialization described in spec.md §4.9/§5
// directly, using github.com/google/uuid for request correlation ids the
// way a typical Go service gateway would.
package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"btreestore/blockdevice"
	"btreestore/bplustree"
	"btreestore/errs"
)

// Op names an operation the gateway accepts (spec.md §4.9's operation
// table).
type Op string

const (
	OpInitialize Op = "initialize"
	OpInsert     Op = "insert"
	OpSearch     Op = "search"
	OpDelete     Op = "delete"
	OpRange      Op = "range"
	OpEntries    Op = "entries"
	OpClear      Op = "clear"
	OpStats      Op = "stats"
	OpBulkLoad   Op = "bulk_load"
	OpVerify     Op = "verify"
	OpClose      Op = "close"
	OpExists     Op = "exists"
	OpDestroy    Op = "destroy"
)

// InitializeParams carries the "initialize" operation's configuration
// (spec.md §4.9).
type InitializeParams[K, V any] struct {
	StoreName    string
	Options      bplustree.Options[K, V]
	OpenExisting bool
}

// Request is a single gateway call, identified by a correlation id (spec.md
// §4.9: "every request carries a correlation id").
type Request[K, V any] struct {
	ID uuid.UUID
	Op Op

	Init     InitializeParams[K, V]
	Key      K
	Value    V
	Range    bplustree.RangeOptions[K]
	Entries  []bplustree.Entry[K, V]
	BulkLoad bplustree.BulkLoadOptions
}

// Response carries the result of a Request, or Err if it failed.
type Response[K, V any] struct {
	ID      uuid.UUID
	Value   V
	Found   bool
	Existed bool
	Entries []bplustree.Entry[K, V]
	Stats   bplustree.Stats
	Verify  bplustree.VerifyResult
	Err     error
}

type call[K, V any] struct {
	req   Request[K, V]
	reply chan Response[K, V]
}

// Gateway owns at most one open tree and serializes every call against it
// through a single goroutine (spec.md §4.9). The caller never touches the
// engine directly.
type Gateway[K, V any] struct {
	opener blockdevice.Opener
	clock  func() int64
	logger *slog.Logger

	calls chan call[K, V]
	done  chan struct{}

	tree   *bplustree.Tree[K, V]
	name   string
	closed bool // true once a store was opened and then closed on this gateway
}

// New starts a gateway's execution-context goroutine. opener resolves store
// names to block devices (spec.md §6 "store name"). Structural lifecycle
// events (initialize, close, destroy) are logged through slog.Default()
// until SetLogger overrides it.
func New[K, V any](opener blockdevice.Opener) *Gateway[K, V] {
	g := &Gateway[K, V]{
		opener: opener,
		clock:  func() int64 { return time.Now().UnixNano() },
		calls:  make(chan call[K, V]),
		done:   make(chan struct{}),
	}
	go g.run()
	return g
}

// SetLogger overrides the gateway's structured logger. Call it before
// submitting the first request; the execution-context goroutine reads the
// field without synchronization, the same single-writer-before-use
// assumption the gateway's own serialization model relies on elsewhere.
func (g *Gateway[K, V]) SetLogger(l *slog.Logger) { g.logger = l }

func (g *Gateway[K, V]) log() *slog.Logger {
	if g.logger != nil {
		return g.logger
	}
	return slog.Default()
}

func (g *Gateway[K, V]) run() {
	defer close(g.done)
	for c := range g.calls {
		c.reply <- g.handle(c.req)
	}
}

// Do submits req and waits for its reply, or for ctx to end first. A request
// is handed over whenever the execution context is ready to take it, even if
// ctx has already ended; ctx only bounds the wait for a busy execution
// context and the wait for the reply. Once ctx has ended the caller gets a
// timeout error, while a request that was handed over still runs to
// completion and later requests observe its effect.
func (g *Gateway[K, V]) Do(ctx context.Context, req Request[K, V]) (Response[K, V], error) {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	reply := make(chan Response[K, V], 1)
	c := call[K, V]{req: req, reply: reply}

	select {
	case g.calls <- c:
	default:
		select {
		case g.calls <- c:
		case <-ctx.Done():
			return Response[K, V]{ID: req.ID}, errs.Wrap(errs.Timeout, "gateway.Do", "request never entered the queue", ctx.Err())
		}
	}

	if ctx.Err() != nil {
		return Response[K, V]{ID: req.ID}, errs.Wrap(errs.Timeout, "gateway.Do", "caller abandoned the wait for a reply", ctx.Err())
	}
	select {
	case resp := <-reply:
		return resp, resp.Err
	case <-ctx.Done():
		return Response[K, V]{ID: req.ID}, errs.Wrap(errs.Timeout, "gateway.Do", "caller abandoned the wait for a reply", ctx.Err())
	}
}

// Shutdown stops accepting new requests and waits for the goroutine to
// drain, without implicitly closing the tree (callers that want a managed
// close should submit OpClose first).
func (g *Gateway[K, V]) Shutdown() {
	close(g.calls)
	<-g.done
}

func (g *Gateway[K, V]) handle(req Request[K, V]) Response[K, V] {
	resp := Response[K, V]{ID: req.ID}

	if req.Op != OpInitialize && g.tree == nil {
		if g.closed {
			resp.Err = errs.New(errs.Closed, string(req.Op), "store "+g.name+" has been closed")
		} else {
			resp.Err = errs.New(errs.NotInitialized, string(req.Op), "store has not been initialized")
		}
		return resp
	}

	switch req.Op {
	case OpInitialize:
		resp.Err = g.doInitialize(req.Init)
	case OpInsert:
		resp.Err = g.tree.Insert(req.Key, req.Value, g.clock())
	case OpSearch:
		resp.Value, resp.Found, resp.Err = g.tree.Search(req.Key)
	case OpExists:
		resp.Existed, resp.Err = g.tree.Exists(req.Key)
	case OpDelete:
		resp.Existed, resp.Err = g.tree.Delete(req.Key, g.clock())
	case OpRange:
		resp.Entries, resp.Err = g.tree.Range(req.Range)
	case OpEntries:
		resp.Entries, resp.Err = g.tree.Entries()
	case OpClear:
		resp.Err = g.tree.Clear(g.clock())
	case OpStats:
		resp.Stats = g.tree.GetStats()
	case OpBulkLoad:
		resp.Err = g.tree.BulkLoad(req.Entries, req.BulkLoad, g.clock())
	case OpVerify:
		resp.Verify, resp.Err = g.tree.Verify()
	case OpClose:
		resp.Err = g.doClose()
	case OpDestroy:
		resp.Err = g.doDestroy()
	default:
		resp.Err = errs.New(errs.InvalidArgument, "gateway.handle", "unknown operation "+string(req.Op))
	}
	return resp
}

func (g *Gateway[K, V]) doInitialize(params InitializeParams[K, V]) error {
	if g.tree != nil {
		return errs.New(errs.AlreadyExists, "initialize", "a store is already open on this gateway")
	}

	exists, err := g.opener.Exists(params.StoreName)
	if err != nil {
		return errs.Wrap(errs.IO, "initialize", "checking store existence", err)
	}

	if params.OpenExisting {
		if !exists {
			return errs.New(errs.NotFound, "initialize", "store "+params.StoreName+" does not exist")
		}
		dev, err := g.opener.Open(params.StoreName, false)
		if err != nil {
			return errs.Wrap(errs.IO, "initialize", "opening store", err)
		}
		tree, err := bplustree.Open[K, V](dev, params.Options)
		if err != nil {
			return err
		}
		g.tree = tree
		g.name = params.StoreName
		g.closed = false
		g.log().Info("gateway.initialize.opened", "store", params.StoreName)
		return nil
	}

	if exists {
		return errs.New(errs.AlreadyExists, "initialize", "store "+params.StoreName+" already exists")
	}
	dev, err := g.opener.Open(params.StoreName, true)
	if err != nil {
		return errs.Wrap(errs.IO, "initialize", "creating store", err)
	}
	tree, err := bplustree.Create[K, V](dev, params.Options, g.clock())
	if err != nil {
		return err
	}
	g.tree = tree
	g.name = params.StoreName
	g.closed = false
	g.log().Info("gateway.initialize.created", "store", params.StoreName, "order", params.Options.Order)
	return nil
}

func (g *Gateway[K, V]) doClose() error {
	if err := g.tree.Close(g.clock()); err != nil {
		g.log().Error("gateway.close.failed", "store", g.name, "error", err)
		return err
	}
	g.log().Info("gateway.close.ok", "store", g.name)
	g.tree = nil
	g.closed = true
	return nil
}

func (g *Gateway[K, V]) doDestroy() error {
	name := g.name
	if g.tree != nil {
		if err := g.tree.Close(g.clock()); err != nil {
			return err
		}
		g.tree = nil
	}
	g.closed = false
	if name == "" {
		return nil
	}
	if err := g.opener.Remove(name); err != nil {
		return err
	}
	g.log().Warn("gateway.destroy", "store", name)
	return nil
}
