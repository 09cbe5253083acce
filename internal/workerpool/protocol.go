package workerpool

import (
	"context"
	"fmt"
)

// Request asks a worker to extract text from one document.
type Request struct {
	ID        string   `json:"id"`
	Kind      string   `json:"kind"` // constants.PDF or constants.IMAGE
	Name      string   `json:"name"`
	Data      []byte   `json:"data"`
	Languages []string `json:"languages,omitempty"`
}

// Response carries raw page texts for PDFs or recognized text for images.
// Error is set when the worker handled the request but extraction failed.
type Response struct {
	ID    string   `json:"id"`
	Pages []string `json:"pages,omitempty"`
	Text  string   `json:"text,omitempty"`
	Error string   `json:"error,omitempty"`
}

// Executor is one isolated execution context. Execute handles one request at
// a time; Terminate tears the context down and unblocks a pending Execute.
type Executor interface {
	Execute(ctx context.Context, req Request) (Response, error)
	Terminate() error
}

// Spawner creates executors. Available is the runtime capability probe: when
// it reports false, no executor can be spawned in this environment.
type Spawner interface {
	Spawn(ctx context.Context) (Executor, error)
	Available() bool
}

// Handler serves requests inside a worker.
type Handler func(ctx context.Context, req Request) Response

// safeHandle turns a handler panic into an application error.
func safeHandle(ctx context.Context, h Handler, req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			resp = Response{ID: req.ID, Error: fmt.Sprintf("worker panic: %v", r)}
		}
	}()
	return h(ctx, req)
}
