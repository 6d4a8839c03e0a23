package worker

import (
	"context"

	"assetup/pkg/platform/ledgerevents"
)

// Worker consumes ledger events from a channel and persists them. It keeps
// background processing testable without wiring broker implementations.
type Worker struct {
	store ledgerevents.Store
	inbox <-chan ledgerevents.Event
}

func NewWorker(store ledgerevents.Store, inbox <-chan ledgerevents.Event) *Worker {
	return &Worker{store: store, inbox: inbox}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				return err
			}
		}
	}
}
