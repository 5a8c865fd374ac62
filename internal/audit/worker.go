package audit

import "context"

// Worker consumes audit events from a channel and persists them. It decouples
// emission on the registration hot path from the sink's latency; events are
// best-effort and never block the core.
type Worker struct {
	store Store
	inbox <-chan Event
}

func NewWorker(store Store, inbox <-chan Event) *Worker {
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

// ChannelPublisher bridges Emit onto a worker inbox. Drops events when the
// inbox is full rather than blocking a registration.
type ChannelPublisher struct {
	inbox chan<- Event
}

func NewChannelPublisher(inbox chan<- Event) *ChannelPublisher {
	return &ChannelPublisher{inbox: inbox}
}

func (p *ChannelPublisher) Emit(_ context.Context, event Event) error {
	select {
	case p.inbox <- event:
	default:
	}
	return nil
}
