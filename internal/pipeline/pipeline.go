package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/expense-inbox/internal/gcs"
	"github.com/dvloznov/expense-inbox/internal/logger"
	"github.com/dvloznov/expense-inbox/internal/notify"
	"github.com/google/uuid"
)

// Notifier sends the reply email. Implementations never fail the invocation.
type Notifier interface {
	Notify(ctx context.Context, reply notify.Reply)
}

// Orchestrator handles one storage event end to end.
type Orchestrator struct {
	pipeline *Pipeline
	notifier Notifier
	prefix   string
}

// NewOrchestrator creates an orchestrator. Objects whose key is outside
// prefix are ignored; an empty prefix accepts everything.
func NewOrchestrator(p *Pipeline, n Notifier, prefix string) *Orchestrator {
	return &Orchestrator{pipeline: p, notifier: n, prefix: prefix}
}

// Handle processes the email stored at ref.
//
// A dropped sender returns nil with no side effects. Any failure after the
// sender check is reported to the sender by email and then returned; use
// IsTransient to decide whether the event should be retried.
func (o *Orchestrator) Handle(ctx context.Context, ref gcs.ObjectRef) error {
	log := logger.WithFields(logger.FromContext(ctx), map[string]interface{}{
		"invocation_id": uuid.NewString(),
		"bucket":        ref.Bucket,
		"key":           ref.Key,
	})
	ctx = logger.WithContext(ctx, log)

	if !ref.HasPrefix(o.prefix) {
		log.Debug().Str("prefix", o.prefix).Msg("Object outside key prefix, ignoring")
		return nil
	}

	start := time.Now()
	state := &State{Ref: ref}

	err := o.pipeline.Execute(ctx, state)
	if state.Dropped {
		return nil
	}

	if err != nil {
		state.Stage = StageFailed
		log.Error().Err(err).Bool("transient", IsTransient(err)).Msg("Failed to process email")

		if state.SenderOK {
			o.notifier.Notify(ctx, notify.Reply{
				To:      state.Message.From,
				Subject: state.Message.Subject,
				Err:     replyError(err),
			})
		}
		return err
	}

	state.Stage = StageReplying
	o.notifier.Notify(ctx, notify.Reply{
		To:      state.Message.From,
		Subject: state.Message.Subject,
		Row:     state.Row,
	})
	state.Stage = StageDone

	log.Info().
		Str("amount", state.Row.Amount).
		Str("sent_to", state.Row.SentTo).
		Dur("duration", time.Since(start)).
		Msg("Recorded expense")
	return nil
}

// replyError strips the stage wrapper so the sender sees the underlying cause.
func replyError(err error) error {
	var se *StageError
	if errors.As(err, &se) {
		return se.Err
	}
	return err
}
