package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/dagym/contract-backend/pkg/logger"
	"github.com/dagym/contract-backend/pkg/metrics"
	"github.com/dagym/contract-backend/pkg/outbox"
	"github.com/dagym/contract-backend/pkg/outbox/idempotency"
	"github.com/dagym/contract-backend/pkg/outbox/payloads"
	"github.com/dagym/contract-backend/pkg/outbox/registry"
)

var errNoSender = errors.New("no sender for channel")

// HandlerParams wires the delivery handler.
type HandlerParams struct {
	Logger      *logger.Logger
	Catalog     *registry.Catalog
	Dedupe      *idempotency.Deduper
	Sender      Sender
	Metrics     *metrics.RunMetrics
}

// Handler consumes contract delivery tasks.
type Handler struct {
	logg     *logger.Logger
	catalog  *registry.Catalog
	dedupe   *idempotency.Deduper
	sender   Sender
	metrics  *metrics.RunMetrics
}

func NewHandler(params HandlerParams) (*Handler, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Dedupe == nil {
		return nil, errors.New("deduper required")
	}
	if params.Sender == nil {
		return nil, errors.New("sender required")
	}
	if params.Catalog == nil {
		return nil, errors.New("route catalog required")
	}
	return &Handler{
		logg:     params.Logger,
		catalog:  params.Catalog,
		dedupe:   params.Dedupe,
		sender:   params.Sender,
		metrics:  params.Metrics,
	}, nil
}

// HandleContractLink delivers the signing link for sent and resent contracts.
func (h *Handler) HandleContractLink(ctx context.Context, t *asynq.Task) error {
	return h.handle(ctx, t, func(payload any) (Message, error) {
		event, ok := payload.(payloads.ContractLinkEvent)
		if !ok {
			return Message{}, fmt.Errorf("unexpected payload %T", payload)
		}
		return RenderLink(event)
	})
}

// HandleContractNotice delivers signed, paid and completed notices.
func (h *Handler) HandleContractNotice(ctx context.Context, t *asynq.Task) error {
	return h.handle(ctx, t, func(payload any) (Message, error) {
		event, ok := payload.(payloads.ContractStatusEvent)
		if !ok {
			return Message{}, fmt.Errorf("unexpected payload %T", payload)
		}
		return RenderStatus(event)
	})
}

func (h *Handler) handle(ctx context.Context, t *asynq.Task, render func(any) (Message, error)) (resultErr error) {
	start := time.Now()
	defer func() { h.metrics.Observe(t.Type(), time.Since(start), resultErr) }()

	var msg outbox.TaskMessage
	if err := json.Unmarshal(t.Payload(), &msg); err != nil {
		h.logg.Error(ctx, "undecodable dispatch task", err)
		return fmt.Errorf("decode task: %v: %w", err, asynq.SkipRetry)
	}
	ctx = h.logg.WithFields(ctx, map[string]any{
		"task_type":    t.Type(),
		"event_type":   msg.EventType,
		"event_id":     msg.Envelope.EventID,
		"contract_id":  msg.AggregateID.String(),
		"outbox_id":    msg.OutboxID.String(),
		"envelope_ver": msg.Envelope.Version,
	})

	payload, err := h.catalog.Decode(msg.EventType, msg.Envelope.Version, msg.Envelope.Data)
	if err != nil {
		h.logg.Error(ctx, "dispatch payload rejected", err)
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	rendered, err := render(payload)
	if err != nil {
		h.logg.Error(ctx, "dispatch message not renderable", err)
		return fmt.Errorf("render: %v: %w", err, asynq.SkipRetry)
	}

	eventID := dedupeID(msg)
	first, err := h.dedupe.Claim(ctx, t.Type(), eventID)
	if err != nil {
		return fmt.Errorf("dedupe claim: %w", err)
	}
	if !first {
		h.logg.Info(ctx, "dispatch task already processed")
		return nil
	}

	if err := h.sender.Send(ctx, rendered); err != nil {
		if relErr := h.dedupe.Release(ctx, t.Type(), eventID); relErr != nil {
			h.logg.Error(ctx, "dedupe release failed", relErr)
		}
		if errors.Is(err, errNoSender) {
			return fmt.Errorf("send: %v: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("send: %w", err)
	}
	h.logg.Info(h.logg.WithField(ctx, "channel", rendered.Channel), "dispatch task delivered")
	return nil
}

func dedupeID(msg outbox.TaskMessage) uuid.UUID {
	if id, err := uuid.Parse(msg.Envelope.EventID); err == nil {
		return id
	}
	return msg.OutboxID
}
