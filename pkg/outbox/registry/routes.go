package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dagym/contract-backend/pkg/db/models"
	"github.com/dagym/contract-backend/pkg/enums"
	"github.com/dagym/contract-backend/pkg/outbox"
	"github.com/dagym/contract-backend/pkg/outbox/payloads"
)

// Task types the worker serves.
const (
	TaskContractLink   = "contract:link"
	TaskContractNotice = "contract:notice"
)

var payloadValidator = validator.New()

type decodeFunc func(json.RawMessage) (any, error)

// decodeAs unmarshals and validates a payload, returning it by value.
func decodeAs[T any](raw json.RawMessage) (any, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	if err := payloadValidator.Struct(v); err != nil {
		return nil, err
	}
	return v, nil
}

// Route says where one event type goes and how its data decodes.
type Route struct {
	EventType enums.OutboxEventType
	Aggregate enums.OutboxAggregateType
	TaskType  string
	Queue     string
	Version   int
	decode    decodeFunc
}

// Resolved is an outbox row that passed routing and payload checks.
type Resolved struct {
	Route    Route
	Envelope outbox.PayloadEnvelope
	Payload  any
}

type routeKey struct {
	eventType enums.OutboxEventType
	version   int
}

// Catalog is the routing table shared by the publisher, which resolves rows into tasks, and the
// worker, which decodes task data back into payloads.
type Catalog struct {
	queue  string
	routes map[routeKey]Route
}

func NewCatalog(queue string) (*Catalog, error) {
	if queue == "" {
		return nil, errors.New("registry: worker queue is required")
	}
	c := &Catalog{queue: queue, routes: make(map[routeKey]Route)}
	for _, t := range []enums.OutboxEventType{enums.EventContractSent, enums.EventContractResent} {
		c.add(t, TaskContractLink, decodeAs[payloads.ContractLinkEvent])
	}
	for _, t := range []enums.OutboxEventType{enums.EventContractSigned, enums.EventContractPaid, enums.EventContractCompleted} {
		c.add(t, TaskContractNotice, decodeAs[payloads.ContractStatusEvent])
	}
	return c, nil
}

func (c *Catalog) add(eventType enums.OutboxEventType, task string, decode decodeFunc) {
	c.routes[routeKey{eventType, outbox.CurrentVersion}] = Route{
		EventType: eventType,
		Aggregate: enums.AggregateContract,
		TaskType:  task,
		Queue:     c.queue,
		Version:   outbox.CurrentVersion,
		decode:    decode,
	}
}

// TaskTypes lists every task type the catalog can route to.
func (c *Catalog) TaskTypes() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, r := range c.routes {
		if _, ok := seen[r.TaskType]; ok {
			continue
		}
		seen[r.TaskType] = struct{}{}
		out = append(out, r.TaskType)
	}
	sort.Strings(out)
	return out
}

// Decode turns envelope data back into the typed payload for eventType at version.
func (c *Catalog) Decode(eventType enums.OutboxEventType, version int, data json.RawMessage) (any, error) {
	route, ok := c.routes[routeKey{eventType, version}]
	if !ok {
		return nil, fmt.Errorf("registry: no route for %s@v%d", eventType, version)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("registry: %s payload is empty", eventType)
	}
	payload, err := route.decode(trimmed)
	if err != nil {
		return nil, fmt.Errorf("registry: decode %s: %w", eventType, err)
	}
	return payload, nil
}

// Resolve checks an outbox row against its route. Every failure is Permanent since retrying the
// same row cannot fix it.
func (c *Catalog) Resolve(event models.OutboxEvent) (*Resolved, error) {
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, Permanent(fmt.Errorf("registry: decode envelope: %w", err))
	}
	route, ok := c.routes[routeKey{event.EventType, envelope.Version}]
	switch {
	case !ok:
		return nil, Permanent(fmt.Errorf("registry: no route for %s@v%d", event.EventType, envelope.Version))
	case route.Aggregate != event.AggregateType:
		return nil, Permanent(fmt.Errorf("registry: %s belongs to %s, got %s", event.EventType, route.Aggregate, event.AggregateType))
	case event.AggregateID == uuid.Nil:
		return nil, Permanent(errors.New("registry: aggregate id missing"))
	}
	payload, err := c.Decode(event.EventType, envelope.Version, envelope.Data)
	if err != nil {
		return nil, Permanent(err)
	}
	return &Resolved{Route: route, Envelope: envelope, Payload: payload}, nil
}

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as one a retry cannot fix.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}
