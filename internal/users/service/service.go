// Package service holds the user-domain registry services: the factory
// (admission control, fee collection, uniqueness) and the profile service
// (owner-gated record mutation). Storage and HTTP concerns live in other
// layers.
package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"bazaar/internal/audit"
	usermetrics "bazaar/internal/users/metrics"
	"bazaar/internal/users/store"
	"bazaar/pkg/attrs"
	"bazaar/pkg/domain"
	"bazaar/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// Ledger is the balance transfer primitive the factory charges fees through.
type Ledger interface {
	Transfer(ctx context.Context, from, to domain.AccountID, amount uint64) error
}

// NameIndex is the uniqueness mapping for usernames.
type NameIndex interface {
	Claim(ctx context.Context, name string, target domain.Address) error
	Release(ctx context.Context, name string) error
	Lookup(ctx context.Context, name string) (domain.Address, error)
}

// AuditPublisher receives fire-and-forget registry events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type serviceConfig struct {
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *usermetrics.Metrics
	tx             StoreTx
}

type Option func(*serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) { c.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(c *serviceConfig) { c.auditPublisher = publisher }
}

func WithMetrics(m *usermetrics.Metrics) Option {
	return func(c *serviceConfig) { c.metrics = m }
}

func WithTx(tx StoreTx) Option {
	return func(c *serviceConfig) { c.tx = tx }
}

// deps bundles what both services share.
type deps struct {
	profiles store.ProfileStore
	state    store.FactoryStateStore
	names    NameIndex
	tx       StoreTx
	logger   *slog.Logger
	audit    AuditPublisher
	metrics  *usermetrics.Metrics
	tracer   trace.Tracer
}

func newDeps(profiles store.ProfileStore, state store.FactoryStateStore, names NameIndex, opts []Option) deps {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	tx := cfg.tx
	if tx == nil {
		tx = NewInMemoryTx()
	}
	return deps{
		profiles: profiles,
		state:    state,
		names:    names,
		tx:       tx,
		logger:   cfg.logger,
		audit:    cfg.audit(),
		metrics:  cfg.metrics,
		tracer:   otel.Tracer("bazaar/users"),
	}
}

func (c *serviceConfig) audit() AuditPublisher {
	return c.auditPublisher
}

// emitAudit logs the action and forwards it to the audit sink. Attributes are
// [key, value, ...] pairs; recognized keys become event fields.
func (d *deps) emitAudit(ctx context.Context, action string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	if d.logger != nil {
		args := append(attributes, "event", action, "log_type", "audit")
		d.logger.InfoContext(ctx, action, args...)
	}
	if d.audit == nil {
		return
	}
	_ = d.audit.Emit(ctx, audit.Event{
		Domain:    "users",
		Action:    action,
		Actor:     attrs.ExtractString(attributes, "actor"),
		Profile:   attrs.ExtractString(attributes, "profile"),
		Name:      attrs.ExtractString(attributes, "name"),
		OldValue:  attrs.ExtractString(attributes, "old_value"),
		NewValue:  attrs.ExtractString(attributes, "new_value"),
		Amount:    attrs.ExtractUint64(attributes, "amount"),
		RequestID: attrs.ExtractString(attributes, "request_id"),
	})
}
