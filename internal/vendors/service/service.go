// Package service holds the vendor-domain registry services. The factory
// gates admission (fee, uniqueness, pause switch); the profile service
// mutates vendor records and their product catalogs.
package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"bazaar/internal/audit"
	vendormetrics "bazaar/internal/vendors/metrics"
	"bazaar/internal/vendors/store"
	"bazaar/pkg/attrs"
	"bazaar/pkg/domain"
	"bazaar/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// Ledger is the balance transfer primitive the factory charges fees through.
type Ledger interface {
	Transfer(ctx context.Context, from, to domain.AccountID, amount uint64) error
}

// NameIndex is the uniqueness mapping for vendor names.
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
	metrics        *vendormetrics.Metrics
	tx             StoreTx
}

type Option func(*serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) { c.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(c *serviceConfig) { c.auditPublisher = publisher }
}

func WithMetrics(m *vendormetrics.Metrics) Option {
	return func(c *serviceConfig) { c.metrics = m }
}

func WithTx(tx StoreTx) Option {
	return func(c *serviceConfig) { c.tx = tx }
}

type deps struct {
	profiles store.ProfileStore
	state    store.FactoryStateStore
	names    NameIndex
	tx       StoreTx
	logger   *slog.Logger
	audit    AuditPublisher
	metrics  *vendormetrics.Metrics
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
		audit:    cfg.auditPublisher,
		metrics:  cfg.metrics,
		tracer:   otel.Tracer("bazaar/vendors"),
	}
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
		Domain:    "vendors",
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
