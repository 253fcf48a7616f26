package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope of procurement metrics
const MeterName = "github.com/erp/procurement"

// ErrMeterNil is returned when metrics are built without a meter
var ErrMeterNil = errors.New("telemetry: meter is nil")

// PaymentOutcome labels what happened to a payment callback
type PaymentOutcome string

const (
	PaymentApplied   PaymentOutcome = "applied"
	PaymentDuplicate PaymentOutcome = "duplicate"
	PaymentRejected  PaymentOutcome = "rejected"
)

// ProcurementMetrics holds the business counters of the procurement lifecycle.
// All methods are no-ops on a nil receiver.
type ProcurementMetrics struct {
	poTransitions    *Counter
	invoicePayments  *Counter
	numberingRetries *Counter
	trustScores      *Histogram
}

// NewProcurementMetrics registers the procurement instruments on meter
func NewProcurementMetrics(meter metric.Meter) (*ProcurementMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	transitions, err := NewCounter(meter, "procurement.po.transitions",
		"Purchase order status transitions", "{transition}")
	if err != nil {
		return nil, err
	}
	payments, err := NewCounter(meter, "procurement.invoice.payments",
		"Payment callbacks processed against invoices", "{payment}")
	if err != nil {
		return nil, err
	}
	retries, err := NewCounter(meter, "procurement.numbering.retries",
		"Document number assignments retried after a uniqueness conflict", "{retry}")
	if err != nil {
		return nil, err
	}
	scores, err := NewHistogram(meter, "procurement.vendor.trust_score",
		"Recomputed vendor trust scores", "{score}", 20, 40, 60, 80, 100)
	if err != nil {
		return nil, err
	}

	return &ProcurementMetrics{
		poTransitions:    transitions,
		invoicePayments:  payments,
		numberingRetries: retries,
		trustScores:      scores,
	}, nil
}

// RecordTransition counts a purchase order status change
func (m *ProcurementMetrics) RecordTransition(ctx context.Context, from, to string) {
	if m == nil {
		return
	}
	m.poTransitions.Inc(ctx, AttrFromStatus.String(from), AttrToStatus.String(to))
}

// RecordPayment counts a payment callback by method and outcome
func (m *ProcurementMetrics) RecordPayment(ctx context.Context, method string, outcome PaymentOutcome) {
	if m == nil {
		return
	}
	m.invoicePayments.Inc(ctx, AttrPaymentMethod.String(method), AttrOutcome.String(string(outcome)))
}

// RecordNumberingRetry counts a retried number assignment
func (m *ProcurementMetrics) RecordNumberingRetry(ctx context.Context, documentType string) {
	if m == nil {
		return
	}
	m.numberingRetries.Inc(ctx, AttrDocumentType.String(documentType))
}

// RecordTrustScore records a recomputed trust score
func (m *ProcurementMetrics) RecordTrustScore(ctx context.Context, score int) {
	if m == nil {
		return
	}
	m.trustScores.Record(ctx, float64(score))
}
