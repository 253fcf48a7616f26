package procurement

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Trust score formula constants.
const (
	TrustBaseScore         = 50
	TrustMaxOnTimeBonus    = 30
	TrustMaxDelayPenalty   = 20
	TrustMinScore          = 0
	TrustMaxScore          = 100
	onTimeBonusFactor      = 0.3
	delayPenaltyPerDay     = 2
	noHistoryOnTimePercent = 100
)

// DefaultInvoiceAccuracy is the placeholder contribution used until an
// invoice-discrepancy signal exists. Callers may override it.
const DefaultInvoiceAccuracy = 10

// DeliveryRecord is one delivered or completed order as seen by the scorer.
type DeliveryRecord struct {
	OrderID      uuid.UUID
	ExpectedDate *time.Time
	ActualDate   *time.Time
}

// TrustScoreBreakdown is the auditable decomposition of a score.
type TrustScoreBreakdown struct {
	BaseScore       int `json:"base_score"`
	OnTimeBonus     int `json:"on_time_bonus"`
	DelayPenalty    int `json:"delay_penalty"`
	InvoiceAccuracy int `json:"invoice_accuracy"`
}

// TrustScoreResult is the full output of a scoring run.
type TrustScoreResult struct {
	TrustScore        int                 `json:"trust_score"`
	OnTimePercentage  int                 `json:"on_time_percentage"`
	TotalDeliveries   int                 `json:"total_deliveries"`
	OnTimeDeliveries  int                 `json:"on_time_deliveries"`
	DelayedDeliveries int                 `json:"delayed_deliveries"`
	AvgDelayDays      int                 `json:"avg_delay_days"`
	Breakdown         TrustScoreBreakdown `json:"breakdown"`
}

// ComputeTrustScore scores a vendor from its delivery history. It is a pure
// function: identical input always yields identical output, always within [0,100].
// Records missing either date are ignored.
func ComputeTrustScore(records []DeliveryRecord, invoiceAccuracy int) TrustScoreResult {
	var total, onTime int
	delays := make([]int, 0)
	for _, r := range records {
		if r.ExpectedDate == nil || r.ActualDate == nil {
			continue
		}
		total++
		if !r.ActualDate.After(*r.ExpectedDate) {
			onTime++
			continue
		}
		delays = append(delays, delayDays(*r.ExpectedDate, *r.ActualDate))
	}

	onTimePct := noHistoryOnTimePercent
	if total > 0 {
		onTimePct = roundHalfUp(100 * float64(onTime) / float64(total))
	}

	avgDelay := 0
	if len(delays) > 0 {
		sum := 0
		for _, d := range delays {
			sum += d
		}
		avgDelay = roundHalfUp(float64(sum) / float64(len(delays)))
	}

	bonus := min(TrustMaxOnTimeBonus, roundHalfUp(float64(onTimePct)*onTimeBonusFactor))
	penalty := min(TrustMaxDelayPenalty, avgDelay*delayPenaltyPerDay)
	score := TrustBaseScore + bonus - penalty + invoiceAccuracy
	score = max(TrustMinScore, min(TrustMaxScore, score))

	return TrustScoreResult{
		TrustScore:        score,
		OnTimePercentage:  onTimePct,
		TotalDeliveries:   total,
		OnTimeDeliveries:  onTime,
		DelayedDeliveries: len(delays),
		AvgDelayDays:      avgDelay,
		Breakdown: TrustScoreBreakdown{
			BaseScore:       TrustBaseScore,
			OnTimeBonus:     bonus,
			DelayPenalty:    penalty,
			InvoiceAccuracy: invoiceAccuracy,
		},
	}
}

// delayDays is the number of started days between expected and actual, never negative.
func delayDays(expected, actual time.Time) int {
	d := int(math.Ceil(actual.Sub(expected).Hours() / 24))
	if d < 0 {
		return 0
	}
	return d
}

// roundHalfUp rounds non-negative values half up, matching the dashboard's rounding.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
