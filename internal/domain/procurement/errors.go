package procurement

import (
	"fmt"

	"github.com/erp/procurement/internal/domain/shared"
)

// Procurement-specific error codes. Generic codes live in shared.
const (
	CodeOverpaymentRejected = "OVERPAYMENT_REJECTED"
	CodeNumberingConflict   = "NUMBERING_CONFLICT"
	CodePaymentPending      = "PAYMENT_PENDING"
	CodeDuplicatePayment    = "DUPLICATE_PAYMENT"
)

var (
	// ErrNumberingConflict signals a unique-number collision at insert time.
	// It is retried by the caller and never reaches the boundary as-is.
	ErrNumberingConflict = shared.NewDomainError(CodeNumberingConflict, "Document number already in use")
	// ErrDuplicatePayment signals that a transaction id was already recorded.
	ErrDuplicatePayment = shared.NewDomainError(CodeDuplicatePayment, "Payment transaction already recorded")
	// ErrCounterOfferNotImplemented is returned by every attempt to apply a vendor counter-offer.
	ErrCounterOfferNotImplemented = shared.NewDomainError(shared.CodeNotImplemented,
		"Applying a vendor counter-offer to the order is not implemented; revise the items explicitly")
)

func validationError(format string, args ...any) *shared.DomainError {
	return shared.NewDomainError(shared.CodeValidation, fmt.Sprintf(format, args...))
}

func invalidTransition(entity string, from, to fmt.Stringer) *shared.DomainError {
	return shared.NewDomainError(shared.CodeInvalidTransition,
		fmt.Sprintf("Cannot transition %s from %s to %s", entity, from, to))
}

func immutableRecord(entity string, status fmt.Stringer) *shared.DomainError {
	return shared.NewDomainError(shared.CodeImmutableRecord,
		fmt.Sprintf("%s in %s status can no longer be modified", entity, status))
}
