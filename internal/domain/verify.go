package domain

import "strings"

// IntentStatusSucceeded is the processor status required before an order may
// settle.
const IntentStatusSucceeded = "succeeded"

// Settlement verification failure codes. Each check in the chain has its own
// code so callers can route the user appropriately.
const (
	CodeVerificationFailed = "PAYMENT_VERIFICATION_FAILED"
	CodeNotCompleted       = "PAYMENT_NOT_COMPLETED"
	CodeCurrencyMismatch   = "CURRENCY_MISMATCH"
	CodeAmountMismatch     = "AMOUNT_MISMATCH"
	CodeUserMismatch       = "USER_MISMATCH"
)

// SettlementIntent is the authoritative view of a payment intent as
// retrieved from the processor. Everything here is untrusted input until
// verified.
type SettlementIntent struct {
	ID             string
	Status         string
	Currency       string
	Amount         int64
	AmountReceived int64
	MetadataUserID string
}

// Received returns the captured amount, falling back to the intent amount
// when the processor did not report amount_received.
func (i SettlementIntent) Received() int64 {
	if i.AmountReceived > 0 {
		return i.AmountReceived
	}
	return i.Amount
}

// SettlementExpectation pins what the settlement step must observe. The
// intent ID may be empty when no intent was ever linked to the checkout; the
// amount and currency always carry a value, sourced from the session when
// present and from the order's stored payment fields otherwise.
type SettlementExpectation struct {
	IntentID string
	Amount   int64
	Currency string
}

// VerificationError reports a failed settlement check.
type VerificationError struct {
	Code    string
	Message string
}

func (e *VerificationError) Error() string {
	return e.Message
}

// VerifySettlement runs the settlement verification chain. It is pure: no
// I/O, no clock. A nil return means the intent is proven to belong to this
// user's checkout, has succeeded, and matches the expected amount and
// currency. Checks run in a fixed order and the first failure wins.
func VerifySettlement(userID, returnedIntentID string, exp SettlementExpectation, intent SettlementIntent) *VerificationError {
	if exp.IntentID != "" && returnedIntentID != exp.IntentID {
		return &VerificationError{
			Code:    CodeVerificationFailed,
			Message: "payment reference does not match this checkout",
		}
	}
	if intent.Status != IntentStatusSucceeded {
		return &VerificationError{
			Code:    CodeNotCompleted,
			Message: "payment has not completed",
		}
	}
	if !strings.EqualFold(intent.Currency, exp.Currency) {
		return &VerificationError{
			Code:    CodeCurrencyMismatch,
			Message: "payment currency does not match the order",
		}
	}
	if intent.Received() != exp.Amount {
		return &VerificationError{
			Code:    CodeAmountMismatch,
			Message: "captured amount does not match the order total",
		}
	}
	if intent.MetadataUserID != userID {
		return &VerificationError{
			Code:    CodeUserMismatch,
			Message: "payment does not belong to this account",
		}
	}
	return nil
}
