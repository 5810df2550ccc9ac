package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientFunds occurs when a withdrawal exceeds the available balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateTransaction indicates the transaction id was already used by an
	// accepted deposit or withdrawal.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrAccountLocked is returned for deposits and withdrawals against an account
	// frozen by a chargeback.
	ErrAccountLocked = errors.New("account locked")

	// ErrInvalidAmount rejects deposits and withdrawals with a non-positive amount.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrUnknownTransaction means a dispute, resolve or chargeback referenced a
	// transaction id that was never accepted.
	ErrUnknownTransaction = errors.New("unknown transaction")

	// ErrClientMismatch means the referenced transaction belongs to another client.
	ErrClientMismatch = errors.New("transaction belongs to another client")

	// ErrInvalidDisputeState rejects a transition the dispute life-cycle does not allow.
	ErrInvalidDisputeState = errors.New("invalid dispute state")
)

// RecordError ties a rejected record to the reason it was rejected. All errors
// returned by Account.Apply are of this type.
type RecordError struct {
	Kind   Kind
	Client ClientID
	Tx     TxID
	Err    error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s client=%d tx=%d: %v", e.Kind, e.Client, e.Tx, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

func reject(rec Record, err error) error {
	return &RecordError{Kind: rec.Kind, Client: rec.Client, Tx: rec.Tx, Err: err}
}
