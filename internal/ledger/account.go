package ledger

import "github.com/shopspring/decimal"

// Account holds one client's balances. Total is always Available + Held.
type Account struct {
	Client    ClientID
	Available decimal.Decimal
	Held      decimal.Decimal
	Locked    bool
}

// NewAccount creates an empty, unlocked account.
func NewAccount(client ClientID) *Account {
	return &Account{Client: client}
}

// Total returns Available + Held.
func (a *Account) Total() decimal.Decimal {
	return a.Available.Add(a.Held)
}

// Snapshot copies the current balances.
func (a *Account) Snapshot() Snapshot {
	return Snapshot{
		Client:    a.Client,
		Available: a.Available,
		Held:      a.Held,
		Total:     a.Total(),
		Locked:    a.Locked,
	}
}

// Apply applies rec to the account, reading and updating log. On error neither
// the account nor the log is modified and the returned error is a *RecordError.
func (a *Account) Apply(rec Record, log *TxLog) error {
	switch rec.Kind {
	case Deposit, Withdrawal:
		return a.applyFunds(rec, log)
	case Dispute, Resolve, Chargeback:
		return a.applyDispute(rec, log)
	default:
		return reject(rec, ErrInvalidDisputeState)
	}
}

func (a *Account) applyFunds(rec Record, log *TxLog) error {
	if !rec.Amount.IsPositive() {
		return reject(rec, ErrInvalidAmount)
	}
	if a.Locked {
		return reject(rec, ErrAccountLocked)
	}
	if _, exists := log.Lookup(rec.Tx); exists {
		return reject(rec, ErrDuplicateTransaction)
	}

	next := *a
	if rec.Kind == Deposit {
		next.Available = next.Available.Add(rec.Amount)
	} else {
		if a.Available.LessThan(rec.Amount) {
			return reject(rec, ErrInsufficientFunds)
		}
		next.Available = next.Available.Sub(rec.Amount)
	}

	if err := log.Record(Entry{Tx: rec.Tx, Client: a.Client, Kind: rec.Kind, Amount: rec.Amount}); err != nil {
		return reject(rec, err)
	}
	*a = next
	return nil
}

func (a *Account) applyDispute(rec Record, log *TxLog) error {
	entry, ok := log.Lookup(rec.Tx)
	if !ok {
		return reject(rec, ErrUnknownTransaction)
	}
	if entry.Client != a.Client {
		return reject(rec, ErrClientMismatch)
	}
	status, err := entry.Status.Transition(rec.Kind)
	if err != nil {
		return reject(rec, err)
	}

	next := *a
	x := entry.Amount
	switch entry.Kind {
	case Deposit:
		switch rec.Kind {
		case Dispute:
			next.Available = next.Available.Sub(x)
			next.Held = next.Held.Add(x)
		case Resolve:
			next.Held = next.Held.Sub(x)
			next.Available = next.Available.Add(x)
		case Chargeback:
			next.Held = next.Held.Sub(x)
			next.Locked = true
		}
	case Withdrawal:
		// A disputed withdrawal is held as a contingent amount on top of the
		// current balance; it only becomes available on chargeback.
		switch rec.Kind {
		case Dispute:
			next.Held = next.Held.Add(x)
		case Resolve:
			next.Held = next.Held.Sub(x)
		case Chargeback:
			next.Held = next.Held.Sub(x)
			next.Available = next.Available.Add(x)
			next.Locked = true
		}
	}

	if err := log.SetStatus(rec.Tx, status); err != nil {
		return reject(rec, err)
	}
	*a = next
	return nil
}
