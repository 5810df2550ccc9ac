package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ClientID identifies a client account.
type ClientID uint16

// TxID identifies a deposit or withdrawal. Dispute, resolve and chargeback
// records reuse the id of the transaction they refer to.
type TxID uint32

// Kind is the type of a transaction record.
type Kind uint8

const (
	Deposit Kind = iota + 1
	Withdrawal
	Dispute
	Resolve
	Chargeback
)

var kindNames = map[Kind]string{
	Deposit:    "deposit",
	Withdrawal: "withdrawal",
	Dispute:    "dispute",
	Resolve:    "resolve",
	Chargeback: "chargeback",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind maps the textual record type to a Kind. Matching ignores case and
// surrounding whitespace.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown transaction type %q", s)
}

// Record is one parsed input line.
type Record struct {
	Kind   Kind
	Client ClientID
	Tx     TxID
	Amount decimal.Decimal
}

// Status is the dispute status of a ledger entry.
type Status uint8

const (
	StatusNormal Status = iota
	StatusDisputed
	StatusResolved
	StatusChargedBack
)

func (s Status) String() string {
	switch s {
	case StatusNormal:
		return "normal"
	case StatusDisputed:
		return "disputed"
	case StatusResolved:
		return "resolved"
	case StatusChargedBack:
		return "charged_back"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Transition returns the status an entry moves to when a record of kind k is
// applied to it. It is the only place the dispute life-cycle is encoded:
//
//	normal   --dispute-->    disputed
//	disputed --resolve-->    resolved     (terminal)
//	disputed --chargeback--> charged_back (terminal)
func (s Status) Transition(k Kind) (Status, error) {
	switch {
	case k == Dispute && s == StatusNormal:
		return StatusDisputed, nil
	case k == Resolve && s == StatusDisputed:
		return StatusResolved, nil
	case k == Chargeback && s == StatusDisputed:
		return StatusChargedBack, nil
	}
	return s, fmt.Errorf("%w: cannot %s a %s transaction", ErrInvalidDisputeState, k, s)
}

// Entry is the durable record of an accepted deposit or withdrawal.
type Entry struct {
	Tx     TxID
	Client ClientID
	Kind   Kind
	Amount decimal.Decimal
	Status Status
}

// Snapshot is a read-only copy of an account's balances.
type Snapshot struct {
	Client    ClientID
	Available decimal.Decimal
	Held      decimal.Decimal
	Total     decimal.Decimal
	Locked    bool
}
