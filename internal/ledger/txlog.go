package ledger

import "sort"

// TxLog keeps every accepted deposit and withdrawal keyed by transaction id,
// with a secondary index by owning client.
type TxLog struct {
	entries  map[TxID]*Entry
	byClient map[ClientID][]TxID
}

// NewTxLog creates an empty transaction log.
func NewTxLog() *TxLog {
	return &TxLog{
		entries:  make(map[TxID]*Entry),
		byClient: make(map[ClientID][]TxID),
	}
}

// Record stores a new entry. The id must not be in use.
func (l *TxLog) Record(entry Entry) error {
	if _, exists := l.entries[entry.Tx]; exists {
		return ErrDuplicateTransaction
	}
	e := entry
	l.entries[entry.Tx] = &e
	l.byClient[entry.Client] = append(l.byClient[entry.Client], entry.Tx)
	return nil
}

// Lookup returns a copy of the entry for tx.
func (l *TxLog) Lookup(tx TxID) (Entry, bool) {
	e, ok := l.entries[tx]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// SetStatus overwrites the dispute status of tx. The caller validates the
// transition beforehand.
func (l *TxLog) SetStatus(tx TxID, status Status) error {
	e, ok := l.entries[tx]
	if !ok {
		return ErrUnknownTransaction
	}
	e.Status = status
	return nil
}

// ByClient returns the entries owned by client ordered by transaction id.
func (l *TxLog) ByClient(client ClientID) []Entry {
	ids := l.byClient[client]
	out := make([]Entry, 0, len(ids))
	for _, id := range ids {
		out = append(out, *l.entries[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tx < out[j].Tx })
	return out
}

// Len reports the number of entries.
func (l *TxLog) Len() int {
	return len(l.entries)
}
