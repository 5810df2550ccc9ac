package ledger

import "testing"

func TestTxLog_RecordAndLookup(t *testing.T) {
	log := NewTxLog()

	if err := log.Record(Entry{Tx: 7, Client: 1, Kind: Deposit, Amount: dec("2.5")}); err != nil {
		t.Fatalf("record: %v", err)
	}

	entry, ok := log.Lookup(7)
	if !ok {
		t.Fatal("expected entry 7 to exist")
	}
	if entry.Client != 1 || entry.Kind != Deposit || entry.Status != StatusNormal {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if _, ok := log.Lookup(8); ok {
		t.Fatal("expected entry 8 to be missing")
	}
}

func TestTxLog_DuplicateTransaction(t *testing.T) {
	log := NewTxLog()
	log.Record(Entry{Tx: 1, Client: 1, Kind: Deposit, Amount: dec("1")})

	if err := log.Record(Entry{Tx: 1, Client: 2, Kind: Withdrawal, Amount: dec("1")}); err != ErrDuplicateTransaction {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if entry, _ := log.Lookup(1); entry.Client != 1 {
		t.Fatalf("duplicate must not overwrite the original entry, got %+v", entry)
	}
}

func TestTxLog_SetStatus(t *testing.T) {
	log := NewTxLog()
	log.Record(Entry{Tx: 1, Client: 1, Kind: Deposit, Amount: dec("1")})

	if err := log.SetStatus(1, StatusDisputed); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if entry, _ := log.Lookup(1); entry.Status != StatusDisputed {
		t.Fatalf("expected disputed, got %s", entry.Status)
	}
	if err := log.SetStatus(2, StatusDisputed); err != ErrUnknownTransaction {
		t.Fatalf("expected unknown transaction, got %v", err)
	}
}

func TestTxLog_LookupReturnsCopy(t *testing.T) {
	log := NewTxLog()
	log.Record(Entry{Tx: 1, Client: 1, Kind: Deposit, Amount: dec("1")})

	entry, _ := log.Lookup(1)
	entry.Status = StatusChargedBack

	if stored, _ := log.Lookup(1); stored.Status != StatusNormal {
		t.Fatalf("lookup leaked a reference to the stored entry")
	}
}

func TestTxLog_ByClient(t *testing.T) {
	log := NewTxLog()
	log.Record(Entry{Tx: 9, Client: 1, Kind: Deposit, Amount: dec("1")})
	log.Record(Entry{Tx: 3, Client: 2, Kind: Deposit, Amount: dec("1")})
	log.Record(Entry{Tx: 4, Client: 1, Kind: Withdrawal, Amount: dec("1")})

	entries := log.ByClient(1)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries for client 1, got %d", len(entries))
	}
	if entries[0].Tx != 4 || entries[1].Tx != 9 {
		t.Fatalf("expected entries ordered by tx id, got %d, %d", entries[0].Tx, entries[1].Tx)
	}
	if got := log.ByClient(3); len(got) != 0 {
		t.Fatalf("expected no entries for unknown client, got %d", len(got))
	}
}

func TestStatusTransition(t *testing.T) {
	tests := []struct {
		from Status
		kind Kind
		want Status
		ok   bool
	}{
		{StatusNormal, Dispute, StatusDisputed, true},
		{StatusNormal, Resolve, StatusNormal, false},
		{StatusNormal, Chargeback, StatusNormal, false},
		{StatusDisputed, Dispute, StatusDisputed, false},
		{StatusDisputed, Resolve, StatusResolved, true},
		{StatusDisputed, Chargeback, StatusChargedBack, true},
		{StatusResolved, Dispute, StatusResolved, false},
		{StatusChargedBack, Dispute, StatusChargedBack, false},
		{StatusChargedBack, Resolve, StatusChargedBack, false},
	}
	for _, tt := range tests {
		got, err := tt.from.Transition(tt.kind)
		if (err == nil) != tt.ok {
			t.Fatalf("%s on %s: unexpected error %v", tt.kind, tt.from, err)
		}
		if got != tt.want {
			t.Fatalf("%s on %s: want %s got %s", tt.kind, tt.from, tt.want, got)
		}
	}
}

func TestParseKind(t *testing.T) {
	for input, want := range map[string]Kind{
		"deposit":       Deposit,
		" Withdrawal ":  Withdrawal,
		"DISPUTE":       Dispute,
		"resolve":       Resolve,
		"\tchargeback ": Chargeback,
	} {
		got, err := ParseKind(input)
		if err != nil || got != want {
			t.Fatalf("ParseKind(%q) = %v, %v; want %v", input, got, err, want)
		}
	}
	if _, err := ParseKind("transfer"); err == nil {
		t.Fatal("expected error for unknown type")
	}
}
