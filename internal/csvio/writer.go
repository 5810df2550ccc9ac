package csvio

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/congo-pay/ledger-engine/internal/ledger"
)

var outputHeader = []string{"client", "available", "held", "total", "locked"}

// WriteAccounts renders snapshots as CSV in the order given.
func WriteAccounts(w io.Writer, accounts []ledger.Snapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(outputHeader); err != nil {
		return err
	}
	row := make([]string, len(outputHeader))
	for _, a := range accounts {
		row[0] = strconv.FormatUint(uint64(a.Client), 10)
		row[1] = a.Available.StringFixed(AmountPlaces)
		row[2] = a.Held.StringFixed(AmountPlaces)
		row[3] = a.Total.StringFixed(AmountPlaces)
		row[4] = strconv.FormatBool(a.Locked)
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
