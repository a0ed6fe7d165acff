// Package reportpretty renders an ExecutionReport as a human-readable
// event timeline, for the CLI's apply command.
package reportpretty

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/a-h/patchkit/model"
)

// Fprint writes r to w as a timeline of timestamped events followed by
// a one-line summary, e.g.:
//
//	[12:04:05.120] TX_BEGIN           write transaction started
//	[12:04:05.131] ACTION_OK          update balance
//	[12:04:05.140] PATCH_SUCCESS      patch applied successfully
//	patch "add-loyalty-column" succeeded in 20ms, 1 row(s) affected
func Fprint(w io.Writer, r model.ExecutionReport) error {
	for _, e := range r.Events {
		ts := time.UnixMilli(e.TsMillis).UTC().Format("15:04:05.000")
		if _, err := fmt.Fprintf(w, "[%s] %-18s %s\n", ts, e.Code, e.Message); err != nil {
			return err
		}
	}

	status := "failed"
	if r.Success() {
		status = "succeeded"
	}
	duration := time.Duration(r.DurationMillis()) * time.Millisecond
	_, err := fmt.Fprintf(w, "patch %q %s in %s, %s row(s) affected\n",
		r.PatchID, status, duration, humanize.Comma(int64(r.AffectedRows)))
	return err
}
