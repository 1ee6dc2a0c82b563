package batch

import (
	"fmt"
	"io"

	"github.com/webreel/webreel/internal/recorder"
)

// WriteSummary renders the human-readable batch report: one OK/FAIL row per
// job in input order, then a totals line.
func WriteSummary(w io.Writer, results recorder.BatchResult) {
	for _, res := range results {
		if res.Success {
			fmt.Fprintf(w, "OK   %s -> %s\n", res.URL, res.OutputPath)
		} else {
			fmt.Fprintf(w, "FAIL %s: %s\n", res.URL, res.ErrorText)
		}
	}
	succeeded, failed := results.Counts()
	fmt.Fprintf(w, "Total: %d | Success: %d | Failed: %d\n", len(results), succeeded, failed)
}
