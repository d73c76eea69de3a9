package command

import (
	"fmt"
	"io"
	"strconv"

	"github.com/chickenshout/craftwatch/internal/monitor"
	"github.com/chickenshout/craftwatch/internal/service"
)

// WriteReports prints a window aggregate per server. Shared between the
// report command and the scheduled daily report.
func WriteReports(w io.Writer, days int, reports []service.ServerReport) {
	fmt.Fprintf(w, "=== server report, last %d day(s) ===\n", days)
	for _, r := range reports {
		fmt.Fprintf(w, "\n%s (%s)\n", r.Server.Name, r.Server.Address)
		fmt.Fprintf(w, "  peak online:    %s\n", formatPeak(r.Report.Peak))
		fmt.Fprintf(w, "  average online: %s\n", formatAverage(r.Report.Average))
		fmt.Fprintf(w, "  active days:    %d\n", r.Report.ActiveDays)
	}
}

// WriteFinding prints one flagged anomaly.
func WriteFinding(w io.Writer, f *monitor.Finding) {
	fmt.Fprintf(w, "  ! %s %s: %d online (baseline avg %.1f)\n",
		f.Server, f.Kind, f.Current, f.BaselineAvg)
}

func formatPeak(peak *int) string {
	if peak == nil {
		return "N/A"
	}
	return strconv.Itoa(*peak)
}

func formatAverage(avg *float64) string {
	if avg == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f", *avg)
}
