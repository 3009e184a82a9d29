package stats

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"github.com/olekukonko/tablewriter"
)

func renderTable(w io.Writer, rows []Summary) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Request", "Count", "OK", "Failed", "Min", "Mean", "P50", "P90", "P99", "Max", "Received"})

	for _, s := range rows {
		err := table.Append([]string{
			s.Name,
			strconv.FormatInt(s.Count, 10),
			strconv.FormatInt(s.Successes, 10),
			strconv.FormatInt(s.Failures, 10),
			formatLatency(s.Min),
			formatLatency(s.Mean),
			formatLatency(s.P50),
			formatLatency(s.P90),
			formatLatency(s.P99),
			formatLatency(s.Max),
			bytefmt.ByteSize(uint64(s.Bytes)),
		})
		if err != nil {
			return err
		}
	}

	return table.Render()
}

func formatLatency(d time.Duration) string {
	switch {
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
	default:
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
}
