package stats

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// Render writes the report as aligned plain text.
func Render(w io.Writer, rep *Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Report generated at %s\n\n", rep.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	c := rep.Conversions
	fmt.Fprintln(tw, "CONVERSIONS")
	fmt.Fprintf(tw, "users with history\t%d\n", c.UsersWithHistory)
	fmt.Fprintf(tw, "from USDS\t%d\t%s\n", c.FromUSDSCount, c.FromUSDSAmount.StringFixed(2))
	fmt.Fprintf(tw, "to USDS\t%d\t%s\n", c.ToUSDSCount, c.ToUSDSAmount.StringFixed(2))
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "PAID INTEREST")
	fmt.Fprintf(tw, "users\t%d\n", rep.Interest.Users)
	fmt.Fprintf(tw, "total\t%s\n", rep.Interest.Total.StringFixed(2))
	fmt.Fprintln(tw)

	writeBalances(tw, "POSITIVE BALANCES", rep.Balances.Settled)
	writeBalances(tw, "POSITIVE PENDING BALANCES", rep.Balances.Pending)

	return tw.Flush()
}

func writeBalances(w io.Writer, title string, lines []BalanceLine) {
	fmt.Fprintln(w, title)
	if len(lines) == 0 {
		fmt.Fprintln(w, "(none)")
	}
	for _, l := range lines {
		fmt.Fprintf(w, "%s\t%s\t%s\n", l.UserID, l.Currency, l.Amount.StringFixed(balancePlaces))
	}
	fmt.Fprintln(w)
}
