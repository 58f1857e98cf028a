package cli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/absmach/fldash/monitor"
	"github.com/fatih/color"
)

const none = "-"

func paint(name string) *color.Color {
	switch name {
	case "lightgreen":
		return color.New(color.FgHiGreen)
	case "orange":
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

func renderServer(w io.Writer, st monitor.ServerState) {
	if st.Connection != "" {
		fmt.Fprintf(w, "stream: %s\n", st.Connection)
	}

	if st.Waiting || st.Round == nil {
		fmt.Fprintln(w, color.YellowString("waiting for round data"))
	} else {
		r := st.Round
		fmt.Fprintf(w, "round %d  accuracy %.4f  loss %.4f  rejected %d  dp_sigma %.3f  clip_norm %.3f\n",
			r.Round, r.GlobalAccuracy, r.GlobalLoss, r.RejectedUpdates, r.DPSigma, r.ClipNorm)
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTRUST\tSTATUS\tSTALENESS")
	for _, c := range st.Clients {
		stale := none
		if c.Staleness != nil {
			stale = paint(c.Severity.Color()).Sprintf("%d (%s)", *c.Staleness, c.Severity)
		}
		fmt.Fprintf(tw, "%s\t%.3f\t%s\t%s\n", c.ID, c.Trust, paint(c.Band.Color()).Sprint(orNone(c.Status)), stale)
	}
	tw.Flush()

	if len(st.Logs) > 0 {
		fmt.Fprintln(w)
		for _, l := range st.Logs {
			fmt.Fprintf(w, "  %s\n", l)
		}
	}
}

func renderClient(w io.Writer, st monitor.ClientState) {
	fmt.Fprintf(w, "client %s\n", st.ClientID)
	if st.Failures > 0 {
		fmt.Fprintf(w, "failed fetches: %d\n", st.Failures)
	}
	if st.Waiting || st.Client == nil {
		fmt.Fprintln(w, color.YellowString("waiting for client data"))

		return
	}

	c := st.Client
	accuracy := none
	if c.LocalAccuracy != nil {
		accuracy = strconv.FormatFloat(*c.LocalAccuracy, 'f', 4, 64)
	}
	fmt.Fprintf(w, "trust %.3f  accuracy %s  update %s\n", c.Trust, accuracy, orNone(c.UpdateStatus))
	if c.DPSigma != nil && c.ClipNorm != nil {
		fmt.Fprintf(w, "dp_sigma %.3f  clip_norm %.3f\n", *c.DPSigma, *c.ClipNorm)
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tTRUST\tACCURACY")
	for _, p := range st.History {
		trust, _ := p.Value("trust")
		acc, _ := p.Value("accuracy")
		fmt.Fprintf(tw, "%s\t%.3f\t%.4f\n", p.Timestamp, trust, acc)
	}
	tw.Flush()
}

func orNone(s string) string {
	if s == "" {
		return none
	}

	return s
}
