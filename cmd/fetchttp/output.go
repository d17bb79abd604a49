package main

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/MuntasirSZN/fetchttp"
)

func writeHead(w io.Writer, res *fetchttp.Response) {
	fmt.Fprintf(w, "%d %s\n", res.Status(), res.StatusText())
	names := slices.Sorted(res.Headers().Keys())
	for _, name := range names {
		v, _ := res.Headers().Get(name)
		fmt.Fprintf(w, "%s: %s\n", name, v)
	}
	fmt.Fprintln(w)
}

func writeStats(w io.Writer, res *fetchttp.Response, size int, elapsed time.Duration) {
	fmt.Fprintf(w, "%d %s, %s in %s\n",
		res.Status(), res.StatusText(),
		humanize.Bytes(uint64(size)),
		elapsed.Round(time.Millisecond))
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			var value string
			switch {
			case m.GetCounter() != nil:
				value = humanize.Ftoa(m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				value = fmt.Sprintf("count=%d sum=%s", h.GetSampleCount(), humanize.Ftoa(h.GetSampleSum()))
			default:
				continue
			}
			fmt.Fprintf(w, "%s{%s} %s\n", mf.GetName(), strings.Join(labels, ","), value)
		}
	}
	return nil
}
