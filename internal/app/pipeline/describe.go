package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DescribeStyle selects the service-description output format.
type DescribeStyle int

const (
	// DescribePlain writes labelled sections for an operator.
	DescribePlain DescribeStyle = iota
	// DescribeShell writes key=value lines for script consumption.
	DescribeShell
)

// Describe renders the service description: all offerings, then per
// configured offering its observed properties, procedures and time extent.
func (p *Pipeline) Describe(ctx context.Context, style DescribeStyle) (string, error) {
	caps, err := p.deps.Client.Capabilities(ctx)
	if err != nil {
		return "", err
	}
	p.caps = caps

	var b strings.Builder
	ids := make([]string, 0, len(caps.Offerings))
	for _, off := range caps.Offerings {
		ids = append(ids, off.ID)
	}
	if style == DescribeShell {
		fmt.Fprintf(&b, "offerings=%s\n", strings.Join(ids, ","))
	} else {
		b.WriteString("SOS offerings:\n")
		for _, id := range ids {
			b.WriteString(id)
			b.WriteByte('\n')
		}
	}

	for _, id := range p.cfg.Request.Offerings {
		off, err := caps.Offering(id)
		if err != nil {
			return "", err
		}

		// procedure ids are URNs; only the last segment is meaningful
		procs := make([]string, 0, len(off.Procedures))
		for _, proc := range off.Procedures {
			parts := strings.Split(proc, ":")
			procs = append(procs, parts[len(parts)-1])
		}
		extent := describeStamp(off.Begin) + "/" + describeStamp(off.End)

		if style == DescribeShell {
			fmt.Fprintf(&b, "%s_observed_properties=%s\n", id, strings.Join(off.ObservedProperties, ","))
			fmt.Fprintf(&b, "%s_procedures=%s\n", id, strings.Join(procs, ","))
			fmt.Fprintf(&b, "%s_time=%s\n", id, extent)
			continue
		}
		fmt.Fprintf(&b, "Observed properties of %s offering:\n", id)
		for _, prop := range off.ObservedProperties {
			b.WriteString(prop)
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "Procedures of %s offering:\n", id)
		for _, proc := range procs {
			b.WriteString(proc)
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "Begin and end timestamps of %s offering:\n%s\n", id, extent)
	}
	return b.String(), nil
}

func describeStamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05")
}
