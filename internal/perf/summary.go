package perf

import (
	"io"
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gridforge/stencil/internal/ir"
)

// Metrics are the derived performance figures of one section for one run.
type Metrics struct {
	// Time is the measured wall time in seconds.
	Time float64
	// Flops is the total floating point operation count.
	Flops int
	// Traffic is the ideal memory traffic in bytes, every distinct access
	// counted once over the full data span.
	Traffic int
	// OI is the operational intensity, flops per byte of traffic.
	OI float64
	// GFlopss is the achieved performance in gigaflops per second.
	GFlopss float64
}

// Summary holds the per-section metrics of one kernel run. The section
// dominating the wall time is renamed "main".
type Summary struct {
	Sections map[string]Metrics
	// Order lists the section names in instrumentation order, after the
	// rename.
	Order []string
}

// Summarize combines the static section profiles with the measured
// timings, the resolved dimension sizes and the element size in bytes.
// Sections with no timer reading are skipped.
func (p *Profiler) Summarize(timings ir.Timings, sizes map[string]int, elemSize int) *Summary {
	s := &Summary{Sections: make(map[string]Metrics, len(p.Sections))}

	mainName, mainTime := "", -1.0
	for _, prof := range p.Sections {
		time, ok := timings[prof.Name]
		if !ok {
			continue
		}
		iterspace := prof.iterspace(sizes)
		dataspace := prof.dataspace(sizes)
		m := Metrics{
			Time:    time,
			Flops:   prof.Ops * iterspace,
			Traffic: prof.Accesses * dataspace * elemSize,
		}
		if m.Traffic > 0 {
			m.OI = float64(m.Flops) / float64(m.Traffic)
		}
		if time > 0 {
			m.GFlopss = float64(m.Flops) / 1e9 / time
		}
		s.Sections[prof.Name] = m
		s.Order = append(s.Order, prof.Name)
		if time > mainTime {
			mainName, mainTime = prof.Name, time
		}
	}

	if mainName != "" {
		m := s.Sections[mainName]
		delete(s.Sections, mainName)
		s.Sections["main"] = m
		for i, name := range s.Order {
			if name == mainName {
				s.Order[i] = "main"
			}
		}
	}
	return s
}

// GFlopss returns the achieved performance of the dominant section.
func (s *Summary) GFlopss() float64 {
	return s.Sections["main"].GFlopss
}

// Report writes a human readable table of the summary, sections in
// instrumentation order.
func (s *Summary) Report(w io.Writer) {
	pr := message.NewPrinter(language.English)
	names := append([]string(nil), s.Order...)
	if len(names) == 0 {
		for name := range s.Sections {
			names = append(names, name)
		}
		sort.Strings(names)
	}
	for _, name := range names {
		m := s.Sections[name]
		pr.Fprintf(w, "%s: %.6f s, %d flops, %d bytes, OI %.2f, %.3f GFlops/s\n",
			name, m.Time, m.Flops, m.Traffic, m.OI, m.GFlopss)
	}
}
