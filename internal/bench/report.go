package bench

import (
	"encoding/csv"
	"fmt"
	"runtime"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Result is one recorded measurement: a structure, a configuration
// (degree, LSM threshold, ...), an operation name, and the latency and
// memory footprint observed while running it.
type Result struct {
	Name      string
	Config    string
	Operation string
	LatencyNs int64
	MemMB     uint64
	Objects   uint64
}

type MemoryStats struct {
	AllocMB      uint64
	TotalAllocMB uint64
	HeapObjects  uint64
}

// SampleMemory forces a GC so the sample reflects live data rather
// than garbage awaiting collection, then reads runtime.MemStats.
func SampleMemory() MemoryStats {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	return MemoryStats{
		AllocMB:      m.Alloc / 1024 / 1024,
		TotalAllocMB: m.TotalAlloc / 1024 / 1024,
		HeapObjects:  m.HeapObjects,
	}
}

// Record appends one Result row to w.
func Record(w *csv.Writer, res Result) {
	w.Write([]string{
		res.Name,
		res.Config,
		res.Operation,
		strconv.FormatInt(res.LatencyNs, 10),
		strconv.FormatUint(res.MemMB, 10),
		strconv.FormatUint(res.Objects, 10),
	})
}

// WriteHeader writes the CSV column header row.
func WriteHeader(w *csv.Writer) {
	w.Write([]string{"Structure", "Config", "TestType", "LatencyNs", "MemMB", "HeapObjects"})
}

// RenderLatencyChart groups results by structure name and plots each
// group's insert latency across its swept configuration as one line,
// writing a PNG to path.
func RenderLatencyChart(results []Result, path string) error {
	byName := map[string]plotter.XYs{}
	var order []string
	for _, r := range results {
		if r.Operation != "Footprint_SteadyState" {
			continue
		}
		if _, ok := byName[r.Name]; !ok {
			order = append(order, r.Name)
		}
		conf, err := strconv.ParseFloat(r.Config, 64)
		if err != nil {
			continue
		}
		byName[r.Name] = append(byName[r.Name], plotter.XY{X: conf, Y: float64(r.LatencyNs)})
	}

	p := plot.New()
	p.Title.Text = "Insert latency by configuration"
	p.X.Label.Text = "Configuration (degree or LSM threshold)"
	p.Y.Label.Text = "Latency (ns/op)"

	var plotArgs []interface{}
	for _, name := range order {
		plotArgs = append(plotArgs, name, byName[name])
	}
	if err := plotutil.AddLinePoints(p, plotArgs...); err != nil {
		return fmt.Errorf("bench: render chart: %w", err)
	}

	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}
