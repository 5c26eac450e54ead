// Command btreebench sweeps B-Tree/B+Tree degree and LSM-Tree flush
// threshold, at one dataset size (-n), across the CORE B-Tree and its
// baseline structures (an on-disk LSM via Pebble, an
// in-memory LSM with a Bloom filter, a B+Tree, and a naive list),
// recording insert/workload/range-scan latency and memory footprint to
// a CSV file and a latency chart.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/orderedkv/btreekv/internal/bench"
	"github.com/orderedkv/btreekv/internal/bench/bplustree"
	"github.com/orderedkv/btreekv/internal/bench/btreeadapter"
	"github.com/orderedkv/btreekv/internal/bench/index"
	"github.com/orderedkv/btreekv/internal/bench/listindex"
	"github.com/orderedkv/btreekv/internal/bench/lsm"
	"github.com/orderedkv/btreekv/internal/bench/lsmtree"
)

func main() {
	var (
		outCSV  = flag.String("csv", "btreebench_results.csv", "output CSV path")
		outPNG  = flag.String("chart", "btreebench_latency.png", "output latency chart path")
		scale   = flag.Int("n", 1_000_000, "dataset size per configuration")
		lsmDir  = flag.String("lsm-dir", "", "directory for the on-disk Pebble LSM baseline (skipped if empty)")
		degrees = flag.String("degrees", "8,32,128", "comma-separated B-Tree/B+Tree degrees to sweep")
	)
	flag.Parse()

	degreeList, err := parseInts(*degrees)
	if err != nil {
		log.Fatalf("btreebench: -degrees: %v", err)
	}

	f, err := os.Create(*outCSV)
	if err != nil {
		log.Fatalf("btreebench: create %s: %v", *outCSV, err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	bench.WriteHeader(w)

	var results []bench.Result
	record := func(r bench.Result) {
		results = append(results, r)
		bench.Record(w, r)
	}

	for _, d := range degreeList {
		bt, err := btreeadapter.New(d, *scale)
		if err != nil {
			log.Fatalf("btreebench: build B-Tree degree %d: %v", d, err)
		}
		runSuite(record, "B-Tree", d, bt, *scale)

		runSuite(record, "BPlusTree", d, bplustree.NewBPlusTree(d), *scale)
	}

	for _, threshold := range []int{1000, 10000} {
		runSuite(record, "LSM-Tree", threshold, lsmtree.NewLSM(threshold), *scale)
	}

	if *lsmDir != "" {
		pebbleIdx, err := lsm.Open(*lsmDir)
		if err != nil {
			log.Fatalf("btreebench: open pebble at %s: %v", *lsmDir, err)
		}
		runSuite(record, "Pebble-LSM", 0, pebbleIdx, *scale)
		pebbleIdx.Close()
	}

	runSuite(record, "ListIndex", 0, listindex.NewListIndex(), min(*scale, 50_000))

	w.Flush()
	if err := w.Error(); err != nil {
		log.Fatalf("btreebench: write csv: %v", err)
	}

	if err := bench.RenderLatencyChart(results, *outPNG); err != nil {
		log.Fatalf("btreebench: render chart: %v", err)
	}

	fmt.Printf("Benchmark complete: %s, %s\n", *outCSV, *outPNG)
}

func runSuite(record func(bench.Result), name string, conf int, idx index.Index, n int) {
	fmt.Printf("Testing %s (Config: %d)\n", name, conf)
	confStr := strconv.Itoa(conf)

	start := time.Now()
	for k := 0; k < n; k++ {
		idx.Insert(int64(k), []byte("v"))
	}
	insertLatency := time.Since(start).Nanoseconds() / int64(n)

	stats := bench.SampleMemory()
	record(bench.Result{
		Name:      name,
		Config:    confStr,
		Operation: "Footprint_SteadyState",
		LatencyNs: insertLatency,
		MemMB:     stats.AllocMB,
		Objects:   stats.HeapObjects,
	})

	start = time.Now()
	bench.ExecuteWorkload(idx, bench.OLTP, n/2)
	record(bench.Result{
		Name: name, Config: confStr, Operation: "Workload_OLTP",
		LatencyNs: time.Since(start).Nanoseconds() / int64(n/2),
		MemMB:     bench.SampleMemory().AllocMB,
	})

	start = time.Now()
	bench.ExecuteWorkload(idx, bench.OLAP, n/2)
	record(bench.Result{
		Name: name, Config: confStr, Operation: "Workload_OLAP",
		LatencyNs: time.Since(start).Nanoseconds() / int64(n/2),
		MemMB:     bench.SampleMemory().AllocMB,
	})

	start = time.Now()
	bench.ExecuteWorkload(idx, bench.Reporting, 100)
	record(bench.Result{
		Name: name, Config: confStr, Operation: "Workload_Range",
		LatencyNs: time.Since(start).Nanoseconds() / 100,
		MemMB:     bench.SampleMemory().AllocMB,
	})
}

func parseInts(csvList string) ([]int, error) {
	var out []int
	start := 0
	for i := 0; i <= len(csvList); i++ {
		if i == len(csvList) || csvList[i] == ',' {
			if i > start {
				v, err := strconv.Atoi(csvList[start:i])
				if err != nil {
					return nil, err
				}
				out = append(out, v)
			}
			start = i + 1
		}
	}
	return out, nil
}
