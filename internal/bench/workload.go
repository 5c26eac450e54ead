// Package bench drives every index.Index implementation through the
// same load-then-mixed-workload sequence and records latency and
// memory measurements for comparison.
package bench

import (
	"math/rand"

	"github.com/orderedkv/btreekv/internal/bench/index"
)

type WorkloadType string

const (
	OLTP      WorkloadType = "OLTP (90/10)"
	OLAP      WorkloadType = "OLAP (10/90)"
	Reporting WorkloadType = "Reporting (Range)"
)

// ExecuteWorkload runs ops operations against idx, mixing point reads,
// writes, and range scans according to wType.
func ExecuteWorkload(idx index.Index, wType WorkloadType, ops int) {
	for i := 0; i < ops; i++ {
		choice := rand.Intn(100)
		key := int64(rand.Intn(ops))

		switch wType {
		case OLTP:
			if choice < 90 {
				_, _ = idx.Get(key)
			} else {
				idx.Insert(key, []byte("x"))
			}
		case OLAP:
			if choice < 10 {
				_, _ = idx.Get(key)
			} else {
				idx.Insert(key, []byte("x"))
			}
		case Reporting:
			it, err := idx.Range(key, key+100)
			if err == nil && it != nil {
				for it.Next() {
				}
				it.Close()
			}
		}
	}
}
