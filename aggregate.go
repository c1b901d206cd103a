package main

// Merge combines two aggregates into a new one. Neither input is modified.
// Keys missing from one side count as zero, so Merge is commutative and
// associative with the empty aggregate as identity.
func Merge(a, b Aggregate) Aggregate {
	out := make(Aggregate, max(len(a), len(b)))
	for ext, s := range a {
		out[ext] = s
	}
	for ext, s := range b {
		out[ext] = out[ext].Plus(s)
	}
	return out
}

// add accumulates s under ext in place. Only used on an aggregate owned by a
// single goroutine.
func (a Aggregate) add(ext string, s FileStats) {
	a[ext] = a[ext].Plus(s)
}

// total sums every entry of the aggregate.
func (a Aggregate) total() FileStats {
	var t FileStats
	for _, s := range a {
		t = t.Plus(s)
	}
	return t
}
