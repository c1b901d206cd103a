package main

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleAggregates() (Aggregate, Aggregate, Aggregate) {
	a := Aggregate{"go": {Tokens: 10, Lines: 3, Files: 1}, "rs": {Tokens: 4, Lines: 1, Files: 2}}
	b := Aggregate{"go": {Tokens: 1, Lines: 1, Files: 1}, "": {Files: 1}}
	c := Aggregate{"ts": {Tokens: 7, Lines: 2, Files: 1}, "rs": {Tokens: 1, Lines: 1, Files: 1}}
	return a, b, c
}

func TestMerge_SumsFieldWise(t *testing.T) {
	t.Parallel()

	a, b, _ := sampleAggregates()
	got := Merge(a, b)

	assert.Equal(t, Aggregate{
		"go": {Tokens: 11, Lines: 4, Files: 2},
		"rs": {Tokens: 4, Lines: 1, Files: 2},
		"":   {Files: 1},
	}, got)
}

func TestMerge_DoesNotModifyInputs(t *testing.T) {
	t.Parallel()

	a, b, _ := sampleAggregates()
	Merge(a, b)

	assert.Equal(t, FileStats{Tokens: 10, Lines: 3, Files: 1}, a["go"])
	assert.Equal(t, FileStats{Tokens: 1, Lines: 1, Files: 1}, b["go"])
	assert.Len(t, a, 2)
}

func TestMerge_Identity(t *testing.T) {
	t.Parallel()

	a, _, _ := sampleAggregates()

	assert.Equal(t, a, Merge(a, Aggregate{}))
	assert.Equal(t, a, Merge(Aggregate{}, a))
	assert.Equal(t, a, Merge(nil, a))
}

func TestMerge_CommutativeAndAssociative(t *testing.T) {
	t.Parallel()

	a, b, c := sampleAggregates()

	assert.Equal(t, Merge(a, b), Merge(b, a))
	assert.Equal(t, Merge(Merge(a, b), c), Merge(a, Merge(b, c)))
	assert.Equal(t, Merge(Merge(c, a), b), Merge(a, Merge(b, c)))
}

func TestMerge_PartitioningDoesNotChangeResult(t *testing.T) {
	t.Parallel()

	exts := []string{"go", "rs", "ts", "", "md"}
	var singles []Aggregate
	for i := 0; i < 200; i++ {
		singles = append(singles, Aggregate{exts[i%len(exts)]: {
			Tokens: int64(i * 3), Lines: int64(i), Files: 1,
		}})
	}

	sequential := Aggregate{}
	for _, s := range singles {
		sequential = Merge(sequential, s)
	}

	for _, groups := range []int{1, 2, 3, 7, 64} {
		partials := make([]Aggregate, groups)
		var wg sync.WaitGroup
		for g := 0; g < groups; g++ {
			wg.Add(1)
			go func(g int) {
				defer wg.Done()
				acc := Aggregate{}
				for i := g; i < len(singles); i += groups {
					acc = Merge(acc, singles[i])
				}
				partials[g] = acc
			}(g)
		}
		wg.Wait()

		// Fold the partials right-to-left to vary the tree shape as well.
		parallel := Aggregate{}
		for g := len(partials) - 1; g >= 0; g-- {
			parallel = Merge(partials[g], parallel)
		}

		assert.Equal(t, sequential, parallel, "groups=%d", groups)
	}
}

func TestAggregate_Total(t *testing.T) {
	t.Parallel()

	a, _, _ := sampleAggregates()

	assert.Equal(t, FileStats{Tokens: 14, Lines: 4, Files: 3}, a.total())
	assert.Equal(t, FileStats{}, Aggregate{}.total())
}
