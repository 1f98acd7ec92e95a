package join

import (
	"sort"

	"github.com/clonoweave/clonoweave/internal/clonolog"
	"github.com/clonoweave/clonoweave/internal/cloneconfig"
	"github.com/clonoweave/clonoweave/internal/refdata"
	"github.com/clonoweave/clonoweave/internal/stirling"
	"github.com/clonoweave/clonoweave/internal/unionfind"
	"github.com/clonoweave/clonoweave/internal/workpool"
)

// pair is one candidate (k1, k2) to test with JoinOne.
type pair struct {
	k1, k2 int
}

// Result is the outcome of running the Join Engine: a union-find over
// CloneInfo indices (the Equivalence Relation, component I) plus every
// PotentialJoin recorded along the way, in deterministic (k1, k2) order
// regardless of how many workers computed them.
type Result struct {
	UF        *unionfind.UnionFind
	Potential []PotentialJoin
}

// Run buckets infos by their CDR3-length signature (join_one rejects
// any pair whose per-chain CDR3 lengths differ, so two infos in
// different buckets can never join), generates every within-bucket
// candidate pair, evaluates them across workers workers, then replays
// every surviving join through a single-threaded union-find pass in
// sorted (k1, k2) order so the resulting equivalence classes do not
// depend on goroutine scheduling. This is the "deterministic bucketed
// parallelism + single-threaded union replay" concurrency model
// described for the Join Engine.
func Run(infos []CloneInfo, ref *refdata.Index, opt cloneconfig.JoinAlgOpt, filt cloneconfig.ClonoFiltOpt, printOpt cloneconfig.JoinPrintOpt, isBCR bool, workers int, log *clonolog.Logger) Result {
	uf := unionfind.New(len(infos))
	if len(infos) < 2 {
		return Result{UF: uf}
	}

	buckets := make(map[string][]int)
	for i, ci := range infos {
		sig := lengthSignature(ci)
		buckets[sig] = append(buckets[sig], i)
	}

	var pairs []pair
	for _, idxs := range buckets {
		for a := 0; a < len(idxs); a++ {
			for b := a + 1; b < len(idxs); b++ {
				k1, k2 := idxs[a], idxs[b]
				if k1 > k2 {
					k1, k2 = k2, k1
				}
				pairs = append(pairs, pair{k1, k2})
			}
		}
	}

	table := stirling.NewTable()

	type outcome struct {
		joined bool
		pj     PotentialJoin
	}

	outcomes := workpool.Map(pairs, workers, func(_ int, p pair) outcome {
		if log != nil && log.ShouldBailOut() {
			return outcome{}
		}
		var pot []PotentialJoin
		joined := JoinOne(isBCR, p.k1, p.k2, infos, ref, opt, filt, printOpt, table, &pot)
		if !joined {
			return outcome{}
		}
		return outcome{joined: true, pj: pot[0]}
	})

	var potential []PotentialJoin
	for _, o := range outcomes {
		if o.joined {
			potential = append(potential, o.pj)
		}
	}

	sort.Slice(potential, func(i, j int) bool {
		if potential[i].K1 != potential[j].K1 {
			return potential[i].K1 < potential[j].K1
		}
		return potential[i].K2 < potential[j].K2
	})

	for _, pj := range potential {
		uf.Join(pj.K1, pj.K2)
	}

	return Result{UF: uf, Potential: potential}
}

func lengthSignature(ci CloneInfo) string {
	lens := make([]int, len(ci.Chains))
	for i, ch := range ci.Chains {
		lens[i] = len(ch.CDR3)
	}
	var b []byte
	for _, l := range lens {
		b = append(b, byte(l%256), byte(l/256))
		b = append(b, ',')
	}
	return string(b)
}
