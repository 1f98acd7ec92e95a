// Package join implements the Join Engine (component F): pairwise
// probabilistic merging of distinct exact subclonotypes into clonotypes,
// a direct port of the original source's join_one, generalized from a
// fixed two-chain layout to the two-or-three-chain case the original
// already handles via its chains-count gate.
package join

import (
	"sort"
	"strings"

	"github.com/clonoweave/clonoweave/internal/exact"
	"github.com/clonoweave/clonoweave/internal/refdata"
)

// ChainInfo is one chain of a CloneInfo: its reference calls, its CDR3
// DNA, and the observed V..J sequence in its indel-edited (seq_del)
// form. HasDel reports whether that sequence carries '-' padding for a
// deletion. No reference bases are stored here; JoinOne reads them from
// the reference index and applies the ref_v_trim/ref_j_trim windows.
type ChainInfo struct {
	VRefID, JRefID int
	CRefID         *int
	Left           bool
	CDR3           string
	Tig            string
	HasDel         bool
}

// CloneInfo is the unit join_one operates on: every Subclonotype whose
// chains have an identical (v_ref_id, j_ref_id, cdr3, seq, seq_del)
// signature collapses into one CloneInfo, mirroring the original source's
// ExactClonotype — a single receptor-sequence class shared by
// potentially many cells.
type CloneInfo struct {
	SubIdx  []int // indices into the Subclonotype slice this CloneInfo was built from
	Chains  []ChainInfo
	Origins []int
	Donors  []int
	BCs     []string
}

// BuildCloneInfos groups subs by identical chain signature and returns
// one CloneInfo per distinct signature, restricted to cells with 2 or
// 3 chains (join_one's onesie/foursie exclusion, deferred to the
// Cross-Filter Bank).
func BuildCloneInfos(subs []*exact.Subclonotype, ref *refdata.Index) []CloneInfo {
	type bucket struct {
		idxs []int
	}
	buckets := make(map[string]*bucket)
	var order []string

	for i, sc := range subs {
		if len(sc.Chains) < 2 || len(sc.Chains) > 3 {
			continue
		}
		sig := signature(sc)
		b, ok := buckets[sig]
		if !ok {
			b = &bucket{}
			buckets[sig] = b
			order = append(order, sig)
		}
		b.idxs = append(b.idxs, i)
	}

	infos := make([]CloneInfo, 0, len(order))
	for _, sig := range order {
		idxs := buckets[sig].idxs
		first := subs[idxs[0]]

		ci := CloneInfo{SubIdx: idxs}
		for _, ch := range first.Chains {
			ci.Chains = append(ci.Chains, ChainInfo{
				VRefID: ch.VRefID,
				JRefID: ch.JRefID,
				CRefID: ch.CRefID,
				Left:   refdata.ChainType(ch.ChainType).IsHeavy(),
				CDR3:   ch.CDR3DNA,
				Tig:    ch.SeqDel,
				HasDel: strings.Contains(ch.SeqDel, "-"),
			})
		}

		for _, i := range idxs {
			sc := subs[i]
			for _, cl := range sc.Clones {
				ci.BCs = append(ci.BCs, cl.Barcode)
				if cl.DonorIndex != nil {
					ci.Donors = append(ci.Donors, *cl.DonorIndex)
				}
				if cl.OriginIndex != nil {
					ci.Origins = append(ci.Origins, *cl.OriginIndex)
				}
			}
		}
		ci.Donors = uniqueSortInts(ci.Donors)
		ci.Origins = uniqueSortInts(ci.Origins)
		ci.BCs = uniqueSortStrings(ci.BCs)

		infos = append(infos, ci)
	}

	return infos
}

// signature is the bucketing key two subclonotypes must share to be
// treated as the same CloneInfo. v_ref_id/j_ref_id/cdr3_dna alone collapse
// cells whose V segment carries a distinct indel or whose full V..J
// sequence otherwise differs outside CDR3 into the same bucket; seq and
// seq_del (component D's consensus and indel-edited forms) are included
// so only chains identical across their whole aligned length merge.
func signature(sc *exact.Subclonotype) string {
	type tuple struct {
		v, j           int
		cdr3, seq, del string
	}
	tuples := make([]tuple, len(sc.Chains))
	for i, ch := range sc.Chains {
		tuples[i] = tuple{ch.VRefID, ch.JRefID, ch.CDR3DNA, ch.Seq, ch.SeqDel}
	}
	sort.Slice(tuples, func(i, j int) bool {
		if tuples[i].v != tuples[j].v {
			return tuples[i].v < tuples[j].v
		}
		if tuples[i].j != tuples[j].j {
			return tuples[i].j < tuples[j].j
		}
		if tuples[i].cdr3 != tuples[j].cdr3 {
			return tuples[i].cdr3 < tuples[j].cdr3
		}
		if tuples[i].seq != tuples[j].seq {
			return tuples[i].seq < tuples[j].seq
		}
		return tuples[i].del < tuples[j].del
	})
	var b strings.Builder
	for _, t := range tuples {
		b.WriteString(itoa(t.v))
		b.WriteByte(':')
		b.WriteString(itoa(t.j))
		b.WriteByte(':')
		b.WriteString(t.cdr3)
		b.WriteByte(':')
		b.WriteString(t.seq)
		b.WriteByte(':')
		b.WriteString(t.del)
		b.WriteByte('|')
	}
	return b.String()
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func uniqueSortInts(xs []int) []int {
	if len(xs) == 0 {
		return nil
	}
	sort.Ints(xs)
	out := xs[:1]
	for _, x := range xs[1:] {
		if x != out[len(out)-1] {
			out = append(out, x)
		}
	}
	return out
}

func uniqueSortStrings(xs []string) []string {
	if len(xs) == 0 {
		return nil
	}
	sort.Strings(xs)
	out := xs[:1]
	for _, x := range xs[1:] {
		if x != out[len(out)-1] {
			out = append(out, x)
		}
	}
	return out
}
