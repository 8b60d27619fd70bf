package ssa

import "github.com/nsss/nsss/internal/cfg"

// Dominators computes the immediate-dominator array for g using the
// Cooper/Harvey/Kennedy iterative algorithm: a simple fixed-point over
// reverse postorder that converges in a handful of passes on the small,
// mostly-structured CFGs this analyzer builds.
func Dominators(g *cfg.Graph) map[int]int {
	order := reversePostorder(g)
	indexOf := make(map[int]int, len(order))
	for i, b := range order {
		indexOf[b] = i
	}

	idom := make(map[int]int, len(order))
	idom[g.EntryID] = g.EntryID
	changed := true
	for changed {
		changed = false
		for _, b := range order {
			if b == g.EntryID {
				continue
			}
			var newIdom int
			set := false
			for _, e := range g.Predecessors(b) {
				p := e.FromBlock
				if _, ok := idom[p]; !ok {
					continue
				}
				if !set {
					newIdom, set = p, true
					continue
				}
				newIdom = intersect(idom, indexOf, order, newIdom, p)
			}
			if !set {
				continue
			}
			if cur, ok := idom[b]; !ok || cur != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}
	return idom
}

func intersect(idom map[int]int, indexOf map[int]int, order []int, a, b int) int {
	for a != b {
		for indexOf[a] > indexOf[b] {
			a = idom[a]
		}
		for indexOf[b] > indexOf[a] {
			b = idom[b]
		}
	}
	return a
}

func reversePostorder(g *cfg.Graph) []int {
	visited := map[int]bool{}
	var post []int
	var visit func(int)
	visit = func(b int) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, e := range g.Successors(b) {
			visit(e.ToBlock)
		}
		post = append(post, b)
	}
	visit(g.EntryID)
	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

// DominanceFrontier computes DF(b) for every block reachable from the
// entry, following the standard Cytron et al. definition.
func DominanceFrontier(g *cfg.Graph, idom map[int]int) map[int][]int {
	df := map[int][]int{}
	for _, b := range g.Blocks {
		preds := g.Predecessors(b.ID)
		if len(preds) < 2 {
			continue
		}
		for _, e := range preds {
			runner := e.FromBlock
			if _, ok := idom[runner]; !ok {
				continue
			}
			for runner != idom[b.ID] {
				if !contains(df[runner], b.ID) {
					df[runner] = append(df[runner], b.ID)
				}
				runner = idom[runner]
			}
		}
	}
	return df
}

func contains(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
