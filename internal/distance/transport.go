package distance

import "math"

const flowEpsilon = 1e-12

type edge struct {
	to, rev int
	cap     float64
	cost    float64
}

type flowGraph struct {
	adj [][]edge
}

func newFlowGraph(nodes int) *flowGraph {
	return &flowGraph{adj: make([][]edge, nodes)}
}

func (g *flowGraph) addEdge(from, to int, capacity, cost float64) {
	g.adj[from] = append(g.adj[from], edge{to: to, rev: len(g.adj[to]), cap: capacity, cost: cost})
	g.adj[to] = append(g.adj[to], edge{to: from, rev: len(g.adj[from]) - 1, cap: 0, cost: -cost})
}

// Transport solves the transportation problem between supply and demand
// masses with the given cost matrix and returns the cost per unit of flow.
// The flow moved is min(sum(supply), sum(demand)); zero flow returns 0.
func Transport(supply, demand []float64, cost [][]float64) float64 {
	n, m := len(supply), len(demand)
	source, sink := 0, n+m+1
	g := newFlowGraph(n + m + 2)

	totalSupply, totalDemand := 0.0, 0.0
	for i, s := range supply {
		if s > flowEpsilon {
			g.addEdge(source, 1+i, s, 0)
			totalSupply += s
		}
	}
	for j, d := range demand {
		if d > flowEpsilon {
			g.addEdge(1+n+j, sink, d, 0)
			totalDemand += d
		}
	}
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			g.addEdge(1+i, 1+n+j, math.Inf(1), cost[i][j])
		}
	}

	target := math.Min(totalSupply, totalDemand)
	if target <= flowEpsilon {
		return 0
	}

	flow, work := 0.0, 0.0
	nodes := len(g.adj)
	dist := make([]float64, nodes)
	prevNode := make([]int, nodes)
	prevEdge := make([]int, nodes)

	for target-flow > flowEpsilon {
		// Bellman-Ford over the residual graph; reverse edges carry negative costs
		for i := range dist {
			dist[i] = math.Inf(1)
			prevNode[i] = -1
		}
		dist[source] = 0
		for iter := 0; iter < nodes-1; iter++ {
			updated := false
			for u := 0; u < nodes; u++ {
				if math.IsInf(dist[u], 1) {
					continue
				}
				for ei, e := range g.adj[u] {
					if e.cap <= flowEpsilon {
						continue
					}
					if nd := dist[u] + e.cost; nd < dist[e.to]-1e-15 {
						dist[e.to] = nd
						prevNode[e.to] = u
						prevEdge[e.to] = ei
						updated = true
					}
				}
			}
			if !updated {
				break
			}
		}
		if prevNode[sink] == -1 {
			break
		}

		push := target - flow
		for v := sink; v != source; v = prevNode[v] {
			push = math.Min(push, g.adj[prevNode[v]][prevEdge[v]].cap)
		}
		if push <= flowEpsilon {
			break
		}
		for v := sink; v != source; v = prevNode[v] {
			e := &g.adj[prevNode[v]][prevEdge[v]]
			e.cap -= push
			g.adj[v][e.rev].cap += push
		}

		flow += push
		work += push * dist[sink]
	}

	if flow <= flowEpsilon {
		return 0
	}
	d := work / flow
	if d < 0 {
		return 0
	}
	return d
}
