package portal

import (
	"container/heap"
	"math"

	"github.com/Mu-L/permafrost-engine/navgrid"
)

// Endpoint names one side of a portal transition: the chunk it sits in,
// the portal id within that chunk, and the local island id the agent is
// standing on when it reaches the portal.
type Endpoint struct {
	Chunk       navgrid.ChunkCoord
	PortalID    uint32
	LocalIsland uint16
}

// RouteHop is one step of a computed route: the portal taken and the
// local island ids on either side of the transition, matching §4.3's
// `(portal_desc, port_iid, next_iid)` tuple consumed by the field
// builder.
type RouteHop struct {
	Chunk       navgrid.ChunkCoord
	PortalID    uint32
	PortIID     uint16
	NextIID     uint16
}

// worldCenter returns a portal's boundary-run midpoint in world space,
// used as the A* edge-cost and heuristic basis (straight-line distance
// between portal centers, per §4.3).
func worldCenter(res navgrid.Resolution, mapOriginX, mapOriginZ float32, c *navgrid.Chunk, p *navgrid.Portal) (x, z float32) {
	midR := (p.TileR0 + p.TileR1) / 2
	midC := (p.TileC0 + p.TileC1) / 2
	td := navgrid.TileDesc{ChunkR: c.Coord.R, ChunkC: c.Coord.C, TileR: midR, TileC: midC}
	return navgrid.Center(res, mapOriginX, mapOriginZ, td)
}

// astarNode is a node in the portal-graph A* search, grounded on the
// teacher's container/heap node-heap idiom (systems/astar.go).
type astarNode struct {
	ep    Endpoint
	f     float32
	index int
}

type nodeHeap []*astarNode

func (h nodeHeap) Len() int            { return len(h) }
func (h nodeHeap) Less(i, j int) bool  { return h[i].f < h[j].f }
func (h nodeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *nodeHeap) Push(x any)         { n := x.(*astarNode); n.index = len(*h); *h = append(*h, n) }
func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.index = -1
	*h = old[0 : n-1]
	return node
}

// Graph wraps a navgrid.Grid for routing purposes; it holds no state of
// its own beyond the map origin needed for world-space edge costs.
type Graph struct {
	Grid                   *navgrid.Grid
	MapOriginX, MapOriginZ float32
}

// Route runs A* over the portal graph from the source endpoint to any
// portal of the destination chunk reachable under `to`'s local island,
// returning the sequence of hops or false if no route exists (§4.3).
func (g *Graph) Route(from Endpoint, to navgrid.ChunkCoord, toIsland uint16, enemyMask uint16) ([]RouteHop, bool) {
	destChunk := g.Grid.Chunks[to]
	if destChunk == nil {
		return nil, false
	}
	if from.Chunk == to {
		return nil, true // already in the destination chunk, no portals needed
	}

	goalX, goalZ := chunkCenterWorld(g.Grid.Res, g.MapOriginX, g.MapOriginZ, to)

	open := &nodeHeap{}
	heap.Init(open)
	heap.Push(open, &astarNode{ep: from, f: 0})

	cameFrom := make(map[Endpoint]cameFromEnt)
	gScore := map[Endpoint]float32{from: 0}
	closed := make(map[Endpoint]struct{})

	for open.Len() > 0 {
		cur := heap.Pop(open).(*astarNode)
		if _, done := closed[cur.ep]; done {
			continue
		}
		closed[cur.ep] = struct{}{}

		if cur.ep.Chunk == to && cur.ep.LocalIsland == toIsland {
			return reconstruct(cameFrom, cur.ep), true
		}

		c := g.Grid.Chunks[cur.ep.Chunk]
		if c == nil {
			continue
		}

		for _, p := range c.Portals {
			if !anyFarUsable(p, cur.ep.LocalIsland) {
				continue
			}
			peerChunk := g.Grid.Chunks[p.Peer]
			if peerChunk == nil {
				continue
			}
			for far := range farIslandsFor(p, cur.ep.LocalIsland) {
				next := Endpoint{Chunk: p.Peer, PortalID: p.PeerID, LocalIsland: far}
				px, pz := worldCenter(g.Grid.Res, g.MapOriginX, g.MapOriginZ, c, p)
				npx, npz := worldCenter(g.Grid.Res, g.MapOriginX, g.MapOriginZ, peerChunk, findPortal(peerChunk, p.PeerID))
				dx, dz := npx-px, npz-pz
				edgeCost := float32(math.Hypot(float64(dx), float64(dz)))
				tentative := gScore[cur.ep] + edgeCost
				if old, ok := gScore[next]; ok && tentative >= old {
					continue
				}
				gScore[next] = tentative
				cameFrom[next] = cameFromEnt{ep: cur.ep, hop: RouteHop{
					Chunk:    cur.ep.Chunk,
					PortalID: p.ID,
					PortIID:  cur.ep.LocalIsland,
					NextIID:  far,
				}}
				ndx, ndz := goalX-npx, goalZ-npz
				h := float32(math.Hypot(float64(ndx), float64(ndz)))
				heap.Push(open, &astarNode{ep: next, f: tentative + h})
			}
		}
	}
	return nil, false
}

func anyFarUsable(p *navgrid.Portal, near uint16) bool {
	for k := range p.Reach {
		if k[0] == near {
			return true
		}
	}
	return false
}

func farIslandsFor(p *navgrid.Portal, near uint16) map[uint16]struct{} {
	out := make(map[uint16]struct{})
	for k := range p.Reach {
		if k[0] == near {
			out[k[1]] = struct{}{}
		}
	}
	return out
}

func findPortal(c *navgrid.Chunk, id uint32) *navgrid.Portal {
	for _, p := range c.Portals {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func chunkCenterWorld(res navgrid.Resolution, ox, oz float32, coord navgrid.ChunkCoord) (float32, float32) {
	td := navgrid.TileDesc{ChunkR: coord.R, ChunkC: coord.C, TileR: int32(res.TileH) / 2, TileC: int32(res.TileW) / 2}
	return navgrid.Center(res, ox, oz, td)
}

// cameFromEnt tracks, for a reached endpoint, which endpoint and hop
// preceded it so the winning path can be reconstructed after A* reaches
// the goal chunk.
type cameFromEnt struct {
	ep  Endpoint
	hop RouteHop
}

func reconstruct(cameFrom map[Endpoint]cameFromEnt, end Endpoint) []RouteHop {
	var hops []RouteHop
	cur := end
	for {
		ent, ok := cameFrom[cur]
		if !ok {
			break
		}
		hops = append([]RouteHop{ent.hop}, hops...)
		cur = ent.ep
	}
	return hops
}
