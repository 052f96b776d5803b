package hnsw

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/therealutkarshpriyadarshi/tann/pkg/tannerr"
)

// Save writes the graph: M, entrypoint, max_level, node count, then
// per node its level and raw link window (which already carries the
// size-prefix layout setNeighbors/appendNeighbor maintain).
func (e *Engine) Save(w io.Writer) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	e.globalLock.Lock()
	entry := e.entrypoint
	top := e.maxLevel
	e.globalLock.Unlock()

	if err := binary.Write(w, binary.LittleEndian, uint32(e.cfg.M)); err != nil {
		return tannerr.NewIO(err, "writing M")
	}
	if err := binary.Write(w, binary.LittleEndian, entry); err != nil {
		return tannerr.NewIO(err, "writing entrypoint")
	}
	if err := binary.Write(w, binary.LittleEndian, int32(top)); err != nil {
		return tannerr.NewIO(err, "writing max_level")
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(e.graph.nodes))); err != nil {
		return tannerr.NewIO(err, "writing node count")
	}
	for _, n := range e.graph.nodes {
		if err := binary.Write(w, binary.LittleEndian, int32(n.level)); err != nil {
			return tannerr.NewIO(err, "writing node level")
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(n.links))); err != nil {
			return tannerr.NewIO(err, "writing link window size")
		}
		if err := binary.Write(w, binary.LittleEndian, n.links); err != nil {
			return tannerr.NewIO(err, "writing link window")
		}
	}
	return nil
}

// Load reconstructs graph state from a Save'd stream. Engine.Initialize
// must already have been called against the matching store.
func (e *Engine) Load(r io.Reader) error {
	var m uint32
	var entry uint32
	var top int32
	var count uint32

	if err := binary.Read(r, binary.LittleEndian, &m); err != nil {
		return tannerr.NewIO(err, "reading M")
	}
	if err := binary.Read(r, binary.LittleEndian, &entry); err != nil {
		return tannerr.NewIO(err, "reading entrypoint")
	}
	if err := binary.Read(r, binary.LittleEndian, &top); err != nil {
		return tannerr.NewIO(err, "reading max_level")
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return tannerr.NewIO(err, "reading node count")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.M = int(m)
	e.graph = newGraph(int(count), int(m))
	e.linkLocks = make([]sync.Mutex, count)
	e.visitedPool.setNumElements(int(count))

	for i := uint32(0); i < count; i++ {
		var level int32
		var winSize uint32
		if err := binary.Read(r, binary.LittleEndian, &level); err != nil {
			return tannerr.NewIO(err, "reading node level")
		}
		if err := binary.Read(r, binary.LittleEndian, &winSize); err != nil {
			return tannerr.NewIO(err, "reading link window size")
		}
		links := make([]uint32, winSize)
		if err := binary.Read(r, binary.LittleEndian, links); err != nil {
			return tannerr.NewIO(err, "reading link window")
		}
		e.graph.nodes[i] = graphNode{level: int(level), links: links}
	}

	e.globalLock.Lock()
	e.entrypoint = entry
	e.maxLevel = int(top)
	e.globalLock.Unlock()
	return nil
}
