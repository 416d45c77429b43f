package particle

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/demsim/internal/geom"
)

// ContactRecord is the state kept per ball-ball neighbor. Elastic and Total
// are the global forces from the last evaluation and are the only values
// carried across steps; the rest describe the current step.
type ContactRecord struct {
	Elastic mgl64.Vec3
	Total   mgl64.Vec3

	Evaluated   bool
	Normal      float64
	Indentation float64
	Axis        mgl64.Vec3
}

// ResetStep clears the per-step fields.
func (r *ContactRecord) ResetStep() {
	r.Evaluated = false
	r.Normal = 0
	r.Indentation = 0
	r.Axis = mgl64.Vec3{}
}

// History is an arena of contact records in neighbor list order with an
// identity index.
type History struct {
	ids     []int
	records []ContactRecord
	index   map[int]int
}

// Synchronize re-indexes the records onto a new neighbor list. Records of
// neighbors still present are carried over, new neighbors get a zero record
// and departed ones are dropped. It returns the number of new records.
func (h *History) Synchronize(ids []int) int {
	records := make([]ContactRecord, len(ids))
	index := make(map[int]int, len(ids))
	created := 0

	for i, id := range ids {
		if j, ok := h.index[id]; ok {
			records[i] = h.records[j]
		} else {
			created++
		}
		if _, dup := index[id]; !dup {
			index[id] = i
		}
	}

	h.ids = append(h.ids[:0:0], ids...)
	h.records = records
	h.index = index
	return created
}

func (h *History) Len() int { return len(h.records) }

// At returns the record at list position i.
func (h *History) At(i int) *ContactRecord {
	return &h.records[i]
}

// ID returns the neighbor identity at list position i.
func (h *History) ID(i int) int {
	return h.ids[i]
}

// Lookup finds the record of a neighbor identity.
func (h *History) Lookup(id int) (*ContactRecord, bool) {
	i, ok := h.index[id]
	if !ok {
		return nil, false
	}
	return &h.records[i], true
}

// IDs returns a copy of the indexed identities in list order.
func (h *History) IDs() []int {
	return append([]int(nil), h.ids...)
}

// Restore replaces the history with checkpointed records.
func (h *History) Restore(ids []int, records []ContactRecord) {
	h.ids = append([]int(nil), ids...)
	h.records = append([]ContactRecord(nil), records...)
	h.index = make(map[int]int, len(ids))
	for i, id := range ids {
		if _, dup := h.index[id]; !dup {
			h.index[id] = i
		}
	}
}

// WallRecord is the state kept per wall face neighbor, including the cached
// contact geometry that is only refreshed by a neighbor search.
type WallRecord struct {
	Elastic    mgl64.Vec3
	Total      mgl64.Vec3
	Geometry   geom.WallContact
	InitialGap float64
	// Fresh is set on records created by the last synchronization.
	Fresh bool
}

// WallHistory is the face counterpart of History.
type WallHistory struct {
	ids     []int
	records []WallRecord
	index   map[int]int
}

// Synchronize re-indexes onto the current wall neighbor list. When refresh is
// set the geometry computed by the search replaces the cached one; otherwise
// surviving records keep their cached geometry.
func (h *WallHistory) Synchronize(neighbors []WallNeighbor, refresh bool) int {
	records := make([]WallRecord, len(neighbors))
	ids := make([]int, len(neighbors))
	index := make(map[int]int, len(neighbors))
	created := 0

	for i, n := range neighbors {
		id := n.Face.ID
		ids[i] = id
		if j, ok := h.index[id]; ok {
			records[i] = h.records[j]
			records[i].Fresh = false
			if refresh {
				records[i].Geometry = n.Geometry
			}
		} else {
			records[i] = WallRecord{Geometry: n.Geometry, Fresh: true}
			created++
		}
		if _, dup := index[id]; !dup {
			index[id] = i
		}
	}

	h.ids = ids
	h.records = records
	h.index = index
	return created
}

func (h *WallHistory) Len() int { return len(h.records) }

func (h *WallHistory) At(i int) *WallRecord {
	return &h.records[i]
}

func (h *WallHistory) ID(i int) int {
	return h.ids[i]
}

func (h *WallHistory) Lookup(id int) (*WallRecord, bool) {
	i, ok := h.index[id]
	if !ok {
		return nil, false
	}
	return &h.records[i], true
}

func (h *WallHistory) Restore(ids []int, records []WallRecord) {
	h.ids = append([]int(nil), ids...)
	h.records = append([]WallRecord(nil), records...)
	h.index = make(map[int]int, len(ids))
	for i, id := range ids {
		if _, dup := h.index[id]; !dup {
			h.index[id] = i
		}
	}
}
