package search

import (
	"fmt"
	"strings"

	"github.com/habeanf/beamtag/alg/rlheap"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Beam struct {
	Width int

	// AgendaOut logs every agenda insertion at debug level
	AgendaOut bool
	Log       *zap.Logger
}

func (b *Beam) Name() string {
	return fmt.Sprintf("Heap-Indexed Beam [width %d]", b.Width)
}

// Decode runs the beam from the start candidates, all at key 0, until the
// lowest pending key reaches terminal. It returns the terminal agenda in
// descending score order.
func (b *Beam) Decode(start []Candidate, terminal float64, expander Expander) ([]Candidate, error) {
	if b.Width < 1 {
		panic("Set Width to a positive beam width")
	}
	log := b.Log
	if log == nil {
		log = zap.NewNop()
	}
	if len(start) == 0 {
		return nil, nil
	}
	index := newKeyIndex(b.Width)
	first := index.agenda(0)
	for _, c := range start {
		b.add(log, first, 0, c)
	}
	for {
		key, agenda := index.popMin()
		if agenda == nil {
			return nil, errors.Errorf("search: no candidates reached terminal key %v", terminal)
		}
		best := agenda.Sorted()
		log.Debug("agenda", zap.Float64("key", key), zap.Int("size", len(best)), zap.Float64("best", best[0].Score()))
		if key >= terminal {
			return best, nil
		}
		for _, c := range best {
			expansions, err := expander.Expand(c)
			if err != nil {
				return nil, err
			}
			if len(expansions) == 0 {
				return nil, ErrNoDecisions
			}
			for _, exp := range expansions {
				if exp.Key < key {
					return nil, errors.Errorf("search: expansion key %v is behind %v", exp.Key, key)
				}
				b.add(log, index.agenda(exp.Key), exp.Key, exp.Candidate)
			}
		}
	}
}

func (b *Beam) add(log *zap.Logger, a *Agenda, key float64, c Candidate) {
	added, evicted := a.AddCandidate(c)
	if !b.AgendaOut {
		return
	}
	switch {
	case !added:
		log.Debug("not pushed onto agenda", zap.Float64("key", key), zap.Float64("score", c.Score()))
	case evicted != nil:
		log.Debug("pushed onto agenda", zap.Float64("key", key), zap.Float64("score", c.Score()),
			zap.Float64("evicted", evicted.Score()))
	default:
		log.Debug("pushed onto agenda", zap.Float64("key", key), zap.Float64("score", c.Score()))
	}
}

// Agenda is a bounded min-heap of candidates; the worst is evicted first
type Agenda struct {
	BeamSize int
	Confs    []Candidate
}

func NewAgenda(size int) *Agenda {
	return &Agenda{BeamSize: size, Confs: make([]Candidate, 0, size)}
}

// AddCandidate inserts c if there is room or if it beats the current worst
func (a *Agenda) AddCandidate(c Candidate) (added bool, evicted Candidate) {
	if len(a.Confs) < a.BeamSize {
		rlheap.Push(a, c)
		return true, nil
	}
	if !(a.Peek().Score() < c.Score()) {
		return false, nil
	}
	evicted = rlheap.Pop(a).(Candidate)
	rlheap.Push(a, c)
	return true, evicted
}

func (a *Agenda) Peek() Candidate {
	return a.Confs[0]
}

// Sorted returns the candidates in descending score order, leaving a intact
func (a *Agenda) Sorted() []Candidate {
	c := &Agenda{BeamSize: a.BeamSize, Confs: append([]Candidate(nil), a.Confs...)}
	rlheap.Sort(c)
	return c.Confs
}

func (a *Agenda) String() string {
	retval := make([]string, len(a.Confs))
	for i, c := range a.Confs {
		retval[i] = fmt.Sprintf("%v:%v", c, c.Score())
	}
	return strings.Join(retval, ",")
}

func (a *Agenda) Len() int {
	return len(a.Confs)
}

func (a *Agenda) Less(i, j int) bool {
	return a.Confs[i].Score() < a.Confs[j].Score()
}

func (a *Agenda) Swap(i, j int) {
	a.Confs[i], a.Confs[j] = a.Confs[j], a.Confs[i]
}

func (a *Agenda) Push(x interface{}) {
	a.Confs = append(a.Confs, x.(Candidate))
}

func (a *Agenda) Pop() interface{} {
	n := len(a.Confs)
	c := a.Confs[n-1]
	a.Confs[n-1] = nil
	a.Confs = a.Confs[0 : n-1]
	return c
}

// keyIndex maps pending heap keys to their agendas, lowest key first
type keyIndex struct {
	width   int
	keys    keyHeap
	agendas map[float64]*Agenda
}

func newKeyIndex(width int) *keyIndex {
	return &keyIndex{width: width, agendas: make(map[float64]*Agenda)}
}

func (k *keyIndex) agenda(key float64) *Agenda {
	a, ok := k.agendas[key]
	if !ok {
		a = NewAgenda(k.width)
		k.agendas[key] = a
		rlheap.Push(&k.keys, key)
	}
	return a
}

func (k *keyIndex) popMin() (float64, *Agenda) {
	if k.keys.Len() == 0 {
		return 0, nil
	}
	key := rlheap.Pop(&k.keys).(float64)
	a := k.agendas[key]
	delete(k.agendas, key)
	return key, a
}

type keyHeap []float64

func (h keyHeap) Len() int            { return len(h) }
func (h keyHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h keyHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *keyHeap) Push(x interface{}) { *h = append(*h, x.(float64)) }
func (h *keyHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}
