package traffic

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/lintang-b-s/navigatorx-maps/pkg"
	"github.com/lintang-b-s/navigatorx-maps/pkg/util"
)

var ErrMalformedLine = errors.New("malformed traffic line")

// Entry is a live weight override. StreetID is either a way id or a street name.
type Entry struct {
	StreetID string  `json:"street_id"`
	Weight   float64 `json:"weight"`
}

// ParseLine parses "<street id>\t<weight>". The weight must be finite and positive.
func ParseLine(line string) (Entry, error) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), "\t")
	if len(fields) != 2 {
		return Entry{}, fmt.Errorf("%w: want 2 tab separated fields, got %d in %q", ErrMalformedLine, len(fields), line)
	}
	id := strings.TrimSpace(fields[0])
	if id == "" {
		return Entry{}, fmt.Errorf("%w: empty street id in %q", ErrMalformedLine, line)
	}
	weight, err := util.StringToFloat64(fields[1])
	if err != nil || math.IsNaN(weight) || math.IsInf(weight, 0) || weight <= 0 {
		return Entry{}, fmt.Errorf("%w: bad weight %q for %s", ErrMalformedLine, fields[1], id)
	}
	return Entry{StreetID: id, Weight: weight}, nil
}

// Table is the process wide street id -> weight map. Last write wins.
type Table struct {
	mu      sync.RWMutex
	weights map[string]float64
}

func NewTable() *Table {
	return &Table{weights: make(map[string]float64)}
}

func (t *Table) Set(e Entry) {
	t.mu.Lock()
	t.weights[e.StreetID] = e.Weight
	t.mu.Unlock()
}

func (t *Table) Get(streetID string) (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	w, ok := t.weights[streetID]
	return w, ok
}

// Weight is the override for wayID, else for street, else the free flow weight.
func (t *Table) Weight(wayID, street string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if w, ok := t.weights[wayID]; ok {
		return w
	}
	if street != "" {
		if w, ok := t.weights[street]; ok {
			return w
		}
	}
	return pkg.DEFAULT_TRAFFIC_WEIGHT
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.weights)
}

// Snapshot copies the table.
func (t *Table) Snapshot() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entries := make([]Entry, 0, len(t.weights))
	for id, w := range t.weights {
		entries = append(entries, Entry{StreetID: id, Weight: w})
	}
	return entries
}
