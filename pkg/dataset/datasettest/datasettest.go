// Package datasettest writes small road networks to temporary TSV files for tests.
package datasettest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"

	da "github.com/lintang-b-s/navigatorx-maps/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-maps/pkg/dataset"
)

type Fixture struct {
	Nodes []da.Node
	Ways  []da.Way
	// street name -> node ids, one index record per entry
	Streets map[string][]string
	// extra raw lines appended to the ways file before sorting
	RawWays []string
}

// Write sorts the fixture into nodes, ways and index files under t.TempDir(). Node way lists
// are filled from the ways when a node has none.
func Write(t testing.TB, f Fixture) dataset.Files {
	t.Helper()
	dir := t.TempDir()

	touching := map[string][]string{}
	for _, w := range f.Ways {
		touching[w.Start] = append(touching[w.Start], w.ID)
		touching[w.End] = append(touching[w.End], w.ID)
	}

	nodeLines := make([]string, 0, len(f.Nodes))
	for _, n := range f.Nodes {
		ways := n.Ways
		if len(ways) == 0 {
			ways = touching[n.ID]
		}
		nodeLines = append(nodeLines, strings.Join([]string{
			n.ID,
			strconv.FormatFloat(n.Lat, 'f', -1, 64),
			strconv.FormatFloat(n.Lon, 'f', -1, 64),
			strings.Join(ways, ","),
		}, "\t"))
	}

	wayLines := make([]string, 0, len(f.Ways))
	for _, w := range f.Ways {
		length := ""
		if w.HasLength() {
			length = strconv.FormatFloat(w.Length, 'f', -1, 64)
		}
		wayLines = append(wayLines, strings.Join([]string{w.ID, w.Name, w.Start, w.End, length}, "\t"))
	}
	wayLines = append(wayLines, f.RawWays...)

	indexLines := make([]string, 0, len(f.Streets))
	for name, ids := range f.Streets {
		indexLines = append(indexLines, name+"\t"+strings.Join(ids, ","))
	}

	files := dataset.Files{
		Nodes: write(t, dir, "nodes.tsv", "id\tlatitude\tlongitude\tways", nodeLines),
		Ways:  write(t, dir, "ways.tsv", "id\tname\tstart\tend\tlength", wayLines),
		Index: write(t, dir, "index.tsv", "name\tnodes", indexLines),
	}
	return files
}

func write(t testing.TB, dir, name, header string, lines []string) string {
	t.Helper()
	sort.SliceStable(lines, func(i, j int) bool {
		return key(lines[i]) < key(lines[j])
	})
	path := filepath.Join(dir, name)
	content := header + "\n" + strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func key(line string) string {
	if i := strings.IndexByte(line, '\t'); i >= 0 {
		return line[:i]
	}
	return line
}

// WayID builds a way id in the chunk tile of (lat, lon).
func WayID(lat, lon float64, suffix string) string {
	return fmt.Sprintf("%s.%s", dataset.TilePrefix(lat, lon), suffix)
}

// Triangle is the A(0,0) B(0,1) C(1,1) network: A->B and B->C of length 1, A->C of length 5,
// plus the reverse ways, on streets "First", "Second" and "Diagonal".
func Triangle() Fixture {
	a := da.NewNode("/n/a", 0, 0, nil)
	b := da.NewNode("/n/b", 0, 1, nil)
	c := da.NewNode("/n/c", 1, 1, nil)
	return Fixture{
		Nodes: []da.Node{a, b, c},
		Ways: []da.Way{
			da.NewWay(WayID(0, 0, "ab"), "First", a.ID, b.ID, 1),
			da.NewWay(WayID(0, 1, "bc"), "Second", b.ID, c.ID, 1),
			da.NewWay(WayID(0, 0, "ac"), "Diagonal", a.ID, c.ID, 5),
			da.NewWay(WayID(0, 1, "ba"), "First", b.ID, a.ID, 1),
			da.NewWay(WayID(1, 1, "cb"), "Second", c.ID, b.ID, 1),
			da.NewWay(WayID(1, 1, "ca"), "Diagonal", c.ID, a.ID, 5),
		},
		Streets: map[string][]string{
			"First":    {a.ID, b.ID},
			"Second":   {b.ID, c.ID},
			"Diagonal": {a.ID, c.ID},
		},
	}
}
