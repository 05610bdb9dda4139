package recordstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func keysOf(records []Record, field int) []string {
	keys := make([]string, len(records))
	for i, r := range records {
		keys[i] = r.Field(field)
	}
	return keys
}

// buildSorted writes a header plus one line per key (keys are sorted first). Every line carries
// a payload whose length varies so records straddle read blocks.
func buildSorted(t *testing.T, keys []string) string {
	t.Helper()
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	var sb strings.Builder
	sb.WriteString("id\tpayload\n")
	for i, k := range sorted {
		fmt.Fprintf(&sb, "%s\t%d-%s\n", k, i, strings.Repeat("x", (i*37)%300))
	}
	return writeFile(t, "data.tsv", sb.String())
}

func TestFindOne(t *testing.T) {
	keys := make([]string, 0, 400)
	for i := 0; i < 400; i++ {
		keys = append(keys, fmt.Sprintf("/n/%05d", i*3))
	}
	path := buildSorted(t, keys)

	for _, blockSize := range []int64{16, 256, 4096} {
		t.Run(fmt.Sprintf("block %d", blockSize), func(t *testing.T) {
			s, err := Open(path, WithKeyField("id"), WithBlockSize(blockSize))
			require.NoError(t, err)
			defer s.Close()

			for _, k := range keys {
				rec, err := s.FindOne(k)
				require.NoError(t, err, k)
				assert.Equal(t, k, rec.Field(0))
			}

			for _, absent := range []string{"/n/00001", "/n/99999", "", "/a", "/n/00598x"} {
				_, err := s.FindOne(absent)
				assert.ErrorIs(t, err, ErrRecordNotFound, absent)
			}
		})
	}
}

func TestFindOneWithoutTrailingNewline(t *testing.T) {
	path := writeFile(t, "ways.tsv", "id\tname\na\tfirst\nb\tsecond\nc\tlast")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	for k, want := range map[string]string{"a": "first", "b": "second", "c": "last"} {
		rec, err := s.FindOne(k)
		require.NoError(t, err)
		assert.Equal(t, want, rec.Field(1))
	}
}

func TestFindOneWithoutHeader(t *testing.T) {
	path := writeFile(t, "plain.tsv", "a\t1\nb\t2\nc\t3\n")
	s, err := Open(path, WithoutHeader())
	require.NoError(t, err)
	defer s.Close()

	rec, err := s.FindOne("a")
	require.NoError(t, err)
	assert.Equal(t, "1", rec.Field(1))
}

func TestFindAllDuplicates(t *testing.T) {
	keys := make([]string, 0)
	counts := map[string]int{}
	for i := 0; i < 60; i++ {
		k := fmt.Sprintf("k%03d", i)
		n := 1 + (i*7)%13
		counts[k] = n
		for j := 0; j < n; j++ {
			keys = append(keys, k)
		}
	}
	path := buildSorted(t, keys)

	for _, blockSize := range []int64{8, 64, 256} {
		s, err := Open(path, WithBlockSize(blockSize))
		require.NoError(t, err)

		for k, n := range counts {
			got, err := s.FindAll(k)
			require.NoError(t, err)
			assert.Len(t, got, n, "key %s block %d", k, blockSize)
			for _, r := range got {
				assert.Equal(t, k, r.Field(0))
			}
		}

		got, err := s.FindAll("k999")
		require.NoError(t, err)
		assert.Empty(t, got)
		s.Close()
	}
}

func TestFindAllKeepsFileOrder(t *testing.T) {
	path := writeFile(t, "index.tsv", "name\tnodes\nAlpha\t1\nElm\t10\nElm\t11\nElm\t12\nZed\t2\n")
	s, err := Open(path, WithKeyField("name"), WithBlockSize(4))
	require.NoError(t, err)
	defer s.Close()

	got, err := s.FindAll("Elm")
	require.NoError(t, err)
	assert.Equal(t, []string{"10", "11", "12"}, keysOf(got, 1))
}

func TestFindRange(t *testing.T) {
	path := writeFile(t, "index.tsv", strings.Join([]string{
		"name\tnodes",
		"Angell Street\t1",
		"Benefit Street\t2",
		"Brook Street\t3",
		"Elm\t10",
		"Elm\t11",
		"Elm\t12",
		"Hope Street\t4",
		"Thayer Street\t5",
		"Waterman Street\t6",
	}, "\n")+"\n")
	s, err := Open(path, WithKeyField("name"))
	require.NoError(t, err)
	defer s.Close()

	t.Run("single key returns the duplicates in file order", func(t *testing.T) {
		got, err := s.FindRange("Elm", "Elm")
		require.NoError(t, err)
		assert.Equal(t, []string{"10", "11", "12"}, keysOf(got, 1))
	})

	t.Run("swapped bounds", func(t *testing.T) {
		forward, err := s.FindRange("B", "H")
		require.NoError(t, err)
		backward, err := s.FindRange("H", "B")
		require.NoError(t, err)
		assert.Equal(t, forward, backward)
		assert.Equal(t, []string{"Benefit Street", "Brook Street", "Elm", "Elm", "Elm", "Hope Street"},
			keysOf(forward, 0))
	})

	t.Run("absent bounds", func(t *testing.T) {
		got, err := s.FindRange("C", "D")
		require.NoError(t, err)
		assert.Empty(t, got)

		got, err = s.FindRange("Ca", "Ha")
		require.NoError(t, err)
		assert.Equal(t, []string{"Elm", "Elm", "Elm"}, keysOf(got, 0))
	})

	t.Run("prefix", func(t *testing.T) {
		got, err := s.FindRange("B", "B")
		require.NoError(t, err)
		assert.Equal(t, []string{"Benefit Street", "Brook Street"}, keysOf(got, 0))
	})

	t.Run("whole file", func(t *testing.T) {
		got, err := s.FindRange("A", "Z")
		require.NoError(t, err)
		assert.Len(t, got, 9)
	})
}

func TestFindRangeSwapEquivalence(t *testing.T) {
	keys := make([]string, 0, 300)
	for i := 0; i < 300; i++ {
		keys = append(keys, fmt.Sprintf("/w/%04d.%04d.%d", i%17, i%23, i))
	}
	path := buildSorted(t, keys)
	s, err := Open(path, WithBlockSize(32))
	require.NoError(t, err)
	defer s.Close()

	bounds := [][2]string{
		{"/w/0003", "/w/0005"},
		{"/w/0001.0004", "/w/0001.0019"},
		{"/w/0016", "/w/0016"},
		{"/w/", "/w/9999"},
		{"/w/0020", "/w/0030"},
	}
	for _, b := range bounds {
		a, err := s.FindRange(b[0], b[1])
		require.NoError(t, err)
		c, err := s.FindRange(b[1], b[0])
		require.NoError(t, err)
		assert.Equal(t, a, c)

		want := 0
		for _, k := range keys {
			if prefixCmp(k, b[0]) >= 0 && prefixCmp(k, b[1]) <= 0 {
				want++
			}
		}
		assert.Len(t, a, want, "range %v", b)
	}
}

func prefixCmp(field, key string) int {
	return partialCompare(key)(field)
}

func TestScan(t *testing.T) {
	path := writeFile(t, "nodes.tsv", "id\tlatitude\n\na\t1\n\nb\t2\nc\t3\n")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	seen := []string{}
	require.NoError(t, s.Scan(func(r Record) (bool, error) {
		seen = append(seen, r.Field(0))
		return true, nil
	}))
	assert.Equal(t, []string{"a", "b", "c"}, seen)

	rec, err := s.FindOne("a")
	require.NoError(t, err)
	assert.Equal(t, "1", rec.Field(1))
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()

	testCases := []struct {
		name string
		path string
		opts []Option
	}{
		{name: "missing file", path: filepath.Join(dir, "nope.tsv")},
		{name: "empty file", path: writeFile(t, "empty.tsv", "")},
		{name: "header only", path: writeFile(t, "header.tsv", "id\tname\n")},
		{name: "unknown key column", path: writeFile(t, "cols.tsv", "id\tname\na\tb\n"),
			opts: []Option{WithKeyField("street")}},
		{name: "unsorted", path: writeFile(t, "unsorted.tsv", "id\tname\nb\t1\na\t2\n"),
			opts: []Option{WithSortVerification()}},
		{name: "directory", path: dir},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.path, tt.opts...)
			assert.ErrorIs(t, err, ErrStoreConfiguration)
		})
	}
}

func TestSortVerificationAcceptsDuplicates(t *testing.T) {
	path := writeFile(t, "dups.tsv", "id\tname\na\t1\na\t2\nb\t3\n")
	s, err := Open(path, WithSortVerification())
	require.NoError(t, err)
	s.Close()
}

func TestConcurrentQueries(t *testing.T) {
	keys := make([]string, 0, 200)
	for i := 0; i < 200; i++ {
		keys = append(keys, fmt.Sprintf("key-%04d", i))
	}
	path := buildSorted(t, keys)
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	var wg sync.WaitGroup
	errs := make(chan error, len(keys))
	for _, k := range keys {
		wg.Add(1)
		go func(k string) {
			defer wg.Done()
			rec, err := s.FindOne(k)
			if err != nil {
				errs <- err
				return
			}
			if rec.Field(0) != k {
				errs <- fmt.Errorf("got %s want %s", rec.Field(0), k)
			}
		}(k)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestDelimiterAndKeyIndex(t *testing.T) {
	path := writeFile(t, "streets.csv", "7,Angell\n3,Benefit\n9,Elm\n1,Hope\n")
	s, err := Open(path, WithDelimiter(","), WithoutHeader(), WithKeyIndex(1), WithSortVerification())
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, path, s.Path())
	assert.Equal(t, 1, s.KeyIndex())
	assert.Empty(t, s.Header())

	rec, err := s.FindOne("Elm")
	require.NoError(t, err)
	assert.Equal(t, Record{"9", "Elm"}, rec)

	got, err := s.FindRange("B", "H")
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "9", "1"}, keysOf(got, 0))

	_, err = Open(path, WithDelimiter(","), WithoutHeader(), WithKeyIndex(0), WithSortVerification())
	assert.ErrorIs(t, err, ErrStoreConfiguration)
}
