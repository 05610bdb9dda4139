package recordstore

import (
	"io"
	"strings"

	"github.com/pkg/errors"
)

type compareFunc func(field string) int

func fullCompare(key string) compareFunc {
	return func(field string) int {
		return strings.Compare(field, key)
	}
}

// partialCompare compares only the first len(key) bytes of the field, so every field that has
// key as a prefix compares equal.
func partialCompare(key string) compareFunc {
	return func(field string) int {
		if len(field) > len(key) {
			field = field[:len(key)]
		}
		return strings.Compare(field, key)
	}
}

// binarySearch probes byte offsets between the first record and the end of file. Each probe
// resolves to the first whole record at or after the probe offset. It returns the start of a
// record comparing equal, or found=false and the offset where the search converged.
func (s *Store) binarySearch(cmp compareFunc) (start int64, line string, found bool, err error) {
	lo, hi := s.dataStart, s.size
	for lo < hi {
		mid := lo + (hi-lo)/2
		rec, recStart, next, err := s.recordAt(mid)
		if errors.Is(err, io.EOF) {
			hi = mid
			continue
		}
		if err != nil {
			return 0, "", false, err
		}

		c := cmp(s.key(rec))
		switch {
		case c == 0:
			return recStart, rec, true, nil
		case c < 0:
			lo = next
		default:
			hi = mid
		}
	}
	return lo, "", false, nil
}

// jumpBackward steps back from off a block at a time until the record found there sorts before
// the key (or the first record is reached) and returns the start of that record.
func (s *Store) jumpBackward(off int64, cmp compareFunc) (int64, error) {
	cur := off
	for {
		cur -= s.blockSize
		if cur < s.dataStart {
			cur = s.dataStart
		}
		rec, recStart, _, err := s.recordAt(cur)
		if errors.Is(err, io.EOF) {
			if cur == s.dataStart {
				return s.dataStart, nil
			}
			continue
		}
		if err != nil {
			return 0, err
		}
		if cmp(s.key(rec)) < 0 || cur == s.dataStart {
			return recStart, nil
		}
	}
}

// collect scans forward from a record boundary, skipping records below low and returning the
// contiguous run accepted until the first record above high.
func (s *Store) collect(from int64, low, high compareFunc) ([]Record, error) {
	records := make([]Record, 0)
	err := s.scanFrom(from, func(line string) (bool, error) {
		k := s.key(line)
		if low(k) < 0 {
			return true, nil
		}
		if high(k) > 0 {
			return false, nil
		}
		records = append(records, s.parse(line))
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// FindOne returns a record whose key equals key, or ErrRecordNotFound.
func (s *Store) FindOne(key string) (Record, error) {
	_, line, found, err := s.binarySearch(fullCompare(key))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.Wrapf(ErrRecordNotFound, "%s: no record with key %q", s.path, key)
	}
	return s.parse(line), nil
}

// FindAll returns every record whose key equals key, in file order. An absent key yields an
// empty slice.
func (s *Store) FindAll(key string) ([]Record, error) {
	cmp := fullCompare(key)
	anchor, _, found, err := s.binarySearch(cmp)
	if err != nil {
		return nil, err
	}
	if !found {
		return []Record{}, nil
	}

	from, err := s.jumpBackward(anchor, cmp)
	if err != nil {
		return nil, err
	}
	return s.collect(from, cmp, cmp)
}

// FindRange returns, in file order, every record whose key lies in [low, high]. The bounds are
// compared as prefixes, so FindRange("Elm", "Elm") also returns "Elm Street". The bounds are
// swapped when low > high.
func (s *Store) FindRange(low, high string) ([]Record, error) {
	if low > high {
		low, high = high, low
	}
	lowCmp := partialCompare(low)
	highCmp := partialCompare(high)

	anchor, _, _, err := s.binarySearch(lowCmp)
	if err != nil {
		return nil, err
	}
	// when low itself is absent the search converged next to where it would be, the backward
	// jump still lands before every record of the range
	from, err := s.jumpBackward(anchor, lowCmp)
	if err != nil {
		return nil, err
	}
	return s.collect(from, lowCmp, highCmp)
}
