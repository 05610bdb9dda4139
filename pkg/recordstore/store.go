package recordstore

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrStoreConfiguration = errors.New("record store configuration error")
	ErrRecordNotFound     = errors.New("record not found")
)

const (
	defaultBlockSize = 256
	scanBufferSize   = 64 * 1024
)

// Record is one delimited line of a store file.
type Record []string

func (r Record) Field(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}

type Option func(*Store)

func WithDelimiter(delimiter string) Option {
	return func(s *Store) {
		s.delimiter = delimiter
	}
}

// WithoutHeader treats the first line as data.
func WithoutHeader() Option {
	return func(s *Store) {
		s.hasHeader = false
	}
}

// WithKeyField selects the search column by header name.
func WithKeyField(name string) Option {
	return func(s *Store) {
		s.keyName = name
	}
}

// WithKeyIndex selects the search column by position.
func WithKeyIndex(i int) Option {
	return func(s *Store) {
		s.keyIndex = i
	}
}

// WithBlockSize sets how far each backward jump moves when looking for the first duplicate.
func WithBlockSize(n int64) Option {
	return func(s *Store) {
		if n > 0 {
			s.blockSize = n
		}
	}
}

// WithSortVerification makes Open scan the whole file and reject it unless the key column is
// ascending.
func WithSortVerification() Option {
	return func(s *Store) {
		s.verifySorted = true
	}
}

// Store answers key lookups on a delimited text file sorted ascending (bytewise) by one column,
// without loading the file. All reads go through ReadAt, so a Store is safe for concurrent use.
type Store struct {
	path         string
	file         *os.File
	size         int64
	dataStart    int64
	delimiter    string
	hasHeader    bool
	header       []string
	keyName      string
	keyIndex     int
	blockSize    int64
	verifySorted bool
}

func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:      path,
		delimiter: "\t",
		hasHeader: true,
		blockSize: defaultBlockSize,
	}
	for _, opt := range opts {
		opt(s)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(ErrStoreConfiguration, "%s: %v", path, err)
	}
	if info.IsDir() {
		return nil, errors.Wrapf(ErrStoreConfiguration, "%s: is a directory", path)
	}
	if info.Size() == 0 {
		return nil, errors.Wrapf(ErrStoreConfiguration, "%s: file is empty", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(ErrStoreConfiguration, "%s: %v", path, err)
	}
	s.file = f
	s.size = info.Size()

	if err := s.init(); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	if s.hasHeader {
		line, next, err := s.lineAt(0)
		if err != nil {
			return errors.Wrapf(ErrStoreConfiguration, "%s: reading header: %v", s.path, err)
		}
		s.header = strings.Split(line, s.delimiter)
		s.dataStart = next
	}

	if s.keyName != "" {
		i, err := s.FieldIndex(s.keyName)
		if err != nil {
			return err
		}
		s.keyIndex = i
	}
	if s.keyIndex < 0 || (s.hasHeader && s.keyIndex >= len(s.header)) {
		return errors.Wrapf(ErrStoreConfiguration, "%s: key column %d out of range", s.path, s.keyIndex)
	}

	if _, _, _, err := s.recordAt(s.dataStart); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.Wrapf(ErrStoreConfiguration, "%s: no records", s.path)
		}
		return err
	}

	if s.verifySorted {
		return s.checkSorted()
	}
	return nil
}

func (s *Store) checkSorted() error {
	var (
		prev  string
		first = true
		n     = 0
	)
	err := s.scanFrom(s.dataStart, func(line string) (bool, error) {
		n++
		key := s.key(line)
		if !first && key < prev {
			return false, errors.Wrapf(ErrStoreConfiguration, "%s: record %d (%q) is out of order after %q",
				s.path, n, key, prev)
		}
		prev, first = key, false
		return true, nil
	})
	return err
}

func (s *Store) Close() error {
	return s.file.Close()
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Header() []string {
	return s.header
}

// FieldIndex returns the position of a header column.
func (s *Store) FieldIndex(name string) (int, error) {
	for i, h := range s.header {
		if strings.TrimSpace(h) == name {
			return i, nil
		}
	}
	if !s.hasHeader {
		if i, err := strconv.Atoi(name); err == nil {
			return i, nil
		}
	}
	return -1, errors.Wrapf(ErrStoreConfiguration, "%s: no column named %q", s.path, name)
}

func (s *Store) KeyIndex() int {
	return s.keyIndex
}

func (s *Store) parse(line string) Record {
	return Record(strings.Split(line, s.delimiter))
}

func (s *Store) key(line string) string {
	rest := line
	for i := 0; i < s.keyIndex; i++ {
		j := strings.Index(rest, s.delimiter)
		if j < 0 {
			return ""
		}
		rest = rest[j+len(s.delimiter):]
	}
	if j := strings.Index(rest, s.delimiter); j >= 0 {
		return rest[:j]
	}
	return rest
}

// Scan calls fn for every record in file order until fn returns false or an error.
func (s *Store) Scan(fn func(Record) (bool, error)) error {
	return s.scanFrom(s.dataStart, func(line string) (bool, error) {
		return fn(s.parse(line))
	})
}

// scanFrom streams the lines that start at or after a record boundary.
func (s *Store) scanFrom(start int64, fn func(line string) (bool, error)) error {
	r := bufio.NewReaderSize(io.NewSectionReader(s.file, start, s.size-start), scanBufferSize)
	for {
		line, err := r.ReadString('\n')
		if line = trimEOL(line); line != "" {
			cont, ferr := fn(line)
			if ferr != nil {
				return ferr
			}
			if !cont {
				return nil
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "scanning %s", s.path)
		}
	}
}

// recordAt returns the first complete non-empty record that starts at or after off, the offset
// it starts at and the offset just past its newline. io.EOF means there is none.
func (s *Store) recordAt(off int64) (string, int64, int64, error) {
	var start int64
	if off <= s.dataStart {
		start = s.dataStart
	} else {
		// off is a record start only if the byte before it ends a line
		nl, err := s.indexNewline(off - 1)
		if err != nil {
			return "", 0, 0, err
		}
		start = nl + 1
	}

	for start < s.size {
		line, next, err := s.lineAt(start)
		if err != nil {
			return "", 0, 0, err
		}
		if line != "" {
			return line, start, next, nil
		}
		start = next
	}
	return "", 0, 0, io.EOF
}

// indexNewline returns the offset of the first '\n' at or after from.
func (s *Store) indexNewline(from int64) (int64, error) {
	buf := make([]byte, s.blockSize)
	for pos := from; pos < s.size; {
		n, err := s.file.ReadAt(buf, pos)
		for i := 0; i < n; i++ {
			if buf[i] == '\n' {
				return pos + int64(i), nil
			}
		}
		pos += int64(n)
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, errors.Wrapf(err, "reading %s at offset %d", s.path, pos)
		}
	}
	return 0, io.EOF
}

// lineAt reads the line starting at start. The last line of the file may lack its newline.
func (s *Store) lineAt(start int64) (string, int64, error) {
	if start >= s.size {
		return "", s.size, io.EOF
	}
	buf := make([]byte, s.blockSize)
	var sb strings.Builder
	for pos := start; pos < s.size; {
		n, err := s.file.ReadAt(buf, pos)
		for i := 0; i < n; i++ {
			if buf[i] == '\n' {
				sb.Write(buf[:i])
				return trimEOL(sb.String()), pos + int64(i) + 1, nil
			}
		}
		sb.Write(buf[:n])
		pos += int64(n)
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", 0, errors.Wrapf(err, "reading %s at offset %d", s.path, pos)
		}
	}
	return trimEOL(sb.String()), s.size, nil
}

func trimEOL(line string) string {
	return strings.TrimRight(line, "\r\n")
}
