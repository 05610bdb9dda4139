// Package protocol is the line oriented request/response format spoken on the TCP port.
//
// A request is a tag line, a fixed number of parameter lines and the footer line "end".
// A response is a tag line, any number of payload lines and the footer.
package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/lintang-b-s/navigatorx-maps/pkg/geo"
	"github.com/lintang-b-s/navigatorx-maps/pkg/util"
)

var ErrProtocol = errors.New("protocol error")

const (
	Footer = "end"

	// MaxLineLength bounds every request line, newline included.
	MaxLineLength = 4096
)

type Tag int

const (
	TagUnknown Tag = iota
	TagAutocomplete
	TagRouteByNames
	TagRouteByPoints
	TagMapChunk
	TagTrafficSubscribe
)

type tagInfo struct {
	name   string
	params int
}

var tags = map[Tag]tagInfo{
	TagAutocomplete:     {name: "autocomplete-query", params: 1},
	TagRouteByNames:     {name: "route-by-names-query", params: 4},
	TagRouteByPoints:    {name: "route-by-points-query", params: 2},
	TagMapChunk:         {name: "map-chunk-query", params: 2},
	TagTrafficSubscribe: {name: "traffic-subscribe", params: 0},
}

var tagsByName = func() map[string]Tag {
	m := make(map[string]Tag, len(tags))
	for t, info := range tags {
		m[info.name] = t
	}
	return m
}()

func (t Tag) String() string {
	if info, ok := tags[t]; ok {
		return info.name
	}
	return "unknown"
}

// ParamCount is the number of parameter lines following the tag.
func (t Tag) ParamCount() int {
	return tags[t].params
}

func ParseTag(line string) (Tag, error) {
	t, ok := tagsByName[strings.TrimSpace(line)]
	if !ok {
		return TagUnknown, fmt.Errorf("%w: unknown request tag %q", ErrProtocol, truncate(line))
	}
	return t, nil
}

type Request struct {
	Tag    Tag
	Params []string
}

func NewReader(r io.Reader) *bufio.Reader {
	return bufio.NewReaderSize(r, MaxLineLength)
}

// ReadRequest reads one complete request. Anything short of tag, parameters and footer is
// an ErrProtocol error.
func ReadRequest(r *bufio.Reader) (Request, error) {
	line, err := readLine(r)
	if err != nil {
		return Request{}, err
	}
	tag, err := ParseTag(line)
	if err != nil {
		return Request{}, err
	}

	req := Request{Tag: tag, Params: make([]string, 0, tag.ParamCount())}
	for i := 0; i < tag.ParamCount(); i++ {
		p, err := readLine(r)
		if err != nil {
			return Request{}, fmt.Errorf("%s parameter %d: %w", tag, i+1, err)
		}
		req.Params = append(req.Params, p)
	}

	footer, err := readLine(r)
	if err != nil {
		return Request{}, fmt.Errorf("%s footer: %w", tag, err)
	}
	if strings.TrimSpace(footer) != Footer {
		return Request{}, fmt.Errorf("%w: %s request expected footer %q, got %q", ErrProtocol, tag, Footer, truncate(footer))
	}
	return req, nil
}

// readLine returns the next line without its line ending. Deadline and connection errors are
// returned unchanged, a truncated stream is an ErrProtocol error.
func readLine(r *bufio.Reader) (string, error) {
	b, err := r.ReadSlice('\n')
	switch {
	case err == nil:
	case errors.Is(err, bufio.ErrBufferFull):
		return "", fmt.Errorf("%w: line longer than %d bytes", ErrProtocol, MaxLineLength)
	case errors.Is(err, io.EOF) && len(b) > 0:
		// last line without a newline
	case errors.Is(err, io.EOF):
		return "", fmt.Errorf("%w: request ended early", ErrProtocol)
	default:
		return "", err
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}

func truncate(s string) string {
	const max = 64
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// ParseCoordinate parses "<lat> <lon>". The two numbers may be separated by spaces, a tab or
// a comma.
func ParseCoordinate(line string) (geo.Coordinate, error) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
	if len(fields) != 2 {
		return geo.Coordinate{}, fmt.Errorf("%w: coordinate %q needs latitude and longitude", ErrProtocol, truncate(line))
	}
	lat, err := util.StringToFloat64(fields[0])
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("%w: latitude %q is not a number", ErrProtocol, fields[0])
	}
	lon, err := util.StringToFloat64(fields[1])
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("%w: longitude %q is not a number", ErrProtocol, fields[1])
	}

	c := geo.NewCoordinate(lat, lon)
	if err := getValidator().Struct(c); err != nil {
		return geo.Coordinate{}, fmt.Errorf("%w: coordinate %q out of range", ErrProtocol, truncate(line))
	}
	return c, nil
}
