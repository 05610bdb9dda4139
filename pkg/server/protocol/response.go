package protocol

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	da "github.com/lintang-b-s/navigatorx-maps/pkg/datastructure"
)

type ResponseTag string

const (
	AutocompleteResponse ResponseTag = "autocomplete-response"
	RouteResponse        ResponseTag = "route-response"
	MapChunkResponse     ResponseTag = "map-chunk-response"
	ErrorResponse        ResponseTag = "error-response"
)

// WriteResponse writes tag, the payload lines and the footer in one flush.
func WriteResponse(w io.Writer, tag ResponseTag, lines []string) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(string(tag))
	bw.WriteByte('\n')
	for _, l := range lines {
		bw.WriteString(l)
		bw.WriteByte('\n')
	}
	bw.WriteString(Footer)
	bw.WriteByte('\n')
	return bw.Flush()
}

// WriteError sends msg as a single payload line.
func WriteError(w io.Writer, msg string) error {
	return WriteResponse(w, ErrorResponse, []string{flatten(msg)})
}

func flatten(msg string) string {
	msg = strings.ReplaceAll(msg, "\r", " ")
	return strings.ReplaceAll(msg, "\n", " ")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// EncodeWay is "id start end name length startLat startLon endLat endLon", tab separated.
func EncodeWay(w da.ResolvedWay) string {
	return strings.Join([]string{
		w.ID,
		w.Start,
		w.End,
		w.Name,
		formatFloat(w.Length),
		formatFloat(w.From.Lat),
		formatFloat(w.From.Lon),
		formatFloat(w.To.Lat),
		formatFloat(w.To.Lon),
	}, "\t")
}

func EncodeWays(ways []da.ResolvedWay) []string {
	lines := make([]string, len(ways))
	for i, w := range ways {
		lines[i] = EncodeWay(w)
	}
	return lines
}
