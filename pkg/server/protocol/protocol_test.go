package protocol

import (
	"bytes"
	"strings"
	"testing"

	da "github.com/lintang-b-s/navigatorx-maps/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-maps/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func read(s string) (Request, error) {
	return ReadRequest(NewReader(strings.NewReader(s)))
}

func TestParseTag(t *testing.T) {
	for tag, info := range tags {
		got, err := ParseTag(info.name)
		require.NoError(t, err)
		assert.Equal(t, tag, got)
		assert.Equal(t, info.name, tag.String())
	}

	_, err := ParseTag("route-query")
	assert.ErrorIs(t, err, ErrProtocol)
	assert.Equal(t, "unknown", TagUnknown.String())
	assert.Equal(t, 4, TagRouteByNames.ParamCount())
	assert.Equal(t, 0, TagTrafficSubscribe.ParamCount())
}

func TestReadRequest(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		want    Request
		wantErr bool
	}{
		{
			name:  "autocomplete",
			input: "autocomplete-query\nThay\nend\n",
			want:  Request{Tag: TagAutocomplete, Params: []string{"Thay"}},
		},
		{
			name:  "route by names with crlf",
			input: "route-by-names-query\r\nThayer Street\r\nAngell Street\r\nHope Street\r\nWaterman Street\r\nend\r\n",
			want: Request{Tag: TagRouteByNames, Params: []string{
				"Thayer Street", "Angell Street", "Hope Street", "Waterman Street"}},
		},
		{
			name:  "traffic subscribe",
			input: "traffic-subscribe\nend\n",
			want:  Request{Tag: TagTrafficSubscribe, Params: []string{}},
		},
		{
			name:  "footer without trailing newline",
			input: "map-chunk-query\n41.82 -71.40\n41.83 -71.39\nend",
			want:  Request{Tag: TagMapChunk, Params: []string{"41.82 -71.40", "41.83 -71.39"}},
		},
		{name: "missing footer", input: "autocomplete-query\nThay\n", wantErr: true},
		{name: "wrong footer", input: "autocomplete-query\nThay\nThayer\n", wantErr: true},
		{name: "missing parameters", input: "route-by-points-query\n41.8 -71.4\n", wantErr: true},
		{name: "unknown tag", input: "hello\nend\n", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "line too long", input: "autocomplete-query\n" + strings.Repeat("a", MaxLineLength+10) + "\nend\n", wantErr: true},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			got, err := read(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrProtocol)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCoordinate(t *testing.T) {
	for _, line := range []string{"41.8268 -71.4025", "41.8268\t-71.4025", "41.8268,-71.4025", " 41.8268 , -71.4025 "} {
		c, err := ParseCoordinate(line)
		require.NoError(t, err, line)
		assert.Equal(t, geo.NewCoordinate(41.8268, -71.4025), c)
	}

	for _, line := range []string{"41.8268", "north west", "41.8 -71.4 3", "91 0", "0 181", "", "41.8 abc"} {
		_, err := ParseCoordinate(line)
		assert.ErrorIs(t, err, ErrProtocol, line)
	}
}

func TestWriteResponse(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResponse(&buf, AutocompleteResponse, []string{"Thayer Street", "Thames Street"}))
	assert.Equal(t, "autocomplete-response\nThayer Street\nThames Street\nend\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteError(&buf, "no street named \"X\"\nsecond line"))
	assert.Equal(t, "error-response\nno street named \"X\" second line\nend\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteResponse(&buf, MapChunkResponse, nil))
	assert.Equal(t, "map-chunk-response\nend\n", buf.String())
}

func TestEncodeWay(t *testing.T) {
	w := da.ResolvedWay{
		Way:  da.NewWay("/w/4182.07140.7", "Thayer Street", "/n/1", "/n/2", 0.25),
		From: geo.NewCoordinate(41.8268, -71.4025),
		To:   geo.NewCoordinate(41.829, -71.401),
	}
	assert.Equal(t, "/w/4182.07140.7\t/n/1\t/n/2\tThayer Street\t0.25\t41.8268\t-71.4025\t41.829\t-71.401", EncodeWay(w))
	assert.Len(t, EncodeWays([]da.ResolvedWay{w, w}), 2)
}
