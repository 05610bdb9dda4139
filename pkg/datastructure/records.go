package datastructure

import (
	"errors"

	"github.com/lintang-b-s/navigatorx-maps/pkg/geo"
)

// ErrMalformedRecord marks a node or way record whose columns cannot be decoded.
var ErrMalformedRecord = errors.New("malformed record")

// UnknownLength marks a Way whose length column was empty; the length is then derived from
// the endpoint coordinates by whoever resolves them.
const UnknownLength = -1.0

// Node is a road-network vertex.
type Node struct {
	ID   string
	Lat  float64
	Lon  float64
	Ways []string // ids of the ways starting or ending here
}

func NewNode(id string, lat, lon float64, ways []string) Node {
	return Node{ID: id, Lat: lat, Lon: lon, Ways: ways}
}

func (n Node) Coordinate() geo.Coordinate {
	return geo.NewCoordinate(n.Lat, n.Lon)
}

// Way is a directed road segment from Start to End.
type Way struct {
	ID     string
	Name   string
	Start  string
	End    string
	Length float64 // km
}

func NewWay(id, name, start, end string, length float64) Way {
	return Way{ID: id, Name: name, Start: start, End: end, Length: length}
}

func (w Way) HasLength() bool {
	return w.Length >= 0
}

// ResolvedWay is a Way together with the coordinates of its endpoints, the shape the
// protocol and the HTTP API hand out.
type ResolvedWay struct {
	Way
	From geo.Coordinate
	To   geo.Coordinate
}

func NewResolvedWay(w Way, from, to Node) ResolvedWay {
	if !w.HasLength() {
		w.Length = geo.CalculateHaversineDistance(from.Lat, from.Lon, to.Lat, to.Lon)
	}
	return ResolvedWay{Way: w, From: from.Coordinate(), To: to.Coordinate()}
}
