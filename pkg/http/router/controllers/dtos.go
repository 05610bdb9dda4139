package controllers

import (
	da "github.com/lintang-b-s/navigatorx-maps/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-maps/pkg/spatialindex"
	"github.com/lintang-b-s/navigatorx-maps/pkg/traffic"
)

type pointRequest struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lon float64 `json:"lon" validate:"longitude"`
}

type nearbyRequest struct {
	Lat    float64 `json:"lat" validate:"latitude"`
	Lon    float64 `json:"lon" validate:"longitude"`
	Radius float64 `json:"radius" validate:"gt=0,lte=200"`
	Limit  int     `json:"limit" validate:"min=0,max=1000"`
}

type shortestPathRequest struct {
	OriginLat      float64 `json:"origin_lat" validate:"latitude"`
	OriginLon      float64 `json:"origin_lon" validate:"longitude"`
	DestinationLat float64 `json:"destination_lat" validate:"latitude"`
	DestinationLon float64 `json:"destination_lon" validate:"longitude"`
}

type chunkRequest struct {
	MinLat float64 `json:"min_lat" validate:"latitude"`
	MinLon float64 `json:"min_lon" validate:"longitude"`
	MaxLat float64 `json:"max_lat" validate:"latitude"`
	MaxLon float64 `json:"max_lon" validate:"longitude"`
}

type autocompleteRequest struct {
	Query string `json:"q" validate:"required,max=256"`
}

type nodeResponse struct {
	ID  string  `json:"id"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func NewNodeResponse(p spatialindex.Point) nodeResponse {
	return nodeResponse{ID: p.ID, Lat: p.Lat, Lon: p.Lon}
}

func NewNodesResponse(points []spatialindex.Point) []nodeResponse {
	nodes := make([]nodeResponse, len(points))
	for i, p := range points {
		nodes[i] = NewNodeResponse(p)
	}
	return nodes
}

type wayResponse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Start    string  `json:"start"`
	End      string  `json:"end"`
	Length   float64 `json:"length"`
	StartLat float64 `json:"start_lat"`
	StartLon float64 `json:"start_lon"`
	EndLat   float64 `json:"end_lat"`
	EndLon   float64 `json:"end_lon"`
}

func NewWaysResponse(ways []da.ResolvedWay) []wayResponse {
	resp := make([]wayResponse, len(ways))
	for i, w := range ways {
		resp[i] = wayResponse{
			ID:       w.ID,
			Name:     w.Name,
			Start:    w.Start,
			End:      w.End,
			Length:   w.Length,
			StartLat: w.From.Lat,
			StartLon: w.From.Lon,
			EndLat:   w.To.Lat,
			EndLon:   w.To.Lon,
		}
	}
	return resp
}

type shortestPathResponse struct {
	From string        `json:"from"`
	To   string        `json:"to"`
	Path string        `json:"path"`
	Dist float64       `json:"distance"`
	Ways []wayResponse `json:"ways"`
}

func NewShortestPathResponse(from, to string, dist float64, path string, ways []da.ResolvedWay) shortestPathResponse {
	return shortestPathResponse{
		From: from,
		To:   to,
		Path: path,
		Dist: dist,
		Ways: NewWaysResponse(ways),
	}
}

type trafficResponse struct {
	Entries []traffic.Entry `json:"entries"`
	Count   int             `json:"count"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
