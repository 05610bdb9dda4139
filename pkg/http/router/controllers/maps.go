package controllers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	ut "github.com/go-playground/universal-translator"
	"github.com/julienschmidt/httprouter"
	"github.com/lintang-b-s/navigatorx-maps/pkg/geo"
	router_helper "github.com/lintang-b-s/navigatorx-maps/pkg/http/router/routerhelper"
	"github.com/twpayne/go-polyline"
	"go.uber.org/zap"
)

const defaultNearbyLimit = 20

type MapsAPI struct {
	maps     MapsService
	log      *zap.Logger
	validate *validator.Validate
	trans    ut.Translator
}

func New(maps MapsService, log *zap.Logger) *MapsAPI {
	validate, trans := newValidator()
	return &MapsAPI{maps: maps, log: log, validate: validate, trans: trans}
}

func (api *MapsAPI) Routes(group *router_helper.RouteGroup) {
	group.GET("/traffic", api.traffic)
	group.GET("/nearest", api.nearest)
	group.GET("/nearby", api.nearby)
	group.GET("/route", api.shortestPath)
	group.GET("/chunk", api.chunk)
	group.GET("/autocomplete", api.autocomplete)
}

// traffic
//
//	@Summary		current traffic weights
//	@Tags			traffic
//	@Produce		application/json
//	@Router			/api/traffic [get]
//	@Success		200	{object}	trafficResponse
func (api *MapsAPI) traffic(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	entries := api.maps.Traffic()
	resp := trafficResponse{Entries: entries, Count: len(entries)}
	if err := api.writeJSON(w, http.StatusOK, envelope{"data": resp}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

// nearest
//
//	@Summary		node closest to a coordinate
//	@Tags			maps
//	@Param			lat	query	number	true	"latitude"
//	@Param			lon	query	number	true	"longitude"
//	@Produce		application/json
//	@Router			/api/nearest [get]
//	@Success		200	{object}	nodeResponse
func (api *MapsAPI) nearest(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req, ok := api.parsePoint(w, r)
	if !ok {
		return
	}

	node, err := api.maps.Nearest(geo.NewCoordinate(req.Lat, req.Lon))
	if err != nil {
		api.handleError(w, r, err)
		return
	}
	if err := api.writeJSON(w, http.StatusOK, envelope{"data": NewNodeResponse(node)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

// nearby
//
//	@Summary		nodes within radius km of a coordinate, closest first
//	@Tags			maps
//	@Param			lat		query	number	true	"latitude"
//	@Param			lon		query	number	true	"longitude"
//	@Param			radius	query	number	true	"radius in km"
//	@Param			limit	query	integer	false	"maximum number of nodes"
//	@Produce		application/json
//	@Router			/api/nearby [get]
//	@Success		200	{object}	[]nodeResponse
func (api *MapsAPI) nearby(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var (
		req nearbyRequest
		err error
	)
	if req.Lat, err = queryFloat(r, "lat"); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if req.Lon, err = queryFloat(r, "lon"); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if req.Radius, err = queryFloat(r, "radius"); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if req.Limit, err = queryInt(r, "limit", defaultNearbyLimit); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if err := api.validate.Struct(req); err != nil {
		api.ValidationErrorResponse(w, r, translateError(err, api.trans))
		return
	}

	nodes := api.maps.Nearby(geo.NewCoordinate(req.Lat, req.Lon), req.Radius, req.Limit)
	if err := api.writeJSON(w, http.StatusOK, envelope{"data": NewNodesResponse(nodes)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

// shortestPath
//
//	@Summary		shortest route between the nodes closest to two coordinates
//	@Tags			routing
//	@Param			origin_lat		query	number	true	"origin latitude"
//	@Param			origin_lon		query	number	true	"origin longitude"
//	@Param			destination_lat	query	number	true	"destination latitude"
//	@Param			destination_lon	query	number	true	"destination longitude"
//	@Produce		application/json
//	@Router			/api/route [get]
//	@Success		200	{object}	shortestPathResponse
func (api *MapsAPI) shortestPath(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var (
		req shortestPathRequest
		err error
	)
	for name, dst := range map[string]*float64{
		"origin_lat":      &req.OriginLat,
		"origin_lon":      &req.OriginLon,
		"destination_lat": &req.DestinationLat,
		"destination_lon": &req.DestinationLon,
	} {
		if *dst, err = queryFloat(r, name); err != nil {
			api.BadRequestResponse(w, r, err)
			return
		}
	}
	if err := api.validate.Struct(req); err != nil {
		api.ValidationErrorResponse(w, r, translateError(err, api.trans))
		return
	}

	res, err := api.maps.RouteByPoints(r.Context(),
		geo.NewCoordinate(req.OriginLat, req.OriginLon),
		geo.NewCoordinate(req.DestinationLat, req.DestinationLon))
	if err != nil {
		api.handleError(w, r, err)
		return
	}

	coords := res.Coordinates()
	points := make([][]float64, len(coords))
	for i, c := range coords {
		points[i] = []float64{c.Lat, c.Lon}
	}
	path := string(polyline.EncodeCoords(points))

	resp := NewShortestPathResponse(res.From, res.To, res.Distance, path, res.Ways)
	if err := api.writeJSON(w, http.StatusOK, envelope{"data": resp}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

// chunk
//
//	@Summary		ways with an endpoint inside a bounding box
//	@Tags			maps
//	@Produce		application/json
//	@Router			/api/chunk [get]
//	@Success		200	{object}	[]wayResponse
func (api *MapsAPI) chunk(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var (
		req chunkRequest
		err error
	)
	for name, dst := range map[string]*float64{
		"min_lat": &req.MinLat,
		"min_lon": &req.MinLon,
		"max_lat": &req.MaxLat,
		"max_lon": &req.MaxLon,
	} {
		if *dst, err = queryFloat(r, name); err != nil {
			api.BadRequestResponse(w, r, err)
			return
		}
	}
	if err := api.validate.Struct(req); err != nil {
		api.ValidationErrorResponse(w, r, translateError(err, api.trans))
		return
	}

	ways, err := api.maps.Chunk(geo.NewCoordinate(req.MinLat, req.MinLon), geo.NewCoordinate(req.MaxLat, req.MaxLon))
	if err != nil {
		api.handleError(w, r, err)
		return
	}
	if err := api.writeJSON(w, http.StatusOK, envelope{"data": NewWaysResponse(ways)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *MapsAPI) autocomplete(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req := autocompleteRequest{Query: r.URL.Query().Get("q")}
	if err := api.validate.Struct(req); err != nil {
		api.ValidationErrorResponse(w, r, translateError(err, api.trans))
		return
	}

	names, err := api.maps.Suggest(req.Query)
	if err != nil {
		api.handleError(w, r, err)
		return
	}
	if err := api.writeJSON(w, http.StatusOK, envelope{"data": names}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *MapsAPI) parsePoint(w http.ResponseWriter, r *http.Request) (pointRequest, bool) {
	var (
		req pointRequest
		err error
	)
	if req.Lat, err = queryFloat(r, "lat"); err != nil {
		api.BadRequestResponse(w, r, err)
		return req, false
	}
	if req.Lon, err = queryFloat(r, "lon"); err != nil {
		api.BadRequestResponse(w, r, err)
		return req, false
	}
	if err := api.validate.Struct(req); err != nil {
		api.ValidationErrorResponse(w, r, translateError(err, api.trans))
		return req, false
	}
	return req, true
}
