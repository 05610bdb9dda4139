package geo

import (
	"math"

	"github.com/lintang-b-s/navigatorx-maps/pkg/util"
)

type Coordinate struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lon float64 `json:"lon" validate:"longitude"`
}

func NewCoordinate(lat, lon float64) Coordinate {
	return Coordinate{
		Lat: lat,
		Lon: lon,
	}
}

const (
	earthRadiusKM = 6371.0
)

func havFunction(angleRad float64) float64 {
	return (1 - math.Cos(angleRad)) / 2.0
}

// CalculateHaversineDistance. calculate haversine distance in km
func CalculateHaversineDistance(latOne, longOne, latTwo, longTwo float64) float64 {
	latOne = util.DegreeToRadians(latOne)
	longOne = util.DegreeToRadians(longOne)
	latTwo = util.DegreeToRadians(latTwo)
	longTwo = util.DegreeToRadians(longTwo)

	a := havFunction(latOne-latTwo) + math.Cos(latOne)*math.Cos(latTwo)*havFunction(longOne-longTwo)
	c := 2.0 * math.Asin(math.Sqrt(a))
	return earthRadiusKM * c
}

// TileIndex truncates a coordinate component to its chunk tile number, e.g. 41.8268 -> 4182 for 0.01 tiles.
func TileIndex(deg float64, tileSize float64) int {
	return int(math.Floor(math.Abs(deg)/tileSize + 1e-9))
}

// GetDestinationPoint returns the point dist km away from (lat, lon) along bearing (degrees from north).
func GetDestinationPoint(lat, lon float64, bearing float64, dist float64) (float64, float64) {
	dr := dist / earthRadiusKM
	bearing = util.DegreeToRadians(bearing)
	lat1 := util.DegreeToRadians(lat)
	lon1 := util.DegreeToRadians(lon)

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(dr) + math.Cos(lat1)*math.Sin(dr)*math.Cos(bearing))
	lon2 := lon1 + math.Atan2(math.Sin(bearing)*math.Sin(dr)*math.Cos(lat1), math.Cos(dr)-math.Sin(lat1)*math.Sin(lat2))

	return util.RadiansToDegree(lat2), normalizeLongitude(util.RadiansToDegree(lon2))
}

func normalizeLongitude(lon float64) float64 {
	return math.Mod(lon+540, 360) - 180.0
}
