package pkg

const (
	// traffic weight applied to ways without a live TrafficEntry
	DEFAULT_TRAFFIC_WEIGHT = 1.0

	// tile size (degrees) of the way id prefix used by map chunk queries
	CHUNK_TILE_SIZE = 0.01

	DEFAULT_AUTOCOMPLETE_LIMIT = 10
)
