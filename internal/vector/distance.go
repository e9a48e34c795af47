package vector

import "strings"

// Distance is the similarity function a collection is created with.
type Distance int

const (
	Cosine Distance = iota
	Euclid
	Dot
)

// ParseDistance maps a configured metric name onto a Distance.
// Matching is case-insensitive; anything unrecognised becomes Cosine.
func ParseDistance(s string) Distance {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "euclid", "euclidean", "l2":
		return Euclid
	case "dot", "dotproduct", "dot_product":
		return Dot
	default:
		return Cosine
	}
}

func (d Distance) String() string {
	switch d {
	case Euclid:
		return "Euclid"
	case Dot:
		return "Dot"
	default:
		return "Cosine"
	}
}

// WeaviateName is the vectorIndexConfig distance value Weaviate expects.
func (d Distance) WeaviateName() string {
	switch d {
	case Euclid:
		return "l2-squared"
	case Dot:
		return "dot"
	default:
		return "cosine"
	}
}
