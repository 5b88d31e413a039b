package recognize

import "math"

// Unknown labels a face that matched no one in the roster.
const Unknown = "Unknown"

// DefaultTolerance is the largest distance dlib encodings of the same person
// are expected to have.
const DefaultTolerance = 0.6

// Result is the outcome of matching one probe encoding against a roster.
type Result struct {
	Name     string  // matched name, or Unknown
	Index    int     // roster index of the match, -1 if none
	Distance float64 // distance to the closest known encoding, +Inf for an empty roster
	Matched  bool
}

// Distance returns the Euclidean distance between two encodings.
func Distance(a, b Descriptor) float64 {
	var sum float64
	for i := 0; i < EncodingSize; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Distances returns the distance from probe to each known encoding, in order.
func Distances(known []Descriptor, probe Descriptor) []float64 {
	distances := make([]float64, len(known))
	for i, k := range known {
		distances[i] = Distance(k, probe)
	}
	return distances
}

// Compare reports, for each known encoding, whether probe is within tolerance.
func Compare(known []Descriptor, probe Descriptor, tolerance float64) []bool {
	distances := Distances(known, probe)
	matches := make([]bool, len(distances))
	for i, d := range distances {
		matches[i] = d <= tolerance
	}
	return matches
}

// Match labels probe with the name of the closest known encoding, provided
// that encoding also passes the tolerance comparison. Ties go to the lowest index.
func Match(roster *Roster, probe Descriptor, tolerance float64) Result {
	result := Result{Name: Unknown, Index: -1, Distance: math.Inf(1)}
	if roster == nil || roster.Len() == 0 {
		return result
	}

	distances := Distances(roster.Encodings, probe)
	matches := Compare(roster.Encodings, probe, tolerance)

	best := 0
	for i := 1; i < len(distances); i++ {
		if distances[i] < distances[best] {
			best = i
		}
	}

	result.Distance = distances[best]
	if matches[best] {
		result.Name = roster.Names[best]
		result.Index = best
		result.Matched = true
	}
	return result
}
