package conn

import "sort"

// Strategy selects one connection from a candidate set as a pure function
// of observable metrics (spec §4.2: "Selection is a pure function of
// observable metrics").
type Strategy func(candidates []*Connection, rrCursor *int) *Connection

// RoundRobin cycles through candidates in encounter order, advancing
// *rrCursor each call. Callers share one cursor per logical selection site.
func RoundRobin(candidates []*Connection, rrCursor *int) *Connection {
	if len(candidates) == 0 {
		return nil
	}
	idx := *rrCursor % len(candidates)
	*rrCursor = (*rrCursor + 1) % len(candidates)
	return candidates[idx]
}

// WeightedByQuality returns the candidate with the highest quality score.
func WeightedByQuality(candidates []*Connection, _ *int) *Connection {
	return best(candidates, func(c *Connection) float64 { return c.Quality() })
}

// LeastConnections returns the candidate whose streams scheduler currently
// holds the fewest pending writes, a proxy for outstanding load.
func LeastConnections(candidates []*Connection, _ *int) *Connection {
	var chosen *Connection
	min := -1
	for _, c := range candidates {
		n := c.streams.pending()
		if min == -1 || n < min {
			min = n
			chosen = c
		}
	}
	return chosen
}

// LeastResponseTime returns the candidate with the lowest EMA response
// time observed so far.
func LeastResponseTime(candidates []*Connection, _ *int) *Connection {
	var chosen *Connection
	min := -1.0
	for _, c := range candidates {
		c.mu.Lock()
		rt := c.avgRTMillis
		c.mu.Unlock()
		if min < 0 || rt < min {
			min = rt
			chosen = c
		}
	}
	return chosen
}

func best(candidates []*Connection, metric func(*Connection) float64) *Connection {
	if len(candidates) == 0 {
		return nil
	}
	sorted := append([]*Connection(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return metric(sorted[i]) > metric(sorted[j])
	})
	return sorted[0]
}
