// Package geocluster adapts DBSCAN density clustering to geographic (lat,
// lon) points, grouping a receiver's location history or a fleet of
// emitters' last-known positions. It is a non-core supplement: no §4
// component depends on it.
package geocluster

import (
	"sort"

	"github.com/Rocky43007/phoenix/internal/geo"
)

// Point is a single clustering input: a coordinate plus an opaque ID the
// caller can use to map a cluster member back to its source record.
type Point struct {
	ID        string
	Latitude  float64
	Longitude float64
}

// Group is a set of points found to lie within EpsMetres of one another
// (transitively), centred on their centroid.
type Group struct {
	Points      []Point
	CentroidLat float64
	CentroidLon float64
}

// Params configures the clustering radius and density threshold, mirroring
// the teacher's DBSCANParams.
type Params struct {
	EpsMetres float64
	MinPoints int
}

// DefaultParams suits a handful of beacons within ordinary GPS accuracy:
// anything within 25m of 2 or more other points forms a cluster.
func DefaultParams() Params {
	return Params{EpsMetres: 25, MinPoints: 2}
}

// Cluster runs DBSCAN over points using haversine distance as the metric.
// Clusters are sorted by centroid (lat, then lon) for deterministic output.
func Cluster(points []Point, params Params) []Group {
	if len(points) == 0 {
		return nil
	}

	n := len(points)
	labels := make([]int, n) // 0=unvisited, -1=noise, >0=clusterID
	clusterID := 0

	regionQuery := func(idx int) []int {
		var neighbors []int
		for j := 0; j < n; j++ {
			if j == idx {
				continue
			}
			d := geo.DistanceMetres(points[idx].Latitude, points[idx].Longitude,
				points[j].Latitude, points[j].Longitude)
			if d <= params.EpsMetres {
				neighbors = append(neighbors, j)
			}
		}
		return neighbors
	}

	for i := 0; i < n; i++ {
		if labels[i] != 0 {
			continue
		}
		neighbors := regionQuery(i)
		if len(neighbors) < params.MinPoints {
			labels[i] = -1
			continue
		}
		clusterID++
		expand(points, labels, i, neighbors, clusterID, params, regionQuery)
	}

	return buildClusters(points, labels, clusterID)
}

func expand(points []Point, labels []int, seedIdx int, neighbors []int, clusterID int, params Params, regionQuery func(int) []int) {
	labels[seedIdx] = clusterID

	for j := 0; j < len(neighbors); j++ {
		idx := neighbors[j]
		if labels[idx] == -1 {
			labels[idx] = clusterID
		}
		if labels[idx] != 0 {
			continue
		}
		labels[idx] = clusterID
		newNeighbors := regionQuery(idx)
		if len(newNeighbors) >= params.MinPoints {
			neighbors = append(neighbors, newNeighbors...)
		}
	}
}

func buildClusters(points []Point, labels []int, maxClusterID int) []Group {
	buckets := make([][]Point, maxClusterID+1)
	for i, label := range labels {
		if label >= 1 && label <= maxClusterID {
			buckets[label] = append(buckets[label], points[i])
		}
	}

	clusters := make([]Group, 0, maxClusterID)
	for cid := 1; cid <= maxClusterID; cid++ {
		members := buckets[cid]
		if len(members) == 0 {
			continue
		}
		var sumLat, sumLon float64
		for _, p := range members {
			sumLat += p.Latitude
			sumLon += p.Longitude
		}
		clusters = append(clusters, Group{
			Points:      members,
			CentroidLat: sumLat / float64(len(members)),
			CentroidLon: sumLon / float64(len(members)),
		})
	}

	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].CentroidLat != clusters[j].CentroidLat {
			return clusters[i].CentroidLat < clusters[j].CentroidLat
		}
		return clusters[i].CentroidLon < clusters[j].CentroidLon
	})

	return clusters
}
