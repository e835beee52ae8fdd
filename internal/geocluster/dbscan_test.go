package geocluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClusterGroupsNearbyPoints(t *testing.T) {
	t.Parallel()
	points := []Point{
		{ID: "a", Latitude: 37.00000, Longitude: -122.00000},
		{ID: "b", Latitude: 37.00005, Longitude: -122.00000}, // ~5.5m from a
		{ID: "c", Latitude: 37.00010, Longitude: -122.00000}, // ~11m from a
		{ID: "d", Latitude: 38.00000, Longitude: -123.00000}, // far outlier
	}

	clusters := Cluster(points, DefaultParams())
	require.Len(t, clusters, 1)
	assert.Len(t, clusters[0].Points, 3)
}

func TestClusterNoneWithinRadiusProducesNoClusters(t *testing.T) {
	t.Parallel()
	points := []Point{
		{ID: "a", Latitude: 37.0, Longitude: -122.0},
		{ID: "b", Latitude: 38.0, Longitude: -123.0},
	}

	clusters := Cluster(points, DefaultParams())
	assert.Empty(t, clusters)
}

func TestClusterEmptyInput(t *testing.T) {
	t.Parallel()
	assert.Nil(t, Cluster(nil, DefaultParams()))
}

func TestClusterCentroidIsMeanOfMembers(t *testing.T) {
	t.Parallel()
	points := []Point{
		{ID: "a", Latitude: 37.00000, Longitude: -122.00000},
		{ID: "b", Latitude: 37.00002, Longitude: -122.00000},
		{ID: "c", Latitude: 37.00004, Longitude: -122.00000},
	}

	clusters := Cluster(points, Params{EpsMetres: 10, MinPoints: 2})
	require.Len(t, clusters, 1)
	assert.InDelta(t, 37.00002, clusters[0].CentroidLat, 1e-6)
}
