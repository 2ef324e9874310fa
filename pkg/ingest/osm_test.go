package ingest

import (
	"testing"

	"github.com/paulmach/osm"
)

func TestIsCarAccessible(t *testing.T) {
	tests := []struct {
		name string
		tags osm.Tags
		want bool
	}{
		{"residential road", osm.Tags{{Key: "highway", Value: "residential"}}, true},
		{"motorway", osm.Tags{{Key: "highway", Value: "motorway"}}, true},
		{"footway (not car accessible)", osm.Tags{{Key: "highway", Value: "footway"}}, false},
		{"cycleway", osm.Tags{{Key: "highway", Value: "cycleway"}}, false},
		{
			"private access",
			osm.Tags{{Key: "highway", Value: "residential"}, {Key: "access", Value: "private"}},
			false,
		},
		{
			"no access",
			osm.Tags{{Key: "highway", Value: "residential"}, {Key: "access", Value: "no"}},
			false,
		},
		{
			"motor_vehicle=no",
			osm.Tags{{Key: "highway", Value: "residential"}, {Key: "motor_vehicle", Value: "no"}},
			false,
		},
		{
			"area=yes (pedestrian plaza)",
			osm.Tags{{Key: "highway", Value: "service"}, {Key: "area", Value: "yes"}},
			false,
		},
		{"service road", osm.Tags{{Key: "highway", Value: "service"}}, true},
		{"living_street", osm.Tags{{Key: "highway", Value: "living_street"}}, true},
		{"no highway tag", osm.Tags{{Key: "name", Value: "Some Street"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isCarAccessible(tt.tags); got != tt.want {
				t.Errorf("isCarAccessible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOnewayDirection(t *testing.T) {
	tests := []struct {
		name        string
		tags        osm.Tags
		wantOneway  bool
		wantReverse bool
		wantKeep    bool
	}{
		{
			"default bidirectional",
			osm.Tags{{Key: "highway", Value: "residential"}},
			false, false, true,
		},
		{
			"motorway implied oneway",
			osm.Tags{{Key: "highway", Value: "motorway"}},
			true, false, true,
		},
		{
			"roundabout implied oneway",
			osm.Tags{{Key: "highway", Value: "residential"}, {Key: "junction", Value: "roundabout"}},
			true, false, true,
		},
		{
			"explicit oneway=yes",
			osm.Tags{{Key: "highway", Value: "primary"}, {Key: "oneway", Value: "yes"}},
			true, false, true,
		},
		{
			"explicit oneway=-1 (reverse)",
			osm.Tags{{Key: "highway", Value: "primary"}, {Key: "oneway", Value: "-1"}},
			true, true, true,
		},
		{
			"explicit oneway=no overrides implied",
			osm.Tags{{Key: "highway", Value: "motorway"}, {Key: "oneway", Value: "no"}},
			false, false, true,
		},
		{
			"oneway=reversible is dropped",
			osm.Tags{{Key: "highway", Value: "primary"}, {Key: "oneway", Value: "reversible"}},
			false, false, false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oneway, reverse, keep := onewayDirection(tt.tags)
			if oneway != tt.wantOneway || reverse != tt.wantReverse || keep != tt.wantKeep {
				t.Errorf("onewayDirection() = (%v, %v, %v), want (%v, %v, %v)",
					oneway, reverse, keep, tt.wantOneway, tt.wantReverse, tt.wantKeep)
			}
		})
	}
}
