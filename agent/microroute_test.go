package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/parkmesh/core"
)

type occupancyTools struct {
	levels []map[string]any
}

func (o occupancyTools) Invoke(_ context.Context, toolID string, req map[string]any, _ time.Duration) (map[string]any, error) {
	if toolID != "occupancy" {
		return nil, core.NewFailure(core.FailToolFailure, "unknown tool %q", toolID)
	}
	return map[string]any{"facility": req["facility"], "levels": o.levels}, nil
}

func microRouteInvocation(payload map[string]any) *core.Invocation {
	return &core.Invocation{
		Context: context.Background(),
		Task:    core.NewTask(core.TaskMicroRoute, payload),
	}
}

func TestMicroRoutingAgent_MostFreePicksFullestLevel(t *testing.T) {
	tools := occupancyTools{levels: []map[string]any{
		{"level": 1, "free_spots": 2},
		{"level": 2, "free_spots": 9},
		{"level": 3, "free_spots": 5},
	}}
	a := NewMicroRoutingAgent(nil, tools)

	out, err := a.Execute(microRouteInvocation(map[string]any{"facility": "City Hall Garage"}))

	require.NoError(t, err)
	assert.Equal(t, 2, out["level"])
	assert.Equal(t, float64(9), out["free_spots"])
	assert.Equal(t, StrategyMostFree, out["strategy"])
}

func TestMicroRoutingAgent_LowestLevelSkipsFullLevels(t *testing.T) {
	tools := occupancyTools{levels: []map[string]any{
		{"level": 1, "free_spots": 0},
		{"level": 2, "free_spots": 3},
		{"level": 3, "free_spots": 8},
	}}
	a := NewMicroRoutingAgent(nil, tools, func(o *MicroRoutingOptions) {
		o.ID = "micro_routing_ground"
		o.Strategy = StrategyLowestLevel
	})

	out, err := a.Execute(microRouteInvocation(map[string]any{"facility": "City Hall Garage"}))

	require.NoError(t, err)
	assert.Equal(t, 2, out["level"], "a level without free spots is never picked")
	assert.Equal(t, "micro_routing_ground", a.Capability().ID)
}

func TestMicroRoutingAgent_FacilityFromCue(t *testing.T) {
	tools := occupancyTools{levels: []map[string]any{{"level": 1, "free_spots": 4}}}
	a := NewMicroRoutingAgent(nil, tools)

	inv := microRouteInvocation(map[string]any{})
	inv.Cues = []core.Cue{{Source: "access", Target: MicroRoutingAgentID, Data: map[string]any{"facility": "Queens Quay Garage"}}}

	out, err := a.Execute(inv)

	require.NoError(t, err)
	assert.Equal(t, "Queens Quay Garage", out["facility"])
}

func TestMicroRoutingAgent_NoFreeSpotsFails(t *testing.T) {
	tools := occupancyTools{levels: []map[string]any{
		{"level": 1, "free_spots": 0},
		{"level": 2, "free_spots": 0},
	}}
	a := NewMicroRoutingAgent(nil, tools)

	_, err := a.Execute(microRouteInvocation(map[string]any{"facility": "Full Garage"}))
	assert.Error(t, err)
}

func TestMicroRoutingAgent_MissingFacilityFails(t *testing.T) {
	a := NewMicroRoutingAgent(nil, occupancyTools{})

	_, err := a.Execute(microRouteInvocation(map[string]any{}))
	assert.Error(t, err)
}
