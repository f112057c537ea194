package tool

import (
	"context"
	"fmt"
	"math"
)

// Stub tools mirror the external providers with deterministic in-memory
// data so agents, examples and tests run without network access. Real
// deployments replace them with provider-backed implementations of Tool.

// ParkingDataTool serves facility listings partitioned by zone.
type ParkingDataTool struct{}

// ID implements Tool.
func (ParkingDataTool) ID() string { return "parking_data" }

// Invoke returns the facilities of the requested zone. An unknown zone
// yields an empty listing, not an error.
func (ParkingDataTool) Invoke(_ context.Context, req map[string]any) (map[string]any, error) {
	zone, _ := req["zone"].(string)
	facilities := facilitiesByZone[zone]
	items := make([]map[string]any, 0, len(facilities))
	for _, f := range facilities {
		items = append(items, map[string]any{
			"name":                f.name,
			"address":             f.address,
			"lat":                 f.lat,
			"lng":                 f.lng,
			"price_per_half_hour": f.price,
			"ev_charging":         f.evCharging,
			"accessibility":       f.accessible,
			"rating":              f.rating,
			"available_spots":     f.available,
			"zone":                zone,
		})
	}
	return map[string]any{"items": items, "zone": zone}, nil
}

type facility struct {
	name, address string
	lat, lng      float64
	price         float64
	evCharging    bool
	accessible    bool
	rating        float64
	available     int
}

var facilitiesByZone = map[string][]facility{
	"downtown": {
		{"Green P Carpark 36", "110 Queen St W", 43.6517, -79.3844, 4.00, true, true, 4.2, 18},
		{"Parking Town Hall Garage", "361 University Ave", 43.6532, -79.3859, 2.50, true, true, 4.8, 42},
		{"Bell Trinity Square Lot 235", "483 Bay St", 43.6544, -79.3828, 1.76, true, false, 4.0, 7},
	},
	"midtown": {
		{"City Centre Garage", "2300 Yonge St", 43.7076, -79.3982, 3.25, false, true, 3.9, 55},
		{"Eglinton Station Lot", "25 Eglinton Ave W", 43.7065, -79.4001, 2.00, true, false, 3.5, 12},
	},
	"harbourfront": {
		{"Queens Quay Garage", "207 Queens Quay W", 43.6387, -79.3816, 3.75, true, true, 4.4, 29},
	},
}

// GeoDistanceTool computes great-circle walking distance between two points.
type GeoDistanceTool struct{}

// ID implements Tool.
func (GeoDistanceTool) ID() string { return "geo_distance" }

// Invoke expects origin_lat/origin_lng/dest_lat/dest_lng and returns the
// haversine distance in meters.
func (GeoDistanceTool) Invoke(_ context.Context, req map[string]any) (map[string]any, error) {
	oLat, ok1 := asFloat(req["origin_lat"])
	oLng, ok2 := asFloat(req["origin_lng"])
	dLat, ok3 := asFloat(req["dest_lat"])
	dLng, ok4 := asFloat(req["dest_lng"])
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, Permanent(fmt.Errorf("geo_distance requires numeric origin and destination coordinates"))
	}
	return map[string]any{"meters": haversineMeters(oLat, oLng, dLat, dLng)}, nil
}

// haversineMeters returns the great-circle distance rounded to one decimal.
func haversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadius = 6371000.0
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return math.Round(earthRadius*c*10) / 10
}

// TrafficTool reports deterministic congestion for a route.
type TrafficTool struct{}

// ID implements Tool.
func (TrafficTool) ID() string { return "traffic" }

// Invoke derives a stable delay from the route string length so repeated
// calls with identical input agree.
func (TrafficTool) Invoke(_ context.Context, req map[string]any) (map[string]any, error) {
	route, _ := req["route"].(string)
	delay := len(route) % 12
	level := "light"
	switch {
	case delay > 8:
		level = "heavy"
	case delay > 4:
		level = "moderate"
	}
	return map[string]any{"congestion": level, "delay_minutes": delay}, nil
}

// PaymentTool settles a parking charge.
type PaymentTool struct{}

// ID implements Tool.
func (PaymentTool) ID() string { return "payment" }

// Invoke validates the amount and returns a deterministic transaction record.
func (PaymentTool) Invoke(_ context.Context, req map[string]any) (map[string]any, error) {
	amount, ok := asFloat(req["amount"])
	if !ok || amount <= 0 {
		return nil, Permanent(fmt.Errorf("payment requires a positive amount"))
	}
	method, _ := req["method"].(string)
	if method == "" {
		method = "digital_token"
	}
	return map[string]any{
		"transaction_id": fmt.Sprintf("txn-%s-%d", method, int(amount*100)),
		"status":         "settled",
		"amount":         amount,
		"method":         method,
	}, nil
}

// GateControlTool opens facility gates for validated credentials.
type GateControlTool struct{}

// ID implements Tool.
func (GateControlTool) ID() string { return "gate_control" }

// Invoke grants entry when a credential is presented.
func (GateControlTool) Invoke(_ context.Context, req map[string]any) (map[string]any, error) {
	credential, _ := req["credential"].(string)
	facilityName, _ := req["facility"].(string)
	if credential == "" {
		return nil, Permanent(fmt.Errorf("gate_control requires a credential"))
	}
	return map[string]any{"granted": true, "facility": facilityName, "gate": "A", "method": "digital_handshake"}, nil
}

// OccupancyTool reports in-facility spot availability for micro-routing.
type OccupancyTool struct{}

// ID implements Tool.
func (OccupancyTool) ID() string { return "occupancy" }

// Invoke returns the free spots per level of a facility, derived
// deterministically from the facility name.
func (OccupancyTool) Invoke(_ context.Context, req map[string]any) (map[string]any, error) {
	facilityName, _ := req["facility"].(string)
	seed := 0
	for _, r := range facilityName {
		seed += int(r)
	}
	levels := []map[string]any{
		{"level": 1, "free_spots": seed % 5},
		{"level": 2, "free_spots": seed%7 + 2},
		{"level": 3, "free_spots": seed%11 + 4},
	}
	return map[string]any{"facility": facilityName, "levels": levels}, nil
}

// RegisterStubs registers every stub tool on the given registry.
func RegisterStubs(r *Registry) {
	r.Register(ParkingDataTool{})
	r.Register(GeoDistanceTool{})
	r.Register(TrafficTool{})
	r.Register(PaymentTool{})
	r.Register(GateControlTool{})
	r.Register(OccupancyTool{})
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
