package telemetryadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/R3E-Network/slo-recommendation-engine/internal/domain/sli"
)

func promJSONHandler(t *testing.T, vectorValue string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/query_range"):
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "success",
				"data": map[string]interface{}{
					"resultType": "matrix",
					"result": []map[string]interface{}{
						{
							"metric": map[string]string{},
							"values": [][2]interface{}{
								{1700000000, "0.99"},
								{1700003600, "0.98"},
							},
						},
					},
				},
			})
		default:
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "success",
				"data": map[string]interface{}{
					"resultType": "vector",
					"result": []map[string]interface{}{
						{
							"metric": map[string]string{},
							"value":  [2]interface{}{1700000000, vectorValue},
						},
					},
				},
			})
		}
	}
}

func TestPromClient_AvailabilityCounts(t *testing.T) {
	srv := httptest.NewServer(promJSONHandler(t, "100"))
	defer srv.Close()

	client, err := NewPromClient(srv.URL, DefaultPromQueryConfig())
	if err != nil {
		t.Fatalf("new prom client: %v", err)
	}

	window := sli.Window{Start: time.Unix(1699996400, 0), End: time.Unix(1700000000, 0)}
	good, total, sampleCount, found, err := client.AvailabilityCounts(context.Background(), "checkout", window)
	if err != nil {
		t.Fatalf("AvailabilityCounts: %v", err)
	}
	if !found {
		t.Fatal("expected found=true")
	}
	if good != 100 || total != 100 {
		t.Errorf("unexpected counts: good=%d total=%d", good, total)
	}
	if sampleCount != 100 {
		t.Errorf("unexpected sample count: %d", sampleCount)
	}
}

func TestPromClient_RollingAvailability(t *testing.T) {
	srv := httptest.NewServer(promJSONHandler(t, "0.99"))
	defer srv.Close()

	client, err := NewPromClient(srv.URL, DefaultPromQueryConfig())
	if err != nil {
		t.Fatalf("new prom client: %v", err)
	}

	window := sli.Window{Start: time.Unix(1700000000, 0), End: time.Unix(1700003600, 0)}
	buckets, err := client.RollingAvailability(context.Background(), "checkout", window, time.Hour)
	if err != nil {
		t.Fatalf("RollingAvailability: %v", err)
	}
	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(buckets))
	}
	if buckets[0].Value != 0.99 {
		t.Errorf("unexpected bucket value: %v", buckets[0].Value)
	}
}

func TestPromClient_Completeness_NotFound(t *testing.T) {
	srv := httptest.NewServer(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "success",
			"data": map[string]interface{}{
				"resultType": "vector",
				"result":     []map[string]interface{}{},
			},
		})
	})
	defer srv.Close()

	client, err := NewPromClient(srv.URL, DefaultPromQueryConfig())
	if err != nil {
		t.Fatalf("new prom client: %v", err)
	}

	window := sli.Window{Start: time.Unix(1699996400, 0), End: time.Unix(1700000000, 0)}
	_, found, err := client.Completeness(context.Background(), "checkout", window)
	if err != nil {
		t.Fatalf("Completeness: %v", err)
	}
	if found {
		t.Fatal("expected found=false for empty result")
	}
}
