package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	liftchart "github.com/aouyang1/go-liftchart"
	"github.com/aouyang1/go-liftchart/dataset"
)

const leaderboardURL = "https://app.datarobot.com/projects/5f3c2b1a0e9d8c7b6a5f4e3d/models/6a5b4c3d2e1f0a9b8c7d6e5f/blueprint"

type failingSource struct {
	*dataset.Simulated
}

func (failingSource) TrainingPredictions(context.Context, string, string, string) ([]dataset.ForecastRecord, error) {
	return nil, errors.New("connection refused")
}

func newTestServer(t *testing.T, src liftchart.Source) *Server {
	t.Helper()
	if src == nil {
		sim, err := dataset.NewSimulated(nil)
		require.NoError(t, err)
		src = sim
	}
	return New(liftchart.New(src), nil)
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	rr := get(t, s, "/health")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestDashboardEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	rr := get(t, s, "/dashboard?url="+leaderboardURL+"&series=store_2&bins=5")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rr.Body.String(), "Accuracy Over Time")
	assert.Contains(t, rr.Body.String(), "series store_2")
}

func TestReportEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	rr := get(t, s, "/api/report?project=p&model=m&partition=1.0")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var body struct {
		Selection liftchart.Selection `json:"selection"`
		SeriesIDs []string            `json:"series_ids"`
		Lift      struct {
			Bins      int              `json:"bins"`
			Summaries []map[string]any `json:"summaries"`
		} `json:"series_lift"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, liftchart.Selection{SeriesID: "store_1", PartitionID: "1", Bins: 10}, body.Selection)
	assert.Equal(t, []string{"store_1", "store_2", "store_3"}, body.SeriesIDs)
	assert.Equal(t, 10, body.Lift.Bins)
	assert.Len(t, body.Lift.Summaries, 10)
}

func TestRowsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	rr := get(t, s, "/api/rows?project=p&model=m&series=store_3&distance=1")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var body struct {
		Filter string              `json:"filter"`
		Count  int                 `json:"count"`
		Rows   []dataset.JoinedRow `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "series=store_3 partition=* distance=1", body.Filter)
	assert.Equal(t, 84, body.Count)
	require.Len(t, body.Rows, 84)
	for _, r := range body.Rows {
		assert.Equal(t, "store_3", r.SeriesID)
		assert.Equal(t, 1, r.ForecastDistance)
	}

	rr = get(t, s, "/api/rows?project=p&model=m&series=nope")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"rows":[]`)
}

func TestReportEndpointTooFewRowsToBin(t *testing.T) {
	s := newTestServer(t, nil)

	rr := get(t, s, "/api/report?project=p&model=m&partition=9")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var body struct {
		Accuracy struct {
			Rows []dataset.JoinedRow `json:"rows"`
		} `json:"accuracy"`
		Warnings []string `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Len(t, body.Accuracy.Rows, 84)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
	for _, key := range []string{"series_lift", "all_series_lift"} {
		v, ok := raw[key]
		assert.True(t, ok, key)
		assert.Nil(t, v, key)
	}
	require.Len(t, body.Warnings, 2)
	assert.Contains(t, body.Warnings[0], "fewer rows than bins")

	rr = get(t, s, "/metrics")
	assert.Contains(t, rr.Body.String(), `liftchart_reports_total{outcome="warning"} 1`)
}

func TestLiftEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	rr := get(t, s, "/api/lift?project=p&model=m&series=store_1&partition=Holdout&bins=7")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var body struct {
		Bins        int              `json:"bins"`
		Assignments []map[string]any `json:"assignments"`
		Summaries   []map[string]any `json:"summaries"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 7, body.Bins)
	assert.Len(t, body.Assignments, 196)
	assert.Len(t, body.Summaries, 7)
	assert.Equal(t, "Holdout", body.Summaries[0]["partition_id"])
}

func TestInvalidateEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/cache?project=p&model=m", nil)
	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())
}

func TestErrorMapping(t *testing.T) {
	testData := map[string]struct {
		target string
		fail   bool
		status int
	}{
		"missing ids":       {target: "/api/report", status: http.StatusBadRequest},
		"missing model":     {target: "/api/report?project=p", status: http.StatusBadRequest},
		"bad url":           {target: "/api/report?url=https://app.datarobot.com/projects/abc", status: http.StatusBadRequest},
		"non numeric bins":  {target: "/api/report?project=p&model=m&bins=ten", status: http.StatusBadRequest},
		"bins out of range": {target: "/api/report?project=p&model=m&bins=3", status: http.StatusBadRequest},
		"lift bins":         {target: "/api/lift?project=p&model=m&bins=101", status: http.StatusBadRequest},
		"unknown series":    {target: "/api/report?project=p&model=m&series=store_99", status: http.StatusBadRequest},
		"bad distance":      {target: "/api/rows?project=p&model=m&distance=0", status: http.StatusBadRequest},
		"empty partition":   {target: "/api/lift?project=p&model=m&partition=9", status: http.StatusUnprocessableEntity},
		"remote failure":    {target: "/dashboard?project=p&model=m", fail: true, status: http.StatusBadGateway},
	}

	sim, err := dataset.NewSimulated(nil)
	require.NoError(t, err)

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			var src liftchart.Source = sim
			if td.fail {
				src = failingSource{Simulated: sim}
			}
			s := newTestServer(t, src)

			rr := get(t, s, td.target)
			assert.Equal(t, td.status, rr.Code, rr.Body.String())
			assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

			var body map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	get(t, s, "/health")
	get(t, s, "/api/report?project=p&model=m")
	get(t, s, "/api/report")

	rr := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `liftchart_http_requests_total{code="200",route="/health"} 1`)
	assert.Contains(t, body, `liftchart_http_requests_total{code="400",route="/api/report"} 1`)
	assert.Contains(t, body, `liftchart_reports_total{outcome="ok"} 1`)
	assert.Contains(t, body, "liftchart_http_request_duration_seconds")
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/report", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}
