package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payflow-backend/infrastructure/config"
	"payflow-backend/infrastructure/di"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		ServerAddress:      ":0",
		Environment:        "development",
		MonitorCapacity:    1000,
		StreamPollInterval: 10 * time.Millisecond,
		EventMaxAge:        24 * time.Hour,
		LogLevel:           "error",
		EnableCORS:         false,
	}
	container, err := di.NewContainer(cfg)
	require.NoError(t, err)
	t.Cleanup(container.Close)

	srv := httptest.NewServer(container.Handler)
	t.Cleanup(srv.Close)
	return srv
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func doJSON(t *testing.T, method, url string, body interface{}) (*http.Response, apiEnvelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope apiEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp, envelope
}

func TestAnalysisEndToEnd(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/api/v1"

	// Start an analysis.
	resp, env := doJSON(t, http.MethodPost, base+"/analyses", map[string]string{
		"description": "revalorisation du SMIC au 1er janvier",
		"convention":  "convention collective syntec",
		"user_id":     "analyst-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.NotEmpty(t, created.SessionID)
	analysis := base + "/analyses/" + created.SessionID

	// Register variables.
	for _, v := range []map[string]interface{}{
		{"name": "salaire_brut", "type": "input", "data_type": "float"},
		{"name": "taux_cotisation", "type": "input", "data_type": "float"},
		{"name": "base_cotisations", "type": "intermediate", "calculation_formula": "salaire_brut * taux_cotisation"},
	} {
		resp, _ := doJSON(t, http.MethodPost, analysis+"/variables", v)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	// Create calculation nodes.
	resp, _ = doJSON(t, http.MethodPost, analysis+"/nodes", map[string]interface{}{
		"id":              "calc_base",
		"function":        "apply_rate",
		"input_variables": []string{"salaire_brut", "taux_cotisation"},
		"output_variable": "base_cotisations",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, analysis+"/nodes", map[string]interface{}{
		"id":              "calc_total",
		"function":        "sum",
		"input_variables": []string{"base_cotisations", "prime_exceptionnelle"},
		"output_variable": "cout_total",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Connecting an unknown node fails with the domain error code.
	resp, env = doJSON(t, http.MethodPost, analysis+"/edges", map[string]string{
		"from": "calc_base",
		"to":   "missing_node",
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNKNOWN_NODE", env.Error.Code)

	// Connect the real nodes.
	resp, _ = doJSON(t, http.MethodPost, analysis+"/edges", map[string]string{
		"from":            "calc_base",
		"to":              "calc_total",
		"variable_passed": "base_cotisations",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Execute a node.
	resp, env = doJSON(t, http.MethodPost, analysis+"/nodes/calc_base/execute", map[string]interface{}{
		"variable_values": map[string]float64{
			"salaire_brut":    3000,
			"taux_cotisation": 0.23,
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var execution struct {
		NodeID string  `json:"node_id"`
		Result float64 `json:"result"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &execution))
	assert.InDelta(t, 690.0, execution.Result, 1e-9)

	// Execution with missing variables is rejected.
	resp, env = doJSON(t, http.MethodPost, analysis+"/nodes/calc_base/execute", map[string]interface{}{
		"variable_values": map[string]float64{"salaire_brut": 3000},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "MISSING_ARGUMENTS", env.Error.Code)

	// Topological order respects the edge.
	resp, env = doJSON(t, http.MethodGet, analysis+"/execution-order", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var orderResp struct {
		Order []string `json:"order"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &orderResp))
	assert.Equal(t, []string{"calc_base", "calc_total"}, orderResp.Order)

	// A self-loop breaks ordering.
	resp, _ = doJSON(t, http.MethodPost, analysis+"/edges", map[string]string{
		"from": "calc_total",
		"to":   "calc_total",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, env = doJSON(t, http.MethodGet, analysis+"/execution-order", nil)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "CYCLE_DETECTED", env.Error.Code)

	// Removing the self-loop restores the order.
	resp, _ = doJSON(t, http.MethodDelete, analysis+"/edges?from=calc_total&to=calc_total", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, analysis+"/execution-order", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Summary and derived outputs.
	resp, env = doJSON(t, http.MethodGet, analysis+"/summary", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary struct {
		TotalInputVariables        int `json:"total_input_variables"`
		TotalIntermediateVariables int `json:"total_intermediate_variables"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, 2, summary.TotalInputVariables)
	assert.Equal(t, 1, summary.TotalIntermediateVariables)

	resp, env = doJSON(t, http.MethodGet, analysis+"/outputs", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var outputs struct {
		OutputVariables []string `json:"output_variables"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &outputs))
	assert.Equal(t, []string{"base_cotisations", "cout_total"}, outputs.OutputVariables)

	// Complete the analysis and check monitoring caught the activity.
	resp, _ = doJSON(t, http.MethodPost, analysis+"/complete", map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = doJSON(t, http.MethodGet, base+"/monitoring/sessions/"+created.SessionID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var details struct {
		Stats struct {
			TotalEvents int            `json:"total_events"`
			Status      string         `json:"status"`
			ByType      map[string]int `json:"events_by_type"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &details))
	assert.Equal(t, "completed", details.Stats.Status)
	assert.GreaterOrEqual(t, details.Stats.TotalEvents, 3)
	assert.Equal(t, 1, details.Stats.ByType["session_end"])

	// Error events from the failed operations are queryable.
	resp, env = doJSON(t, http.MethodGet, base+"/monitoring/events?level=error&session_id="+created.SessionID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var eventsResp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &eventsResp))
	assert.GreaterOrEqual(t, eventsResp.Count, 2)
}

func TestMonitoringStreamEndpoint(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/api/v1"

	resp, env := doJSON(t, http.MethodPost, base+"/analyses", map[string]string{
		"description": "stream test",
		"convention":  "conv",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	streamResp, err := http.Get(base + "/monitoring/stream")
	require.NoError(t, err)
	defer streamResp.Body.Close()

	require.Equal(t, http.StatusOK, streamResp.StatusCode)
	assert.Equal(t, "text/event-stream", streamResp.Header.Get("Content-Type"))

	// The session_start event is replayed as backlog in SSE framing.
	buf := make([]byte, 4096)
	n, err := streamResp.Body.Read(buf)
	require.NoError(t, err)
	frame := string(buf[:n])
	assert.Contains(t, frame, "data: ")
	assert.Contains(t, frame, "session_start")
	assert.Contains(t, frame, created.SessionID)
}

func TestUnknownSessionOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/api/v1"

	resp, env := doJSON(t, http.MethodGet, fmt.Sprintf("%s/analyses/%s/summary", base, "does-not-exist"), nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "SESSION_NOT_FOUND", env.Error.Code)
}
