package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gratitude5dee/kumorfm-go/internal/config"
	"github.com/gratitude5dee/kumorfm-go/pkg/apperrors"
	"github.com/gratitude5dee/kumorfm-go/pkg/query"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func testConfig(baseURL string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.APIKey = "test-key"
	cfg.BaseURL = baseURL
	return cfg
}

func TestPredict(t *testing.T) {
	var gotQuery, gotAuth, gotRequestID, gotPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotQuery = body["query"]

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"predictions": [{"entity": 1, "value": 0.8, "probability": 0.8}, {"entity": 2, "value": 0.1}]}`))
	}))
	defer server.Close()

	c, err := New(testConfig(server.URL+"/api"), quietLogger())
	require.NoError(t, err)

	b := query.NewBuilder().Predict("COUNT(orders.*, 0, 30, days) > 0").For("users.user_id=1")
	res, err := c.PredictBuilder(context.Background(), b)
	require.NoError(t, err)

	assert.Equal(t, "/api/predict", gotPath)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "PREDICT COUNT(orders.*, 0, 30, days) > 0 FOR users.user_id=1", gotQuery)

	_, err = uuid.Parse(gotRequestID)
	assert.NoError(t, err, "request id should be a UUID")
	assert.Equal(t, gotRequestID, res.RequestID)

	assert.Equal(t, gotQuery, res.Query)
	require.Len(t, res.Predictions, 2)
	require.NotNil(t, res.Predictions[0].Probability)
	assert.InDelta(t, 0.8, *res.Predictions[0].Probability, 1e-9)
	assert.Nil(t, res.Predictions[1].Probability)
}

func TestPredictErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad query", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	c, err := New(testConfig(server.URL), quietLogger())
	require.NoError(t, err)

	_, err = c.Predict(context.Background(), "PREDICT x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}

func TestPredictBuilderRequiresTarget(t *testing.T) {
	c, err := New(testConfig("http://localhost:1"), quietLogger())
	require.NoError(t, err)

	_, err = c.PredictBuilder(context.Background(), query.NewBuilder().For("users.user_id=1"))
	assert.ErrorIs(t, err, apperrors.ErrMissingPredict)
}

func TestNewRejectsIncompleteConfig(t *testing.T) {
	_, err := New(config.DefaultConfig(), quietLogger())
	assert.Error(t, err)
}
