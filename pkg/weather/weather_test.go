package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regenai-go/internal/model"
)

func TestStub(t *testing.T) {
	wc, err := Stub{}.Fetch(context.Background(), &model.FormResponse{Location: "Lahore"})
	require.NoError(t, err)
	assert.Equal(t, "Lahore", wc.Location)
	assert.Equal(t, SeasonalOutlook, wc.Summary)

	wc, err = Stub{}.Fetch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, wc.Location)
}

func TestNewProviderWithoutKeyIsStub(t *testing.T) {
	_, ok := NewProvider(Options{}).(Stub)
	assert.True(t, ok)
}

func TestServiceFetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/data/2.5/weather", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Lahore", r.URL.Query().Get("q"))
		assert.Equal(t, "ow-key", r.URL.Query().Get("appid"))
		_, _ = w.Write([]byte(`{"name":"Lahore","coord":{"lat":31.55,"lon":74.34},"weather":[{"description":"haze"}],"main":{"temp":31.2,"humidity":48}}`))
	})
	mux.HandleFunc("/v2/nearest_city", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "31.5500", r.URL.Query().Get("lat"))
		_, _ = w.Write([]byte(`{"status":"success","data":{"city":"Lahore","current":{"pollution":{"aqius":162,"mainus":"p2"}}}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := NewProvider(Options{
		OpenWeatherAPIKey:  "ow-key",
		OpenWeatherBaseURL: srv.URL,
		AirVisualAPIKey:    "av-key",
		AirVisualBaseURL:   srv.URL,
		Timeout:            5 * time.Second,
	})

	wc, err := p.Fetch(context.Background(), &model.FormResponse{Location: "Lahore"})
	require.NoError(t, err)
	assert.Equal(t, "Lahore", wc.Location)
	assert.Equal(t, "Currently 31.2°C with haze, humidity 48%", wc.Summary)
	assert.Equal(t, "Air quality index (US) 162, unhealthy", wc.AirQuality)
}

func TestServiceFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"city not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewProvider(Options{OpenWeatherAPIKey: "k", OpenWeatherBaseURL: srv.URL, Timeout: time.Second})
	_, err := p.Fetch(context.Background(), &model.FormResponse{Location: "Nowhere"})
	assert.Error(t, err)
}
