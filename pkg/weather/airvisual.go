package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// AirVisual 调用 IQAir AirVisual 的 nearest_city 接口。
type AirVisual struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewAirVisual 创建 AirVisual 客户端。
func NewAirVisual(baseURL, apiKey string, client *http.Client) *AirVisual {
	return &AirVisual{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, client: client}
}

// AirQuality 是 nearest_city 响应中用到的部分。
type AirQuality struct {
	Status string `json:"status"`
	Data   struct {
		City    string `json:"city"`
		Current struct {
			Pollution struct {
				AQIUS  int    `json:"aqius"`
				MainUS string `json:"mainus"`
			} `json:"pollution"`
		} `json:"current"`
	} `json:"data"`
}

// Summary 返回 US AQI 及其分级。
func (a AirQuality) Summary() string {
	aqi := a.Data.Current.Pollution.AQIUS
	return fmt.Sprintf("Air quality index (US) %d, %s", aqi, aqiLevel(aqi))
}

func aqiLevel(aqi int) string {
	switch {
	case aqi <= 50:
		return "good"
	case aqi <= 100:
		return "moderate"
	case aqi <= 150:
		return "unhealthy for sensitive groups"
	case aqi <= 200:
		return "unhealthy"
	case aqi <= 300:
		return "very unhealthy"
	default:
		return "hazardous"
	}
}

// Nearest 查询距离坐标最近的监测城市的空气质量。
func (a *AirVisual) Nearest(ctx context.Context, lat, lon float64) (*AirQuality, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 4, 64))
	q.Set("key", a.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/v2/nearest_city?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create airvisual request: %w", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call airvisual: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("airvisual returned status %s: %s", resp.Status, string(body))
	}

	var aq AirQuality
	if err := json.NewDecoder(resp.Body).Decode(&aq); err != nil {
		return nil, fmt.Errorf("failed to decode airvisual response: %w", err)
	}
	if aq.Status != "success" {
		return nil, fmt.Errorf("airvisual returned status %q", aq.Status)
	}
	return &aq, nil
}
