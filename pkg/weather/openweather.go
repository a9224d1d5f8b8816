package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// OpenWeather 调用 OpenWeather 当前天气接口。
type OpenWeather struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewOpenWeather 创建 OpenWeather 客户端。
func NewOpenWeather(baseURL, apiKey string, client *http.Client) *OpenWeather {
	return &OpenWeather{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, client: client}
}

// CurrentWeather 是 /data/2.5/weather 的响应中用到的部分。
type CurrentWeather struct {
	Name  string `json:"name"`
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
}

// Summary 把当前天气压缩成一句话。
func (w CurrentWeather) Summary() string {
	desc := "no description"
	if len(w.Weather) > 0 && w.Weather[0].Description != "" {
		desc = w.Weather[0].Description
	}
	return fmt.Sprintf("Currently %.1f°C with %s, humidity %d%%", w.Main.Temp, desc, w.Main.Humidity)
}

// Current 查询某地当前天气（公制单位）。
func (o *OpenWeather) Current(ctx context.Context, location string) (*CurrentWeather, error) {
	q := url.Values{}
	q.Set("q", location)
	q.Set("appid", o.apiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/data/2.5/weather?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create openweather request: %w", err)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call openweather: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("openweather returned status %s: %s", resp.Status, string(body))
	}

	var cw CurrentWeather
	if err := json.NewDecoder(resp.Body).Decode(&cw); err != nil {
		return nil, fmt.Errorf("failed to decode openweather response: %w", err)
	}
	return &cw, nil
}
