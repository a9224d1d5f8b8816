// Package weather 为土地档案提供天气与空气质量概况。
package weather

import (
	"context"
	"net/http"
	"strings"
	"time"

	"regenai-go/internal/model"
	"regenai-go/pkg/log"
)

// SeasonalOutlook 是未配置实时数据源时返回的季节性展望。
const SeasonalOutlook = "Seasonal outlook suggests moderate temperatures and medium rainfall next 4-6 weeks"

// Provider 根据档案返回天气概况。失败时返回 error，由调用方决定降级方式。
type Provider interface {
	Fetch(ctx context.Context, form *model.FormResponse) (model.WeatherContext, error)
}

// Stub 返回固定的季节性展望。
type Stub struct{}

// Fetch 实现 Provider。
func (Stub) Fetch(_ context.Context, form *model.FormResponse) (model.WeatherContext, error) {
	return model.WeatherContext{Location: location(form), Summary: SeasonalOutlook}, nil
}

// Options 描述实时数据源的配置，key 为空的数据源不启用。
type Options struct {
	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string
	AirVisualAPIKey    string
	AirVisualBaseURL   string
	Timeout            time.Duration
}

// Service 组合 OpenWeather（当前天气）与 AirVisual（空气质量）。
// 未配置 OpenWeather 时退回 Stub。
type Service struct {
	openWeather *OpenWeather
	airVisual   *AirVisual
	fallback    Stub
}

// NewProvider 按配置创建天气数据源。
func NewProvider(opts Options) Provider {
	if opts.OpenWeatherAPIKey == "" {
		log.Info("未配置 OPENWEATHER_API_KEY，天气上下文使用季节性展望")
		return Stub{}
	}
	httpClient := &http.Client{Timeout: opts.Timeout}
	s := &Service{openWeather: NewOpenWeather(opts.OpenWeatherBaseURL, opts.OpenWeatherAPIKey, httpClient)}
	if opts.AirVisualAPIKey != "" {
		s.airVisual = NewAirVisual(opts.AirVisualBaseURL, opts.AirVisualAPIKey, httpClient)
	}
	return s
}

// Fetch 实现 Provider。空气质量查询失败不影响天气结果。
func (s *Service) Fetch(ctx context.Context, form *model.FormResponse) (model.WeatherContext, error) {
	loc := location(form)
	if loc == "" || s.openWeather == nil {
		return s.fallback.Fetch(ctx, form)
	}

	current, err := s.openWeather.Current(ctx, loc)
	if err != nil {
		return model.WeatherContext{}, err
	}
	wc := model.WeatherContext{Location: loc, Summary: current.Summary()}

	if s.airVisual != nil {
		aq, err := s.airVisual.Nearest(ctx, current.Coord.Lat, current.Coord.Lon)
		if err != nil {
			log.Warnf("[Weather] 获取空气质量失败, location: %s, error: %v", loc, err)
		} else {
			wc.AirQuality = aq.Summary()
		}
	}
	return wc, nil
}

func location(form *model.FormResponse) string {
	if form == nil {
		return ""
	}
	return strings.TrimSpace(form.Location)
}
