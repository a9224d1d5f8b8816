package model

// WeatherContext 是某个档案对应的天气概况。
type WeatherContext struct {
	Location   string `json:"location,omitempty"`
	Summary    string `json:"summary,omitempty"`
	AirQuality string `json:"air_quality,omitempty"`
}

// IsEmpty 判断是否没有任何天气信息。
func (w WeatherContext) IsEmpty() bool {
	return w.Location == "" && w.Summary == "" && w.AirQuality == ""
}

// MarketContext 是与档案目标相关的市场需求趋势。
type MarketContext struct {
	Goal         string   `json:"goal,omitempty"`
	DemandTrends []string `json:"demand_trends,omitempty"`
}

// IsEmpty 判断是否没有任何市场信息。
func (m MarketContext) IsEmpty() bool {
	return m.Goal == "" && len(m.DemandTrends) == 0
}

// SearchHit 是一条联网搜索结果。
type SearchHit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SearchOutcome 是一次联网搜索的结果；Success 为 false 时 Error 描述失败原因。
type SearchOutcome struct {
	Success bool        `json:"success"`
	Query   string      `json:"query,omitempty"`
	Answer  string      `json:"answer,omitempty"`
	Results []SearchHit `json:"results"`
	Error   string      `json:"error,omitempty"`
}

// HasResults 判断搜索是否给出了可用内容。
func (s SearchOutcome) HasResults() bool {
	return s.Success && (s.Answer != "" || len(s.Results) > 0)
}

// AdvisoryContext 汇总了生成回复前附加到档案上的外部上下文。
type AdvisoryContext struct {
	Weather WeatherContext `json:"weather"`
	Market  MarketContext  `json:"market"`
	Search  SearchOutcome  `json:"search"`
}
