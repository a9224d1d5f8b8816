package model

import (
	"strings"
	"time"
)

// FormResponse 对应 form_responses 表，记录农户一次提交的土地档案。
type FormResponse struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	UserID                uint      `gorm:"index;not null" json:"user_id"`
	Location              string    `gorm:"type:varchar(255);not null" json:"location"`      // District / City / Village
	AreaType              string    `gorm:"type:varchar(100);not null" json:"area_type"`     // Plain / Hilly / River-side / Dry
	SoilType              string    `gorm:"type:varchar(100);not null" json:"soil_type"`     // Loamy / Sandy / Clay / Don't know
	WaterSource           string    `gorm:"type:varchar(100);not null" json:"water_source"`  // Rain-fed / Tube well / Canal / River
	Irrigation            string    `gorm:"type:varchar(50);not null" json:"irrigation"`     // Yes / No / Sometimes
	Temperature           string    `gorm:"type:varchar(50);not null" json:"temperature"`    // Cold / Moderate / Hot
	Rainfall              string    `gorm:"type:varchar(50);not null" json:"rainfall"`       // Low / Medium / High
	Sunlight              string    `gorm:"type:varchar(50);not null" json:"sunlight"`       // Few / Moderate / Long hours
	LandSize              string    `gorm:"type:varchar(100);not null" json:"land_size"`     // 自由文本，英亩或公顷
	Goal                  string    `gorm:"type:varchar(100);not null" json:"goal"`          // Profit / Climate-safe / Organic / Experiment
	CropDuration          string    `gorm:"type:varchar(100);not null" json:"crop_duration"` // 2-3 months / 6-12 months
	SpecificCrop          *string   `gorm:"type:varchar(255)" json:"specific_crop"`
	FertilizersPreference *string   `gorm:"type:varchar(255)" json:"fertilizers_preference"`
	LastPlantedAt         *string   `gorm:"type:varchar(100)" json:"last_planted_at"`
	CreatedAt             time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt             time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (FormResponse) TableName() string {
	return "form_responses"
}

// ProfileField 是档案中的一个“标签: 值”对。
type ProfileField struct {
	Label string
	Value string
}

// ProfileFields 按固定顺序返回所有非空字段，用于拼装提示词。
func (f *FormResponse) ProfileFields() []ProfileField {
	if f == nil {
		return nil
	}
	all := []ProfileField{
		{"Location", f.Location},
		{"Area type", f.AreaType},
		{"Soil type", f.SoilType},
		{"Water source", f.WaterSource},
		{"Irrigation", f.Irrigation},
		{"Temperature", f.Temperature},
		{"Rainfall", f.Rainfall},
		{"Sunlight", f.Sunlight},
		{"Land size", f.LandSize},
		{"Goal", f.Goal},
		{"Crop duration", f.CropDuration},
		{"Specific crop", deref(f.SpecificCrop)},
		{"Fertilizer preference", deref(f.FertilizersPreference)},
		{"Last planted", deref(f.LastPlantedAt)},
	}
	fields := make([]ProfileField, 0, len(all))
	for _, pf := range all {
		if strings.TrimSpace(pf.Value) == "" {
			continue
		}
		fields = append(fields, pf)
	}
	return fields
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
