package model

// FormCreateRequest 是创建档案的请求体，必填字段由 gin 的 binding 校验。
type FormCreateRequest struct {
	Location              string  `json:"location" binding:"required"`
	AreaType              string  `json:"area_type" binding:"required"`
	SoilType              string  `json:"soil_type" binding:"required"`
	WaterSource           string  `json:"water_source" binding:"required"`
	Irrigation            string  `json:"irrigation" binding:"required"`
	Temperature           string  `json:"temperature" binding:"required"`
	Rainfall              string  `json:"rainfall" binding:"required"`
	Sunlight              string  `json:"sunlight" binding:"required"`
	LandSize              string  `json:"land_size" binding:"required"`
	Goal                  string  `json:"goal" binding:"required"`
	CropDuration          string  `json:"crop_duration" binding:"required"`
	SpecificCrop          *string `json:"specific_crop"`
	FertilizersPreference *string `json:"fertilizers_preference"`
	LastPlantedAt         *string `json:"last_planted_at"`
}

// ToModel 转换为待插入的档案。
func (r FormCreateRequest) ToModel(userID uint) *FormResponse {
	return &FormResponse{
		UserID:                userID,
		Location:              r.Location,
		AreaType:              r.AreaType,
		SoilType:              r.SoilType,
		WaterSource:           r.WaterSource,
		Irrigation:            r.Irrigation,
		Temperature:           r.Temperature,
		Rainfall:              r.Rainfall,
		Sunlight:              r.Sunlight,
		LandSize:              r.LandSize,
		Goal:                  r.Goal,
		CropDuration:          r.CropDuration,
		SpecificCrop:          r.SpecificCrop,
		FertilizersPreference: r.FertilizersPreference,
		LastPlantedAt:         r.LastPlantedAt,
	}
}

// FormUpdateRequest 是部分更新档案的请求体，nil 字段表示不修改。
type FormUpdateRequest struct {
	Location              *string `json:"location"`
	AreaType              *string `json:"area_type"`
	SoilType              *string `json:"soil_type"`
	WaterSource           *string `json:"water_source"`
	Irrigation            *string `json:"irrigation"`
	Temperature           *string `json:"temperature"`
	Rainfall              *string `json:"rainfall"`
	Sunlight              *string `json:"sunlight"`
	LandSize              *string `json:"land_size"`
	Goal                  *string `json:"goal"`
	CropDuration          *string `json:"crop_duration"`
	SpecificCrop          *string `json:"specific_crop"`
	FertilizersPreference *string `json:"fertilizers_preference"`
	LastPlantedAt         *string `json:"last_planted_at"`
}

// Changes 返回需要写入的列；没有设置任何字段时返回空 map。
func (r FormUpdateRequest) Changes() map[string]interface{} {
	cols := []struct {
		name string
		val  *string
	}{
		{"location", r.Location},
		{"area_type", r.AreaType},
		{"soil_type", r.SoilType},
		{"water_source", r.WaterSource},
		{"irrigation", r.Irrigation},
		{"temperature", r.Temperature},
		{"rainfall", r.Rainfall},
		{"sunlight", r.Sunlight},
		{"land_size", r.LandSize},
		{"goal", r.Goal},
		{"crop_duration", r.CropDuration},
		{"specific_crop", r.SpecificCrop},
		{"fertilizers_preference", r.FertilizersPreference},
		{"last_planted_at", r.LastPlantedAt},
	}
	changes := make(map[string]interface{})
	for _, c := range cols {
		if c.val != nil {
			changes[c.name] = *c.val
		}
	}
	return changes
}
