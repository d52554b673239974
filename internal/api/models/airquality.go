package models

// CurrentAirQuality is the blended air quality estimate at a point.
type CurrentAirQuality struct {
	Location   Point                 `json:"location"`
	PM25       float64               `json:"pm25"`
	PM10       float64               `json:"pm10"`
	O3         float64               `json:"o3"`
	NO2        float64               `json:"no2"`
	AQI        int                   `json:"air_quality_index"`
	Grade      string                `json:"grade"`
	Color      string                `json:"color"`
	Confidence Confidence            `json:"confidence"`
	Stations   []StationContribution `json:"stations,omitempty"`
	ObservedAt Timestamp             `json:"observed_at"`
}

// StationContribution identifies a reading site blended into the estimate.
type StationContribution struct {
	District       string  `json:"district"`
	DistanceMeters int     `json:"distance_meters"`
	Weight         float64 `json:"weight"`
}

// AirQualityForecast is the hourly forecast for a point.
type AirQualityForecast struct {
	Location     Point            `json:"location"`
	Hours        []HourlyForecast `json:"hours"`
	Confidence   float64          `json:"confidence"`
	ModelVersion string           `json:"model_version,omitempty"`
	PredictedAt  Timestamp        `json:"predicted_at"`
}

// HourlyForecast is one hour of predicted pollutant levels.
type HourlyForecast struct {
	Hour  int     `json:"hour"`
	PM25  float64 `json:"pm25"`
	PM10  float64 `json:"pm10"`
	O3    float64 `json:"o3"`
	NO2   float64 `json:"no2"`
	AQI   int     `json:"air_quality_index"`
	Grade string  `json:"grade"`
}

// AirQualityHeatmap is a PM2.5 grid over a bounding box.
type AirQualityHeatmap struct {
	Bounds       GeoBox        `json:"bounds"`
	GridSize     int           `json:"grid_size"`
	Cells        []HeatmapCell `json:"cells"`
	ReadingsUsed int           `json:"readings_used"`
	GeneratedAt  Timestamp     `json:"generated_at"`
}

// HeatmapCell is one interpolated grid cell.
type HeatmapCell struct {
	Lat   float64 `json:"latitude"`
	Lon   float64 `json:"longitude"`
	PM25  float64 `json:"pm25"`
	AQI   int     `json:"air_quality_index"`
	Grade string  `json:"grade"`
	Color string  `json:"color"`
}
