package airquality

import "github.com/cleanairroute/cleanairroute/internal/evaluation"

// PM2.5 grade breakpoints in µg/m³, following the Korean CAI bands.
const (
	pm25GoodMax          = 15.0
	pm25ModerateMax      = 35.0
	pm25UnhealthyMax     = 75.0
	pm25VeryUnhealthyMax = 150.0
)

// IndexFromPM25 converts a PM2.5 concentration to a 0-500 air quality index.
// Each grade band maps linearly onto its index range.
func IndexFromPM25(pm25 float64) int {
	if pm25 < 0 {
		pm25 = 0
	}
	var index float64
	switch {
	case pm25 <= pm25GoodMax:
		index = 50 * pm25 / pm25GoodMax
	case pm25 <= pm25ModerateMax:
		index = 50 + 50*(pm25-pm25GoodMax)/(pm25ModerateMax-pm25GoodMax)
	case pm25 <= pm25UnhealthyMax:
		index = 100 + 50*(pm25-pm25ModerateMax)/(pm25UnhealthyMax-pm25ModerateMax)
	case pm25 <= pm25VeryUnhealthyMax:
		index = 150 + 50*(pm25-pm25UnhealthyMax)/(pm25VeryUnhealthyMax-pm25UnhealthyMax)
	default:
		index = 200 + 100*(pm25-pm25VeryUnhealthyMax)/pm25VeryUnhealthyMax
		if index > 500 {
			index = 500
		}
	}
	return int(index)
}

// GradeFromPM25 converts a PM2.5 concentration to a health grade.
func GradeFromPM25(pm25 float64) evaluation.Grade {
	switch {
	case pm25 <= pm25GoodMax:
		return evaluation.GradeGood
	case pm25 <= pm25ModerateMax:
		return evaluation.GradeModerate
	case pm25 <= pm25UnhealthyMax:
		return evaluation.GradeUnhealthy
	case pm25 <= pm25VeryUnhealthyMax:
		return evaluation.GradeVeryUnhealthy
	default:
		return evaluation.GradeHazardous
	}
}

var gradeColors = map[evaluation.Grade]string{
	evaluation.GradeGood:          "#00E400",
	evaluation.GradeModerate:      "#FFFF00",
	evaluation.GradeUnhealthy:     "#FF7E00",
	evaluation.GradeVeryUnhealthy: "#FF0000",
	evaluation.GradeHazardous:     "#8F3F97",
}

// ColorForGrade returns the display color for a grade. Unknown grades map
// to the moderate color.
func ColorForGrade(grade evaluation.Grade) string {
	if c, ok := gradeColors[grade]; ok {
		return c
	}
	return gradeColors[evaluation.GradeModerate]
}
