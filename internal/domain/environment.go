package domain

import "time"

// MaxWaterQuality bounds the water-quality index.
const MaxWaterQuality = 100

// EnvironmentalSample is the latest ambient reading. Each sample replaces the previous one.
type EnvironmentalSample struct {
	WaterTemperature float64   `json:"water_temp"`
	AirTemperature   float64   `json:"air_temp"`
	Humidity         float64   `json:"humidity"`
	Pressure         float64   `json:"pressure"`
	WindSpeed        float64   `json:"wind_speed"`
	WindDirection    float64   `json:"wind_dir"`
	WaveHeight       float64   `json:"wave_height"`
	WaterQuality     int       `json:"water_quality"`
	Battery          int       `json:"battery"`
	Timestamp        time.Time `json:"ts"`
}

// Normalize clamps bounded fields into range.
func (s EnvironmentalSample) Normalize() EnvironmentalSample {
	if s.WaterQuality < 0 {
		s.WaterQuality = 0
	}
	if s.WaterQuality > MaxWaterQuality {
		s.WaterQuality = MaxWaterQuality
	}
	if s.Battery < 0 {
		s.Battery = 0
	}
	if s.Battery > 100 {
		s.Battery = 100
	}
	return s
}

// Set assigns the field named by its JSON key. It reports false for unknown keys.
func (s *EnvironmentalSample) Set(field string, v float64) bool {
	switch field {
	case "water_temp":
		s.WaterTemperature = v
	case "air_temp":
		s.AirTemperature = v
	case "humidity":
		s.Humidity = v
	case "pressure":
		s.Pressure = v
	case "wind_speed":
		s.WindSpeed = v
	case "wind_dir":
		s.WindDirection = v
	case "wave_height":
		s.WaveHeight = v
	case "water_quality":
		s.WaterQuality = int(v)
	case "battery":
		s.Battery = int(v)
	default:
		return false
	}
	return true
}
