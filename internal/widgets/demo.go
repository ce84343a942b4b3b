package widgets

import (
	"fmt"
	"math/rand"
	"time"
)

// Demo data keeps the exact field shape of configured-mode output so the
// rendering layer never needs mode-specific logic. Values come from a fixed
// seed per family, a restart renders the same dashboard.

func demoRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed)) //nolint:gosec
}

func demoTemperature() TemperatureData {
	rng := demoRand(1)

	labels := []string{"Living room", "Bedroom", "Outside"}
	data := TemperatureData{Groups: make([]TemperatureGroup, 0, len(labels))}

	for i, label := range labels {
		value := roundTenth(15 + rng.Float64()*10)

		data.Groups = append(data.Groups, TemperatureGroup{
			Group: i,
			Sensors: []TemperatureReading{
				{Label: label, Value: &value, Unit: "°C"},
			},
		})
	}

	return data
}

func demoWeather() WeatherData {
	rng := demoRand(2)

	conditions := []string{"sunny", "cloudy", "partlycloudy", "rainy", "snowy"}

	temperature := roundTenth(-5 + rng.Float64()*25)
	humidity := float64(30 + rng.Intn(60))
	windSpeed := roundTenth(rng.Float64() * 15)
	pressure := float64(990 + rng.Intn(40))
	sunrise := time.Now().Truncate(24 * time.Hour).Add(6 * time.Hour)
	sunset := sunrise.Add(12 * time.Hour)

	data := WeatherData{
		Current: WeatherCurrent{
			Condition:   conditions[rng.Intn(len(conditions))],
			Temperature: &temperature,
			Humidity:    &humidity,
			WindSpeed:   &windSpeed,
			Pressure:    &pressure,
			Sunrise:     &sunrise,
			Sunset:      &sunset,
		},
	}

	for day := 0; day < 5; day++ {
		high := roundTenth(5 + rng.Float64()*20)

		data.Forecast = append(data.Forecast, WeatherForecastDay{
			Date:          time.Now().AddDate(0, 0, day+1).Format("2006-01-02"),
			Condition:     conditions[rng.Intn(len(conditions))],
			High:          high,
			Low:           roundTenth(high - 3 - rng.Float64()*5),
			Precipitation: roundTenth(rng.Float64() * 8),
		})
	}

	return data
}

func demoElectricity(surcharge float64) ElectricityData {
	rng := demoRand(3)

	midnight := time.Now().Truncate(24 * time.Hour)
	current := roundTenth(0.5+rng.Float64()*2) + surcharge

	data := ElectricityData{CurrentPrice: &current, Unit: "SEK/kWh"}

	for hour := 0; hour < 24; hour++ {
		data.Today = append(data.Today, PricePoint{
			Start: midnight.Add(time.Duration(hour) * time.Hour),
			Value: roundTenth(0.3+rng.Float64()*2.5) + surcharge,
		})
	}

	return data
}

func demoPerson() PersonData {
	rng := demoRand(4)

	states := []string{"home", "not_home", "work"}
	data := PersonData{}

	for _, name := range []string{"Alex", "Sam"} {
		battery := float64(20 + rng.Intn(80))
		state := states[rng.Intn(len(states))]

		data.Persons = append(data.Persons, PersonStatus{
			Name:    name,
			State:   state,
			Home:    state == "home",
			Battery: &battery,
		})
	}

	return data
}

func demoVehicle() VehicleData {
	rng := demoRand(5)

	return VehicleData{
		Name: "Demo car",
		Sections: []VehicleValue{
			{Label: "Battery", Value: fmt.Sprintf("%d", 20+rng.Intn(80)), Unit: "%"},
			{Label: "Range", Value: fmt.Sprintf("%d", 100+rng.Intn(300)), Unit: "km"},
			{Label: "Odometer", Value: fmt.Sprintf("%d", 10000+rng.Intn(50000)), Unit: "km"},
			{Label: "Charging", Value: "off"},
		},
	}
}

func demoSensor(withHistory bool) SensorData {
	rng := demoRand(6)

	data := SensorData{
		Sensors: []SensorReading{
			{Label: "Humidity", Value: fmt.Sprintf("%d", 30+rng.Intn(50)), Unit: "%"},
			{Label: "CO₂", Value: fmt.Sprintf("%d", 400+rng.Intn(600)), Unit: "ppm"},
		},
	}

	if withHistory {
		now := time.Now().Truncate(time.Hour)
		series := make([]SeriesPoint, 0, 24)

		for hour := 23; hour >= 0; hour-- {
			series = append(series, SeriesPoint{
				Time:  now.Add(-time.Duration(hour) * time.Hour),
				Value: roundTenth(40 + rng.Float64()*20),
			})
		}

		data.Series = map[string][]SeriesPoint{"Humidity": series}
	}

	return data
}

func demoSensorGrid() SensorGridData {
	rng := demoRand(7)

	return SensorGridData{
		Columns: 2,
		Cells: []SensorGridCell{
			{Label: "Power", Value: fmt.Sprintf("%d", 200+rng.Intn(2000)), Unit: "W"},
			{Label: "Water", Value: fmt.Sprintf("%d", rng.Intn(400)), Unit: "l"},
			{Label: "Indoor", Value: fmt.Sprintf("%.1f", 19+rng.Float64()*4), Unit: "°C"},
			{Label: "Outdoor", Value: fmt.Sprintf("%.1f", -5+rng.Float64()*20), Unit: "°C"},
		},
	}
}

func demoNotifications() NotificationsData {
	return NotificationsData{
		Notifications: []Notification{
			{ID: "persistent_notification.demo", Title: "Welcome", Message: "homedash is running in demo mode", Kind: "system"},
		},
	}
}

func demoPollen() PollenData {
	rng := demoRand(8)

	levels := []string{"low", "moderate", "high"}
	data := PollenData{}

	for _, allergen := range []string{"Birch", "Grass", "Mugwort"} {
		value := float64(rng.Intn(5))

		data.Levels = append(data.Levels, PollenLevel{
			Allergen: allergen,
			Level:    levels[rng.Intn(len(levels))],
			Value:    &value,
		})
	}

	return data
}

func demoFoodMenu(days int) FoodMenuData {
	rng := demoRand(9)

	dishes := []string{"Pasta bolognese", "Fish gratin", "Pea soup", "Tacos", "Vegetable curry"}
	data := FoodMenuData{}

	for day := 0; day < days; day++ {
		data.Days = append(data.Days, FoodMenuDay{
			Date:  time.Now().AddDate(0, 0, day).Format("2006-01-02"),
			Items: []string{dishes[rng.Intn(len(dishes))]},
		})
	}

	return data
}

func demoCalendar(days int) CalendarData {
	rng := demoRand(10)

	summaries := []string{"Dentist", "Football practice", "Project review", "Dinner with friends"}
	data := CalendarData{Events: make([]CalendarItem, 0)}

	for day := 0; day < days; day += 2 {
		start := time.Now().AddDate(0, 0, day).Truncate(time.Hour)

		data.Events = append(data.Events, CalendarItem{
			Summary:  summaries[rng.Intn(len(summaries))],
			Start:    start,
			End:      start.Add(time.Hour),
			Calendar: "demo",
		})
	}

	return data
}

func demoRSS(maxItems int) RSSData {
	data := RSSData{Title: "Demo feed"}

	for i := 0; i < maxItems && i < 5; i++ {
		data.Items = append(data.Items, RSSItem{
			Title:     fmt.Sprintf("Demo headline #%d", i+1),
			Published: time.Now().Add(-time.Duration(i) * time.Hour).Format(time.RFC1123),
		})
	}

	return data
}

func roundTenth(value float64) float64 {
	return float64(int(value*10)) / 10
}
