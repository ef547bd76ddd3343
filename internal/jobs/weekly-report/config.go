package weeklyreport

import "time"

const JobName = "weekly-report"

type Config struct {
	Timeout time.Duration
	Period  time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Minute,
		Period:  7 * 24 * time.Hour,
	}
}
