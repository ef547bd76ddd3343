package reminderdispatch

import "time"

const JobName = "reminder-dispatch"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Minute,
	}
}
