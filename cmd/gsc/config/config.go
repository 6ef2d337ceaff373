package config

import (
	"encoding/json"
	"fmt"
	"os"
)

type Config struct {
	Schema   string `json:"schema"`
	Host     string `json:"host"`
	Token    string `json:"token"`
	Thread   int    `json:"thread"`
	Retry    int    `json:"retry"`
	LogLevel string `json:"log_level"`
}

func Parse(f string) (*Config, error) {
	raw, err := os.ReadFile(f)
	if err != nil {
		return nil, fmt.Errorf("read file:%w", err)
	}
	c := &Config{
		Schema:   "https",
		Thread:   10,
		Retry:    5,
		LogLevel: "info",
	}
	if err := json.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("unmarshal file:%w", err)
	}
	return c, nil
}
