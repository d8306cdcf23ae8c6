package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"ecochat/internal/logger"
)

// CloudPowerEntry is a reference per-prompt energy figure for a cloud
// model, used by the analytics dashboard to contrast local consumption.
type CloudPowerEntry struct {
	Model string  `json:"model"`
	Power float64 `json:"power"`
	Type  string  `json:"type"`
}

// CloudPower reads configs/default_power_consumptions.json, a flat
// {"model-name": wh} object, cached after the first read.
type CloudPower struct {
	path string

	once    sync.Once
	entries []CloudPowerEntry
}

// NewCloudPower creates a provider reading from
// dir/default_power_consumptions.json.
func NewCloudPower(dir string) *CloudPower {
	return &CloudPower{path: filepath.Join(dir, "default_power_consumptions.json")}
}

func (c *CloudPower) load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		logger.WithPrefix("config").Warn("cloud power reference not found", "path", c.path)
		return
	}
	var parsed map[string]float64
	if err := json.Unmarshal(data, &parsed); err != nil {
		logger.WithPrefix("config").Error("failed to parse cloud power reference", "path", c.path, "err", err)
		return
	}

	for model, power := range parsed {
		c.entries = append(c.entries, CloudPowerEntry{Model: model, Power: power, Type: "Cloud API"})
	}
	sort.Slice(c.entries, func(i, j int) bool { return c.entries[i].Model < c.entries[j].Model })
}

// Entries returns the cloud reference figures, possibly empty.
func (c *CloudPower) Entries() []CloudPowerEntry {
	c.once.Do(c.load)
	return c.entries
}
