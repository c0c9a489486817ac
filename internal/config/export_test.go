package config

var (
	FileThresholds = fileThresholds
	DiffThresholds = diffThresholds
)
