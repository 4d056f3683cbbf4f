package labels

import (
	"github.com/jobtrail/jobtrail/internal/core"
)

// Preset label configurations for the job-search categories. The
// LegacyNames entries are previous label names that get renamed in
// place instead of duplicated when found in a mailbox.
var presets = map[string]core.LabelConfig{
	core.CategoryApplication: {
		Name:           "Jobs/Applied",
		Keywords:       []string{"application", "applied"},
		Color:          "#16a765",
		ColorFallbacks: []string{"#43d692", "#2da2bb", ""},
		LegacyNames:    []string{"Job Applications"},
		Enabled:        true,
	},
	core.CategoryInterview: {
		Name:           "Jobs/Interview",
		Keywords:       []string{"interview"},
		Color:          "#ffad47",
		ColorFallbacks: []string{"#ffbc6b", "#eaa041", ""},
		LegacyNames:    []string{"Job Interviews"},
		Enabled:        true,
	},
	core.CategoryOffer: {
		Name:           "Jobs/Offer",
		Keywords:       []string{"offer"},
		Color:          "#9a9cff",
		ColorFallbacks: []string{"#b99aff", "#a479e2", ""},
		LegacyNames:    []string{"Job Offers"},
		Enabled:        true,
	},
	core.CategoryRejection: {
		Name:           "Jobs/Rejected",
		Keywords:       []string{"rejection", "rejected"},
		Color:          "#fb4c2f",
		ColorFallbacks: []string{"#f691b2", "#e66550", ""},
		LegacyNames:    []string{"Job Rejections"},
		MoveToFolder:   true,
		Enabled:        true,
	},
}

// PresetFor returns the label configuration for a category, or a
// minimal visibility-only config for custom label names outside the
// preset set.
func PresetFor(category string) core.LabelConfig {
	if cfg, ok := presets[category]; ok {
		return cfg
	}
	return core.LabelConfig{Name: category, Enabled: true, ColorFallbacks: []string{""}}
}

// presetByName finds the preset whose mailbox label name matches,
// falling back to the same minimal config PresetFor builds for custom
// labels.
func presetByName(labelName string) core.LabelConfig {
	for _, cfg := range presets {
		if cfg.Name == labelName {
			return cfg
		}
	}
	return PresetFor(labelName)
}

// PresetName maps a category to its mailbox label name
func PresetName(category string) string {
	return PresetFor(category).Name
}
