package services

import "deals-dashboard/models"

// Band names, lightest to darkest.
const (
	BandNone    = "none"
	BandLight   = "light"
	BandMedium  = "medium"
	BandStrong  = "strong"
	BandDarkest = "darkest"
)

const noneHex = "#FFFFFF"

// palettes hold light, medium, strong, darkest for each count mode.
var palettes = map[models.ViewMode][4]string{
	models.ViewSold:      {"#e5f5e0", "#a1d99b", "#41ab5d", "#006d2c"},
	models.ViewSoldBuyer: {"#c7e9c0", "#74c476", "#31a354", "#006d2c"},
	models.ViewCut:       {"#fee5d9", "#fcae91", "#fb6a4a", "#cb181d"},
	models.ViewBoth:      {"#deebf7", "#9ecae1", "#4292c6", "#084594"},
	models.ViewHealth:    {"#fee08b", "#d9ef8b", "#91cf60", "#1a9850"},
}

// ColorFor maps a metric value to a display band for the given view mode.
// Count modes band deal counts (0, 1, 2-5, 6-10, more); health mode bands a
// 0-100 score at 25/50/75; MAO mode expects the MAO minimum.
func ColorFor(value float64, mode models.ViewMode) models.ColorBand {
	if mode == models.ViewMAO {
		return MAOColor(&value)
	}

	palette, ok := palettes[mode]
	if !ok {
		palette = palettes[models.ViewBoth]
	}

	var idx int
	if mode == models.ViewHealth {
		switch {
		case value <= 0:
			return models.ColorBand{Name: BandNone, Hex: noneHex}
		case value < 25:
			idx = 0
		case value < 50:
			idx = 1
		case value < 75:
			idx = 2
		default:
			idx = 3
		}
	} else {
		switch {
		case value <= 0:
			return models.ColorBand{Name: BandNone, Hex: noneHex}
		case value <= 1:
			idx = 0
		case value <= 5:
			idx = 1
		case value <= 10:
			idx = 2
		default:
			idx = 3
		}
	}

	names := [4]string{BandLight, BandMedium, BandStrong, BandDarkest}
	return models.ColorBand{Name: names[idx], Hex: palette[idx]}
}

// MAOTierFromMin classifies a MAO minimum (fraction or percent) into tiers
// A-D. Off-band values go to the nearest lower bucket so a county slightly
// outside its band keeps a color. Returns "" when the value is missing or
// below 0.50.
func MAOTierFromMin(min *float64) string {
	if min == nil {
		return ""
	}
	mn := *min
	if mn > 1.5 {
		mn /= 100
	}

	switch {
	case mn >= 0.73 && mn <= 0.77:
		return "A"
	case mn >= 0.68 && mn <= 0.72:
		return "B"
	case mn >= 0.61 && mn <= 0.66:
		return "C"
	case mn >= 0.53 && mn <= 0.58:
		return "D"
	case mn > 0.77:
		return "A"
	case mn >= 0.67:
		return "B"
	case mn >= 0.59:
		return "C"
	case mn >= 0.50:
		return "D"
	}
	return ""
}

// MAOColor colors a county by its MAO tier; A is the most aggressive.
func MAOColor(min *float64) models.ColorBand {
	switch MAOTierFromMin(min) {
	case "A":
		return models.ColorBand{Name: "tier-a", Hex: "#1a9850"}
	case "B":
		return models.ColorBand{Name: "tier-b", Hex: "#91cf60"}
	case "C":
		return models.ColorBand{Name: "tier-c", Hex: "#fdae61"}
	case "D":
		return models.ColorBand{Name: "tier-d", Hex: "#d73027"}
	}
	return models.ColorBand{Name: BandNone, Hex: noneHex}
}

// CountyColor picks the metric the view mode colors by and bands it.
func CountyColor(s *models.CountySummary, mode models.ViewMode, tiers TierLookup) models.ColorBand {
	switch mode {
	case models.ViewCut:
		return ColorFor(float64(s.CutCount), mode)
	case models.ViewBoth:
		return ColorFor(float64(s.SoldCount+s.CutCount), mode)
	case models.ViewHealth:
		return ColorFor(s.HealthScore, mode)
	case models.ViewMAO:
		if t, ok := tiers.Lookup(s.CountyKey); ok && t.Range != nil {
			return MAOColor(t.Range.Min)
		}
		return MAOColor(nil)
	case models.ViewSoldBuyer:
		return ColorFor(float64(s.SoldCount), mode)
	}
	return ColorFor(float64(s.SoldCount), models.ViewSold)
}
