package catalog

import (
	"fmt"
	"strings"
)

// Translator turns option tokens into display text.
type Translator interface {
	Translate(token string) string
}

// Dictionary is a Translator backed by a lookup table. Tokens without an
// entry are returned unchanged, except error codes, which lose their
// "err_" prefix.
type Dictionary map[string]string

// Translate implements Translator.
func (d Dictionary) Translate(token string) string {
	if s, ok := d[token]; ok {
		return s
	}
	if code, ok := strings.CutPrefix(token, "err_"); ok {
		return code
	}
	return token
}

// NewTranslator returns the dictionary for language ("en" or "de").
func NewTranslator(language string) (Translator, error) {
	switch language {
	case "", "en":
		return english, nil
	case "de":
		return german, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, language)
}

var english = Dictionary{
	"off":        "Off",
	"on":         "On",
	"night_only": "Night only",

	"low":       "Low",
	"normal":    "Normal",
	"good":      "Good",
	"very_good": "Very good",

	"monday":    "Monday",
	"tuesday":   "Tuesday",
	"wednesday": "Wednesday",
	"thursday":  "Thursday",
	"friday":    "Friday",
	"saturday":  "Saturday",
	"sunday":    "Sunday",
	"mo_to_su":  "Monday to Sunday",

	"standby":              "Standby",
	"heating":              "Heating",
	"cooling":              "Cooling",
	"defrosting":           "Defrosting",
	"hot_water_production": "Hot water production",
	"lowering":             "Lowering",
	"summer":               "Summer",
	"automatic_1":          "Automatic 1",
	"automatic_2":          "Automatic 2",

	"weather_dependent": "Weather dependent",
	"fixed":             "Fixed",
	"sg_mode_1":         "SG mode 1",
	"sg_mode_2":         "SG mode 2",

	"no_additional_heat_generator":        "No additional heat generator",
	"optional_backup_heater":              "Optional backup heater",
	"wez_for_hot_water_and_heating":       "WEZ for hot water and heating",
	"wez1_for_hot_water_wez2_for_heating": "WEZ1 for hot water, WEZ2 for heating",

	"sgn_normal_mode":                   "SGN normal mode",
	"sg1_hot_water_and_heating_off":     "SG1 hot water and heating off",
	"sg2_hot_water_and_heating_plus_5c": "SG2 hot water and heating +5 °C",
	"sg3_hot_water_70c":                 "SG3 hot water 70 °C",

	"err_0": "No error",
}

var german = Dictionary{
	"off":        "Aus",
	"on":         "An",
	"night_only": "Nur nachts",

	"low":       "Niedrig",
	"normal":    "Normal",
	"good":      "Gut",
	"very_good": "Sehr gut",

	"monday":    "Montag",
	"tuesday":   "Dienstag",
	"wednesday": "Mittwoch",
	"thursday":  "Donnerstag",
	"friday":    "Freitag",
	"saturday":  "Samstag",
	"sunday":    "Sonntag",
	"mo_to_su":  "Montag bis Sonntag",

	"standby":              "Bereitschaft",
	"heating":              "Heizen",
	"cooling":              "Kühlen",
	"defrosting":           "Abtauen",
	"hot_water_production": "Warmwasserbereitung",
	"lowering":             "Absenken",
	"summer":               "Sommer",
	"automatic_1":          "Automatik 1",
	"automatic_2":          "Automatik 2",

	"weather_dependent": "Witterungsgeführt",
	"fixed":             "Konstant",
	"sg_mode_1":         "SG Modus 1",
	"sg_mode_2":         "SG Modus 2",

	"no_additional_heat_generator":        "Kein zusätzlicher Wärmeerzeuger",
	"optional_backup_heater":              "Optionaler Backup-Heater",
	"wez_for_hot_water_and_heating":       "WEZ für Warmwasser und Heizung",
	"wez1_for_hot_water_wez2_for_heating": "WEZ1 für Warmwasser, WEZ2 für Heizung",

	"sgn_normal_mode":                   "SGN Normaler Modus",
	"sg1_hot_water_and_heating_off":     "SG1 Warmwasser und Heizung aus",
	"sg2_hot_water_and_heating_plus_5c": "SG2 Warmwasser und Heizung +5 °C",
	"sg3_hot_water_70c":                 "SG3 Warmwasser 70 °C",

	"err_0": "Kein Fehler",
}
