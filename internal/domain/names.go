package domain

import "fmt"

var phenomenonNames = map[string]string{
	"AF": "Ashfall",
	"AS": "Air Stagnation",
	"BH": "Beach Hazard",
	"BW": "Brisk Wind",
	"BZ": "Blizzard",
	"CF": "Coastal Flood",
	"DF": "Debris Flow",
	"DS": "Dust Storm",
	"DU": "Blowing Dust",
	"EC": "Extreme Cold",
	"EH": "Extreme Heat",
	"EW": "Extreme Wind",
	"FA": "Areal Flood",
	"FF": "Flash Flood",
	"FG": "Dense Fog",
	"FL": "Flood",
	"FR": "Frost",
	"FW": "Fire Weather",
	"FZ": "Freeze",
	"GL": "Gale",
	"HF": "Hurricane Force Wind",
	"HT": "Heat",
	"HU": "Hurricane",
	"HW": "High Wind",
	"HY": "Hydrologic",
	"HZ": "Hard Freeze",
	"IS": "Ice Storm",
	"LE": "Lake Effect Snow",
	"LO": "Low Water",
	"LS": "Lakeshore Flood",
	"LW": "Lake Wind",
	"MA": "Marine",
	"MF": "Dense Fog (Marine)",
	"MH": "Ashfall (Marine)",
	"MS": "Dense Smoke (Marine)",
	"RP": "Rip Current",
	"SC": "Small Craft",
	"SE": "Hazardous Seas",
	"SM": "Dense Smoke",
	"SQ": "Snow Squall",
	"SR": "Storm",
	"SS": "Storm Surge",
	"SU": "High Surf",
	"SV": "Severe Thunderstorm",
	"TO": "Tornado",
	"TR": "Tropical Storm",
	"TS": "Tsunami",
	"TY": "Typhoon",
	"UP": "Heavy Freezing Spray",
	"WC": "Wind Chill",
	"WI": "Wind",
	"WS": "Winter Storm",
	"WW": "Winter Weather",
	"XH": "Extreme Heat",
	"ZF": "Freezing Fog",
	"ZR": "Freezing Rain",
}

var significanceNames = map[string]string{
	"W": "Warning",
	"Y": "Advisory",
	"A": "Watch",
	"S": "Statement",
	"F": "Forecast",
	"O": "Outlook",
	"N": "Synopsis",
}

// PhenomenonName returns the display name for a phenomenon code, or the code
// itself when it is not known.
func PhenomenonName(code string) string {
	if name, ok := phenomenonNames[code]; ok {
		return name
	}
	return code
}

// SignificanceName returns the display name for a significance code.
func SignificanceName(code string) string {
	if name, ok := significanceNames[code]; ok {
		return name
	}
	return code
}

// Label is the human heading for an event, e.g.
// "2024 KDMX Tornado (TO) Warning (W) Number 45".
func (id EventID) Label() string {
	return fmt.Sprintf("%d %s %s (%s) %s (%s) Number %d",
		id.Year, id.Office,
		PhenomenonName(id.Phenomenon), id.Phenomenon,
		SignificanceName(id.Significance), id.Significance,
		id.Sequence)
}
