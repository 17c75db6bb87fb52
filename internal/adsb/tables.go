package adsb

// wakeVortexCategories is indexed by type code then category code. Type
// codes 0 and 1 have no row.
var wakeVortexCategories = [5][8]string{
	2: {
		"no category info",
		"surface emergency vehicle",
		"surface service vehicle",
		"ground obstruction",
		"ground obstruction",
		"ground obstruction",
		"ground obstruction",
		"ground obstruction",
	},
	3: {
		"no category info",
		"glider/sailplane",
		"lighter-than-air",
		"parachutist/skydiver",
		"ultralight/hang-glider/paraglider",
		"reserved",
		"unmanned aerial vehicle",
		"space/transatmospheric vehicle",
	},
	4: {
		"no category info",
		"light aircraft",
		"medium 1 aircraft",
		"medium 2 aircraft",
		"high vortex aircraft",
		"heavy aircraft",
		"high performance aircraft",
		"rotorcraft",
	},
}

// WakeVortexCategory names the aircraft category for an identification
// message. Type code 1 is always "reserved"; type code 0 and codes outside
// the table have no entry.
func WakeVortexCategory(tc, ca uint8) (string, bool) {
	switch {
	case tc == 1:
		return "reserved", true
	case tc >= 2 && tc <= 4 && ca < 8:
		return wakeVortexCategories[tc][ca], true
	default:
		return "", false
	}
}
