package csgv

// Container format constants for the serialized on-disk representation.
const (
	magic          = "CMPSGVOL"
	currentVersion = "0016"
	legacyVersion  = "0015"
)

var supportedVersions = map[string]bool{
	currentVersion: true,
	legacyVersion:  true,
}
