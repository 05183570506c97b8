package synth

// File names written to the output directory.
const (
	MetadataFile = "match_data.json"
	TrackingFile = "tracking_extrapolated.jsonl"
	EventsFile   = "dynamic_events.csv"
	PhasesFile   = "phases_of_play.csv"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)
