package voxport

// Track is a voice track of a project. The notes live in the VoiceParts that
// refer to the track by TrackNo.
type Track struct {
	TrackNo int    `yaml:"track_no"`
	Name    string `yaml:"track_name"`
	Singer  string `yaml:"singer,omitempty"`
	Mute    bool   `yaml:"mute,omitempty"`
}
