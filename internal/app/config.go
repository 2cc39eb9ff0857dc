package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/acoustic-similarity/internal/acoustic"
)

// TrackInput is the on-disk form of a track's analysed audio: cepstral
// frames from the MFCC front end and, optionally, its rhythm spectrum
type TrackInput struct {
	Frames [][]float32 `yaml:"frames" json:"frames"`
	Beats  []float32   `yaml:"beats,omitempty" json:"beats,omitempty"`
}

// Validate checks the input dimensions
func (t *TrackInput) Validate() error {
	for i, f := range t.Frames {
		if len(f) != acoustic.NumCepstr {
			return fmt.Errorf("frame %d has %d coefficients, expected %d", i, len(f), acoustic.NumCepstr)
		}
	}
	if len(t.Beats) != 0 && len(t.Beats) != acoustic.BeatsSize {
		return fmt.Errorf("rhythm spectrum has %d bins, expected %d", len(t.Beats), acoustic.BeatsSize)
	}
	return nil
}

// CepstralFrames converts the frames to fixed-size arrays
func (t *TrackInput) CepstralFrames() []acoustic.Frame {
	frames := make([]acoustic.Frame, len(t.Frames))
	for i, f := range t.Frames {
		copy(frames[i][:], f)
	}
	return frames
}

// RhythmSpectrum returns the spectrum, or nil when none was supplied
func (t *TrackInput) RhythmSpectrum() *acoustic.RhythmSpectrum {
	if len(t.Beats) == 0 {
		return nil
	}
	beats := &acoustic.RhythmSpectrum{}
	copy(beats[:], t.Beats)
	return beats
}

// LoadTrackInput loads a track input file (YAML or JSON)
func LoadTrackInput(filePath string) (*TrackInput, error) {
	// Check if file exists
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("track input file does not exist: %s", filePath)
	}

	var (
		input *TrackInput
		err   error
	)

	// Determine file format
	switch filepath.Ext(filePath) {
	case ".yaml", ".yml":
		input, err = loadTrackInputFromYAML(filePath)
	case ".json":
		input, err = loadTrackInputFromJSON(filePath)
	default:
		// Try YAML first, then JSON
		if input, err = loadTrackInputFromYAML(filePath); err != nil {
			input, err = loadTrackInputFromJSON(filePath)
		}
	}
	if err != nil {
		return nil, err
	}

	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("invalid track input %s: %w", filePath, err)
	}
	return input, nil
}

// loadTrackInputFromYAML loads a track input from a YAML file
func loadTrackInputFromYAML(filePath string) (*TrackInput, error) {
	data, err := readFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read YAML track input: %w", err)
	}

	var input TrackInput
	if err := yaml.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("failed to parse YAML track input: %w", err)
	}
	return &input, nil
}

// loadTrackInputFromJSON loads a track input from a JSON file
func loadTrackInputFromJSON(filePath string) (*TrackInput, error) {
	data, err := readFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON track input: %w", err)
	}

	var input TrackInput
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("failed to parse JSON track input: %w", err)
	}
	return &input, nil
}

func readFile(filePath string) ([]byte, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(file)
}
