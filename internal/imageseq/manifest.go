package imageseq

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// ManifestName is the sidecar written next to the frames of a sequence.
const ManifestName = "sequence.toml"

// Manifest describes a sequence directory. Only FrameRate is read back; the
// other fields record how the sequence was produced.
type Manifest struct {
	FrameRate   float64 `toml:"frame_rate"`
	Frames      int     `toml:"frames,omitempty"`
	Container   string  `toml:"container,omitempty"`
	Width       int     `toml:"width,omitempty"`
	Height      int     `toml:"height,omitempty"`
	Tier        string  `toml:"tier,omitempty"`
	BitrateKbps int     `toml:"bitrate_kbps,omitempty"`
}

// ReadManifest loads dir/sequence.toml. ok is false when the file is absent.
func ReadManifest(dir string) (m Manifest, ok bool, err error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if os.IsNotExist(err) {
		return Manifest{}, false, nil
	}
	if err != nil {
		return Manifest{}, false, errors.Wrap(err, "read sequence manifest")
	}
	if err := toml.NewDecoder(bytes.NewReader(data)).Decode(&m); err != nil {
		return Manifest{}, false, errors.Wrapf(err, "parse %s", ManifestName)
	}
	if m.FrameRate < 0 {
		return Manifest{}, false, errors.Errorf("%s: negative frame_rate %v", ManifestName, m.FrameRate)
	}
	return m, true, nil
}

func writeManifest(dir string, m Manifest) error {
	data, err := toml.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "encode sequence manifest")
	}
	return errors.Wrap(os.WriteFile(filepath.Join(dir, ManifestName), data, 0o644), "write sequence manifest")
}
