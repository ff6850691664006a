package job

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/zeromunge/internal/errors"
)

// File is the on-disk job list.
//
//	defaults:
//	  staging_dir: C:/BF2_ModTools/data_ABC/_LVL_PC
//	  copy: true
//	  args: [PC]
//	jobs:
//	  - script: _BUILD/Common/munge.bat
//	    output_files: [core.lvl, common.lvl]
//	  - script: _BUILD/Sides/ALL/munge.bat
//	    staging_dir: C:/BF2_ModTools/data_ABC/_LVL_PC/SIDE
//	    output_files: ["*.lvl"]
//	    enabled: false
type File struct {
	Defaults Defaults `yaml:"defaults,omitempty"`
	Jobs     []Entry  `yaml:"jobs"`
}

// Defaults apply to every entry that does not set the field itself.
type Defaults struct {
	StagingDir string   `yaml:"staging_dir,omitempty"`
	Copy       *bool    `yaml:"copy,omitempty"`
	Args       []string `yaml:"args,omitempty"`
}

// Entry is one job as written in the file.
type Entry struct {
	Name        string   `yaml:"name,omitempty"`
	Script      string   `yaml:"script"`
	WorkingDir  string   `yaml:"working_dir,omitempty"`
	Args        []string `yaml:"args,omitempty"`
	Copy        *bool    `yaml:"copy,omitempty"`
	StagingDir  string   `yaml:"staging_dir,omitempty"`
	OutputFiles []string `yaml:"output_files,omitempty"`
	Enabled     *bool    `yaml:"enabled,omitempty"`
}

// LoadFile reads and parses a job file. Relative paths resolve against the
// file's directory.
func LoadFile(path string) ([]Descriptor, error) {
	f, baseDir, err := Open(path)
	if err != nil {
		return nil, err
	}
	return f.Descriptors(baseDir)
}

// Open decodes a job file without validating its entries. It also returns
// the file's absolute directory, which Descriptors uses to resolve paths.
func Open(path string) (*File, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", errors.NewNotFoundError("job file", path).WithCause(err)
		}
		return nil, "", fmt.Errorf("failed to read job file: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve job file path: %w", err)
	}
	f, err := decode(data)
	if err != nil {
		return nil, "", err
	}
	return f, filepath.Dir(abs), nil
}

// Parse decodes job file contents. baseDir anchors relative paths.
func Parse(data []byte, baseDir string) ([]Descriptor, error) {
	f, err := decode(data)
	if err != nil {
		return nil, err
	}
	return f.Descriptors(baseDir)
}

func decode(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.NewValidationError("invalid job file").WithCause(err)
	}
	return &f, nil
}

// Descriptors applies defaults, resolves paths and validates every entry.
func (f *File) Descriptors(baseDir string) ([]Descriptor, error) {
	out := make([]Descriptor, 0, len(f.Jobs))
	for i, e := range f.Jobs {
		d := Descriptor{
			Name:        e.Name,
			ScriptPath:  resolve(baseDir, e.Script),
			WorkingDir:  resolve(baseDir, e.WorkingDir),
			Args:        e.Args,
			StagingDir:  resolve(baseDir, firstNonEmpty(e.StagingDir, f.Defaults.StagingDir)),
			OutputFiles: e.OutputFiles,
			Enabled:     e.Enabled,
		}
		if d.Args == nil {
			d.Args = f.Defaults.Args
		}
		switch {
		case e.Copy != nil:
			d.CopyEnabled = *e.Copy
		case f.Defaults.Copy != nil:
			d.CopyEnabled = *f.Defaults.Copy
		default:
			d.CopyEnabled = d.HasOutputFiles()
		}

		if err := d.Validate(); err != nil {
			if verr, ok := err.(*errors.ValidationError); ok {
				return nil, verr.WithField(fmt.Sprintf("jobs[%d].%s", i, verr.Field))
			}
			return nil, err
		}
		out = append(out, d.Normalize())
	}
	return out, nil
}

// Save writes descriptors back out as a job file. Paths are written as given.
func Save(path string, jobs []Descriptor) error {
	f := File{Jobs: make([]Entry, 0, len(jobs))}
	for _, d := range jobs {
		copyEnabled := d.CopyEnabled
		f.Jobs = append(f.Jobs, Entry{
			Name:        d.Name,
			Script:      d.ScriptPath,
			WorkingDir:  d.WorkingDir,
			Args:        d.Args,
			Copy:        &copyEnabled,
			StagingDir:  d.StagingDir,
			OutputFiles: d.OutputFiles,
			Enabled:     d.Enabled,
		})
	}

	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("failed to encode job file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create job file directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func resolve(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) || baseDir == "" {
		return p
	}
	return filepath.Join(baseDir, p)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
