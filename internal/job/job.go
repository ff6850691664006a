// Package job defines the descriptors a zeromunge run consumes and the YAML
// job file they are loaded from.
package job

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/Iron-Ham/zeromunge/internal/errors"
)

// NoFiles is the output file entry meaning "this job produces nothing to copy".
const NoFiles = "nil"

// Descriptor describes one script to run and the artifacts to stage after it.
type Descriptor struct {
	// Name is the display name. Empty means the script's base name.
	Name string
	// ScriptPath is the program or batch file to launch.
	ScriptPath string
	// WorkingDir is where the script runs and where output files are read
	// from. Empty means the script's directory.
	WorkingDir string
	// Args are passed to the script, e.g. the platform "PC".
	Args []string
	// CopyEnabled turns on the post-job artifact copy.
	CopyEnabled bool
	// StagingDir receives copied artifacts.
	StagingDir string
	// OutputFiles are names (or glob patterns) relative to WorkingDir.
	// A single NoFiles entry means none.
	OutputFiles []string
	// Enabled is the checked flag of the job list. Nil means enabled.
	Enabled *bool
}

// DisplayName returns Name, or the script's base name when Name is empty.
func (d Descriptor) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return filepath.Base(d.ScriptPath)
}

// IsEnabled reports whether the job takes part in a run.
func (d Descriptor) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

// Dir returns the directory the script runs in.
func (d Descriptor) Dir() string {
	if d.WorkingDir != "" {
		return d.WorkingDir
	}
	return filepath.Dir(d.ScriptPath)
}

// HasOutputFiles reports whether there is anything to copy, treating an
// empty list and the lone NoFiles sentinel alike.
func (d Descriptor) HasOutputFiles() bool {
	switch len(d.OutputFiles) {
	case 0:
		return false
	case 1:
		return strings.TrimSpace(d.OutputFiles[0]) != NoFiles
	default:
		return true
	}
}

// Clone returns a deep copy so later changes by the caller cannot reach a
// queued job.
func (d Descriptor) Clone() Descriptor {
	c := d
	c.Args = slices.Clone(d.Args)
	c.OutputFiles = slices.Clone(d.OutputFiles)
	if d.Enabled != nil {
		v := *d.Enabled
		c.Enabled = &v
	}
	return c
}

// Normalize fills the defaulted fields: Name and WorkingDir.
func (d Descriptor) Normalize() Descriptor {
	c := d.Clone()
	c.Name = d.DisplayName()
	c.WorkingDir = d.Dir()
	return c
}

// Validate reports the first problem that would stop the job from running.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.ScriptPath) == "" {
		return errors.NewValidationError("script path is required").WithField("script")
	}
	if d.CopyEnabled && d.HasOutputFiles() && strings.TrimSpace(d.StagingDir) == "" {
		return errors.NewValidationError("staging directory is required when copy is enabled").
			WithField("staging_dir").
			WithValue(d.DisplayName())
	}
	return nil
}

// Enabled returns the enabled jobs, in order.
func Enabled(jobs []Descriptor) []Descriptor {
	out := make([]Descriptor, 0, len(jobs))
	for _, j := range jobs {
		if j.IsEnabled() {
			out = append(out, j)
		}
	}
	return out
}

// Bool returns a pointer to v, for Descriptor.Enabled.
func Bool(v bool) *bool {
	return &v
}
