package soundmunge

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/zeromunge/internal/errors"
)

// Project is a mod project's sound layout.
type Project struct {
	Dir string
	ID  string
	// SoundDir is the project's Sound directory, empty when it has none.
	SoundDir string
	// Folders are the lowercased directories under Sound, worlds excluded.
	Folders []string
	// Worlds are the lowercased directories under Sound/worlds.
	Worlds []string
	// EnabledFolders and EnabledWorlds are the ones the existing script
	// already munges.
	EnabledFolders []string
	EnabledWorlds  []string
	// HasScript reports whether the project already has a soundmunge.bat.
	HasScript bool
}

// ScriptPath returns the location of the project's soundmunge.bat.
func (p *Project) ScriptPath() string {
	return filepath.Join(p.Dir, FileName)
}

// Options returns render options selecting what the existing script munges.
// Enabled folders without a script template are dropped.
func (p *Project) Options(installPath string) Options {
	var folders []string
	for _, f := range p.EnabledFolders {
		if slices.Contains(CommonFolders, f) {
			folders = append(folders, f)
		}
	}
	return Options{
		InstallPath: installPath,
		ProjectID:   p.ID,
		Folders:     folders,
		Worlds:      p.EnabledWorlds,
	}
}

// ProjectID derives a mod ID from a project directory: "data_ABC" gives
// "ABC". Other names are returned unchanged.
func ProjectID(dir string) string {
	base := filepath.Base(filepath.Clean(dir))
	if len(base) > len("data_") && strings.EqualFold(base[:len("data_")], "data_") {
		return base[len("data_"):]
	}
	return base
}

// Scan reads the sound layout of the project at dir. The directory must
// contain a _BUILD folder.
func Scan(fs afero.Fs, dir string) (*Project, error) {
	if _, ok, err := findDir(fs, dir, "_BUILD"); err != nil {
		return nil, errors.NewNotFoundError("project directory", dir).WithCause(err)
	} else if !ok {
		return nil, errors.NewNotFoundError("_BUILD directory", dir)
	}

	p := &Project{Dir: dir, ID: ProjectID(dir)}

	sound, ok, err := findDir(fs, dir, "sound")
	if err != nil {
		return nil, errors.Wrap(err, "read project directory")
	}
	if ok {
		p.SoundDir = sound
		names, err := subdirs(fs, sound)
		if err != nil {
			return nil, errors.Wrap(err, "read sound directory")
		}
		for _, name := range names {
			if name != "worlds" {
				p.Folders = append(p.Folders, name)
				continue
			}
			worlds, ok, err := findDir(fs, sound, "worlds")
			if err != nil || !ok {
				continue
			}
			if p.Worlds, err = subdirs(fs, worlds); err != nil {
				return nil, errors.Wrap(err, "read worlds directory")
			}
		}
	}

	data, err := afero.ReadFile(fs, p.ScriptPath())
	switch {
	case err == nil:
		p.HasScript = true
		p.EnabledFolders, p.EnabledWorlds = Enabled(data, p.Folders, p.Worlds)
	case !os.IsNotExist(err):
		return nil, errors.Wrap(err, "read "+FileName)
	}
	return p, nil
}

// Enabled reports which of folders and worlds are munged by script. A
// folder is enabled when a soundmungedir call line mentions sound\<name>
// followed by a space.
func Enabled(script []byte, folders, worlds []string) (enabledFolders, enabledWorlds []string) {
	sc := bufio.NewScanner(bytes.NewReader(script))
	for sc.Scan() {
		line := strings.ToLower(strings.TrimSpace(sc.Text()))
		if !strings.HasPrefix(line, "@call soundmungedir") && !strings.HasPrefix(line, "call soundmungedir") {
			continue
		}
		for _, w := range worlds {
			if strings.Contains(line, `sound\worlds\`+w+" ") {
				enabledWorlds = appendOnce(enabledWorlds, w)
			}
		}
		for _, f := range folders {
			if strings.Contains(line, `sound\`+f+" ") {
				enabledFolders = appendOnce(enabledFolders, f)
			}
		}
	}
	return enabledFolders, enabledWorlds
}

// Write renders opts into the project's soundmunge.bat. An existing script
// is only replaced when overwrite is set.
func Write(fs afero.Fs, p *Project, opts Options, overwrite bool) error {
	text, err := Render(opts)
	if err != nil {
		return err
	}
	if exists, err := afero.Exists(fs, p.ScriptPath()); err != nil {
		return errors.Wrap(err, "check "+FileName)
	} else if exists && !overwrite {
		return errors.NewValidationError(FileName + " already exists").WithField("overwrite").WithValue(p.ScriptPath())
	}
	return afero.WriteFile(fs, p.ScriptPath(), []byte(text), 0644)
}

// findDir looks up a child directory of parent by name, ignoring case.
func findDir(fs afero.Fs, parent, name string) (string, bool, error) {
	entries, err := afero.ReadDir(fs, parent)
	if err != nil {
		return "", false, err
	}
	for _, e := range entries {
		if e.IsDir() && strings.EqualFold(e.Name(), name) {
			return filepath.Join(parent, e.Name()), true, nil
		}
	}
	return "", false, nil
}

func subdirs(fs afero.Fs, dir string) ([]string, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = appendOnce(names, strings.ToLower(e.Name()))
		}
	}
	sort.Strings(names)
	return names, nil
}

func appendOnce(list []string, s string) []string {
	if slices.Contains(list, s) {
		return list
	}
	return append(list, s)
}
