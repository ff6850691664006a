// Package soundmunge generates a mod project's soundmunge.bat from the
// sound folders it should munge.
//
// The generated script has a fixed layout: a platform check, the install
// path, one soundmungedir call per selected side/global/shell folder, one
// per selected world, and an xcopy of the munged sound into the game's
// addon directory.
package soundmunge

import (
	"slices"
	"strings"

	"github.com/Iron-Ham/zeromunge/internal/errors"
)

// FileName is the script written into the project directory.
const FileName = "soundmunge.bat"

// Common folders, in the order their lines appear in the script.
var CommonFolders = []string{"cw", "gcw", "global", "shell"}

const placeholder = "@#$"

var commonLines = map[string]string{
	"cw":     `@call soundmungedir _BUILD\sound\cw\%MUNGE_DIR%     sound\cw     sound\cw\%MUNGE_PLATFORM%     %MUNGE_PLATFORM% _BUILD _LVL_%MUNGE_PLATFORM%\sound _BUILD\sound cw`,
	"gcw":    `@call soundmungedir _BUILD\sound\gcw\%MUNGE_DIR%    sound\gcw    sound\gcw\%MUNGE_PLATFORM%    %MUNGE_PLATFORM% _BUILD _LVL_%MUNGE_PLATFORM%\sound _BUILD\sound gcw`,
	"global": `@call soundmungedir _BUILD\sound\global\%MUNGE_DIR% sound\global sound\global\%MUNGE_PLATFORM% %MUNGE_PLATFORM% _BUILD _LVL_%MUNGE_PLATFORM%\sound _BUILD\sound global nolevelfile`,
	"shell":  `@call soundmungedir _BUILD\sound\shell\%MUNGE_DIR%  sound\shell  sound\shell\%MUNGE_PLATFORM%  %MUNGE_PLATFORM% _BUILD _LVL_%MUNGE_PLATFORM%\sound _BUILD\sound shell`,
}

const (
	worldLine = `@call soundmungedir _BUILD\sound\worlds\@#$\%MUNGE_DIR% sound\worlds\@#$ sound\worlds\@#$\%MUNGE_PLATFORM% %MUNGE_PLATFORM% _BUILD _LVL_%MUNGE_PLATFORM%\sound _BUILD\sound @#$`
	xcopyLine = `xcopy _LVL_%MUNGE_PLATFORM%\sound\*  %BF2_SOUNDPATH%GameData\addon\@#$\data\_LVL_PC\Sound\ /Y`
)

// Options selects what the generated script munges.
type Options struct {
	// InstallPath is the game's install directory, the parent of GameData.
	InstallPath string
	// ProjectID is the mod's three letter ID used in the addon path.
	ProjectID string
	// Folders are the common folders to munge: cw, gcw, global, shell.
	Folders []string
	// Worlds are the world folders under sound\worlds to munge.
	Worlds []string
}

// Validate checks that opts can be rendered.
func (o Options) Validate() error {
	if strings.TrimSpace(o.ProjectID) == "" {
		return errors.NewValidationError("project ID is required").WithField("project_id")
	}
	if strings.TrimSpace(o.InstallPath) == "" {
		return errors.NewValidationError("install path is required").WithField("install_path")
	}
	for _, f := range o.Folders {
		if _, ok := commonLines[strings.ToLower(f)]; !ok {
			return errors.NewValidationError("unknown sound folder").WithField("folders").WithValue(f)
		}
	}
	for _, w := range o.Worlds {
		if w == "" || strings.ContainsAny(w, `\/ `) {
			return errors.NewValidationError("invalid world name").WithField("worlds").WithValue(w)
		}
	}
	return nil
}

// Render returns the script text. Lines end in CRLF because the script is
// run by cmd.exe.
func Render(opts Options) (string, error) {
	if err := opts.Validate(); err != nil {
		return "", err
	}

	install := strings.TrimRight(opts.InstallPath, `\/`)
	lines := []string{
		"@if %1x==x goto noplatform",
		"@set MUNGE_PLATFORM=%1",
		`@set MUNGE_DIR=MUNGED\%MUNGE_PLATFORM%`,
		"@rem EDIT THE LINE BELOW TO POINT TO YOUR BF2 INSTALL PATH",
		`@set BF2_SOUNDPATH="` + install + `\"`,
		"",
		"@rem Munge global, shell and side specific sound data",
	}

	selected := make(map[string]bool, len(opts.Folders))
	for _, f := range opts.Folders {
		selected[strings.ToLower(f)] = true
	}
	for _, f := range CommonFolders {
		if selected[f] {
			lines = append(lines, commonLines[f])
		}
	}

	lines = append(lines, "@rem Munge world specific sound data")
	var worlds []string
	for _, w := range opts.Worlds {
		w = strings.ToLower(w)
		if !slices.Contains(worlds, w) {
			worlds = append(worlds, w)
		}
	}
	for _, w := range worlds {
		lines = append(lines, strings.ReplaceAll(worldLine, placeholder, w))
	}

	lines = append(lines,
		"",
		strings.ReplaceAll(xcopyLine, placeholder, opts.ProjectID),
		"",
		"@goto exit",
		":noplatform",
		"@echo Platform must be specified as the first argument",
		":exit",
	)
	return strings.Join(lines, "\r\n") + "\r\n", nil
}
