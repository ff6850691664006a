package soundmunge

import (
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/zeromunge/internal/errors"
)

var projectDir = filepath.FromSlash("/BF2_ModTools/data_ABC")

func newProject(t *testing.T, dirs ...string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, d := range dirs {
		if err := fs.MkdirAll(filepath.Join(projectDir, filepath.FromSlash(d)), 0755); err != nil {
			t.Fatal(err)
		}
	}
	return fs
}

func TestProjectID(t *testing.T) {
	tests := []struct {
		dir  string
		want string
	}{
		{"/BF2_ModTools/data_ABC", "ABC"},
		{"/BF2_ModTools/DATA_xyz/", "xyz"},
		{"/BF2_ModTools/mymod", "mymod"},
		{"data_", "data_"},
	}
	for _, tt := range tests {
		if got := ProjectID(filepath.FromSlash(tt.dir)); got != tt.want {
			t.Errorf("ProjectID(%q) = %q, want %q", tt.dir, got, tt.want)
		}
	}
}

func TestScan(t *testing.T) {
	fs := newProject(t, "_BUILD", "Sound/CW", "Sound/global", "Sound/shell", "Sound/worlds/ABC", "Sound/worlds/tat")
	script := "@rem header\r\n" +
		commonLines["global"] + "\r\n" +
		strings.ReplaceAll(worldLine, placeholder, "tat") + "\r\n"
	if err := afero.WriteFile(fs, filepath.Join(projectDir, FileName), []byte(script), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := Scan(fs, projectDir)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if p.ID != "ABC" {
		t.Errorf("ID = %q", p.ID)
	}
	if !p.HasScript {
		t.Error("HasScript should be true")
	}
	if want := []string{"cw", "global", "shell"}; !slices.Equal(p.Folders, want) {
		t.Errorf("Folders = %v, want %v", p.Folders, want)
	}
	if want := []string{"abc", "tat"}; !slices.Equal(p.Worlds, want) {
		t.Errorf("Worlds = %v, want %v", p.Worlds, want)
	}
	if want := []string{"global"}; !slices.Equal(p.EnabledFolders, want) {
		t.Errorf("EnabledFolders = %v, want %v", p.EnabledFolders, want)
	}
	if want := []string{"tat"}; !slices.Equal(p.EnabledWorlds, want) {
		t.Errorf("EnabledWorlds = %v, want %v", p.EnabledWorlds, want)
	}
}

func TestScan_NoBuildDir(t *testing.T) {
	fs := newProject(t, "Sound/cw")

	_, err := Scan(fs, projectDir)

	var nf *errors.NotFoundError
	if !errors.As(err, &nf) || nf.ResourceType != "_BUILD directory" {
		t.Errorf("Scan() error = %v, want _BUILD NotFoundError", err)
	}
}

func TestScan_MissingProject(t *testing.T) {
	_, err := Scan(afero.NewMemMapFs(), projectDir)

	var nf *errors.NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("Scan() error = %v, want NotFoundError", err)
	}
}

func TestScan_NoSoundNoScript(t *testing.T) {
	fs := newProject(t, "_build")

	p, err := Scan(fs, projectDir)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if p.SoundDir != "" || len(p.Folders) != 0 || len(p.Worlds) != 0 || p.HasScript {
		t.Errorf("unexpected project %+v", p)
	}
}

func TestEnabled(t *testing.T) {
	script := strings.Join([]string{
		`@rem @call soundmungedir sound\cw `,
		`call soundmungedir _BUILD\sound\gcw\%MUNGE_DIR% sound\gcw sound\gcw\%MUNGE_PLATFORM%`,
		`@CALL SOUNDMUNGEDIR _BUILD\sound\shell\%MUNGE_DIR%  sound\shell  sound\shell`,
		`@call soundmungedir x sound\worlds\end x`,
		`@call soundmungedir x sound\worlds\endor`,
	}, "\n")

	folders, worlds := Enabled([]byte(script), []string{"cw", "gcw", "shell"}, []string{"end", "endor"})

	if want := []string{"gcw", "shell"}; !slices.Equal(folders, want) {
		t.Errorf("folders = %v, want %v", folders, want)
	}
	if want := []string{"end"}; !slices.Equal(worlds, want) {
		t.Errorf("worlds = %v, want %v", worlds, want)
	}
}

func TestProject_Options(t *testing.T) {
	p := &Project{ID: "ABC", EnabledFolders: []string{"global", "music"}, EnabledWorlds: []string{"tat"}}

	o := p.Options(`D:\BF2`)

	if !slices.Equal(o.Folders, []string{"global"}) {
		t.Errorf("Folders = %v", o.Folders)
	}
	if o.ProjectID != "ABC" || o.InstallPath != `D:\BF2` || !slices.Equal(o.Worlds, []string{"tat"}) {
		t.Errorf("Options() = %+v", o)
	}
	if err := o.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestWrite(t *testing.T) {
	fs := newProject(t, "_BUILD", "Sound/cw")
	p, err := Scan(fs, projectDir)
	if err != nil {
		t.Fatal(err)
	}
	opts := Options{InstallPath: `D:\BF2`, ProjectID: p.ID, Folders: []string{"cw"}}

	if err := Write(fs, p, opts, false); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	data, err := afero.ReadFile(fs, p.ScriptPath())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), commonLines["cw"]) {
		t.Errorf("written script missing cw line:\n%s", data)
	}

	if err := Write(fs, p, opts, false); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("second Write() error = %v, want validation error", err)
	}
	if err := Write(fs, p, opts, true); err != nil {
		t.Errorf("Write() with overwrite error = %v", err)
	}

	// The rewritten script round-trips through Scan.
	rescanned, err := Scan(fs, projectDir)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(rescanned.EnabledFolders, []string{"cw"}) {
		t.Errorf("EnabledFolders after Write = %v", rescanned.EnabledFolders)
	}
}
