package job

import (
	"errors"
	"path/filepath"
	"testing"

	mungeerrors "github.com/Iron-Ham/zeromunge/internal/errors"
)

func TestDescriptor_DisplayName(t *testing.T) {
	tests := []struct {
		name string
		d    Descriptor
		want string
	}{
		{"explicit name", Descriptor{Name: "Common", ScriptPath: "/p/munge.bat"}, "Common"},
		{"script base name", Descriptor{ScriptPath: "/p/_BUILD/munge.bat"}, "munge.bat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.DisplayName(); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDescriptor_Dir(t *testing.T) {
	d := Descriptor{ScriptPath: filepath.Join("/proj", "_BUILD", "munge.bat")}
	if got := d.Dir(); got != filepath.Join("/proj", "_BUILD") {
		t.Errorf("Dir() = %q", got)
	}

	d.WorkingDir = "/elsewhere"
	if got := d.Dir(); got != "/elsewhere" {
		t.Errorf("Dir() = %q, want explicit working dir", got)
	}
}

func TestDescriptor_HasOutputFiles(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  bool
	}{
		{"nil list", nil, false},
		{"empty list", []string{}, false},
		{"sentinel", []string{"nil"}, false},
		{"sentinel with spaces", []string{" nil "}, false},
		{"one file", []string{"core.lvl"}, true},
		{"sentinel among files", []string{"nil", "core.lvl"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Descriptor{OutputFiles: tt.files}
			if got := d.HasOutputFiles(); got != tt.want {
				t.Errorf("HasOutputFiles() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDescriptor_IsEnabled(t *testing.T) {
	if !(Descriptor{}).IsEnabled() {
		t.Error("nil Enabled should mean enabled")
	}
	if !(Descriptor{Enabled: Bool(true)}).IsEnabled() {
		t.Error("Enabled=true should be enabled")
	}
	if (Descriptor{Enabled: Bool(false)}).IsEnabled() {
		t.Error("Enabled=false should be disabled")
	}
}

func TestDescriptor_Clone(t *testing.T) {
	orig := Descriptor{
		ScriptPath:  "/p/a.bat",
		Args:        []string{"PC"},
		OutputFiles: []string{"a.lvl"},
		Enabled:     Bool(true),
	}
	c := orig.Clone()

	orig.Args[0] = "XBOX"
	orig.OutputFiles[0] = "b.lvl"
	*orig.Enabled = false

	if c.Args[0] != "PC" || c.OutputFiles[0] != "a.lvl" || !*c.Enabled {
		t.Errorf("clone shares state with original: %+v", c)
	}
}

func TestDescriptor_Normalize(t *testing.T) {
	d := Descriptor{ScriptPath: filepath.Join("/proj", "_BUILD", "munge.bat")}.Normalize()

	if d.Name != "munge.bat" {
		t.Errorf("Name = %q", d.Name)
	}
	if d.WorkingDir != filepath.Join("/proj", "_BUILD") {
		t.Errorf("WorkingDir = %q", d.WorkingDir)
	}
}

func TestDescriptor_Validate(t *testing.T) {
	tests := []struct {
		name      string
		d         Descriptor
		wantField string
	}{
		{"valid", Descriptor{ScriptPath: "/p/a.bat"}, ""},
		{"missing script", Descriptor{ScriptPath: " "}, "script"},
		{"copy without staging", Descriptor{ScriptPath: "/p/a.bat", CopyEnabled: true, OutputFiles: []string{"a.lvl"}}, "staging_dir"},
		{"copy with sentinel only", Descriptor{ScriptPath: "/p/a.bat", CopyEnabled: true, OutputFiles: []string{"nil"}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.d.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			var verr *mungeerrors.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want ValidationError", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", verr.Field, tt.wantField)
			}
		})
	}
}

func TestEnabled(t *testing.T) {
	jobs := []Descriptor{
		{Name: "a"},
		{Name: "b", Enabled: Bool(false)},
		{Name: "c", Enabled: Bool(true)},
	}
	got := Enabled(jobs)
	if len(got) != 2 || got[0].Name != "a" || got[1].Name != "c" {
		t.Errorf("Enabled() = %+v", got)
	}
}
