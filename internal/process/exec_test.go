package process

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/zeromunge/internal/config"
	mungeerrors "github.com/Iron-Ham/zeromunge/internal/errors"
	"github.com/Iron-Ham/zeromunge/internal/job"
	"github.com/Iron-Ham/zeromunge/internal/testutil"
)

// recorder collects handler calls in arrival order.
type recorder struct {
	mu     sync.Mutex
	lines  []Line
	exits  []ExitStatus
	events []string
	first  chan struct{}
	once   sync.Once
}

func newRecorder() *recorder {
	return &recorder{first: make(chan struct{})}
}

func (r *recorder) OnLine(l Line) {
	r.mu.Lock()
	r.lines = append(r.lines, l)
	r.events = append(r.events, "line")
	r.mu.Unlock()
	r.once.Do(func() { close(r.first) })
}

func (r *recorder) OnExit(s ExitStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exits = append(r.exits, s)
	r.events = append(r.events, "exit")
}

func (r *recorder) texts(stream Stream) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, l := range r.lines {
		if l.Stream == stream {
			out = append(out, l.Text)
		}
	}
	return out
}

func shRunner(env ...string) *ExecRunner {
	return NewExecRunner(config.RunnerConfig{
		Interpreters: map[string]string{"sh": "sh"},
		Env:          env,
	}, nil)
}

func waitDone(t *testing.T, h Handle) ExitStatus {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("process did not finish in time")
	}
	return h.Status()
}

func TestExecRunner_CommandLine(t *testing.T) {
	r := NewExecRunner(config.Default().Runner, nil)

	tests := []struct {
		name string
		d    job.Descriptor
		want []string
	}{
		{"batch file", job.Descriptor{ScriptPath: "/p/munge.bat", Args: []string{"PC"}}, []string{"cmd", "/C", "/p/munge.bat", "PC"}},
		{"shell script", job.Descriptor{ScriptPath: "/p/build.sh"}, []string{"sh", "/p/build.sh"}},
		{"direct", job.Descriptor{ScriptPath: "/p/tool", Args: []string{"-v"}}, []string{"/p/tool", "-v"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.CommandLine(tt.d); !slices.Equal(got, tt.want) {
				t.Errorf("CommandLine() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExecRunner_StreamsLinesThenExit(t *testing.T) {
	testutil.SkipIfNoShell(t)

	dir := t.TempDir()
	script := testutil.WriteScript(t, dir, "munge.sh", `
i=0
while [ $i -lt 300 ]; do
  echo "line $i"
  i=$((i+1))
done
echo "warn" 1>&2
printf "tail"
`)

	rec := newRecorder()
	h, err := shRunner().Run(context.Background(), job.Descriptor{ScriptPath: script}, rec)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	status := waitDone(t, h)

	if !status.Success() {
		t.Errorf("status = %+v, want success", status)
	}

	stdout := rec.texts(StreamStdout)
	if len(stdout) != 301 {
		t.Fatalf("got %d stdout lines, want 301", len(stdout))
	}
	for i := 0; i < 300; i++ {
		if stdout[i] != fmt.Sprintf("line %d", i) {
			t.Fatalf("stdout[%d] = %q, lines out of order", i, stdout[i])
		}
	}
	if stdout[300] != "tail" {
		t.Errorf("final line without newline = %q, want %q", stdout[300], "tail")
	}
	if stderr := rec.texts(StreamStderr); len(stderr) != 1 || stderr[0] != "warn" {
		t.Errorf("stderr = %v, want [warn]", stderr)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.exits) != 1 {
		t.Fatalf("OnExit called %d times, want 1", len(rec.exits))
	}
	if rec.events[len(rec.events)-1] != "exit" {
		t.Error("OnExit should be the last handler call")
	}
}

func TestExecRunner_ExitCode(t *testing.T) {
	testutil.SkipIfNoShell(t)

	script := testutil.WriteScript(t, t.TempDir(), "fail.sh", "echo failing\nexit 3\n")

	h, err := shRunner().Run(context.Background(), job.Descriptor{ScriptPath: script}, newRecorder())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	status := waitDone(t, h)

	if status.Code != 3 || status.Signaled || status.Success() {
		t.Errorf("status = %+v, want code 3", status)
	}
}

func TestExecRunner_WorkingDirArgsAndEnv(t *testing.T) {
	testutil.SkipIfNoShell(t)

	scriptDir := t.TempDir()
	workDir := testutil.SetupProject(t, map[string]string{"marker.txt": "in workdir\n"})
	script := testutil.WriteScript(t, scriptDir, "show.sh", `
cat marker.txt
echo "arg=$1"
echo "env=$ZM_PLATFORM"
`)

	rec := newRecorder()
	d := job.Descriptor{ScriptPath: script, WorkingDir: workDir, Args: []string{"PC"}}
	h, err := shRunner("ZM_PLATFORM=xbox").Run(context.Background(), d, rec)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	waitDone(t, h)

	want := []string{"in workdir", "arg=PC", "env=xbox"}
	if got := rec.texts(StreamStdout); !slices.Equal(got, want) {
		t.Errorf("stdout = %v, want %v", got, want)
	}
}

func TestExecRunner_DefaultWorkingDirIsScriptDir(t *testing.T) {
	testutil.SkipIfNoShell(t)

	dir := testutil.SetupProject(t, map[string]string{"here.txt": "script dir\n"})
	script := testutil.WriteScript(t, dir, "cat.sh", "cat here.txt\n")

	rec := newRecorder()
	h, err := shRunner().Run(context.Background(), job.Descriptor{ScriptPath: script}, rec)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	waitDone(t, h)

	if got := rec.texts(StreamStdout); len(got) != 1 || got[0] != "script dir" {
		t.Errorf("stdout = %v", got)
	}
}

func TestExecRunner_DirectExecution(t *testing.T) {
	testutil.SkipIfNoShell(t)

	script := testutil.WriteScript(t, t.TempDir(), "direct", "echo direct\n")

	rec := newRecorder()
	h, err := NewExecRunner(config.RunnerConfig{}, nil).Run(context.Background(), job.Descriptor{ScriptPath: script}, rec)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	waitDone(t, h)

	if got := rec.texts(StreamStdout); len(got) != 1 || got[0] != "direct" {
		t.Errorf("stdout = %v", got)
	}
}

func TestExecRunner_LaunchErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		script   string
		notFound bool
	}{
		{"missing script", dir + "/nope.sh", true},
		{"directory", dir, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newRecorder()
			h, err := shRunner().Run(context.Background(), job.Descriptor{ScriptPath: tt.script}, rec)
			if err == nil {
				t.Fatal("Run() should fail")
			}
			if h != nil {
				t.Error("Run() should not return a handle on launch failure")
			}

			var launchErr *mungeerrors.LaunchError
			if !errors.As(err, &launchErr) {
				t.Fatalf("error %T is not a LaunchError", err)
			}
			if launchErr.Script != tt.script {
				t.Errorf("Script = %q", launchErr.Script)
			}
			if got := errors.Is(err, mungeerrors.ErrScriptNotFound); got != tt.notFound {
				t.Errorf("errors.Is(ErrScriptNotFound) = %v, want %v", got, tt.notFound)
			}
			if len(rec.events) != 0 {
				t.Error("handler should not be called on launch failure")
			}
		})
	}
}

func TestExecRunner_Kill(t *testing.T) {
	testutil.SkipIfNoShell(t)

	script := testutil.WriteScript(t, t.TempDir(), "slow.sh", "echo started\nsleep 30\necho never\n")

	rec := newRecorder()
	h, err := shRunner().Run(context.Background(), job.Descriptor{ScriptPath: script}, rec)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if h.PID() <= 0 {
		t.Errorf("PID() = %d", h.PID())
	}

	select {
	case <-rec.first:
	case <-time.After(10 * time.Second):
		t.Fatal("no output before kill")
	}

	if err := h.Kill(); err != nil {
		t.Fatalf("Kill() error = %v", err)
	}
	status := waitDone(t, h)

	if !status.Signaled || status.Success() {
		t.Errorf("status = %+v, want signaled", status)
	}
	if got := rec.texts(StreamStdout); slices.Contains(got, "never") {
		t.Error("killed script should not continue")
	}
	if err := h.Kill(); err != nil {
		t.Errorf("Kill() after exit error = %v", err)
	}
}

func TestExecRunner_ContextCancel(t *testing.T) {
	testutil.SkipIfNoShell(t)

	script := testutil.WriteScript(t, t.TempDir(), "slow.sh", "sleep 30\n")

	ctx, cancel := context.WithCancel(context.Background())
	h, err := shRunner().Run(ctx, job.Descriptor{ScriptPath: script}, newRecorder())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	cancel()

	if status := waitDone(t, h); status.Success() {
		t.Errorf("status = %+v, want failure after cancel", status)
	}
}

func TestExitStatus_Success(t *testing.T) {
	tests := []struct {
		name   string
		status ExitStatus
		want   bool
	}{
		{"zero", ExitStatus{Code: 0}, true},
		{"non-zero", ExitStatus{Code: 1}, false},
		{"signaled", ExitStatus{Code: 0, Signaled: true}, false},
		{"wait error", ExitStatus{Code: 0, Err: errors.New("x")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Success(); got != tt.want {
				t.Errorf("Success() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStream_String(t *testing.T) {
	if StreamStdout.String() != "stdout" || StreamStderr.String() != "stderr" {
		t.Error("unexpected stream names")
	}
}

func TestHandlerFuncs(t *testing.T) {
	var gotLine Line
	var gotExit ExitStatus
	h := HandlerFuncs{
		Line: func(l Line) { gotLine = l },
		Exit: func(s ExitStatus) { gotExit = s },
	}
	h.OnLine(Line{Text: "x"})
	h.OnExit(ExitStatus{Code: 2})

	if gotLine.Text != "x" || gotExit.Code != 2 {
		t.Errorf("HandlerFuncs did not forward calls")
	}

	// Nil funcs are ignored.
	HandlerFuncs{}.OnLine(Line{})
	HandlerFuncs{}.OnExit(ExitStatus{})
}
