// Package artifact copies a job's declared output files into its staging
// directory once the job has finished.
package artifact

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gobwas/glob"
	"github.com/spf13/afero"

	"github.com/Iron-Ham/zeromunge/internal/errors"
	"github.com/Iron-Ham/zeromunge/internal/job"
	"github.com/Iron-Ham/zeromunge/internal/logging"
)

// Result is the outcome of one declared output file.
type Result struct {
	// Name is the entry as declared (or the matched path for a pattern).
	Name        string
	Source      string
	Destination string
	Bytes       int64
	// Err is a *errors.CopyError, or nil when the file was copied.
	Err error
}

// OK reports whether the file was copied.
func (r Result) OK() bool {
	return r.Err == nil
}

// Copier copies artifacts on an afero filesystem. It holds no per-job state
// and may be shared.
type Copier struct {
	fs          afero.Fs
	expandGlobs bool
	logger      *logging.Logger
}

// Option configures a Copier.
type Option func(*Copier)

// WithGlobs enables pattern entries such as "*.lvl".
func WithGlobs(enabled bool) Option {
	return func(c *Copier) { c.expandGlobs = enabled }
}

// WithLogger sets the logger used for per-file debug output.
func WithLogger(l *logging.Logger) Option {
	return func(c *Copier) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCopier creates a Copier over fs.
func NewCopier(fs afero.Fs, opts ...Option) *Copier {
	c := &Copier{fs: fs, logger: logging.NopLogger()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewOSCopier creates a Copier over the real filesystem.
func NewOSCopier(opts ...Option) *Copier {
	return NewCopier(afero.NewOsFs(), opts...)
}

// CopyArtifacts copies each of d's output files from its working directory
// to its staging directory, overwriting what is there. It returns nil when
// copying is disabled or there is nothing to copy. A failure on one file
// never stops the others.
func (c *Copier) CopyArtifacts(d job.Descriptor) []Result {
	if !d.CopyEnabled || !d.HasOutputFiles() {
		return nil
	}

	srcDir := d.Dir()
	if strings.TrimSpace(d.StagingDir) == "" {
		return []Result{{
			Err: errors.NewCopyError(errors.CopyMkdir, errors.ErrStagingDir).WithPaths("", ""),
		}}
	}
	staging := filepath.Clean(d.StagingDir)

	if err := c.ensureDir(staging); err != nil {
		c.logger.Warn("staging directory unavailable", "staging_dir", staging, "error", err)
		return []Result{{
			Destination: staging,
			Err:         errors.NewCopyError(errors.CopyMkdir, err).WithPaths("", staging),
		}}
	}

	var results []Result
	for _, entry := range d.OutputFiles {
		entry = strings.TrimSpace(entry)
		if entry == "" || entry == job.NoFiles {
			continue
		}
		name := normalizeName(entry)

		if c.expandGlobs && isPattern(name) {
			results = append(results, c.copyPattern(srcDir, staging, name)...)
			continue
		}
		results = append(results, c.copyOne(srcDir, staging, name))
	}
	return results
}

func (c *Copier) copyPattern(srcDir, staging, pattern string) []Result {
	matches, err := c.match(srcDir, pattern)
	if err != nil || len(matches) == 0 {
		src := filepath.Join(srcDir, pattern)
		cause := errors.ErrSourceMissing
		if err != nil {
			cause = err
		}
		return []Result{{
			Name:   pattern,
			Source: src,
			Err:    errors.NewCopyError(errors.CopyMissingSource, cause).WithPaths(src, ""),
		}}
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		results = append(results, c.copyOne(srcDir, staging, m))
	}
	return results
}

// match walks srcDir and returns the slash-separated relative paths of the
// regular files pattern matches, sorted.
func (c *Copier) match(srcDir, pattern string) ([]string, error) {
	g, err := glob.Compile(filepath.ToSlash(pattern), '/')
	if err != nil {
		return nil, fmt.Errorf("invalid output file pattern %q: %w", pattern, err)
	}

	var matches []string
	walkErr := afero.Walk(c.fs, srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == srcDir {
				return err
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(srcDir, path)
		if relErr != nil {
			return nil
		}
		if g.Match(filepath.ToSlash(rel)) {
			matches = append(matches, rel)
		}
		return nil
	})
	if walkErr != nil && !os.IsNotExist(walkErr) {
		return nil, walkErr
	}

	slices.Sort(matches)
	return matches, nil
}

func (c *Copier) copyOne(srcDir, staging, name string) Result {
	src := filepath.Join(srcDir, name)
	dst := filepath.Join(staging, name)
	res := Result{Name: name, Source: src, Destination: dst}

	info, err := c.fs.Stat(src)
	if err != nil {
		cause := err
		if os.IsNotExist(err) {
			cause = errors.ErrSourceMissing
		}
		res.Err = errors.NewCopyError(errors.CopyMissingSource, cause).WithPaths(src, dst)
		c.logger.Warn("artifact missing", "source", src)
		return res
	}
	if info.IsDir() {
		res.Err = errors.NewCopyError(errors.CopyWrite, fmt.Errorf("source is a directory")).WithPaths(src, dst)
		return res
	}

	if err := c.ensureDir(filepath.Dir(dst)); err != nil {
		res.Err = errors.NewCopyError(errors.CopyMkdir, err).WithPaths(src, dst)
		return res
	}

	n, err := c.copyFile(src, dst, info.Mode().Perm())
	if err != nil {
		res.Err = errors.NewCopyError(errors.CopyWrite, err).WithPaths(src, dst)
		c.logger.Warn("artifact copy failed", "source", src, "destination", dst, "error", err)
		return res
	}

	res.Bytes = n
	c.logger.Debug("artifact copied", "source", src, "destination", dst, "bytes", n)
	return res
}

func (c *Copier) copyFile(src, dst string, perm os.FileMode) (int64, error) {
	in, err := c.fs.Open(src)
	if err != nil {
		return 0, err
	}
	defer func() { _ = in.Close() }()

	out, err := c.fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, in)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	return n, err
}

func (c *Copier) ensureDir(dir string) error {
	info, err := c.fs.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%s exists and is not a directory", dir)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return err
	}
	return c.fs.MkdirAll(dir, 0755)
}

// normalizeName accepts either separator in declared names so job files
// written on Windows work elsewhere.
func normalizeName(name string) string {
	return filepath.Clean(filepath.FromSlash(strings.ReplaceAll(name, `\`, "/")))
}

func isPattern(name string) bool {
	return strings.ContainsAny(name, "*?[{")
}
