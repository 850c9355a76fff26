package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// maxNameAttempts bounds the " (n)" search.
const maxNameAttempts = 10000

// ResolveRequest describes where an operation wants its result written.
type ResolveRequest struct {
	// Requested is the caller's output path. Empty means "pick one for me".
	Requested string
	// Inputs are the operation's input paths.
	Inputs []string
	// Tag names the operation in generated file names (e.g. "trim").
	Tag string
	// Ext is the output extension including the dot. When empty it is taken
	// from Requested, then from the first input.
	Ext string
	// Overwrite means an existing Requested file is meant to be replaced
	// rather than kept alongside a " (n)" copy.
	Overwrite bool
}

// Target is the resolved write plan for one operation.
type Target struct {
	// Final is the path the caller sees once the operation succeeds.
	Final string
	// Write is the path the processor writes to.
	Write string
	// Replace is set when Write is a sibling temp that must be renamed over
	// an existing Final on success.
	Replace bool
	// Generated is set when Final was synthesized in the temp directory.
	Generated bool
}

// Outputs resolves effective write targets and promotes finished files.
// It keeps the set of final paths currently being written so that two
// operations never write the same final path at once.
type Outputs struct {
	store Storage

	mu     sync.Mutex
	claims map[string]struct{}

	// Replaceable for fault-injection in tests.
	rename func(oldpath, newpath string) error
	remove func(path string) error
}

// NewOutputs creates an output resolver generating names in store's temp dir.
func NewOutputs(store Storage) *Outputs {
	return &Outputs{
		store:  store,
		claims: make(map[string]struct{}),
		rename: os.Rename,
		remove: os.Remove,
	}
}

// Resolve decides the effective write target:
//   - no requested path: a generated name in the temp directory;
//   - requested path equal to an input, or existing with Overwrite: a hidden
//     sibling temp that Commit renames over the original;
//   - requested path existing without Overwrite: the smallest free " (n)" variant;
//   - otherwise the requested path itself.
//
// The final path is claimed until Commit or Abort.
func (o *Outputs) Resolve(req ResolveRequest) (*Target, error) {
	ext := req.Ext
	if ext == "" {
		ext = filepath.Ext(req.Requested)
	}
	if ext == "" && len(req.Inputs) > 0 {
		ext = filepath.Ext(req.Inputs[0])
	}
	tag := req.Tag
	if tag == "" {
		tag = "out"
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if req.Requested == "" {
		stem := "output"
		if len(req.Inputs) > 0 {
			stem = fileStem(req.Inputs[0])
		}
		p := o.store.TempPath(stem, tag, ext)
		o.claims[p] = struct{}{}
		return &Target{Final: p, Write: p, Generated: true}, nil
	}

	final, err := filepath.Abs(req.Requested)
	if err != nil {
		return nil, &FilesystemError{Op: "resolve", Path: req.Requested, Err: err}
	}

	info, statErr := os.Stat(final)
	exists := statErr == nil
	if statErr != nil && !errors.Is(statErr, fs.ErrNotExist) {
		return nil, &FilesystemError{Op: "stat", Path: final, Err: statErr}
	}
	if exists && info.IsDir() {
		return nil, &FilesystemError{Op: "resolve", Path: final, Err: fmt.Errorf("output path is a directory")}
	}

	target := &Target{Final: final, Write: final}
	switch {
	case isInput(final, req.Inputs) || (exists && req.Overwrite):
		target.Replace = true
		target.Write = filepath.Join(filepath.Dir(final),
			uniqueName("."+fileStem(final), tag, ext, time.Now()))
	case exists:
		free, err := o.freeName(final)
		if err != nil {
			return nil, err
		}
		target.Final = free
		target.Write = free
	}

	if _, busy := o.claims[target.Final]; busy {
		return nil, &FilesystemError{Op: "resolve", Path: target.Final, Err: ErrOutputBusy}
	}
	o.claims[target.Final] = struct{}{}
	return target, nil
}

// Commit makes the written file visible at the final path and releases the
// claim. For replace targets the temp is renamed over the original; if the
// platform refuses to rename over an existing file, the original is removed
// first and the rename retried. The original is never touched unless the
// temp exists.
func (o *Outputs) Commit(t *Target) error {
	defer o.release(t)

	if !t.Replace {
		return nil
	}

	if _, err := os.Lstat(t.Write); err != nil {
		return &FilesystemError{Op: "commit", Path: t.Write, Err: err}
	}

	err := o.rename(t.Write, t.Final)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrExist) {
		return &FilesystemError{Op: "rename", Path: t.Write, Err: err}
	}

	if err := o.remove(t.Final); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &FilesystemError{Op: "replace", Path: t.Final, Err: err}
	}
	if err := o.rename(t.Write, t.Final); err != nil {
		return &FilesystemError{Op: "rename", Path: t.Write, Err: err}
	}
	return nil
}

// Abort removes whatever was written for t and releases the claim. For
// replace targets only the temp is removed, so the original stays intact.
func (o *Outputs) Abort(t *Target) error {
	defer o.release(t)

	if err := o.remove(t.Write); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &FilesystemError{Op: "remove", Path: t.Write, Err: err}
	}
	return nil
}

// Busy reports whether path is claimed by an in-flight operation.
func (o *Outputs) Busy(path string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.claims[path]
	return ok
}

func (o *Outputs) release(t *Target) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.claims, t.Final)
}

// freeName returns the smallest "<stem> (n)<ext>" that neither exists nor is
// claimed. Callers must hold o.mu.
func (o *Outputs) freeName(path string) (string, error) {
	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), ext)

	for n := 1; n <= maxNameAttempts; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, n, ext))
		if _, claimed := o.claims[candidate]; claimed {
			continue
		}
		_, err := os.Lstat(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", &FilesystemError{Op: "stat", Path: candidate, Err: err}
		}
	}
	return "", &FilesystemError{Op: "resolve", Path: path, Err: ErrNoFreeName}
}

// isInput reports whether path refers to one of inputs, either by cleaned
// absolute path or by file identity.
func isInput(path string, inputs []string) bool {
	info, statErr := os.Stat(path)
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err == nil && abs == path {
			return true
		}
		if statErr != nil {
			continue
		}
		if inInfo, err := os.Stat(in); err == nil && os.SameFile(info, inInfo) {
			return true
		}
	}
	return false
}

func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
