package fsys

import (
	"errors"
	"os"
	"strings"
	"sync"
)

// ErrInjected is the default error returned by FaultFS rules.
var ErrInjected = errors.New("injected fault")

// FaultFS wraps a FileSystem and fails operations whose path contains a
// registered substring. It exists for failure-path tests.
type FaultFS struct {
	FS FileSystem

	mu        sync.Mutex
	failMkdir map[string]error
	failOpen  map[string]error
}

// NewFaultFS wraps fs (or Default if nil).
func NewFaultFS(fs FileSystem) *FaultFS {
	if fs == nil {
		fs = Default
	}
	return &FaultFS{
		FS:        fs,
		failMkdir: make(map[string]error),
		failOpen:  make(map[string]error),
	}
}

// FailMkdirAll makes MkdirAll fail for paths containing pattern.
func (f *FaultFS) FailMkdirAll(pattern string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		err = ErrInjected
	}
	f.failMkdir[pattern] = err
}

// FailOpenFile makes OpenFile fail for paths containing pattern.
func (f *FaultFS) FailOpenFile(pattern string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		err = ErrInjected
	}
	f.failOpen[pattern] = err
}

// ClearOpenFile removes a previously registered OpenFile rule.
func (f *FaultFS) ClearOpenFile(pattern string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failOpen, pattern)
}

func (f *FaultFS) match(rules map[string]error, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for pattern, err := range rules {
		if strings.Contains(name, pattern) {
			return err
		}
	}
	return nil
}

func (f *FaultFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	if err := f.match(f.failOpen, name); err != nil {
		return nil, err
	}
	return f.FS.OpenFile(name, flag, perm)
}

func (f *FaultFS) MkdirAll(path string, perm os.FileMode) error {
	if err := f.match(f.failMkdir, path); err != nil {
		return err
	}
	return f.FS.MkdirAll(path, perm)
}

func (f *FaultFS) Remove(name string) error              { return f.FS.Remove(name) }
func (f *FaultFS) RemoveAll(path string) error           { return f.FS.RemoveAll(path) }
func (f *FaultFS) Rename(oldpath, newpath string) error  { return f.FS.Rename(oldpath, newpath) }
func (f *FaultFS) Stat(name string) (os.FileInfo, error) { return f.FS.Stat(name) }

var _ FileSystem = (*FaultFS)(nil)
