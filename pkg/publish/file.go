package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/ja7ad/heartbeat/pkg/state"
)

// File publishes state to <dir>/<pid>. Writes go to a temporary file that is
// renamed into place so readers never observe a partial record.
type File struct {
	dir  string
	path string
}

var _ Publisher = (*File)(nil)

// NewFile returns a publisher writing into dir, which must already exist.
func NewFile(dir string, pid int) (*File, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("publish: %s is not a directory", dir)
	}
	return &File{dir: dir, path: filepath.Join(dir, key("", pid, ""))}, nil
}

// FromEnv returns a File publisher for the directory named by
// HEARTBEAT_ENABLED_DIR, or ErrNoTarget when the variable is unset.
func FromEnv(pid int) (*File, error) {
	dir := os.Getenv(EnvDir)
	if dir == "" {
		return nil, fmt.Errorf("%w: %s is not set", ErrNoTarget, EnvDir)
	}
	return NewFile(dir, pid)
}

// Path returns the file the state is published to.
func (f *File) Path() string { return f.path }

func (f *File) Publish(_ context.Context, s state.State) error {
	data, err := state.Encode(s)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, ".hb-*")
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("publish: write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("publish: close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func (f *File) Remove(context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func (f *File) Close() error { return nil }

// ReadFile reads the state published for pid under dir.
func ReadFile(dir string, pid int) (state.State, error) {
	data, err := os.ReadFile(filepath.Join(dir, strconv.Itoa(pid)))
	if errors.Is(err, os.ErrNotExist) {
		return state.State{}, fmt.Errorf("%w: pid %d", ErrNotFound, pid)
	}
	if err != nil {
		return state.State{}, fmt.Errorf("publish: %w", err)
	}
	return state.Decode(data)
}

// ReadDir returns every valid state published under dir, ordered by pid.
// Entries that fail to decode are skipped and reported in the returned error.
func ReadDir(dir string) ([]state.State, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}

	var (
		out  []state.State
		errs *multierror.Error
	)
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		s, err := ReadFile(dir, pid)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", e.Name(), err))
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out, errs.ErrorOrNil()
}
