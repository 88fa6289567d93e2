// Copyright 2023 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/pkg/errors"
)

// File is a PID file announcing a running workload to its driver.
type File struct {
	path string
	file *os.File
}

// New returns a PID file for the given path. An empty path means the
// default one derived from the binary name.
func New(path string) *File {
	if path == "" {
		path = DefaultPath()
	}
	return &File{path: path}
}

// Path returns the path of the PID file.
func (f *File) Path() string {
	return f.path
}

// Write creates the PID file exclusively and writes os.Getpid() to it. It
// fails if the file already exists. On success the file is kept open until
// Remove or Close.
func (f *File) Write() error {
	if f.file != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return errors.Wrap(err, "failed to create PID file")
	}

	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrap(err, "failed to create PID file")
	}
	f.file = file

	if _, err = fmt.Fprintf(f.file, "%d\n", os.Getpid()); err != nil {
		f.Close()
		return errors.Wrap(err, "failed to write PID file")
	}

	return nil
}

// Read returns the process ID found in the PID file. A missing file reads
// as 0. A file with unparseable content reads as -1 and an error.
func (f *File) Read() (int, error) {
	buf, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return -1, errors.Wrap(err, "failed to read PID file")
	}

	pid, err := strconv.Atoi(strings.TrimRight(string(buf), "\n"))
	if err != nil {
		return -1, errors.Wrapf(err, "invalid PID (%q) in PID file", string(buf))
	}

	return pid, nil
}

// Close closes the PID file and truncates it to zero length.
func (f *File) Close() {
	if f.file != nil {
		f.file.Truncate(0)
		f.file.Close()
		f.file = nil
	}
}

// Remove closes and removes the PID file, regardless of whether it was
// created by us.
func (f *File) Remove() error {
	f.Close()
	err := os.Remove(f.path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// OwnerPid returns the ID of the live process owning the PID file, 0 if
// no live process owns it, or -1 and an error if this cannot be determined.
func (f *File) OwnerPid() (int, error) {
	pid, err := f.Read()
	if err != nil {
		return -1, err
	}
	if pid == 0 {
		return 0, nil
	}

	p, err := os.FindProcess(pid)
	if err != nil {
		return -1, errors.Wrapf(err, "FindProcess() failed for PID %d", pid)
	}

	err = p.Signal(syscall.Signal(0))
	switch {
	case err == nil:
		return pid, nil
	case err == os.ErrProcessDone, errors.Is(err, syscall.ESRCH):
		return 0, nil
	}

	return -1, errors.Wrapf(err, "failed to check process %d", pid)
}

// DefaultPath returns the default PID file path for this binary.
func DefaultPath() string {
	name := "memtraffic"
	if len(os.Args) > 0 {
		name = filepath.Base(os.Args[0])
	}
	if os.Geteuid() > 0 {
		return filepath.Join(os.TempDir(), name+".pid")
	}
	return filepath.Join("/", "var", "run", name+".pid")
}
