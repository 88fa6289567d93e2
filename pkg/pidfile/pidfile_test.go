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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testPidFile = "pidfile-test.pid"
)

func prepare(t *testing.T) *File {
	return New(filepath.Join(t.TempDir(), "run", testPidFile))
}

func TestDefaultPath(t *testing.T) {
	f := New("")
	require.Equal(t, DefaultPath(), f.Path())
	require.True(t, strings.HasSuffix(f.Path(), ".pid"))
}

func TestWriteRead(t *testing.T) {
	f := prepare(t)

	require.NoError(t, f.Write())
	pid, err := f.Read()
	require.NoError(t, err)
	require.Equal(t, os.Getpid(), pid)

	// writing again while open is a no-op
	require.NoError(t, f.Write())
	pid, err = f.Read()
	require.NoError(t, err)
	require.Equal(t, os.Getpid(), pid)

	owner, err := f.OwnerPid()
	require.NoError(t, err)
	require.Equal(t, os.Getpid(), owner)
}

func TestReadNonExisting(t *testing.T) {
	f := prepare(t)

	pid, err := f.Read()
	require.NoError(t, err)
	require.Equal(t, 0, pid)

	owner, err := f.OwnerPid()
	require.NoError(t, err)
	require.Equal(t, 0, owner)
}

func TestReadClosed(t *testing.T) {
	f := prepare(t)

	require.NoError(t, f.Write())
	f.Close()

	pid, err := f.Read()
	require.Error(t, err)
	require.Equal(t, -1, pid)
}

func TestFailToOverwrite(t *testing.T) {
	f := prepare(t)

	require.NoError(t, f.Write())
	f.Close()
	require.Error(t, f.Write())

	other := New(f.Path())
	require.Error(t, other.Write())
}

func TestRemoveToOverwrite(t *testing.T) {
	f := prepare(t)

	require.NoError(t, f.Write())
	f.Close()
	require.NoError(t, f.Remove())
	require.NoError(t, f.Write())

	pid, err := f.Read()
	require.NoError(t, err)
	require.Equal(t, os.Getpid(), pid)

	require.NoError(t, f.Remove())
	require.NoError(t, f.Remove())
	_, err = os.Stat(f.Path())
	require.True(t, os.IsNotExist(err))
}
