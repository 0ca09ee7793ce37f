/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns panics in the CLI and the editor service into crash
// report files instead of bare stack traces on stderr.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "vna/internal/log"
	"vna/internal/telemetry"
	"vna/internal/version"
)

// exitFn is swapped out by tests so Recover does not kill the test process.
var exitFn = os.Exit

// Recover captures a panic, logs it with the stack, writes a crash report
// file, and exits non-zero. When archiveRoot is non-empty the report goes
// to <root>/.vna/crash/, otherwise to the system temp directory.
//
// Usage: defer crash.Recover(cfg.Archive.Root)
func Recover(archiveRoot string) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, err := writeReport(archiveRoot, r, stack)
	if err != nil {
		l.Error("failed to write crash report", slog.Any("err", err), slog.String("path", reportPath))
	}

	fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

// CrashDirName is the crash report directory under an archive root, next
// to the search index.
const CrashDirName = ".vna/crash"

func writeReport(archiveRoot string, panicVal any, stack []byte) (string, error) {
	dir := os.TempDir()
	if archiveRoot != "" {
		dir = filepath.Join(archiveRoot, filepath.FromSlash(CrashDirName))
		_ = os.MkdirAll(dir, 0o755)
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", stamp))

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "vna Crash Report\n")
	fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&buf, "Version: %s\n", version.String())
	fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if archiveRoot != "" {
		fmt.Fprintf(&buf, "ArchiveRoot: %s\n", archiveRoot)
	}
	fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}

	// crash uploads stay opt-in via the telemetry env switches
	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}
