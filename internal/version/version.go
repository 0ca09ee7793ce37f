/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

// Package version exposes the toolchain version baked in at build time.
package version

// Version is the semantic version of the vna toolchain. Override at build
// time with -ldflags "-X vna/internal/version.Version=v1.2.3".
var Version = "0.3.0-dev"

// Commit is the VCS revision, set by the release build.
var Commit = ""

// String returns the version, including the commit suffix when present.
func String() string {
	if Commit != "" {
		return Version + "+" + Commit
	}
	return Version
}
