// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package version

// Version is the semantic version of the tool. It may be overridden at
// build time via ldflags; it is read-only for the life of the process.
var Version = "1.0.0"

// String returns the user-facing version line printed by --version.
func String() string {
	return "sysspecs v" + Version
}
