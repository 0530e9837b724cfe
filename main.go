// SPDX-FileCopyrightText: 2023 GISOps Solutions
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/gisops/solclone/cmd"
)

var (
	GitCommit = "undefined"
	Version   = "undefined"
	BuildTime = "undefined"
)

func main() {
	os.Exit(cmd.Execute(os.Args[1:], versionInfo()))
}

func versionInfo() string {
	return fmt.Sprintf("%s\n  go version: \t%s\n  built time: \t%s\n  git commit: \t%s\n  os/arch: \t%s/%s\n",
		Version, runtime.Version(), BuildTime, GitCommit, runtime.GOOS, runtime.GOARCH)
}
