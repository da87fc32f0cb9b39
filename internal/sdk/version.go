package sdk

import (
	// embed the commit.txt file into the binary.
	_ "embed"
)

//go:generate bash -c "git rev-parse --short HEAD > commit.txt"
var (
	//go:embed commit.txt
	GitCommit string

	// Version of the controller
	Version = "1.0.0" //nolint:gochecknoglobals
)
