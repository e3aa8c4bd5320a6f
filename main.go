package main

import (
	"github.com/opentube/opentube/cmd"
	"github.com/opentube/opentube/config"
	"github.com/opentube/opentube/log"
	"github.com/samber/lo"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())
	cmd.Execute()
}
