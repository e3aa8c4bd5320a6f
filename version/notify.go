package version

import (
	"fmt"

	"github.com/opentube/opentube/constant"
	"github.com/opentube/opentube/icon"
	"github.com/opentube/opentube/key"
	"github.com/opentube/opentube/style"
	"github.com/opentube/opentube/util"
	"github.com/spf13/viper"
)

// Notify prints a notice when a newer release exists. It is silent when
// cli.version_check is off or the lookup fails.
func Notify() {
	if !viper.GetBool(key.CliVersionCheck) {
		return
	}

	erase := util.PrintErasable(fmt.Sprintf("%s Checking if new version is available...", icon.Get(icon.Progress)))
	version, err := Latest()
	erase()
	if err != nil {
		return
	}

	comp, err := Compare(version, constant.Version)
	if err != nil || comp <= 0 {
		return
	}

	fmt.Printf(`
%s New version is available %s %s
%s

`,
		style.Success("▇▇▇"),
		style.Bold(version),
		style.Faint(fmt.Sprintf("(You're on %s)", constant.Version)),
		style.Faint("https://github.com/opentube/opentube/releases/tag/v"+version),
	)
}
