// Package version checks for newer releases.
package version

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/metafates/gache"
	"github.com/opentube/opentube/filesystem"
	"github.com/opentube/opentube/network"
	"github.com/opentube/opentube/util"
	"github.com/opentube/opentube/where"
)

// ReleasesURL is queried for the latest published release.
const ReleasesURL = "https://api.github.com/repos/opentube/opentube/releases/latest"

var (
	cacherOnce sync.Once
	cacher     *gache.Cache[string]
)

func versionCacher() *gache.Cache[string] {
	cacherOnce.Do(func() {
		cacher = gache.New[string](&gache.Options{
			Path:       where.VersionCache(),
			Lifetime:   time.Hour * 24 * 2,
			FileSystem: &filesystem.GacheFs{},
		})
	})
	return cacher
}

// Latest returns the newest released version without the "v" prefix.
// The answer is cached for two days.
func Latest() (string, error) {
	ver, expired, err := versionCacher().Get()
	if err != nil {
		return "", err
	}

	if !expired && ver != "" {
		return ver, nil
	}

	ver, err = fetch(network.Client, ReleasesURL)
	if err != nil {
		return "", err
	}

	_ = versionCacher().Set(ver)
	return ver, nil
}

func fetch(client *http.Client, url string) (string, error) {
	resp, err := client.Get(url)
	if err != nil {
		return "", err
	}
	defer util.Ignore(resp.Body.Close)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("release lookup: unexpected status %s", resp.Status)
	}

	var release struct {
		TagName string `json:"tag_name"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", err
	}

	if release.TagName == "" {
		return "", errors.New("empty tag name")
	}

	return strings.TrimPrefix(release.TagName, "v"), nil
}
