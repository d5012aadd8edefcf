package config

import (
	"os"
	"os/user"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
)

// skeleton is the default configuration written by Install. Credentials are
// intentionally blank; `zbx-rc auth --update` fills them in.
const skeleton = `# zbx-rc configuration

[rocketchat]
protocol = "http"
server = "localhost"
port = 3000
# Obtained with "zbx-rc auth --update"
uid = ""
token = ""

[zabbix]
# Full URL of the Zabbix web frontend, including the path prefix if any,
# e.g. "https://zbx.example.com/zabbix"
server = ""
username = ""
password = ""
tmp_dir = "/tmp"
period = 14400
width = 900
height = 200
version = 3

[store]
# Defaults to zbx-rc.db next to this file when empty.
path = ""
`

// Install provisions the configuration skeleton under dir. It is idempotent:
// an existing config file is left untouched. When group is non-empty the
// directory and file are chowned to it and the file is made group-readable,
// so the monitoring daemon's user can read credentials without owning them.
func Install(dir, group string) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", errors.Wrapf(err, "cannot create config directory %q", dir)
	}

	path := filepath.Join(dir, "zbx-rc.toml")
	if _, err := os.Stat(path); err == nil {
		// Already installed; only re-apply ownership below.
	} else if !os.IsNotExist(err) {
		return "", errors.Wrapf(err, "cannot stat %q", path)
	} else if err := os.WriteFile(path, []byte(skeleton), 0o640); err != nil {
		return "", errors.Wrapf(err, "cannot write %q", path)
	}

	if group != "" {
		gid, err := lookupGID(group)
		if err != nil {
			return "", err
		}
		if err := os.Chown(dir, -1, gid); err != nil {
			return "", errors.Wrapf(err, "cannot chown %q to group %q", dir, group)
		}
		if err := os.Chown(path, -1, gid); err != nil {
			return "", errors.Wrapf(err, "cannot chown %q to group %q", path, group)
		}
	}
	return path, nil
}

func lookupGID(group string) (int, error) {
	g, err := user.LookupGroup(group)
	if err != nil {
		return 0, errors.Wrapf(err, "unknown group %q", group)
	}
	gid, err := strconv.Atoi(g.Gid)
	if err != nil {
		return 0, errors.Wrapf(err, "non-numeric gid %q for group %q", g.Gid, group)
	}
	return gid, nil
}
