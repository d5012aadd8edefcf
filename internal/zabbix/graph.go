// Package zabbix renders item graphs through the Zabbix web frontend. The
// frontend has no token API for chart images, so the client performs an
// interactive form login, keeps the session cookie, and downloads chart3.php
// output into a temporary file.
package zabbix

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"zbx-rc/internal/config"
)

var (
	// ErrUnauthenticated means the frontend login did not produce a session
	// cookie (wrong URL, user, or password). Callers degrade to "no image".
	ErrUnauthenticated = errors.New("zabbix frontend login failed")

	// ErrGraphNotFound means the chart endpoint answered 404 for the
	// requested items.
	ErrGraphNotFound = errors.New("zabbix graph not found")
)

// palette holds the per-item line colors, assigned by position. Requests for
// more items than colors cycle back to the first entry.
var palette = []string{"00CC00", "CC0000", "0000CC", "CCCC00", "00CCCC", "CC00CC"}

const (
	drawtypeArea = 5 // filled area, used when exactly one item is graphed
	drawtypeLine = 2 // plain line, used for multi-item graphs

	fetchTimeout = 30 * time.Second
)

// Client owns one frontend session. It is used once per invocation and
// discarded; there is no session reuse across sends.
type Client struct {
	cfg  config.ZabbixConfig
	http *http.Client

	authenticated bool
	redirects     int
}

// New returns a client for the configured frontend. No network I/O happens
// until Login or Render is called.
func New(cfg config.ZabbixConfig) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{cfg: cfg}
	c.http = &http.Client{
		Jar:     jar,
		Timeout: fetchTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			c.redirects = len(via)
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return nil
		},
	}
	return c
}

// Login performs the interactive frontend sign-in. A failed login leaves the
// client unauthenticated and logs a warning; it never returns an error for
// bad credentials, only for malformed configuration.
func (c *Client) Login(ctx context.Context) {
	form := url.Values{
		"name":     {c.cfg.Username},
		"password": {c.cfg.Password},
		"enter":    {"Sign in"},
	}
	c.redirects = 0
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Server+"/", strings.NewReader(form.Encode()))
	if err != nil {
		log.Warn().Err(err).Str("url", c.cfg.Server).Msg("zabbix login request could not be built")
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("url", c.cfg.Server).Msg("zabbix login failed")
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if c.redirects > 1 {
		log.Warn().
			Str("server", c.cfg.Server).
			Msgf("probably the configured server URL is not complete (for example %q instead of %q)",
				c.cfg.Server, c.cfg.Server+"/zabbix")
	}

	base, err := url.Parse(c.cfg.Server + "/")
	if err != nil {
		log.Warn().Err(err).Str("url", c.cfg.Server).Msg("invalid zabbix server URL")
		return
	}
	if len(c.http.Jar.Cookies(base)) == 0 {
		log.Warn().Str("url", c.cfg.Server).Msg("zabbix authorization failed, graphs will not be attached")
		return
	}
	c.authenticated = true
}

// Authenticated reports whether Login produced a usable session.
func (c *Client) Authenticated() bool { return c.authenticated }

// Render downloads a chart image for the given item ids and returns the path
// of the temporary PNG it wrote. The caller owns deletion of the file.
// Render logs in lazily on first use; an unusable session yields
// ErrUnauthenticated, a 404 from the chart endpoint yields ErrGraphNotFound.
func (c *Client) Render(ctx context.Context, itemIDs []int64, title string) (string, error) {
	if len(itemIDs) == 0 {
		return "", errors.New("no item ids to graph")
	}
	if !c.authenticated {
		c.Login(ctx)
		if !c.authenticated {
			return "", ErrUnauthenticated
		}
	}

	chartURL := c.chartURL(itemIDs, title)
	log.Debug().Str("url", chartURL).Msg("fetching graph")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, chartURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(err, "cannot fetch graph image")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrGraphNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", pkgerrors.Errorf("chart endpoint answered %s", resp.Status)
	}

	path := filepath.Join(c.cfg.TmpDir, randomName(10)+".png")
	f, err := os.Create(path)
	if err != nil {
		return "", pkgerrors.Wrapf(err, "cannot create image file %q", path)
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(path)
		return "", pkgerrors.Wrapf(err, "cannot write image file %q", path)
	}
	return path, nil
}

// chartURL builds the chart3.php request for the given items. Drawing style
// is a filled area for a single item and plain lines otherwise.
func (c *Client) chartURL(itemIDs []int64, title string) string {
	drawtype := drawtypeArea
	if len(itemIDs) > 1 {
		drawtype = drawtypeLine
	}

	var b strings.Builder
	b.WriteString(c.cfg.Server + "/chart3.php?")
	if c.cfg.Version < 4 {
		fmt.Fprintf(&b, "period=%d", c.cfg.Period)
	} else {
		fmt.Fprintf(&b, "from=now-%d&to=now", c.cfg.Period)
	}
	fmt.Fprintf(&b, "&name=%s&width=%d&height=%d&graphtype=0&legend=1",
		url.QueryEscape(title), c.cfg.Width, c.cfg.Height)
	for i, id := range itemIDs {
		fmt.Fprintf(&b, "&items[%d][itemid]=%d&items[%d][sortorder]=%d&items[%d][drawtype]=%d&items[%d][color]=%s",
			i, id, i, i, i, drawtype, i, palette[i%len(palette)])
	}
	return b.String()
}

const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// randomName returns n random ASCII letters for temp file naming. The temp
// directory is shared between invocations; random names avoid collisions.
func randomName(n int) string {
	out := make([]byte, n)
	for i := range out {
		out[i] = letters[rand.Intn(len(letters))]
	}
	return string(out)
}
