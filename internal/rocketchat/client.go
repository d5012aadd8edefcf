// Package rocketchat is a thin authenticated wrapper over the Rocket.Chat
// REST API: login, post, update, and file upload. Requests are synchronous
// with short fixed timeouts; every call after login carries the
// X-User-Id / X-Auth-Token header pair.
package rocketchat

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	connectTimeout = 1 * time.Second
	requestTimeout = 3 * time.Second
)

// Client talks to one Rocket.Chat server on behalf of one user.
type Client struct {
	base  string // REST base URL with trailing slash, e.g. "http://chat:3000/api/v1/"
	uid   string
	token string
	http  *http.Client
}

// Posted identifies a freshly created message.
type Posted struct {
	MessageID string
	RoomID    string
}

// New returns a Client for the given REST base URL. uid and token may be
// empty for a client that is only used to Login.
func New(base, uid, token string) *Client {
	return &Client{
		base:  base,
		uid:   uid,
		token: token,
		http: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: connectTimeout}).DialContext,
				TLSHandshakeTimeout: requestTimeout,
			},
		},
	}
}

// Login authenticates with username/password and returns the user id and
// auth token Rocket.Chat issued.
func (c *Client) Login(ctx context.Context, username, password string) (uid, token string, err error) {
	body := map[string]string{"username": username, "password": password}
	var resp struct {
		Status string `json:"status"`
		Error  string `json:"error"`
		Data   struct {
			UserID    string `json:"userId"`
			AuthToken string `json:"authToken"`
		} `json:"data"`
	}
	if err := c.postJSON(ctx, "login", body, &resp); err != nil {
		return "", "", err
	}
	if resp.Status != "success" {
		return "", "", errors.Errorf("login failed: status %q: %s", resp.Status, resp.Error)
	}
	return resp.Data.UserID, resp.Data.AuthToken, nil
}

// PostMessage creates a new message addressed to a channel ("#name") or a
// user ("@name") and returns the created message and room ids.
func (c *Client) PostMessage(ctx context.Context, channel, text string) (Posted, error) {
	log.Debug().Str("channel", channel).Msg("posting message")

	body := map[string]string{"channel": channel, "text": text}
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Message struct {
			ID     string `json:"_id"`
			RoomID string `json:"rid"`
		} `json:"message"`
	}
	if err := c.postJSON(ctx, "chat.postMessage", body, &resp); err != nil {
		return Posted{}, err
	}
	if !resp.Success {
		return Posted{}, errors.Errorf("chat.postMessage failed: %s", resp.Error)
	}
	return Posted{MessageID: resp.Message.ID, RoomID: resp.Message.RoomID}, nil
}

// UpdateMessage replaces the text of an existing message in place.
func (c *Client) UpdateMessage(ctx context.Context, roomID, msgID, text string) error {
	log.Debug().Str("room_id", roomID).Str("msg_id", msgID).Msg("updating message")

	body := map[string]string{"roomId": roomID, "msgId": msgID, "text": text}
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := c.postJSON(ctx, "chat.update", body, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return errors.Errorf("chat.update failed: %s", resp.Error)
	}
	return nil
}

// UploadFile attaches a local file to the given room via rooms.upload.
func (c *Client) UploadFile(ctx context.Context, roomID, path, description string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "cannot open upload file %q", path)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return errors.Wrapf(err, "cannot read upload file %q", path)
	}
	if description != "" {
		if err := mw.WriteField("description", description); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"rooms.upload/"+roomID, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.setAuth(req)

	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := c.do(req, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return errors.Errorf("rooms.upload failed: %s", resp.Error)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuth(req)
	return c.do(req, out)
}

func (c *Client) setAuth(req *http.Request) {
	if c.uid != "" {
		req.Header.Set("X-User-Id", c.uid)
	}
	if c.token != "" {
		req.Header.Set("X-Auth-Token", c.token)
	}
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "Rocket.Chat request %s failed", req.URL.Path)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "Rocket.Chat returned malformed response for %s", req.URL.Path)
	}
	return nil
}
