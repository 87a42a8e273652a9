// Package api 封装引擎依赖的三个 REST 协作方：房间列表、历史消息与文件上传。
// 引擎启动及每次重连成功后用它拉取权威状态，断线期间漏掉的事件不回放。
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/daolam1734/xdpmhdt-linkupchat-sub000/internal/models"
)

// TokenSource 与连接层共用同一份 token 来源。
type TokenSource interface {
	Token() string
}

type Client struct {
	baseURL string
	tokens  TokenSource
	http    *http.Client
}

func NewClient(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL: baseURL,
		tokens:  tokens,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("api: %s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ListRooms 拉取当前用户可见的全部房间，作为 RoomIndex 的权威种子。
func (c *Client) ListRooms(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	if err := c.do(ctx, http.MethodGet, "/rooms/", nil, "", &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// History 拉取一个房间的历史消息，按时间升序返回，作为 MessageLog 的种子。
func (c *Client) History(ctx context.Context, roomID string) ([]models.Message, error) {
	var msgs []models.Message
	path := fmt.Sprintf("/messages/%s/messages/", roomID)
	if err := c.do(ctx, http.MethodGet, path, nil, "", &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Upload 上传一个文件并返回 url/kind 对，随后由发送路径内嵌进消息帧。
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (*models.FileRef, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	var ref models.FileRef
	if err := c.do(ctx, http.MethodPost, "/files/upload", &buf, w.FormDataContentType(), &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}
