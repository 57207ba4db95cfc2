package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"gatechat/internal/models"
)

// API is the REST surface the store consumes.
type API interface {
	Users(ctx context.Context) ([]models.User, error)
	Conversation(ctx context.Context, peerID int) ([]models.Message, error)
	SendDirect(ctx context.Context, peerID int, text, image string) (models.Message, error)
	DeleteForMe(ctx context.Context, messageID int) error
	DeleteForEveryone(ctx context.Context, messageID int) (models.Message, error)
	CreateGroup(ctx context.Context, name string, members []int) (models.Group, error)
	SendGroup(ctx context.Context, groupID int, text string) (models.GroupMessage, error)
	GroupMessages(ctx context.Context, groupID int) ([]models.GroupMessage, error)
	Groups(ctx context.Context, userID int) ([]models.Group, error)
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.Status)
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// HTTPAPI talks to the REST surface with a bearer token.
type HTTPAPI struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewHTTPAPI(baseURL, token string, httpClient *http.Client) *HTTPAPI {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPAPI{baseURL: strings.TrimRight(baseURL, "/"), token: token, http: httpClient}
}

func (a *HTTPAPI) Users(ctx context.Context) ([]models.User, error) {
	var resp struct {
		Users []models.User `json:"users"`
	}
	if err := a.do(ctx, http.MethodGet, "/messages/users", nil, &resp); err != nil {
		return nil, errors.Wrap(err, "users")
	}
	return resp.Users, nil
}

func (a *HTTPAPI) Conversation(ctx context.Context, peerID int) ([]models.Message, error) {
	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	if err := a.do(ctx, http.MethodGet, fmt.Sprintf("/messages/%d", peerID), nil, &resp); err != nil {
		return nil, errors.Wrap(err, "conversation")
	}
	return resp.Messages, nil
}

func (a *HTTPAPI) SendDirect(ctx context.Context, peerID int, text, image string) (models.Message, error) {
	body := map[string]string{"text": text}
	if image != "" {
		body["image"] = image
	}
	var msg models.Message
	if err := a.do(ctx, http.MethodPost, fmt.Sprintf("/messages/send/%d", peerID), body, &msg); err != nil {
		return models.Message{}, errors.Wrap(err, "send")
	}
	return msg, nil
}

func (a *HTTPAPI) DeleteForMe(ctx context.Context, messageID int) error {
	body := map[string]int{"message_id": messageID}
	return errors.Wrap(a.do(ctx, http.MethodPost, "/messages/delete-for-me", body, nil), "delete for me")
}

func (a *HTTPAPI) DeleteForEveryone(ctx context.Context, messageID int) (models.Message, error) {
	body := map[string]int{"message_id": messageID}
	var msg models.Message
	if err := a.do(ctx, http.MethodPost, "/messages/delete-for-everyone", body, &msg); err != nil {
		return models.Message{}, errors.Wrap(err, "delete for everyone")
	}
	return msg, nil
}

func (a *HTTPAPI) CreateGroup(ctx context.Context, name string, members []int) (models.Group, error) {
	body := struct {
		Name    string `json:"name"`
		Members []int  `json:"members"`
	}{Name: name, Members: members}
	var group models.Group
	if err := a.do(ctx, http.MethodPost, "/messages/create-group", body, &group); err != nil {
		return models.Group{}, errors.Wrap(err, "create group")
	}
	return group, nil
}

func (a *HTTPAPI) SendGroup(ctx context.Context, groupID int, text string) (models.GroupMessage, error) {
	var msg models.GroupMessage
	if err := a.do(ctx, http.MethodPost, fmt.Sprintf("/messages/send-group/%d", groupID), map[string]string{"text": text}, &msg); err != nil {
		return models.GroupMessage{}, errors.Wrap(err, "send group")
	}
	return msg, nil
}

func (a *HTTPAPI) GroupMessages(ctx context.Context, groupID int) ([]models.GroupMessage, error) {
	var resp struct {
		Messages []models.GroupMessage `json:"messages"`
	}
	if err := a.do(ctx, http.MethodGet, fmt.Sprintf("/messages/group-messages/%d", groupID), nil, &resp); err != nil {
		return nil, errors.Wrap(err, "group messages")
	}
	return resp.Messages, nil
}

func (a *HTTPAPI) Groups(ctx context.Context, userID int) ([]models.Group, error) {
	var resp struct {
		Groups []models.Group `json:"groups"`
	}
	if err := a.do(ctx, http.MethodGet, fmt.Sprintf("/messages/groups/%d", userID), nil, &resp); err != nil {
		return nil, errors.Wrap(err, "groups")
	}
	return resp.Groups, nil
}

func (a *HTTPAPI) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode body")
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return &APIError{Status: resp.StatusCode, Message: payload.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}
