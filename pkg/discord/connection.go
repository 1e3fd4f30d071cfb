package discord

import (
	"encoding/json"
	"time"
)

// Connection visibility values.
const (
	VisibilityNone     = 0
	VisibilityEveryone = 1
)

type connectionPayload struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Type         string            `json:"type"`
	Revoked      bool              `json:"revoked"`
	Integrations []json.RawMessage `json:"integrations"`
	Verified     bool              `json:"verified"`
	FriendSync   bool              `json:"friend_sync"`
	ShowActivity bool              `json:"show_activity"`
	Visibility   int               `json:"visibility"`
}

// UserConnection is an external account linked to the user (twitch,
// youtube, steam, ...).
type UserConnection struct {
	ID           string
	Name         string
	Type         string
	Revoked      bool
	Integrations []*Integration
	Verified     bool
	FriendSync   bool
	ShowActivity bool
	Visibility   int

	raw json.RawMessage
}

func newUserConnection(payload []byte) (*UserConnection, error) {
	var p connectionPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}
	c := &UserConnection{
		ID:           p.ID,
		Name:         p.Name,
		Type:         p.Type,
		Revoked:      p.Revoked,
		Verified:     p.Verified,
		FriendSync:   p.FriendSync,
		ShowActivity: p.ShowActivity,
		Visibility:   p.Visibility,
		raw:          append(json.RawMessage(nil), payload...),
	}
	for _, raw := range p.Integrations {
		i, err := NewIntegration(raw)
		if err != nil {
			return nil, err
		}
		c.Integrations = append(c.Integrations, i)
	}
	return c, nil
}

func (c *UserConnection) JSON() json.RawMessage { return c.raw }

// IsVisible reports whether the connection is shown on the user's profile.
func (c *UserConnection) IsVisible() bool {
	return c.Visibility == VisibilityEveryone
}

type integrationPayload struct {
	ID                Snowflake       `json:"id"`
	Name              string          `json:"name"`
	Type              string          `json:"type"`
	Enabled           bool            `json:"enabled"`
	Syncing           bool            `json:"syncing"`
	RoleID            Snowflake       `json:"role_id"`
	ExpireBehaviour   *int            `json:"expire_behavior"`
	ExpireGracePeriod *int            `json:"expire_grace_period"`
	Account           json.RawMessage `json:"account"`
	SyncedAt          *time.Time      `json:"synced_at"`
	EnableEmoticons   bool            `json:"enable_emoticons"`
	SubscriberCount   *int            `json:"subscriber_count"`
	Revoked           bool            `json:"revoked"`
	Application       json.RawMessage `json:"application"`
	Scopes            []string        `json:"scopes"`
}

// Integration is a guild integration attached to a connection. Account and
// Application are kept as raw JSON.
type Integration struct {
	ID                Snowflake
	Name              string
	Type              string
	Enabled           bool
	Syncing           bool
	RoleID            Snowflake
	ExpireBehaviour   *int
	ExpireGracePeriod *int
	Account           json.RawMessage
	SyncedAt          *time.Time
	EnableEmoticons   bool
	SubscriberCount   *int
	Revoked           bool
	Application       json.RawMessage
	Scopes            []string

	raw json.RawMessage
}

func NewIntegration(payload []byte) (*Integration, error) {
	var p integrationPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}
	return &Integration{
		ID:                p.ID,
		Name:              p.Name,
		Type:              p.Type,
		Enabled:           p.Enabled,
		Syncing:           p.Syncing,
		RoleID:            p.RoleID,
		ExpireBehaviour:   p.ExpireBehaviour,
		ExpireGracePeriod: p.ExpireGracePeriod,
		Account:           p.Account,
		SyncedAt:          p.SyncedAt,
		EnableEmoticons:   p.EnableEmoticons,
		SubscriberCount:   p.SubscriberCount,
		Revoked:           p.Revoked,
		Application:       p.Application,
		Scopes:            p.Scopes,
		raw:               append(json.RawMessage(nil), payload...),
	}, nil
}

func (i *Integration) JSON() json.RawMessage { return i.raw }
