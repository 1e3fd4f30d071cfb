package discord

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const memberPayload = `{
	"user": {"id":"80351110224678912","username":"alice","discriminator":"0","global_name":"Alice"},
	"nick": "Ali",
	"avatar": "a_memberhash",
	"roles": ["41771983423143936","41771983423143937"],
	"joined_at": "2021-03-04T12:00:00.000000+00:00",
	"deaf": false,
	"mute": true,
	"flags": 2,
	"permissions": "8"
}`

func TestNewGuildMember(t *testing.T) {
	m, err := NewGuildMember([]byte(memberPayload), 200)
	require.NoError(t, err)

	assert.Equal(t, Snowflake(80351110224678912), m.ID)
	assert.Equal(t, Snowflake(200), m.GuildID)
	assert.Equal(t, "Ali", m.Nick)
	assert.Equal(t, "Ali", m.String())
	assert.True(t, m.Mute)
	assert.False(t, m.Pending)
	assert.Equal(t, 2, m.Flags)
	assert.True(t, m.HasRole(41771983423143937))
	assert.False(t, m.HasRole(1))
	assert.True(t, m.Permissions.Administrator())
	require.NotNil(t, m.JoinedAt)
	assert.Equal(t, 2021, m.JoinedAt.Year())
	assert.Nil(t, m.PremiumSince)
	assert.False(t, m.TimedOut(time.Now()))
}

func TestGuildMemberStringFallbacks(t *testing.T) {
	m, err := NewGuildMember([]byte(`{"user":{"id":"1","username":"alice","discriminator":"0","global_name":"Alice"}}`), 9)
	require.NoError(t, err)
	assert.Equal(t, "Alice", m.String())

	m, err = NewGuildMember([]byte(`{"user":{"id":"1","username":"alice","discriminator":"1234","global_name":"Bob"}}`), 9)
	require.NoError(t, err)
	assert.Equal(t, "Bob", m.String())

	m, err = NewGuildMember([]byte(`{"user":{"id":"1","username":"alice","discriminator":"0","global_name":null}}`), 9)
	require.NoError(t, err)
	assert.Equal(t, "alice", m.String())
}

func TestGuildMemberRequiresUser(t *testing.T) {
	_, err := NewGuildMember([]byte(`{"nick":"x"}`), 9)
	assert.ErrorIs(t, err, ErrNoUser)

	_, err = NewGuildMember([]byte(`{"user":null}`), 9)
	assert.ErrorIs(t, err, ErrNoUser)
}

func TestGuildMemberEqualIgnoresGuild(t *testing.T) {
	a, err := NewGuildMember([]byte(memberPayload), 100)
	require.NoError(t, err)
	b, err := NewGuildMember([]byte(`{"user":{"id":"80351110224678912","username":"other","discriminator":"0"}}`), 200)
	require.NoError(t, err)
	c, err := NewGuildMember([]byte(`{"user":{"id":"5","username":"alice","discriminator":"0"}}`), 100)
	require.NoError(t, err)

	assert.True(t, a.Equal(b), "members are compared by user ID only")
	assert.False(t, a.Equal(c))
}

func TestGuildMemberAvatarURL(t *testing.T) {
	m, err := NewGuildMember([]byte(memberPayload), 200)
	require.NoError(t, err)
	assert.True(t, m.IsAvatarAnimated())
	assert.Equal(t, "https://cdn.discordapp.com/guilds/200/users/80351110224678912/avatars/a_memberhash.gif", m.AvatarURL())

	m, err = NewGuildMember([]byte(`{"user":{"id":"1","username":"a","discriminator":"0"},"avatar":"plain"}`), 200)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.discordapp.com/guilds/200/users/1/avatars/plain.png", m.AvatarURL())

	m, err = NewGuildMember([]byte(`{"user":{"id":"1","username":"a","discriminator":"0","avatar":"useravatar"}}`), 200)
	require.NoError(t, err)
	assert.False(t, m.IsAvatarAnimated())
	assert.Empty(t, m.AvatarURL(), "no fallback to the user or default avatar")
}

func TestGuildMemberTimedOut(t *testing.T) {
	until := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	m, err := NewGuildMember([]byte(`{"user":{"id":"1","username":"a","discriminator":"0"},"communication_disabled_until":"`+until+`"}`), 3)
	require.NoError(t, err)
	assert.True(t, m.TimedOut(time.Now()))
	assert.False(t, m.TimedOut(time.Now().Add(2*time.Hour)))
}
