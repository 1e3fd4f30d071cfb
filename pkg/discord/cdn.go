package discord

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const (
	ImageFormat         = "png"
	AnimatedImageFormat = "gif"

	animatedHashPrefix = "a_"
)

// CDN builds asset URLs. The zero value uses Discord's public CDN.
type CDN struct {
	// Base is the CDN root with a trailing slash.
	Base string
}

func (c CDN) base() string {
	if c.Base == "" {
		return discordgo.EndpointCDN
	}
	if !strings.HasSuffix(c.Base, "/") {
		return c.Base + "/"
	}
	return c.Base
}

// IsAnimated reports whether an asset hash refers to a GIF.
func IsAnimated(hash string) bool {
	return strings.HasPrefix(hash, animatedHashPrefix)
}

func formatFor(hash string) string {
	if IsAnimated(hash) {
		return AnimatedImageFormat
	}
	return ImageFormat
}

func (c CDN) UserAvatar(userID Snowflake, hash string) string {
	return fmt.Sprintf("%savatars/%s/%s.%s", c.base(), userID, hash, formatFor(hash))
}

// DefaultUserAvatar is the avatar shown for users without one.
func (c CDN) DefaultUserAvatar(userID Snowflake) string {
	return fmt.Sprintf("%sembed/avatars/%d.png", c.base(), (userID>>22)%6)
}

func (c CDN) GuildMemberAvatar(guildID, userID Snowflake, hash string) string {
	return fmt.Sprintf("%sguilds/%s/users/%s/avatars/%s.%s", c.base(), guildID, userID, hash, formatFor(hash))
}

func (c CDN) GuildIcon(guildID Snowflake, hash string) string {
	return fmt.Sprintf("%sicons/%s/%s.%s", c.base(), guildID, hash, formatFor(hash))
}
