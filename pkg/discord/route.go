package discord

import (
	"fmt"
	"strings"
)

const guildIDPlaceholder = "{guild_id}"

// Route describes where a model lives in the REST API and which
// credentials are used to fetch it.
type Route struct {
	// Template is the path, with a leading slash. It may contain
	// {guild_id}.
	Template string
	// Bot selects bot credentials instead of the user's OAuth2 token.
	Bot bool
	// Many means the collection endpoint returns a JSON array.
	Many bool
}

// mustRoute registers the route of a model type. It is called from
// package-level vars so a model without a route fails at init.
func mustRoute(model string, r Route) Route {
	if r.Template == "" {
		panic(fmt.Sprintf("discord: route must be specified for model %s", model))
	}
	return r
}

// Resolve substitutes the guild ID into the template. A zero guild ID
// leaves the template as is.
func (r Route) Resolve(guildID Snowflake) string {
	if guildID == 0 {
		return r.Template
	}
	return strings.ReplaceAll(r.Template, guildIDPlaceholder, guildID.String())
}

var (
	userRoute        = mustRoute("User", Route{Template: "/users/@me"})
	botRoute         = mustRoute("Bot", Route{Template: "/users/@me", Bot: true})
	guildRoute       = mustRoute("Guild", Route{Template: "/users/@me/guilds", Many: true})
	guildMemberRoute = mustRoute("GuildMember", Route{Template: "/users/@me/guilds/{guild_id}/member"})
	connectionRoute  = mustRoute("UserConnection", Route{Template: "/users/@me/connections", Many: true})
)

func addGuildMemberRoute(guildID, userID Snowflake) string {
	return fmt.Sprintf("/guilds/%s/members/%s", guildID, userID)
}
