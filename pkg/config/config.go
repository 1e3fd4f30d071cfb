package config

import (
	"io"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/kabili207/discordweb/pkg/discord"
	"github.com/spf13/viper"
	"golang.org/x/oauth2"
)

var DefaultScopes = []string{
	"identify",
	"email",
	"guilds",
	"guilds.join",
	"guilds.members.read",
	"connections",
}

type Configuration struct {
	ListenAddr    string `validate:"required"`
	SessionSecret string `validate:"required,min=16"`
	BaseURL       string `validate:"required,url"`
	LogLevel      string `validate:"omitempty,oneof=debug info warn error"`
	OAuth         struct {
		Discord oauth2.Config
	}
	Discord struct {
		BotToken string
		APIBase  string `validate:"omitempty,url"`
		CDNBase  string `validate:"omitempty,url"`
		Scopes   []string
		// RequiredGuild rejects logins from users who are not full members
		// of this guild.
		RequiredGuild discord.Snowflake
		// AutoJoinGuild adds users to this guild with the bot on login.
		AutoJoinGuild discord.Snowflake
	}
	Database struct {
		User     string
		Password string
		Host     string `validate:"required"`
		DB       string `validate:"required"`
	}
}

// Load reads a YAML configuration. Environment variables override file
// values, e.g. DISCORD_BOTTOKEN.
func Load(r io.Reader) (Configuration, error) {
	var config Configuration

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigType("yml")
	v.SetDefault("ListenAddr", ":8080")
	v.SetDefault("LogLevel", "info")
	v.SetDefault("Discord.APIBase", discord.DefaultAPIBase)

	if err := v.ReadConfig(r); err != nil {
		return config, err
	}
	err := v.Unmarshal(&config, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return config, err
	}
	if len(config.Discord.Scopes) == 0 {
		config.Discord.Scopes = DefaultScopes
	}

	if err := validator.New().Struct(config); err != nil {
		return config, err
	}
	return config, nil
}

func (c Configuration) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// OAuthConfig returns the Discord OAuth2 settings with the redirect URL,
// scopes and endpoint filled in. An endpoint set in the file is kept.
func (c Configuration) OAuthConfig() *oauth2.Config {
	oc := c.OAuth.Discord
	oc.RedirectURL = strings.TrimRight(c.BaseURL, "/") + "/auth/discord/callback"
	oc.Scopes = append([]string(nil), c.Discord.Scopes...)
	if oc.Endpoint.AuthURL == "" || oc.Endpoint.TokenURL == "" {
		oc.Endpoint = discord.Endpoint
	}
	return &oc
}
