package discord

import (
	"bytes"
	"strconv"

	"github.com/bwmarrin/discordgo"
)

// Permissions is a Discord permission bit set. Discord serializes it as a
// decimal string.
type Permissions int64

func (p *Permissions) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*p = 0
		return nil
	}
	v, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return err
	}
	*p = Permissions(v)
	return nil
}

func (p Permissions) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatInt(int64(p), 10))), nil
}

// Has reports whether every bit in perm is granted. Administrator grants
// everything.
func (p Permissions) Has(perm int64) bool {
	if int64(p)&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return int64(p)&perm == perm
}

func (p Permissions) Administrator() bool { return p.Has(discordgo.PermissionAdministrator) }
func (p Permissions) ManageGuild() bool   { return p.Has(discordgo.PermissionManageGuild) }
func (p Permissions) ManageRoles() bool   { return p.Has(discordgo.PermissionManageRoles) }
func (p Permissions) KickMembers() bool   { return p.Has(discordgo.PermissionKickMembers) }
func (p Permissions) BanMembers() bool    { return p.Has(discordgo.PermissionBanMembers) }
