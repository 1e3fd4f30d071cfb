package discord

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Snowflake is a Discord ID. Zero means "none".
type Snowflake uint64

func (s Snowflake) String() string {
	return strconv.FormatUint(uint64(s), 10)
}

// Timestamp returns the millisecond Unix time embedded in the ID.
func (s Snowflake) Timestamp() int64 {
	return int64(s>>22) + discordEpoch
}

const discordEpoch = 1420070400000

// UnmarshalJSON accepts both the quoted form Discord sends and bare numbers.
func (s *Snowflake) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*s = 0
		return nil
	}
	v, err := ParseSnowflake(string(b))
	*s = v
	return err
}

func (s Snowflake) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalText decodes the string representation of an ID.
// This is used by Viper during the config loading.
func (s *Snowflake) UnmarshalText(text []byte) error {
	v, err := ParseSnowflake(string(text))
	*s = v
	return err
}

func ParseSnowflake(id string) (Snowflake, error) {
	if id == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return 0, err
	}
	return Snowflake(v), nil
}
