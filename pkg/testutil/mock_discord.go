// Package testutil provides a fake Discord REST API and OAuth2 token
// endpoint for package tests.
//
//	md := testutil.NewMockDiscord(t)
//	client, _ := discord.NewClient(discord.Options{APIBase: md.APIBase(), ...})
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

const (
	AccessToken  = "mock-access-token"
	RefreshToken = "mock-refresh-token"
	BotToken     = "mock-bot-token"
	AuthCode     = "mock-code"

	UserID  = "80351110224678912"
	BotID   = "1100000000000000001"
	GuildA  = "200000000000000001"
	GuildB  = "200000000000000002"
	apiPath = "/api/v10"
)

const (
	UserJSON = `{"id":"80351110224678912","username":"alice","discriminator":"0","global_name":"Alice","avatar":"a_1269e74af4df7417b13759eae50c83dc","email":"alice@example.com","verified":true,"locale":"en-US","flags":64,"premium_type":2}`
	BotJSON  = `{"id":"1100000000000000001","username":"helper","discriminator":"1234","avatar":null,"bot":true}`

	GuildsJSON = `[
		{"id":"200000000000000001","name":"Mesh","icon":"abc123","owner":true,"permissions":"2147483647","features":["COMMUNITY"]},
		{"id":"200000000000000002","name":"Radio","icon":null,"owner":false,"permissions":"104324673","features":[]}
	]`

	ConnectionsJSON = `[
		{"id":"twitch-1","name":"alice_tv","type":"twitch","verified":true,"visibility":1,"show_activity":true,
		 "integrations":[{"id":"33590653072239123","name":"alice_tv","type":"twitch","enabled":true,"role_id":"41771983423143936","subscriber_count":12}]},
		{"id":"steam-1","name":"alice","type":"steam","verified":false,"visibility":0}
	]`
)

// MemberJSON returns a member payload for the mock user.
func MemberJSON(nick, avatar string) string {
	m := map[string]any{
		"user":        json.RawMessage(UserJSON),
		"roles":       []string{"41771983423143936"},
		"joined_at":   "2021-03-04T12:00:00.000000+00:00",
		"deaf":        false,
		"mute":        false,
		"flags":       0,
		"pending":     false,
		"permissions": "8",
	}
	if nick != "" {
		m["nick"] = nick
	}
	if avatar != "" {
		m["avatar"] = avatar
	}
	b, _ := json.Marshal(m)
	return string(b)
}

// MockDiscord is an httptest server answering the routes the discord
// package uses. Response bodies can be changed before requests are made.
type MockDiscord struct {
	Server *httptest.Server
	Mux    *http.ServeMux

	mu          sync.Mutex
	User        string
	Bot         string
	Guilds      string
	Connections string
	// Members maps guild ID to the member payload. Missing guilds 404.
	Members map[string]string
	// AlreadyIn lists guild IDs where PUT member answers 204.
	AlreadyIn map[string]bool
	// RejectRefresh answers refresh_token grants with invalid_grant.
	RejectRefresh bool
	hits          map[string]int
	bodies        map[string][]byte
}

func NewMockDiscord(t *testing.T) *MockDiscord {
	t.Helper()

	md := &MockDiscord{
		Mux:         http.NewServeMux(),
		User:        UserJSON,
		Bot:         BotJSON,
		Guilds:      GuildsJSON,
		Connections: ConnectionsJSON,
		Members: map[string]string{
			GuildA: MemberJSON("Ali", "a_memberhash"),
			GuildB: MemberJSON("", ""),
		},
		AlreadyIn: map[string]bool{},
		hits:      map[string]int{},
		bodies:    map[string][]byte{},
	}

	md.Mux.HandleFunc("GET "+apiPath+"/users/@me", func(w http.ResponseWriter, r *http.Request) {
		md.record(r, nil)
		switch r.Header.Get("Authorization") {
		case "Bot " + BotToken:
			md.write(w, http.StatusOK, func() string { return md.Bot })
		case "Bearer " + AccessToken:
			md.write(w, http.StatusOK, func() string { return md.User })
		default:
			unauthorized(w)
		}
	})
	md.Mux.HandleFunc("GET "+apiPath+"/users/@me/guilds", md.bearer(func() string { return md.Guilds }))
	md.Mux.HandleFunc("GET "+apiPath+"/users/@me/connections", md.bearer(func() string { return md.Connections }))
	md.Mux.HandleFunc("GET "+apiPath+"/users/@me/guilds/{guild_id}/member", func(w http.ResponseWriter, r *http.Request) {
		md.record(r, nil)
		if r.Header.Get("Authorization") != "Bearer "+AccessToken {
			unauthorized(w)
			return
		}
		md.mu.Lock()
		body, ok := md.Members[r.PathValue("guild_id")]
		md.mu.Unlock()
		if !ok {
			writeRaw(w, http.StatusNotFound, `{"message":"Unknown Guild","code":10004}`)
			return
		}
		writeRaw(w, http.StatusOK, body)
	})
	md.Mux.HandleFunc("PUT "+apiPath+"/guilds/{guild_id}/members/{user_id}", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			AccessToken string `json:"access_token"`
		}
		raw, _ := readAll(r)
		md.record(r, raw)
		if r.Header.Get("Authorization") != "Bot "+BotToken {
			unauthorized(w)
			return
		}
		if err := json.Unmarshal(raw, &body); err != nil || body.AccessToken != AccessToken {
			writeRaw(w, http.StatusForbidden, `{"message":"Missing Access","code":50001}`)
			return
		}
		md.mu.Lock()
		already := md.AlreadyIn[r.PathValue("guild_id")]
		md.mu.Unlock()
		if already {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeRaw(w, http.StatusCreated, MemberJSON("", ""))
	})
	md.Mux.HandleFunc("POST /api/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		md.record(r, nil)
		if err := r.ParseForm(); err != nil {
			writeRaw(w, http.StatusBadRequest, `{"error":"invalid_request"}`)
			return
		}
		if r.PostForm.Get("grant_type") == "authorization_code" && r.PostForm.Get("code") != AuthCode {
			writeRaw(w, http.StatusBadRequest, `{"error":"invalid_grant"}`)
			return
		}
		md.mu.Lock()
		reject := md.RejectRefresh
		md.mu.Unlock()
		if r.PostForm.Get("grant_type") == "refresh_token" && reject {
			writeRaw(w, http.StatusBadRequest, `{"error":"invalid_grant"}`)
			return
		}
		writeRaw(w, http.StatusOK, `{"access_token":"`+AccessToken+`","token_type":"Bearer","expires_in":604800,"refresh_token":"`+RefreshToken+`","scope":"identify guilds guilds.join"}`)
	})

	md.Server = httptest.NewServer(md.Mux)
	t.Cleanup(md.Server.Close)
	return md
}

// APIBase is the value for discord.Options.APIBase.
func (m *MockDiscord) APIBase() string { return m.Server.URL + apiPath }

func (m *MockDiscord) TokenURL() string { return m.Server.URL + "/api/oauth2/token" }
func (m *MockDiscord) AuthURL() string  { return m.Server.URL + "/oauth2/authorize" }

// Hits returns how many requests were made to "METHOD /path" (path without
// the API prefix).
func (m *MockDiscord) Hits(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits[key]
}

// TotalHits counts every request received.
func (m *MockDiscord) TotalHits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, v := range m.hits {
		n += v
	}
	return n
}

// LastBody returns the last request body sent to "METHOD /path".
func (m *MockDiscord) LastBody(key string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bodies[key]
}

// Set updates a canned response under the lock.
func (m *MockDiscord) Set(fn func(m *MockDiscord)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m)
}

func (m *MockDiscord) record(r *http.Request, body []byte) {
	key := r.Method + " " + strings.TrimPrefix(r.URL.Path, apiPath)
	m.mu.Lock()
	m.hits[key]++
	if body != nil {
		m.bodies[key] = body
	}
	m.mu.Unlock()
}

func (m *MockDiscord) bearer(body func() string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.record(r, nil)
		if r.Header.Get("Authorization") != "Bearer "+AccessToken {
			unauthorized(w)
			return
		}
		m.write(w, http.StatusOK, body)
	}
}

func (m *MockDiscord) write(w http.ResponseWriter, status int, body func() string) {
	m.mu.Lock()
	b := body()
	m.mu.Unlock()
	writeRaw(w, status, b)
}

func unauthorized(w http.ResponseWriter) {
	writeRaw(w, http.StatusUnauthorized, `{"message":"401: Unauthorized","code":0}`)
}

func writeRaw(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func readAll(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(r.Body)
}
