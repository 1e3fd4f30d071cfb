package routes

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/kabili207/discordweb/pkg/config"
	"github.com/kabili207/discordweb/pkg/discord"
	"github.com/kabili207/discordweb/pkg/store"
	"golang.org/x/oauth2"
)

const (
	sessionName = "discordweb"
)

type WebRouter struct {
	config       config.Configuration
	oauth        *oauth2.Config
	storage      store.Stores
	sessionStore *sessions.CookieStore
	client       *discord.Client
}

func (wr *WebRouter) getSession(r *http.Request) (*sessions.Session, error) {
	return wr.sessionStore.Get(r, sessionName)
}

func (wr *WebRouter) sessionState(s *sessions.Session) *webSession {
	return &webSession{session: s, tokens: wr.storage.OAuthTokens}
}

// Setup prepares the router without starting a listener.
func (wr *WebRouter) Setup(config config.Configuration, store store.Stores, client *discord.Client) {
	wr.storage = store
	wr.client = client
	wr.sessionStore = sessions.NewCookieStore([]byte(config.SessionSecret))
	wr.sessionStore.Options.HttpOnly = true
	wr.sessionStore.Options.Secure = strings.HasPrefix(config.BaseURL, "https://")
	wr.sessionStore.Options.SameSite = http.SameSiteLaxMode
	wr.oauth = config.OAuthConfig()
	wr.config = config
}

// Initialize sets up the router and serves until ctx is cancelled.
func (wr *WebRouter) Initialize(ctx context.Context, config config.Configuration, store store.Stores, client *discord.Client) error {
	wr.Setup(config, store, client)

	srv := &http.Server{Addr: config.ListenAddr, Handler: wr.Handler()}
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()
	slog.Info("web server listening", "addr", config.ListenAddr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Handler builds the full handler chain.
func (wr *WebRouter) Handler() http.Handler {
	// creates a new instance of a mux router
	myRouter := mux.NewRouter().StrictSlash(true)

	myRouter.HandleFunc("/", wr.homePage).Methods(http.MethodGet)
	myRouter.HandleFunc("/auth/logout", wr.userLogoutHandler)
	myRouter.HandleFunc("/auth/discord/login", wr.discordLoginHandler)
	myRouter.HandleFunc("/auth/discord/callback", wr.discordCallbackHandler)

	api := myRouter.PathPrefix("/api").Subrouter()
	api.HandleFunc("/bot", wr.botHandler).Methods(http.MethodGet)

	me := api.PathPrefix("/me").Subrouter()
	me.Use(wr.RequireAuth)
	me.HandleFunc("", wr.meHandler).Methods(http.MethodGet)
	me.HandleFunc("/guilds", wr.guildsHandler).Methods(http.MethodGet)
	me.HandleFunc("/connections", wr.connectionsHandler).Methods(http.MethodGet)
	me.HandleFunc("/members", wr.membersHandler).Methods(http.MethodGet)
	me.HandleFunc("/guilds/{guild_id}/member", wr.memberHandler).Methods(http.MethodGet)
	me.HandleFunc("/guilds/{guild_id}", wr.joinGuildHandler).Methods(http.MethodPut)

	myRouter.Use(handlers.ProxyHeaders)
	myRouter.Use(RequestLogger)
	h := handlers.RecoveryHandler()

	return h(myRouter)
}

func RequestLogger(h http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		slog.Info("endpoint hit", "method", r.Method, "path", r.URL.Path, "remote_host", r.RemoteAddr, "user_agent", r.UserAgent())
		// Call the next handler in the chain.
		h.ServeHTTP(w, r)
	}
	return http.HandlerFunc(fn)
}

type homeView struct {
	LoggedIn bool   `json:"logged_in"`
	UserID   string `json:"user_id,omitempty"`
	Login    string `json:"login,omitempty"`
	Logout   string `json:"logout,omitempty"`
}

func (wr *WebRouter) homePage(w http.ResponseWriter, r *http.Request) {
	session, _ := wr.getSession(r)
	id, ok := wr.sessionState(session).UserID()
	if !ok {
		writeJSON(w, http.StatusOK, homeView{Login: "/auth/discord/login"})
		return
	}
	writeJSON(w, http.StatusOK, homeView{LoggedIn: true, UserID: id.String(), Logout: "/auth/logout"})
}
