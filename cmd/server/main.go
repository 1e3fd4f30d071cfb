package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	cfg "github.com/kabili207/discordweb/pkg/config"
	"github.com/kabili207/discordweb/pkg/discord"
	"github.com/kabili207/discordweb/pkg/routes"
	"github.com/kabili207/discordweb/pkg/store"

	"github.com/MatusOllah/slogcolor"
)

var (
	config cfg.Configuration
	logger *slog.Logger
)

func check(e error) {
	if e != nil {
		panic(e)
	}
}

func init() {
	logger = slog.New(slogcolor.NewHandler(os.Stdout, slogcolor.DefaultOptions))
	slog.SetDefault(logger)

	configPath := flag.String("c", "config.yml", "The path to the config file")
	flag.Parse()
	f, err := os.Open(*configPath)
	check(err)
	defer f.Close()

	config, err = cfg.Load(f)
	check(err)

	opts := *slogcolor.DefaultOptions
	opts.Level = config.SlogLevel()
	logger = slog.New(slogcolor.NewHandler(os.Stdout, &opts))
	slog.SetDefault(logger)
}

func main() {

	database, err := setupDatabase(config)
	if err != nil {
		fmt.Println("error connecting to database,", err)
		return
	}

	storage, err := store.New(database)
	if err != nil {
		fmt.Println("error initializing storage,", err)
		return
	}
	defer storage.Close()

	err = storage.RunMigrations()
	if err != nil {
		fmt.Println("error running migrations,", err)
		return
	}

	client, err := discord.NewClient(discord.Options{
		OAuth:    config.OAuthConfig(),
		BotToken: config.Discord.BotToken,
		APIBase:  config.Discord.APIBase,
		CDN:      discord.CDN{Base: config.Discord.CDNBase},
	})
	if err != nil {
		fmt.Println("error creating discord client,", err)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	router := &routes.WebRouter{}
	err = router.Initialize(ctx, config, *storage, client)
	if err != nil {
		slog.Error("web server stopped", "error", err)
		return
	}
	slog.Warn("caught signal, stopping...")
}

func setupDatabase(config cfg.Configuration) (*sqlx.DB, error) {
	// change "postgres" for whatever supported database you want to use
	dbUrl := url.URL{
		Scheme: "postgres",
		Host:   config.Database.Host,
		Path:   config.Database.DB,
		User:   url.UserPassword(config.Database.User, config.Database.Password),
	}

	db, err := sqlx.Open("postgres", dbUrl.String())

	if err != nil {
		return nil, err
	}

	// ping the DB to ensure that it is connected
	err = db.Ping()

	if err != nil {
		return nil, err
	}

	return db, nil
}
