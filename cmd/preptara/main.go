package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/Saivarun91/preptara-cli/internal/api"
	"github.com/Saivarun91/preptara-cli/internal/auth"
	"github.com/Saivarun91/preptara-cli/internal/cli"
	"github.com/Saivarun91/preptara-cli/internal/config"
	"github.com/Saivarun91/preptara-cli/internal/history"
	"github.com/Saivarun91/preptara-cli/internal/logger"
	"golang.org/x/term"
)

func main() {
	cfg := config.Load()

	server := flag.String("server", cfg.APIBaseURL, "Preptara API base URL")
	flag.Parse()

	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	session := auth.NewSession(cfg.TokenPath)
	if err := session.Restore(); err != nil {
		log.Warn().Err(err).Msg("could not restore saved credential")
	}

	var store *history.Store
	store, err := history.Open(cfg.HistoryPath)
	if err != nil {
		// The attempt flow works without local persistence.
		log.Warn().Err(err).Msg("local history disabled")
		store = nil
	} else {
		defer store.Close()
	}

	client := api.NewClient(*server, &http.Client{Timeout: cfg.HTTPTimeout}, session.Credential, log)

	passwordFD := -1
	if term.IsTerminal(int(os.Stdin.Fd())) {
		passwordFD = int(os.Stdin.Fd())
	}

	err = cli.Run(context.Background(), os.Stdin, os.Stdout, cli.Config{
		Client:     client,
		Auth:       session,
		History:    store,
		PasswordFD: passwordFD,
		Logger:     log,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
