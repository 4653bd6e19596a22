package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/vidhub/internal/logging"
	"github.com/dmitrijs2005/vidhub/internal/server"
	"github.com/dmitrijs2005/vidhub/internal/server/auth"
	"github.com/dmitrijs2005/vidhub/internal/server/config"
	"github.com/dmitrijs2005/vidhub/internal/server/services"
	"github.com/dmitrijs2005/vidhub/internal/server/useradd"
	"golang.org/x/term"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	in, err := useradd.ParseArgs(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	var password string
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err = useradd.GetPassword(os.Stderr)
	} else {
		password, err = useradd.ReadPasswordFrom(os.Stdin)
	}
	if err != nil {
		log.Fatalf("%v", err)
	}

	db, rm, err := server.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer db.Close()

	logger := logging.New(cfg.Env, os.Stderr)
	accounts := services.NewAccountService(db, rm, auth.NewPasswordHasher(cfg.BcryptCost), nil, logger)

	if err := useradd.Run(ctx, accounts, in, password, os.Stdout); err != nil {
		logger.Error(ctx, "useradd failed", "error", err)
		db.Close()
		os.Exit(1)
	}
}
