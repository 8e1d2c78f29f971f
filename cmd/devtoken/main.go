// Command devtoken prints a signed session token for local testing.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/MrKriegler/go-brokerage/internal/core"
	"github.com/MrKriegler/go-brokerage/internal/platform/auth"
	"github.com/MrKriegler/go-brokerage/internal/platform/config"
	"github.com/MrKriegler/go-brokerage/internal/platform/logging"
)

func main() {
	userID := flag.Int64("user", 1, "user id (token subject)")
	role := flag.String("role", string(core.RoleAdministrator), "ADMINISTRATOR, BROKER_MANAGER or BROKER")
	brokerID := flag.Int64("broker", 0, "linked broker id, 0 for none")
	flag.Parse()

	cfg := config.MustLoad()
	log := logging.New(cfg.Env, cfg.LogLevel)

	signer, err := auth.NewSigner(cfg.JWTSecret, cfg.JWTIssuer, time.Duration(cfg.JWTTTLMinutes)*time.Minute)
	if err != nil {
		log.Error("invalid jwt settings", "err", err)
		os.Exit(1)
	}

	var linked *int64
	if *brokerID > 0 {
		linked = brokerID
	}
	token, err := signer.Issue(*userID, core.Role(*role), linked)
	if err != nil {
		log.Error("failed to issue token", "err", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
