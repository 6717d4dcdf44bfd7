package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/go-jwt-session/internal/config"
	"github.com/jrsteele09/go-jwt-session/internal/logging"
	"github.com/jrsteele09/go-jwt-session/server"
	"github.com/jrsteele09/go-jwt-session/token/refresh"
	refreshrepofake "github.com/jrsteele09/go-jwt-session/token/refresh/repofake"
	"github.com/jrsteele09/go-jwt-session/users"
	"github.com/jrsteele09/go-jwt-session/users/repofake"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "config.yaml", "YAML config file (optional)")
	flag.Parse()

	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	for {
		if err := run(*configPath); err != nil {
			log.Error().Err(err).Msg("Error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run(configPath string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logging.Setup(c.GetLogLevel(), nil)
	displayAppname(c.GetAppName())

	userRepo := repofake.NewFakeUserRepo()
	if err := seedDemoUser(userRepo, c); err != nil {
		return err
	}
	refreshTokens := refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), c.GetRefreshTokenLength(), c.GetRefreshTokenExpiry())

	api, err := server.New(c, userRepo, refreshTokens)
	if err != nil {
		return err
	}

	server := &http.Server{Addr: c.GetPort(), Handler: api}
	go listenAndServe(server)
	waitForStopSignal()
	returnError = shutdown(server)
	return returnError
}

func seedDemoUser(repo users.UserRepo, c config.AuthServerConfig) error {
	user, err := users.New(c.GetDemoUsername(), c.GetDemoMerchantID(), c.GetDemoPassword())
	if err != nil {
		return fmt.Errorf("seedDemoUser: %w", err)
	}
	if err := repo.Upsert(user); err != nil {
		return fmt.Errorf("seedDemoUser: %w", err)
	}
	log.Info().Str("username", user.Username).Str("merchant", user.MerchantID).Msg("Seeded demo user")
	return nil
}

func listenAndServe(server *http.Server) {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
