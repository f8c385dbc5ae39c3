package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dom/learnplay/internal/keepalive"
	"github.com/dom/learnplay/internal/logger"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	apiURL := "http://localhost:3000"
	if envURL := os.Getenv("API_URL"); envURL != "" {
		apiURL = envURL
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "login":
		runCmd(apiURL, args, false)
	case "signup":
		runCmd(apiURL, args, true)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Keepalive - hold a play session open and watch its time budget

USAGE:
  keepalive <command> [options]

COMMANDS:
  login     Log in with an existing account and ping until the session ends
  signup    Create an account, then ping until the session ends
  help      Show this help message

OPTIONS:
  --email      Account email (required)
  --password   Account password (required)
  --name       Full name, signup only
  --interval   Ping interval (default 15s)

ENVIRONMENT:
  API_URL   Backend API URL (default: http://localhost:3000)

EXAMPLES:
  # Watch a ten minute budget run down
  keepalive login --email=kid@example.com --password=secret1

  # Ping faster against a local server
  keepalive signup --name="Test Kid" --email=kid@example.com --password=secret1 --interval=5s`)
}

func runCmd(apiURL string, args []string, signup bool) {
	fs := flag.NewFlagSet("keepalive", flag.ExitOnError)
	email := fs.String("email", "", "Account email")
	password := fs.String("password", "", "Account password")
	name := fs.String("name", "Keepalive User", "Full name (signup only)")
	interval := fs.Duration("interval", keepalive.DefaultInterval, "Ping interval")
	fs.Parse(args)

	if *email == "" || *password == "" {
		fmt.Println("Error: --email and --password are required")
		os.Exit(1)
	}

	log, err := logger.New("development", "info")
	if err != nil {
		fmt.Printf("Error: failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := keepalive.New(apiURL, keepalive.WithInterval(*interval))

	var status keepalive.Status
	if signup {
		status, err = client.Signup(ctx, *name, *email, *password)
	} else {
		status, err = client.Login(ctx, *email, *password)
	}
	if err != nil {
		log.Fatal("[keepalive] authentication failed", zap.Error(err))
	}

	log.Info("[keepalive] session started",
		zap.String("sessionId", status.SessionID),
		zap.Int("budgetMinutes", status.BudgetMinutes),
		zap.Duration("interval", *interval))

	client.OnAlive = func(s keepalive.Status) {
		log.Info("[keepalive] session alive",
			zap.Float64("usedSeconds", s.UsedSeconds),
			zap.Float64("remainingSeconds", s.RemainingSeconds))
	}
	client.OnExpired = func(reason string) {
		log.Warn("[keepalive] session ended", zap.String("reason", reason))
	}
	client.OnError = func(err error) {
		log.Error("[keepalive] ping failed", zap.Error(err))
	}

	start := time.Now()
	err = client.Run(ctx)

	var expired *keepalive.ExpiredError
	switch {
	case errors.As(err, &expired):
		log.Info("[keepalive] done", zap.Duration("wallClock", time.Since(start).Round(time.Second)))
	case errors.Is(err, context.Canceled):
		log.Info("[keepalive] interrupted")
	default:
		log.Error("[keepalive] stopped", zap.Error(err))
		os.Exit(1)
	}
}
