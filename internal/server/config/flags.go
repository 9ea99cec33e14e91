package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/inkwell/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":3000")
//	-g string   gRPC bind address (e.g., ":50051")
//	-d string   database DSN
//	-s string   JWT HMAC secret key
//	-t int      local sign-in token validity, minutes
//	-o int      federated sign-in token validity, minutes
//	-r string   redis address for the flash session store
//	-e string   environment ("prod" enables secure cookies)
//	-l string   log backend ("slog" or "zap")
//
// Duration flags are accepted as integers in minutes and only replace the
// current value when given.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-d", "-s", "-t", "-o", "-r", "-e", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run http server")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "address and port to run grpc server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	tokenTTL := fs.Int("t", int(config.TokenTTL.Minutes()), "token validity (in minutes)")
	oauthTokenTTL := fs.Int("o", int(config.OAuthTokenTTL.Minutes()), "federated token validity (in minutes)")

	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.Environment, "e", config.Environment, "environment")
	fs.StringVar(&config.LogBackend, "l", config.LogBackend, "log backend")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.TokenTTL = time.Duration(*tokenTTL) * time.Minute
		case "o":
			config.OAuthTokenTTL = time.Duration(*oauthTokenTTL) * time.Minute
		}
	})
}
