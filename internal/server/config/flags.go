package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/dmitrijs2005/vidhub/internal/flagx"
)

var serverFlags = []string{"-a", "-d", "-s", "-rs", "-t", "-r", "-env", "-cookie-secure", "-u", "-p", "-b", "-g", "-e"}

// parseFlags overlays command-line flags onto config.
//
// Supported flags:
//
//	-a string          HTTP bind address (e.g. ":8000")
//	-d string          PostgreSQL DSN
//	-s string          access token HMAC secret
//	-rs string         refresh token HMAC secret
//	-t int             access token validity, minutes
//	-r int             refresh token validity, minutes
//	-env string        logging profile: local, dev or prod
//	-cookie-secure     set the Secure attribute on token cookies (use -cookie-secure=false to disable)
//	-u string          S3 root user
//	-p string          S3 root password
//	-b string          S3 bucket name
//	-g string          S3 region
//	-e string          S3 base endpoint
//
// Arguments not in the list above (for example -c) are filtered out first.
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.AccessTokenSecret, "s", config.AccessTokenSecret, "access token secret")
	fs.StringVar(&config.RefreshTokenSecret, "rs", config.RefreshTokenSecret, "refresh token secret")

	accessMinutes := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshMinutes := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")

	fs.StringVar(&config.Env, "env", config.Env, "logging profile")
	fs.BoolVar(&config.CookieSecure, "cookie-secure", config.CookieSecure, "secure token cookies")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(flagx.FilterArgs(args, serverFlags)); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	// Durations are only overwritten when the flag is given.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessMinutes) * time.Minute
		case "r":
			config.RefreshTokenValidityDuration = time.Duration(*refreshMinutes) * time.Minute
		}
	})

	return nil
}
