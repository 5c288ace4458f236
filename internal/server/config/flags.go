package config

import (
	"flag"
	"os"
	"time"

	"github.com/campusfeed/campusfeed/internal/flagx"
)

var knownFlags = []string{
	"-a", "-d", "-s", "-t", "-r", "-u", "-p", "-b", "-g", "-e",
	"-redis-addr", "-redis-db",
	"-smtp-host", "-smtp-port", "-mail-from",
	"-s3-public-url",
	"-otp-ttl", "-post-ttl", "-sweep-interval",
	"-email-pattern", "-log", "-upload-dir",
}

// parseFlags populates Config fields from command-line flags.
//
// Short flags kept for the core settings:
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-u/-p/-b/-g/-e  S3 user, password, bucket, region, endpoint
//
// Long flags cover Redis, SMTP, TTLs and misc settings; TTL flags take Go
// duration strings ("10m"). Secrets other than the JWT key are only read from
// JSON or the environment.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.RedisAddr, "redis-addr", config.RedisAddr, "redis address")
	fs.IntVar(&config.RedisDB, "redis-db", config.RedisDB, "redis database number")
	fs.StringVar(&config.SMTPHost, "smtp-host", config.SMTPHost, "SMTP host")
	fs.StringVar(&config.SMTPPort, "smtp-port", config.SMTPPort, "SMTP port")
	fs.StringVar(&config.MailFrom, "mail-from", config.MailFrom, "sender address for outgoing mail")
	fs.StringVar(&config.S3PublicBaseURL, "s3-public-url", config.S3PublicBaseURL, "public base URL for uploaded objects")
	fs.DurationVar(&config.OTPValidityDuration, "otp-ttl", config.OTPValidityDuration, "one-time passcode lifetime")
	fs.DurationVar(&config.PostTTL, "post-ttl", config.PostTTL, "post lifetime")
	fs.DurationVar(&config.ExpirySweepInterval, "sweep-interval", config.ExpirySweepInterval, "expired post sweep interval")
	fs.StringVar(&config.EmailPattern, "email-pattern", config.EmailPattern, "regexp for institutional emails")
	fs.StringVar(&config.LogBackend, "log", config.LogBackend, "log backend: slog or zap")
	fs.StringVar(&config.UploadDir, "upload-dir", config.UploadDir, "scratch dir for uploads")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
}
