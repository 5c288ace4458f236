package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/campusfeed/campusfeed/internal/flagx"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by parseEnv.
const EnvPrefix = "CAMPUSFEED_"

// parseEnv overlays CAMPUSFEED_* environment variables. A .env file named by
// -env is loaded first and must exist; otherwise ./.env is loaded when present.
// Variables already set in the process environment win over the file.
// Malformed durations or integers panic.
func parseEnv(config *Config) {
	if path := flagx.EnvFileFlags(); path != "" {
		if err := godotenv.Load(path); err != nil {
			panic(fmt.Errorf("load env file %s: %w", path, err))
		}
	} else {
		_ = godotenv.Load()
	}

	stringVars := map[string]*string{
		"HTTP_ADDR":          &config.HTTPAddr,
		"DATABASE_DSN":       &config.DatabaseDSN,
		"SECRET_KEY":         &config.SecretKey,
		"REDIS_ADDR":         &config.RedisAddr,
		"REDIS_PASSWORD":     &config.RedisPassword,
		"SMTP_HOST":          &config.SMTPHost,
		"SMTP_PORT":          &config.SMTPPort,
		"SMTP_USER":          &config.SMTPUser,
		"SMTP_PASSWORD":      &config.SMTPPassword,
		"MAIL_FROM":          &config.MailFrom,
		"S3_ROOT_USER":       &config.S3RootUser,
		"S3_ROOT_PASSWORD":   &config.S3RootPassword,
		"S3_BUCKET":          &config.S3Bucket,
		"S3_REGION":          &config.S3Region,
		"S3_BASE_ENDPOINT":   &config.S3BaseEndpoint,
		"S3_PUBLIC_BASE_URL": &config.S3PublicBaseURL,
		"EMAIL_PATTERN":      &config.EmailPattern,
		"LOG_BACKEND":        &config.LogBackend,
		"UPLOAD_DIR":         &config.UploadDir,
	}
	for name, dst := range stringVars {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"ACCESS_TOKEN_TTL":  &config.AccessTokenValidityDuration,
		"REFRESH_TOKEN_TTL": &config.RefreshTokenValidityDuration,
		"OTP_TTL":           &config.OTPValidityDuration,
		"POST_TTL":          &config.PostTTL,
		"SWEEP_INTERVAL":    &config.ExpirySweepInterval,
	}
	for name, dst := range durations {
		v, ok := os.LookupEnv(EnvPrefix + name)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
		}
		*dst = d
	}

	if v, ok := os.LookupEnv(EnvPrefix + "REDIS_DB"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(fmt.Errorf("%sREDIS_DB: %w", EnvPrefix, err))
		}
		config.RedisDB = n
	}
}
