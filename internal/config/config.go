// Package config loads the service configuration from the environment, an
// optional .env file and an optional config file.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/harentsoaR/armline-api/internal/models"
	"github.com/harentsoaR/armline-api/internal/services"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"

	ImageHostImgBB = "imgbb"
	ImageHostS3    = "s3"
)

const defaultAgencies = "DSWD=|Department of Social Welfare and Development;" +
	"PNP=|Philippine National Police;" +
	"DepEd=|Department of Education"

// Config keys match the environment variable names, lower-cased.
type Config struct {
	Port    int  `mapstructure:"api_port"`
	DevMode bool `mapstructure:"dev_mode"`

	// StoreDriver mongo or memory (default: mongo)
	StoreDriver   string `mapstructure:"store_driver"`
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`

	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`

	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// TrustedProxies IPs or CIDRs whose X-Forwarded-For is believed (default: none)
	TrustedProxies []string `mapstructure:"trusted_proxies"`
	// PublicBaseURL is the web client's origin, used in emailed links.
	PublicBaseURL string `mapstructure:"public_base_url"`

	// RedisURL enables rate limiting when set.
	RedisURL string `mapstructure:"redis_url"`

	// ImageHost imgbb or s3 (default: imgbb)
	ImageHost     string `mapstructure:"image_host"`
	ImgBBAPIKey   string `mapstructure:"imgbb_api_key"`
	ImgBBEndpoint string `mapstructure:"imgbb_endpoint"`

	S3Bucket        string `mapstructure:"s3_bucket"`
	S3Region        string `mapstructure:"s3_region"`
	S3Endpoint      string `mapstructure:"s3_endpoint"`
	S3AccessKey     string `mapstructure:"s3_access_key"`
	S3SecretKey     string `mapstructure:"s3_secret_key"`
	S3PublicBaseURL string `mapstructure:"s3_public_base_url"`

	EmailJSEndpoint           string `mapstructure:"emailjs_endpoint"`
	EmailJSServiceID          string `mapstructure:"emailjs_service_id"`
	EmailJSPublicKey          string `mapstructure:"emailjs_public_key"`
	EmailJSPrivateKey         string `mapstructure:"emailjs_private_key"`
	EmailJSTemplateEscalation string `mapstructure:"emailjs_template_escalation"`
	EmailJSTemplateVerify     string `mapstructure:"emailjs_template_verify"`
	EmailJSTemplateReset      string `mapstructure:"emailjs_template_reset"`
	EmailJSTemplateAccount    string `mapstructure:"emailjs_template_account"`
	EmailJSTemplateReport     string `mapstructure:"emailjs_template_report"`

	// EscalationAgencies CODE=email|Label entries separated by ';'
	EscalationAgencies string `mapstructure:"escalation_agencies"`

	Agencies []models.Agency `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_port", 8080)
	v.SetDefault("dev_mode", false)
	v.SetDefault("store_driver", StoreMongo)
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_database", "armline")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", 24*time.Hour)
	v.SetDefault("allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("trusted_proxies", []string{})
	v.SetDefault("public_base_url", "http://localhost:5173")
	v.SetDefault("redis_url", "")
	v.SetDefault("image_host", ImageHostImgBB)
	v.SetDefault("imgbb_api_key", "")
	v.SetDefault("imgbb_endpoint", services.DefaultImgBBEndpoint)
	v.SetDefault("s3_bucket", "")
	v.SetDefault("s3_region", "us-east-1")
	v.SetDefault("s3_endpoint", "")
	v.SetDefault("s3_access_key", "")
	v.SetDefault("s3_secret_key", "")
	v.SetDefault("s3_public_base_url", "")
	v.SetDefault("emailjs_endpoint", services.DefaultEmailEndpoint)
	v.SetDefault("emailjs_service_id", "")
	v.SetDefault("emailjs_public_key", "")
	v.SetDefault("emailjs_private_key", "")
	v.SetDefault("emailjs_template_escalation", "")
	v.SetDefault("emailjs_template_verify", "")
	v.SetDefault("emailjs_template_reset", "")
	v.SetDefault("emailjs_template_account", "")
	v.SetDefault("emailjs_template_report", "")
	v.SetDefault("escalation_agencies", defaultAgencies)
}

// Load reads configuration. A .env file in the working directory is loaded
// into the environment first; configFile, when non-empty, is read next and
// environment variables override both. The "dev" flag of flags, if present,
// overrides DEV_MODE.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	v.AutomaticEnv()
	if flags != nil {
		if f := flags.Lookup("dev"); f != nil {
			if err := v.BindPFlag("dev_mode", f); err != nil {
				return nil, err
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	c.AllowedOrigins = splitList(c.AllowedOrigins)
	c.TrustedProxies = splitList(c.TrustedProxies)
	c.PublicBaseURL = strings.TrimRight(c.PublicBaseURL, "/")

	agencies, err := ParseAgencies(c.EscalationAgencies)
	if err != nil {
		return nil, err
	}
	c.Agencies = agencies
	return &c, nil
}

// Validate checks what `serve` needs before it starts listening.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.StoreDriver {
	case StoreMongo, StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.ImageHost {
	case ImageHostImgBB:
	case ImageHostS3:
		if c.S3Bucket == "" {
			return errors.New("S3_BUCKET is required when IMAGE_HOST=s3")
		}
	default:
		return fmt.Errorf("unknown IMAGE_HOST %q", c.ImageHost)
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	for _, p := range c.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				return fmt.Errorf("TRUSTED_PROXIES: %q is neither an IP nor a CIDR", p)
			}
		}
	}
	return nil
}

// UnreachableAgencies returns the codes of agencies without an email address.
// They cannot be escalated to.
func (c *Config) UnreachableAgencies() []string {
	var out []string
	for _, a := range c.Agencies {
		if a.Email == "" {
			out = append(out, a.Code)
		}
	}
	return out
}

// ParseAgencies parses "CODE=email|Label;..." into agencies. The label defaults to the code.
func ParseAgencies(s string) ([]models.Agency, error) {
	var out []models.Agency
	seen := map[string]bool{}
	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		code, rest, ok := strings.Cut(entry, "=")
		code = strings.TrimSpace(code)
		if !ok || code == "" {
			return nil, fmt.Errorf("ESCALATION_AGENCIES: malformed entry %q", entry)
		}
		if seen[code] {
			return nil, fmt.Errorf("ESCALATION_AGENCIES: duplicate agency %q", code)
		}
		seen[code] = true
		email, label, _ := strings.Cut(rest, "|")
		label = strings.TrimSpace(label)
		if label == "" {
			label = code
		}
		out = append(out, models.Agency{Code: code, Email: strings.TrimSpace(email), Label: label})
	}
	return out, nil
}

func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (c *Config) Email() services.EmailConfig {
	return services.EmailConfig{
		Endpoint:   c.EmailJSEndpoint,
		ServiceID:  c.EmailJSServiceID,
		PublicKey:  c.EmailJSPublicKey,
		PrivateKey: c.EmailJSPrivateKey,
		Templates: services.EmailTemplates{
			Escalation: c.EmailJSTemplateEscalation,
			Verify:     c.EmailJSTemplateVerify,
			Reset:      c.EmailJSTemplateReset,
			Account:    c.EmailJSTemplateAccount,
			Report:     c.EmailJSTemplateReport,
		},
	}
}

func (c *Config) S3() services.S3Config {
	return services.S3Config{
		Bucket:        c.S3Bucket,
		Region:        c.S3Region,
		Endpoint:      c.S3Endpoint,
		AccessKey:     c.S3AccessKey,
		SecretKey:     c.S3SecretKey,
		PublicBaseURL: c.S3PublicBaseURL,
	}
}
