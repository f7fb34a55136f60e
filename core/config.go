package core

import (
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env                       string        `mapstructure:"env"`
		Build                     string        `mapstructure:"build"`
		Debug                     bool          `mapstructure:"debug"`
		TestMode                  bool          `mapstructure:"testMode"`
		AppName                   string        `mapstructure:"appName"`
		SecretKey                 string        `mapstructure:"secretKey"`
		FrontendBaseURL           string        `mapstructure:"frontendBaseURL"`
		DefaultFromEmail          string        `mapstructure:"defaultFromEmail"`
		DefaultFromName           string        `mapstructure:"defaultFromName"`
		StaffEmail                string        `mapstructure:"staffEmail"`
		SendgridAPIKey            string        `mapstructure:"sendgridAPIKey"`
		RollbarToken              string        `mapstructure:"rollbarToken"`
		JWTExpirationDelta        time.Duration `mapstructure:"jwtExpirationDelta"`
		JWTRefreshExpirationDelta time.Duration `mapstructure:"jwtRefreshExpirationDelta"`
		PasswordResetTimeoutDelta time.Duration `mapstructure:"passwordResetTimeoutDelta"`
		Server                    ServerConfig  `mapstructure:"server"`
		Database                  DBConfig      `mapstructure:"database"`
		FabLab                    FabLabConfig  `mapstructure:"fablab"`
	}

	ServerConfig struct {
		Host            string        `mapstructure:"host"`
		Address         string        `mapstructure:"address"`
		DebugAddress    string        `mapstructure:"debugAddress"`
		ReadTimeout     time.Duration `mapstructure:"readTimeout"`
		WriteTimeout    time.Duration `mapstructure:"writeTimeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
	}

	DBConfig struct {
		Engine        string `mapstructure:"engine"` // postgres | sqlite
		Host          string `mapstructure:"host"`
		Port          string `mapstructure:"port"`
		Name          string `mapstructure:"name"`
		User          string `mapstructure:"user"`
		Password      string `mapstructure:"password"`
		AdminUser     string `mapstructure:"adminUser"`
		AdminPassword string `mapstructure:"adminPassword"`
		DisableTLS    bool   `mapstructure:"disableTLS"`
		Path          string `mapstructure:"path"` // sqlite only
	}

	FabLabConfig struct {
		OpeningHour         int `mapstructure:"openingHour"`
		ClosingHour         int `mapstructure:"closingHour"`
		MaxReservationHours int `mapstructure:"maxReservationHours"`
	}
)

func (c DBConfig) Address() string {
	if c.Port == "" {
		return c.Host
	}
	return c.Host + ":" + c.Port
}

// DefaultFromAddress returns the sender used for every outgoing email.
func (c *Config) DefaultFromAddress() mail.Address {
	return mail.Address{Name: c.DefaultFromName, Address: c.DefaultFromEmail}
}

// NewConfig loads the configuration from defaults, the optional `config/.env.<env>` file
// and the environment (keys prefixed with the env name, eg. PROD_SECRETKEY, PROD_DATABASE_HOST).
func NewConfig() (*Config, error) {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "CREC")
	v.SetDefault("secretKey", "k3y-f0r-l0cal-dev-0nly!crec-backoffice-change-me")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("defaultFromName", "CREC")
	v.SetDefault("staffEmail", "contact@localhost")
	v.SetDefault("sendgridAPIKey", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugAddress", ":4000")
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 10*time.Second)
	v.SetDefault("server.shutdownTimeout", 10*time.Second)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "crec")
	v.SetDefault("database.user", "crec")
	v.SetDefault("database.password", "crec")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.path", "crec.db")

	v.SetDefault("fablab.openingHour", 9)
	v.SetDefault("fablab.closingHour", 19)
	v.SetDefault("fablab.maxReservationHours", 4)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	v.SetDefault("env", env)
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	if root, err := ProjectRoot(); err == nil {
		dotEnvPath := filepath.Join(root, "config", ".env."+strings.ToLower(env))
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
			}
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
		}
	}
	v.AutomaticEnv()

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	if err := conf.check(); err != nil {
		return nil, err
	}
	return conf, nil
}

func (c *Config) check() error {
	switch c.Database.Engine {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unsupported database engine %q", c.Database.Engine)
	}
	if c.FabLab.OpeningHour < 0 || c.FabLab.ClosingHour > 24 || c.FabLab.OpeningHour >= c.FabLab.ClosingHour {
		return fmt.Errorf("config: invalid fablab opening hours %d-%d", c.FabLab.OpeningHour, c.FabLab.ClosingHour)
	}
	if !c.Debug && c.Env == "PROD" && strings.Contains(c.SecretKey, "change-me") {
		return errors.New("config: secretKey must be set in production")
	}
	return nil
}

// NewTestConfig returns the configuration used by the test suites.
func NewTestConfig() *Config {
	return &Config{
		Env:                       "TEST",
		Build:                     "test",
		Debug:                     false,
		TestMode:                  true,
		AppName:                   "CREC",
		SecretKey:                 "secret",
		FrontendBaseURL:           "http://crec.test",
		DefaultFromEmail:          "noreply@crec.test",
		DefaultFromName:           "CREC",
		StaffEmail:                "staff@crec.test",
		JWTExpirationDelta:        10 * time.Minute,
		JWTRefreshExpirationDelta: 4 * time.Hour,
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server:                    ServerConfig{Host: "localhost", ShutdownTimeout: time.Second},
		Database:                  DBConfig{Engine: "sqlite", Path: ":memory:"},
		FabLab:                    FabLabConfig{OpeningHour: 9, ClosingHour: 19, MaxReservationHours: 4},
	}
}
