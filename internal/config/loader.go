// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from these layers (highest
precedence last):

  1. Built-in defaults (`Defaults()`).
  2. Optional `.env` file at `<root>/conf/.env`.
  3. Optional `conf/app.yaml`.
  4. Environment variables prefixed `SAFARI_`, where `__` maps to “.”
     (e.g., `SAFARI_HTTP__LISTEN_ADDR → http.listen_addr`).
  5. Platform variables understood by hosting providers: `POSTGRES_URL`
     or `DATABASE_URL`, `NEXT_PUBLIC_APP_URL` or `VERCEL_URL`, and `PORT`.

After merging, `vault:` references are resolved, the tree is validated,
enriched with the runtime root path, and cached in an `atomic.Pointer`
for lock-free reads.  `Reload()` simply calls `Load()` again and swaps the
pointer.

Instrumentation
---------------
  • DEBUG spans: root discovery, YAML read, env overlay.
  • ERROR spans: YAML parse, env overlay, unmarshal, validation failures.
  • INFO span: final “config loaded” with key highlights.
  • Logs use the global *sugared* logger (`zap.S()`) so early boot issues
    surface even before the file logger is installed.

Notes
-----
  • `rootDir()` climbs the cwd tree until it finds `conf/app.yaml`; this
    lets `go run ./cmd/web` work from any sub-directory.
  • A missing YAML file is not an error.  Serverless deploys configure
    everything through the environment.
  • Oxford commas, two spaces after periods.
*/
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/vault"
)

const (
	envPrefix   = "SAFARI_"
	vaultPrefix = "vault:"
)

var current atomic.Pointer[Config]

// SecretResolver turns a `vault:<mount>/<path>#<key>` reference into its
// plain value.  *vault.Client satisfies it.
type SecretResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves SAFARI_ROOT or climbs directories until conf/app.yaml
// is found.  Falls back to the working directory.
func rootDir() string {
	if r := os.Getenv("SAFARI_ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "app.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads every layer from the discovered root, validates, and caches
// the result.
func Load() (*Config, error) {
	return LoadFrom(rootDir(), nil)
}

// LoadFrom is Load with an explicit root and secret resolver.  A nil
// resolver means a Vault client is created on demand from VAULT_ADDR and
// VAULT_TOKEN, and only if some value needs it.
func LoadFrom(root string, resolver SecretResolver) (*Config, error) {
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", "app.yaml")
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
			return nil, err
		}
		zap.S().Debugw("config yaml not present", "file", yamlPath)
	} else {
		zap.S().Debugw("config yaml loaded", "file", yamlPath)
	}

	// Env overrides: SAFARI_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		return strings.ToLower(strings.ReplaceAll(s, "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	cfg := Defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	applyPlatformEnv(&cfg)

	if err := resolveSecrets(&cfg, resolver); err != nil {
		zap.S().Errorw("config secret resolution failed", "err", err)
		return nil, err
	}

	cfg.Paths.Root = root
	if !filepath.IsAbs(cfg.Log.Dir) {
		cfg.Log.Dir = filepath.Join(root, cfg.Log.Dir)
	}

	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"base_url", cfg.App.BaseURL,
		"database", cfg.Database.Enabled(),
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

/*──────────────────────────── platform vars ───────────────────────────────*/

// applyPlatformEnv folds in the variables hosting platforms set for us.
// Explicit SAFARI_ settings win over them.
func applyPlatformEnv(cfg *Config) {
	if cfg.Database.URL == "" {
		cfg.Database.URL = firstEnv("POSTGRES_URL", "DATABASE_URL")
	}
	if port := os.Getenv("PORT"); port != "" && os.Getenv(envPrefix+"HTTP__LISTEN_ADDR") == "" {
		cfg.HTTP.ListenAddr = ":" + port
	}
	if cfg.App.BaseURL == "" {
		cfg.App.BaseURL = ResolveBaseURL(cfg.HTTP.ListenAddr)
	}
}

// ResolveBaseURL picks the public origin: NEXT_PUBLIC_APP_URL, then
// https://$VERCEL_URL, then localhost on the listen port.
func ResolveBaseURL(listenAddr string) string {
	if u := os.Getenv("NEXT_PUBLIC_APP_URL"); u != "" {
		return strings.TrimRight(u, "/")
	}
	if host := os.Getenv("VERCEL_URL"); host != "" {
		return "https://" + strings.TrimRight(host, "/")
	}
	port := "8080"
	if i := strings.LastIndexByte(listenAddr, ':'); i != -1 && i < len(listenAddr)-1 {
		port = listenAddr[i+1:]
	}
	return "http://localhost:" + port
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

/*──────────────────────────── vault refs ──────────────────────────────────*/

// resolveSecrets swaps every `vault:` reference for its plain value.
func resolveSecrets(cfg *Config, resolver SecretResolver) error {
	targets := []*string{
		&cfg.Database.URL,
		&cfg.Auth.TokenSecret,
		&cfg.Notify.WebhookURL,
	}

	var pending []*string
	for _, t := range targets {
		if strings.HasPrefix(*t, vaultPrefix) {
			pending = append(pending, t)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if resolver == nil {
		cli, err := vault.New(ctx, zap.S().Infof)
		if err != nil {
			return err
		}
		resolver = cli
	}

	for _, t := range pending {
		val, err := resolver.Resolve(ctx, *t)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", *t, err)
		}
		*t = val
	}
	return nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func Get() *Config  { return current.Load() }
func Reload() error { _, err := Load(); return err }
