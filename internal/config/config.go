// internal/config/config.go
//
// This package handles configuration and the .storefront directory structure.
// Every directory the storefront runs from gets a .storefront/ folder that
// holds the config file, logs, and the local state side-store.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	xcurrency "golang.org/x/text/currency"
	"gopkg.in/yaml.v3"

	"github.com/kingrea/storefront/internal/currency"
	"github.com/kingrea/storefront/internal/promo"
)

const (
	// StorefrontDir is the name of the directory we create in each project
	StorefrontDir = ".storefront"

	// BaseCurrency is the currency catalog prices are expressed in.
	BaseCurrency = "EGP"

	defaultCatalogPath   = "data/products.json"
	defaultCacheSize     = 128
	defaultCheckoutDelay = 2 * time.Second
	defaultShipping      = 5.99
)

const defaultProjectConfigYAML = `# storefront configuration
version: 1

# Prices in the catalog are in EGP. Rates convert from EGP into each currency.
currency:
  default: EGP
  rates:
    EGP: 1
    USD: 0.032
    EUR: 0.029
    GBP: 0.025

# Promo codes are demo values, not business rules. Values are percentages.
promo_codes:
  SUMMER20: 100
  WELCOME10: 10

checkout:
  shipping: 5.99
  delay: 2s

catalog:
  path: data/products.json
  cache_size: 128
  # latency: 500ms

# Identity used by the "log in" action. Credentials are never verified.
profile:
  id: 1
  name: Demo Shopper
  email: demo@example.com
`

// CurrencyConfig selects the display currency and the conversion table.
type CurrencyConfig struct {
	Default string             `yaml:"default"`
	Rates   map[string]float64 `yaml:"rates"`
}

// CheckoutConfig controls the simulated payment step.
type CheckoutConfig struct {
	Shipping float64 `yaml:"shipping"`
	Delay    string  `yaml:"delay,omitempty"`
}

// CatalogConfig points at the static product resource.
type CatalogConfig struct {
	Path      string `yaml:"path"`
	CacheSize int    `yaml:"cache_size,omitempty"`
	Latency   string `yaml:"latency,omitempty"`
}

// ProfileConfig is the identity the UI signs in with.
type ProfileConfig struct {
	ID    int    `yaml:"id"`
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// ProjectConfig models .storefront/config.yaml.
type ProjectConfig struct {
	Version    int            `yaml:"version"`
	Currency   CurrencyConfig `yaml:"currency"`
	PromoCodes map[string]int `yaml:"promo_codes"`
	Checkout   CheckoutConfig `yaml:"checkout"`
	Catalog    CatalogConfig  `yaml:"catalog"`
	Profile    ProfileConfig  `yaml:"profile"`
}

// Config holds the runtime configuration for the storefront.
type Config struct {
	// ProjectDir is the directory where the user ran `storefront` from
	ProjectDir string

	// StorefrontProjectDir is ProjectDir/.storefront
	StorefrontProjectDir string

	Project ProjectConfig

	// catalogOverride comes from STOREFRONT_CATALOG and is never saved
	catalogOverride string
}

// InitStorefrontDir creates the .storefront directory structure in the given
// project directory. This is called before the TUI starts.
//
// Structure created:
// .storefront/
// ├── logs/    <- storefront.log and notices.log
// ├── state/   <- side-store blobs (wishlist, cart, purchaseHistory, user)
// └── data/    <- default location of products.json
func InitStorefrontDir(projectDir string) error {
	root := filepath.Join(projectDir, StorefrontDir)

	dirs := []string{
		filepath.Join(root, "logs"),
		filepath.Join(root, "state"),
		filepath.Join(root, "data"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return ensureProjectConfig(filepath.Join(root, "config.yaml"))
}

// NewConfig creates a new Config instance populated with project settings.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:           projectDir,
		StorefrontProjectDir: filepath.Join(projectDir, StorefrontDir),
		Project:              defaultProjectConfig(),
	}

	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}

	// STOREFRONT_CATALOG points the client at a different static resource
	if override := strings.TrimSpace(os.Getenv("STOREFRONT_CATALOG")); override != "" {
		cfg.catalogOverride = resolvePath(cfg.StorefrontProjectDir, override)
	}

	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.StorefrontProjectDir, "logs")
}

// StateDir returns the path to the side-store directory
func (c *Config) StateDir() string {
	return filepath.Join(c.StorefrontProjectDir, "state")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.StorefrontProjectDir, "config.yaml")
}

// CatalogPath returns the resolved location of the product resource.
func (c *Config) CatalogPath() string {
	if c.catalogOverride != "" {
		return c.catalogOverride
	}
	return c.Project.Catalog.Path
}

// CacheSize returns the capacity of the product cache.
func (c *Config) CacheSize() int {
	return c.Project.Catalog.CacheSize
}

// CatalogLatency returns the simulated fetch latency, zero when unset.
func (c *Config) CatalogLatency() time.Duration {
	d, _ := parseDuration(c.Project.Catalog.Latency)
	return d
}

// CheckoutDelay returns the simulated payment round-trip.
func (c *Config) CheckoutDelay() time.Duration {
	d, err := parseDuration(c.Project.Checkout.Delay)
	if err != nil || c.Project.Checkout.Delay == "" {
		return defaultCheckoutDelay
	}
	return d
}

// Shipping returns the flat shipping fee in the base currency.
func (c *Config) Shipping() float64 {
	return c.Project.Checkout.Shipping
}

// Rates returns the conversion table keyed by ISO code.
func (c *Config) Rates() map[string]float64 {
	out := make(map[string]float64, len(c.Project.Currency.Rates))
	for k, v := range c.Project.Currency.Rates {
		out[k] = v
	}
	return out
}

// PromoCodes returns the promo table keyed by upper-case code.
func (c *Config) PromoCodes() map[string]int {
	out := make(map[string]int, len(c.Project.PromoCodes))
	for k, v := range c.Project.PromoCodes {
		out[k] = v
	}
	return out
}

// DefaultCurrency returns the display currency selected by the user.
func (c *Config) DefaultCurrency() string {
	return c.Project.Currency.Default
}

// SetCurrency updates the display currency and persists the value back to
// .storefront/config.yaml so the choice survives a restart.
func (c *Config) SetCurrency(code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return fmt.Errorf("config: currency code is required")
	}
	if _, ok := c.Project.Currency.Rates[code]; !ok {
		return fmt.Errorf("config: no rate configured for %s", code)
	}
	c.Project.Currency.Default = code
	return c.saveProjectConfig()
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.Project.normalize(c.StorefrontProjectDir)
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize(c.StorefrontProjectDir)
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	pc := ProjectConfig{Version: 1}
	pc.applyDefaults()
	return pc
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if len(pc.Currency.Rates) == 0 {
		pc.Currency.Rates = currency.DefaultRates()
	}
	if pc.Currency.Default == "" {
		pc.Currency.Default = BaseCurrency
	}
	if pc.PromoCodes == nil {
		pc.PromoCodes = promo.DefaultCodes()
	}
	if pc.Checkout.Shipping == 0 {
		pc.Checkout.Shipping = defaultShipping
	}
	if pc.Catalog.Path == "" {
		pc.Catalog.Path = defaultCatalogPath
	}
	if pc.Catalog.CacheSize == 0 {
		pc.Catalog.CacheSize = defaultCacheSize
	}
	if pc.Profile == (ProfileConfig{}) {
		pc.Profile = ProfileConfig{ID: 1, Name: "Demo Shopper", Email: "demo@example.com"}
	}
}

func (pc *ProjectConfig) normalize(base string) {
	rates := make(map[string]float64, len(pc.Currency.Rates))
	for code, rate := range pc.Currency.Rates {
		rates[strings.ToUpper(strings.TrimSpace(code))] = rate
	}
	pc.Currency.Rates = rates
	pc.Currency.Default = strings.ToUpper(strings.TrimSpace(pc.Currency.Default))

	codes := make(map[string]int, len(pc.PromoCodes))
	for code, pct := range pc.PromoCodes {
		codes[strings.ToUpper(strings.TrimSpace(code))] = pct
	}
	pc.PromoCodes = codes

	pc.Checkout.Delay = strings.TrimSpace(pc.Checkout.Delay)
	pc.Catalog.Latency = strings.TrimSpace(pc.Catalog.Latency)
	pc.Catalog.Path = resolvePath(base, pc.Catalog.Path)
	pc.Profile.Name = strings.TrimSpace(pc.Profile.Name)
	pc.Profile.Email = strings.TrimSpace(pc.Profile.Email)
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if _, ok := pc.Currency.Rates[BaseCurrency]; !ok {
		return fmt.Errorf("currency.rates must include the base currency %s", BaseCurrency)
	}
	for _, code := range sortedKeys(pc.Currency.Rates) {
		if _, err := xcurrency.ParseISO(code); err != nil {
			return fmt.Errorf("currency.rates[%s]: not an ISO 4217 code", code)
		}
		if pc.Currency.Rates[code] <= 0 {
			return fmt.Errorf("currency.rates[%s]: rate must be positive", code)
		}
	}
	if _, ok := pc.Currency.Rates[pc.Currency.Default]; !ok {
		return fmt.Errorf("currency.default %s has no rate", pc.Currency.Default)
	}
	for code, pct := range pc.PromoCodes {
		if code == "" {
			return fmt.Errorf("promo_codes: empty code")
		}
		if pct < 0 || pct > 100 {
			return fmt.Errorf("promo_codes[%s]: percentage must be 0-100", code)
		}
	}
	if pc.Checkout.Shipping < 0 {
		return fmt.Errorf("checkout.shipping cannot be negative")
	}
	if _, err := parseDuration(pc.Checkout.Delay); err != nil {
		return fmt.Errorf("checkout.delay: %w", err)
	}
	if _, err := parseDuration(pc.Catalog.Latency); err != nil {
		return fmt.Errorf("catalog.latency: %w", err)
	}
	if pc.Catalog.CacheSize < 1 {
		return fmt.Errorf("catalog.cache_size must be >= 1")
	}
	return nil
}

func parseDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration cannot be negative")
	}
	return d, nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0644)
}

func (c *Config) saveProjectConfig() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.Project.applyDefaults()
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(c.StorefrontProjectDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure storefront dir: %w", err)
	}
	out := c.Project
	// keep the catalog path relative so the project directory can move
	if rel, err := filepath.Rel(c.StorefrontProjectDir, out.Catalog.Path); err == nil && !strings.HasPrefix(rel, "..") {
		out.Catalog.Path = rel
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ProjectConfigPath(), data, 0644); err != nil {
		return fmt.Errorf("config: write project config: %w", err)
	}
	return nil
}
