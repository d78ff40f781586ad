package shorty

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/magiconair/properties"
	"golang.org/x/xerrors"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the service configuration as read from a properties file.
type Config struct {
	Port          int
	Domain        string
	TTL           time.Duration
	SweepInterval time.Duration
	CodeLength    int
	Alphabet      string
	ReadTimeout   time.Duration
}

const defaultReadTimeout = 1 * time.Second

// LoadConfig reads a properties file with the required keys port, domain and
// ttl (seconds), and the optional keys sweep.interval (seconds), code.length,
// code.alphabet and read.timeout (seconds).
func LoadConfig(path string) (Config, error) {
	p, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return Config{}, xerrors.Errorf("could not load properties file %s: %v: %w", path, err, ErrInvalidConfig)
	}
	return parseConfig(p)
}

func parseConfig(p *properties.Properties) (Config, error) {
	cfg := Config{
		SweepInterval: DefaultSweepInterval,
		CodeLength:    DefaultCodeLength,
		Alphabet:      DefaultAlphabet,
		ReadTimeout:   defaultReadTimeout,
	}

	port, err := requiredInt(p, "port")
	if err != nil {
		return Config{}, err
	}
	if port < 1 || port > 65535 {
		return Config{}, xerrors.Errorf("port %d out of range: %w", port, ErrInvalidConfig)
	}
	cfg.Port = port

	domain, ok := p.Get("domain")
	if !ok || strings.TrimSpace(domain) == "" {
		return Config{}, xerrors.Errorf("domain is not defined: %w", ErrInvalidConfig)
	}
	cfg.Domain = strings.TrimSpace(domain)

	ttl, err := requiredInt(p, "ttl")
	if err != nil {
		return Config{}, err
	}
	if ttl <= 0 {
		return Config{}, xerrors.Errorf("ttl must be positive, got %d: %w", ttl, ErrInvalidConfig)
	}
	cfg.TTL = time.Duration(ttl) * time.Second

	if v, ok, err := optionalInt(p, "sweep.interval"); err != nil {
		return Config{}, err
	} else if ok {
		if v <= 0 {
			return Config{}, xerrors.Errorf("sweep.interval must be positive, got %d: %w", v, ErrInvalidConfig)
		}
		cfg.SweepInterval = time.Duration(v) * time.Second
	}

	if v, ok, err := optionalInt(p, "code.length"); err != nil {
		return Config{}, err
	} else if ok {
		if v <= 0 {
			return Config{}, xerrors.Errorf("code.length must be positive, got %d: %w", v, ErrInvalidConfig)
		}
		cfg.CodeLength = v
	}

	if v, ok := p.Get("code.alphabet"); ok && v != "" {
		if err := validateAlphabet(v); err != nil {
			return Config{}, err
		}
		cfg.Alphabet = v
	}

	if v, ok, err := optionalInt(p, "read.timeout"); err != nil {
		return Config{}, err
	} else if ok {
		if v <= 0 {
			return Config{}, xerrors.Errorf("read.timeout must be positive, got %d: %w", v, ErrInvalidConfig)
		}
		cfg.ReadTimeout = time.Duration(v) * time.Second
	}

	return cfg, nil
}

func requiredInt(p *properties.Properties, key string) (int, error) {
	v, ok, err := optionalInt(p, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, xerrors.Errorf("%s is not defined: %w", key, ErrInvalidConfig)
	}
	return v, nil
}

func optionalInt(p *properties.Properties, key string) (int, bool, error) {
	s, ok := p.Get(key)
	s = strings.TrimSpace(s)
	if !ok || s == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false, xerrors.Errorf("%s is not a valid integer [%s]: %w", key, s, ErrInvalidConfig)
	}
	return v, true, nil
}
