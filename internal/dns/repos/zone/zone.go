// Package zone loads authoritative zone definitions from a directory of
// JSON, YAML or TOML files.
//
// Each file describes one origin:
//
//	{
//	  "$origin": "example.com.",
//	  "$ttl": 3600,
//	  "a": [ {"name": "@", "ttl": 400, "value": "93.184.216.34"} ]
//	}
//
// Every record in a file belongs to its origin. Only "a" records are loaded;
// other record-type tags are skipped.
package zone

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"

	"github.com/haukened/zonefwd/internal/dns/common/log"
	"github.com/haukened/zonefwd/internal/dns/common/utils"
	"github.com/haukened/zonefwd/internal/dns/domain"
)

const (
	keyOrigin = "$origin"
	keyTTL    = "$ttl"

	// DefaultTTL applies to records when neither the record nor the file sets one.
	DefaultTTL uint32 = 3600
)

// LoadDirectory walks dir and loads every supported zone file, returning the
// zones keyed by canonical origin. Files sharing an origin are merged in walk
// order. Any unreadable directory or invalid file is a domain.ErrConfig.
func LoadDirectory(dir string, logger log.Logger) (map[string]domain.Zone, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: zone directory %s: %w", domain.ErrConfig, dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: zone directory %s is not a directory", domain.ErrConfig, dir)
	}

	zones := make(map[string]domain.Zone)
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		z, ok, err := loadZoneFile(path, logger)
		if err != nil {
			return fmt.Errorf("error parsing zone file %s: %w", path, err)
		}
		if !ok {
			return nil
		}
		if existing, found := zones[z.Origin]; found {
			for tag, records := range z.Records {
				existing.Records[tag] = append(existing.Records[tag], records...)
			}
			return nil
		}
		zones[z.Origin] = z
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrConfig) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrConfig, err)
	}

	logger.Info(map[string]any{
		"directory": dir,
		"zones":     len(zones),
	}, "Loaded zone files")
	return zones, nil
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	case ".json":
		return json.Parser()
	case ".toml":
		return toml.Parser()
	default:
		return nil
	}
}

// loadZoneFile parses one file. ok is false for unsupported extensions.
func loadZoneFile(path string, logger log.Logger) (domain.Zone, bool, error) {
	parser := parserFor(path)
	if parser == nil {
		logger.Debug(map[string]any{"file": path}, "Skipping unsupported zone file")
		return domain.Zone{}, false, nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return domain.Zone{}, false, fmt.Errorf("%w: failed to load zone file %s: %w", domain.ErrConfig, path, err)
	}

	origin := utils.CanonicalDNSName(k.String(keyOrigin))
	if origin == "" {
		return domain.Zone{}, false, fmt.Errorf("%w: zone file %s missing '%s'", domain.ErrConfig, path, keyOrigin)
	}
	if utils.IsPublicSuffix(origin) {
		return domain.Zone{}, false, fmt.Errorf("%w: zone file %s: origin %q is a public suffix", domain.ErrConfig, path, origin)
	}

	defaultTTL := DefaultTTL
	if k.Exists(keyTTL) {
		ttl, err := toTTL(k.Int64(keyTTL))
		if err != nil {
			return domain.Zone{}, false, fmt.Errorf("%w: zone file %s %s: %w", domain.ErrConfig, path, keyTTL, err)
		}
		defaultTTL = ttl
	}

	records := make(map[string][]domain.Record)
	for key := range k.Raw() {
		if strings.HasPrefix(key, "$") {
			continue
		}
		rrtype := domain.RRTypeFromTag(key)
		if rrtype != domain.RRTypeA {
			logger.Debug(map[string]any{
				"file":   path,
				"origin": origin,
				"tag":    strings.ToLower(key),
			}, "Skipping unsupported record type")
			continue
		}
		tag := rrtype.Tag()
		for i, entry := range k.Slices(key) {
			rec, err := buildRecord(entry, defaultTTL)
			if err != nil {
				return domain.Zone{}, false, fmt.Errorf("%w: zone file %s %s[%d]: %w", domain.ErrConfig, path, tag, i, err)
			}
			records[tag] = append(records[tag], rec)
		}
	}

	z, err := domain.NewZone(origin, records)
	if err != nil {
		return domain.Zone{}, false, fmt.Errorf("%w: zone file %s: %w", domain.ErrConfig, path, err)
	}
	return z, true, nil
}

func buildRecord(entry *koanf.Koanf, defaultTTL uint32) (domain.Record, error) {
	rec := domain.Record{
		TTL:   defaultTTL,
		Value: strings.TrimSpace(entry.String("value")),
	}
	if entry.Exists("ttl") {
		ttl, err := toTTL(entry.Int64("ttl"))
		if err != nil {
			return domain.Record{}, err
		}
		rec.TTL = ttl
	}
	if err := rec.Validate(); err != nil {
		return domain.Record{}, err
	}
	return rec, nil
}

func toTTL(v int64) (uint32, error) {
	if v < 0 || v > math.MaxUint32 {
		return 0, fmt.Errorf("ttl %d out of range", v)
	}
	return uint32(v), nil
}
