package cactusDisk

import (
	"fmt"
	"os"

	"github.com/i5heu/cactusdisk/internal/compression"
	"github.com/i5heu/cactusdisk/internal/keyValStore"
	"github.com/i5heu/cactusdisk/internal/uniqueID"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// Config configures a cactus disk session.
type Config struct {
	// Store selects and configures the key value backend.
	Store keyValStore.StoreConfig `yaml:"store"`
	// Compression is the codec new records are written with: lzma, zstd, snappy or none.
	Compression string `yaml:"compression"`
	// BlockSize is the number of names reserved per allocator round trip.
	BlockSize int64 `yaml:"blockSize"`
	// BucketNumber is the number of allocator buckets. Every writer of a
	// backend must use the same value.
	BucketNumber int64 `yaml:"bucketNumber"`
	// RandomSeed seeds the bucket choice. 0 seeds from the clock.
	RandomSeed int64 `yaml:"randomSeed"`
	// LogLevel is applied to Logger when set.
	LogLevel string `yaml:"logLevel"`
	// Logger is an optional logger. If nil, logrus.New() is used.
	Logger *logrus.Logger `yaml:"-"`
}

// LoadConfig reads a yaml configuration file and fills in defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("error reading config %s: %w", path, err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return Config{}, fmt.Errorf("error parsing config %s: %w", path, err)
	}

	if err := config.setDefaults(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c *Config) setDefaults() error {
	if c.Store.Type == "" {
		c.Store.Type = keyValStore.BadgerStore
	}

	if c.Compression == "" {
		c.Compression = compression.Lzma.String()
	}

	if c.BlockSize == 0 {
		c.BlockSize = uniqueID.DefaultBlockSize
	}

	if c.BucketNumber == 0 {
		c.BucketNumber = uniqueID.DefaultBucketNumber
	}

	if c.Logger == nil {
		c.Logger = logrus.New()
	}

	if c.LogLevel != "" {
		level, err := logrus.ParseLevel(c.LogLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
		}
		c.Logger.SetLevel(level)
	}

	if c.Store.Logger == nil {
		c.Store.Logger = c.Logger
	}

	return nil
}
