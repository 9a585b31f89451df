package keyValStore

import (
	"errors"
	"os"

	"github.com/shirou/gopsutil/disk"
	"github.com/sirupsen/logrus"
)

type StoreType string

const (
	BadgerStore  StoreType = "badger"
	LevelDBStore StoreType = "leveldb"
	RedisStore   StoreType = "redis"
)

type StoreConfig struct {
	Type             StoreType      `yaml:"type"`
	Paths            []string       `yaml:"paths"`            // absolute path at the moment only first path is supported
	InMemory         bool           `yaml:"inMemory"`         // badger and leveldb only, nothing is written to Paths
	MinimumFreeSpace int            `yaml:"minimumFreeSpace"` // in GB
	RedisAddr        string         `yaml:"redisAddr"`
	RedisKeyPrefix   string         `yaml:"redisKeyPrefix"`
	MemCacheSize     int64          `yaml:"memCacheSize"` // in bytes, 0 disables the record cache
	MemTableSize     int64          `yaml:"memTableSize"` // badger only, in bytes; a transaction may hold about 15% of it
	Logger           *logrus.Logger `yaml:"-"`
}

func (sc *StoreConfig) isLocal() bool {
	return sc.Type != RedisStore && !sc.InMemory
}

func (sc *StoreConfig) checkConfig(create bool) error {
	if sc.Type == "" {
		sc.Type = BadgerStore
	}

	if sc.Type == RedisStore {
		if sc.RedisAddr == "" {
			return errors.New("no redis address provided in configuration")
		}
		return nil
	}

	if sc.InMemory {
		return nil
	}

	if len(sc.Paths) == 0 {
		return errors.New("no path provided in configuration")
	}

	path := sc.Paths[0] // Currently only the first path is utilized
	if create {
		if err := os.MkdirAll(path, 0o700); err != nil {
			return err
		}
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return errors.New("path does not exist")
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.New("path is not a directory")
	}

	usage, err := disk.Usage(path)
	if err != nil {
		return err
	}

	availableSpaceInGB := usage.Free / (1024 * 1024 * 1024)
	if int(availableSpaceInGB) < sc.MinimumFreeSpace {
		return errors.New("not enough space available on disk")
	}

	return nil
}
