package database

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func openMySQL(cfg Config) (*gorm.DB, error) {
	dsn, err := buildMySQLDSN(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(mysql.Open(dsn), gormConfig(cfg))
}

func buildMySQLDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if cfg.User == "" || cfg.Name == "" {
		return "", errors.New("mysql configuration requires user and database name")
	}

	user := cfg.User
	if cfg.Password != "" {
		user = cfg.User + ":" + cfg.Password
	}

	options := mergeOptions(map[string]string{
		"charset":   "utf8mb4",
		"parseTime": "True",
		"loc":       "Local",
	}, cfg.Options)

	pairs := make([]string, 0, len(options))
	for _, key := range sortedKeys(options) {
		pairs = append(pairs, key+"="+options[key])
	}

	host := valueOr(cfg.Host, "127.0.0.1")
	return fmt.Sprintf("%s@tcp(%s:%d)/%s?%s", user, host, portOr(cfg.Port, 3306), cfg.Name, strings.Join(pairs, "&")), nil
}

func mergeOptions(base, overrides map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(overrides))
	for key, value := range base {
		out[key] = value
	}
	for key, value := range overrides {
		out[key] = value
	}
	return out
}

func sortedKeys(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func portOr(port, fallback int) int {
	if port <= 0 {
		return fallback
	}
	return port
}
