package database

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func openPostgres(cfg Config) (*gorm.DB, error) {
	dsn, err := buildPostgresDSN(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(postgres.Open(dsn), gormConfig(cfg))
}

func buildPostgresDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if cfg.User == "" || cfg.Name == "" {
		return "", errors.New("postgres configuration requires user and database name")
	}

	params := []string{
		"host=" + valueOr(cfg.Host, "localhost"),
		fmt.Sprintf("port=%d", portOr(cfg.Port, 5432)),
		"user=" + cfg.User,
		"dbname=" + cfg.Name,
	}
	if cfg.Password != "" {
		params = append(params, "password="+cfg.Password)
	}

	options := mergeOptions(map[string]string{"sslmode": "disable"}, cfg.Options)
	for _, key := range sortedKeys(options) {
		params = append(params, key+"="+options[key])
	}

	return strings.Join(params, " "), nil
}
