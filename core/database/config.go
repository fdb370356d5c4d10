// Package database owns the journal's Postgres connection and migrations.
package database

import (
	"fmt"
	"net/url"
)

// Config holds connection settings for the request journal database.
type Config struct {
	Host           string `yaml:"host" envconfig:"JOURNAL_DB_HOST"`
	Port           int    `yaml:"port" envconfig:"JOURNAL_DB_PORT"`
	User           string `yaml:"user" envconfig:"JOURNAL_DB_USER"`
	Password       string `yaml:"password" envconfig:"JOURNAL_DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"JOURNAL_DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"JOURNAL_DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"JOURNAL_DB_MAX_CONNECTIONS"`
}

// URL renders the config as a postgres:// connection string, accepted both
// by lib/pq and by golang-migrate.
func (c Config) URL() string {
	port := c.Port
	if port == 0 {
		port = 5432
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, port),
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + sslmode,
	}
	return u.String()
}
