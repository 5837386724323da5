package postgres

import (
	"converter-service/pkg/config"
	"net"
	"net/url"
)

func BuildDSN(cfg config.Config) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.Postgres.User, cfg.Postgres.Password),
		Host:     net.JoinHostPort(cfg.Postgres.Host, cfg.Postgres.Port),
		Path:     "/" + cfg.Postgres.DBName,
		RawQuery: url.Values{"sslmode": []string{cfg.Postgres.SSLMode}}.Encode(),
	}
	return u.String()
}
