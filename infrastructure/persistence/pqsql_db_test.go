package persistence

import (
	"testing"

	"github.com/stretchr/testify/require"

	"social-publisher/infrastructure/configuration"
)

func TestPostgresDSN(t *testing.T) {
	dsn := postgresDSN(configuration.Db{
		Host:     "localhost",
		Port:     "5432",
		User:     "publisher",
		Password: "secret",
		Name:     "social_publisher",
	})

	require.Equal(t, "host=localhost port=5432 user=publisher password=secret dbname=social_publisher sslmode=disable", dsn)
}

func TestPostgresDSN_EmptyFieldsStayEmpty(t *testing.T) {
	dsn := postgresDSN(configuration.Db{Host: "db", Port: "5432"})

	require.Equal(t, "host=db port=5432 user= password= dbname= sslmode=disable", dsn)
}
