package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"slidecraft/backend/go/internal/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(&config.MySQLConfig{Address: "db:3306", Username: "u", Password: "p", Database: "decks"})
	assert.Equal(t, "u:p@tcp(db:3306)/decks?charset=utf8mb4&parseTime=True&loc=UTC&clientFoundRows=true", dsn)
}
