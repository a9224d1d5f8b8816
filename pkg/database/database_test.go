package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialector(t *testing.T) {
	tests := []struct {
		url  string
		name string
	}{
		{"postgres://u:p@localhost:5432/regenai?sslmode=disable", "postgres"},
		{"postgresql://u:p@localhost/regenai", "postgres"},
		{"mysql://u:p@tcp(localhost:3306)/regenai?parseTime=true", "mysql"},
		{"sqlite://file::memory:", "sqlite"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Dialector(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.name, d.Name())
		})
	}

	t.Run("unknown scheme hides password", func(t *testing.T) {
		_, err := Dialector("mssql://sa:topsecret@db/regenai")
		require.ErrorIs(t, err, ErrUnsupportedURL)
		assert.NotContains(t, err.Error(), "topsecret")
	})
}

func TestOpenSQLiteMemory(t *testing.T) {
	db, err := Open("sqlite://file::memory:", false)
	require.NoError(t, err)
	defer Close(db)

	var one int
	require.NoError(t, db.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)
}
