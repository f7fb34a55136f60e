package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDB_placeholders(t *testing.T) {
	tests := []struct {
		engine string
		want   string
	}{
		{engine: EnginePostgres, want: "SELECT id FROM event WHERE id = $1 AND type = $2"},
		{engine: EngineSqlite, want: "SELECT id FROM event WHERE id = ? AND type = ?"},
	}
	for _, tt := range tests {
		t.Run(tt.engine, func(t *testing.T) {
			db := newDB(nil, tt.engine)
			query, args, err := db.Builder.Select("id").From("event").Where("id = ? AND type = ?", "1", "workshop").ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.want, query)
			assert.Equal(t, []interface{}{"1", "workshop"}, args)
		})
	}
}
