package db

import (
	"context"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteDSN(t *testing.T) {
	for _, tc := range []struct{ in, want string }{
		{in: ":memory:", want: ":memory:?_foreign_keys=on"},
		{in: "file:app.db?cache=shared", want: "file:app.db?cache=shared&_foreign_keys=on"},
		{in: "app.db?_foreign_keys=off", want: "app.db?_foreign_keys=off"},
		{in: "app.db?_fk=1", want: "app.db?_fk=1"},
		{in: "/var/lib/mindfuleat/app.db", want: "/var/lib/mindfuleat/app.db?_foreign_keys=on"},
	} {
		assert.Equal(t, tc.want, SQLiteDSN(tc.in), tc.in)
	}
}

func TestOpenEnforcesForeignKeysOnEveryConnection(t *testing.T) {
	ctx := context.Background()
	conn, err := Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer conn.Close()

	// Recycled connections are opened from the same DSN.
	conn.SetMaxIdleConns(0)
	var on int
	require.NoError(t, conn.GetContext(ctx, &on, "PRAGMA foreign_keys"))
	assert.Equal(t, 1, on)
	require.NoError(t, conn.GetContext(ctx, &on, "PRAGMA foreign_keys"))
	assert.Equal(t, 1, on)
}

func TestMigratedSchemaRejectsOrphanRows(t *testing.T) {
	ctx := context.Background()
	conn, err := Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, RunMigrations(ctx, conn))

	_, err = conn.ExecContext(ctx, `INSERT INTO user_goals (user_id, local_date, goal_text, created_at, updated_at)
        VALUES (42, '2025-03-14', 'eat slowly', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FOREIGN KEY")

	res, err := conn.ExecContext(ctx, `INSERT INTO users (email, password_hash) VALUES ('a@example.com', 'hash')`)
	require.NoError(t, err)
	userID, err := res.LastInsertId()
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, `INSERT INTO user_goals (user_id, local_date, goal_text, created_at, updated_at)
        VALUES (?, '2025-03-14', 'eat slowly', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`, userID)
	require.NoError(t, err)

	_, err = conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	require.NoError(t, err)
	var goals int
	require.NoError(t, conn.GetContext(ctx, &goals, `SELECT COUNT(*) FROM user_goals`))
	assert.Zero(t, goals, "goals cascade with their user")
}
