package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jknair0/beforeeach"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maimai/spacetarot"
)

var (
	mockDB *sql.DB
	mock   sqlmock.Sqlmock
)

func setUp() {
	mockDB, mock, _ = sqlmock.New()
}

func tearDown() {
	mockDB.Close()
}

var it = beforeeach.Create(setUp, tearDown)

func ana() tarot.Submission {
	return tarot.Submission{
		Name:          "Ana",
		BirthDate:     "1990-04-12",
		FavoriteColor: "azul",
		SpiritAnimal:  "lobo",
		Mood:          "triste pero esperanzada",
		Email:         "a@x.com",
	}
}

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "data", "user_data.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Initialize(context.Background()))
	return s
}

func readAll(t *testing.T, s *Store) []tarot.Submission {
	t.Helper()
	rows, err := s.db.Query(`SELECT name, birth_date, favorite_color, spirit_animal, mood, email FROM users`)
	require.NoError(t, err)
	defer rows.Close()

	var out []tarot.Submission
	for rows.Next() {
		var sub tarot.Submission
		require.NoError(t, rows.Scan(&sub.Name, &sub.BirthDate, &sub.FavoriteColor, &sub.SpiritAnimal, &sub.Mood, &sub.Email))
		out = append(out, sub)
	}
	require.NoError(t, rows.Err())
	return out
}

func TestAppend_RoundTrip(t *testing.T) {
	s := openTemp(t)

	subs := []tarot.Submission{
		ana(),
		{Name: "José Ñandú", BirthDate: "1970-01-01", FavoriteColor: "verde 💚", SpiritAnimal: "búho", Mood: "¡feliz!\nmuy feliz", Email: "jose@example.com"},
		{Name: "Robert'); DROP TABLE users;--", BirthDate: "2000-12-31", FavoriteColor: "rojo", SpiritAnimal: "gato", Mood: "ok", Email: "r@x.com"},
	}
	for _, sub := range subs {
		require.NoError(t, s.Append(context.Background(), sub))
	}

	assert.Equal(t, subs, readAll(t, s))
}

func TestAppend_AllowsDuplicates(t *testing.T) {
	s := openTemp(t)

	require.NoError(t, s.Append(context.Background(), ana()))
	require.NoError(t, s.Append(context.Background(), ana()))

	assert.Len(t, readAll(t, s), 2)
}

func TestInitialize_Idempotent(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Append(context.Background(), ana()))

	require.NoError(t, s.Initialize(context.Background()))
	require.NoError(t, s.Initialize(context.Background()))

	var columns []string
	rows, err := s.db.Query(`SELECT name FROM pragma_table_info('users')`)
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var c string
		require.NoError(t, rows.Scan(&c))
		columns = append(columns, c)
	}
	assert.Equal(t, []string{"name", "birth_date", "favorite_color", "spirit_animal", "mood", "email"}, columns)
	assert.Len(t, readAll(t, s), 1)
}

func TestStore_Mocked(t *testing.T) {
	it(func() {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").
			WillReturnResult(sqlmock.NewResult(0, 0))
		require.NoError(t, New(mockDB).Initialize(context.Background()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	it(func() {
		sub := ana()
		mock.ExpectExec("INSERT INTO users \\(name, birth_date, favorite_color, spirit_animal, mood, email\\) VALUES \\(\\?, \\?, \\?, \\?, \\?, \\?\\)").
			WithArgs(sub.Name, sub.BirthDate, sub.FavoriteColor, sub.SpiritAnimal, sub.Mood, sub.Email).
			WillReturnResult(sqlmock.NewResult(1, 1))
		require.NoError(t, New(mockDB).Append(context.Background(), sub))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	it(func() {
		mock.ExpectExec("INSERT INTO users").
			WillReturnError(errors.New("disk I/O error"))
		err := New(mockDB).Append(context.Background(), ana())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to insert user")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	it(func() {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").
			WillReturnError(errors.New("database is locked"))
		err := New(mockDB).Initialize(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create users table")
	})
}
