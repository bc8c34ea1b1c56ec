package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/isdelr/impact-be/internal/database"
	"github.com/isdelr/impact-be/internal/models"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "impact.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func createUser(t *testing.T, db *sql.DB, name, role string) models.User {
	t.Helper()
	user, err := NewUserService(db).CreateUser(context.Background(), name, name+"@example.org", "password123", role)
	require.NoError(t, err)
	return user
}

func giveCoins(t *testing.T, db *sql.DB, userID string, amount int) {
	t.Helper()
	_, err := NewCoinService(db).Credit(context.Background(), userID, amount, models.CoinBonus, "test grant", "")
	require.NoError(t, err)
}

type published struct {
	Topic   string
	Action  string
	Payload interface{}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []published
}

func (n *recordingNotifier) Publish(topic, action string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, published{Topic: topic, Action: action, Payload: payload})
}

func (n *recordingNotifier) actions() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, e := range n.events {
		out = append(out, e.Topic+"/"+e.Action)
	}
	return out
}
