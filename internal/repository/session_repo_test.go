package repository

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/calldojo/calldojo-api/internal/models"
)

func newSession(id, student, batch string) *models.CallSession {
	session := models.NewCallSession(id, "training", "opening", time.Now().UTC().Truncate(time.Second))
	if student != "" {
		session.StudentInfo = &models.StudentInfo{Name: student, BatchID: batch}
	}
	return session
}

func repositories(t *testing.T) map[string]SessionRepository {
	t.Helper()

	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]SessionRepository{
		"redis":  NewRedisSessionRepository(client, time.Hour, zerolog.Nop()),
		"memory": NewMemorySessionRepository(),
	}
}

func TestSessionRepositoryRoundTrip(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			session := newSession("s1", "Alice", "batch-7")
			session.AppendTurn(models.ConversationTurn{
				ID:        "t1",
				Timestamp: time.Now().UTC().Truncate(time.Second),
				Speaker:   models.SpeakerUser,
				Text:      "Good morning!",
				NodeID:    "opening",
			})
			session.MoveToNode("rapport")

			require.NoError(t, repo.Save(ctx, session))

			loaded, err := repo.Get(ctx, "s1")
			require.NoError(t, err)
			require.Equal(t, session.ID, loaded.ID)
			require.Equal(t, []string{"opening", "rapport"}, loaded.NodePathTraversed)
			require.Equal(t, "rapport", loaded.CurrentNodeID)
			require.Len(t, loaded.Turns, 1)
			require.Equal(t, "Good morning!", loaded.Turns[0].Text)
			require.Equal(t, "Alice", loaded.StudentInfo.Name)
		})
	}
}

func TestSessionRepositoryGetMissing(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			_, err := repo.Get(context.Background(), "missing")
			require.ErrorIs(t, err, ErrSessionNotFound)
		})
	}
}

func TestSessionRepositoryDelete(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.Save(ctx, newSession("s2", "", "")))
			require.NoError(t, repo.Delete(ctx, "s2"))

			_, err := repo.Get(ctx, "s2")
			require.ErrorIs(t, err, ErrSessionNotFound)

			require.ErrorIs(t, repo.Delete(ctx, "s2"), ErrSessionNotFound)
		})
	}
}

func TestSessionRepositoryListByStudent(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.Save(ctx, newSession("s3", "Alice", "batch-7")))
			require.NoError(t, repo.Save(ctx, newSession("s4", "Bob", "batch-9")))
			require.NoError(t, repo.Save(ctx, newSession("s5", "", "")))

			all, err := repo.List(ctx)
			require.NoError(t, err)
			require.Len(t, all, 3)

			byName, err := repo.ListByStudent(ctx, "Alice")
			require.NoError(t, err)
			require.Len(t, byName, 1)
			require.Equal(t, "s3", byName[0].ID)

			// Batch id works as a student selector too.
			byBatch, err := repo.ListByStudent(ctx, "batch-9")
			require.NoError(t, err)
			require.Len(t, byBatch, 1)
			require.Equal(t, "s4", byBatch[0].ID)
		})
	}
}

func TestMemoryRepositoryReturnsSnapshots(t *testing.T) {
	repo := NewMemorySessionRepository()
	ctx := context.Background()

	session := newSession("s6", "Alice", "batch-7")
	require.NoError(t, repo.Save(ctx, session))

	first, err := repo.Get(ctx, "s6")
	require.NoError(t, err)
	first.MoveToNode("rapport")

	second, err := repo.Get(ctx, "s6")
	require.NoError(t, err)
	require.Equal(t, []string{"opening"}, second.NodePathTraversed)
	require.Equal(t, "opening", second.CurrentNodeID)
}
