package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/DoyleJ11/dicee-room-backend/internal/engine"
	"github.com/DoyleJ11/dicee-room-backend/internal/scoring"
)

type RedisSnapshotStoreTestSuite struct {
	suite.Suite
	mr     *miniredis.Miniredis
	client *redis.Client
	store  SnapshotStore
}

func (s *RedisSnapshotStoreTestSuite) SetupTest() {
	mr, err := miniredis.Run()
	s.Require().NoError(err)
	s.mr = mr

	s.client = redis.NewClient(&redis.Options{Addr: s.mr.Addr()})

	store, err := NewRedisSnapshotStore(&Config{RedisClient: s.client})
	s.Require().NoError(err)
	s.store = store
}

func (s *RedisSnapshotStoreTestSuite) TearDownTest() {
	s.client.Close()
	s.mr.Close()
}

func TestRedisSnapshotStoreTestSuite(t *testing.T) {
	suite.Run(t, new(RedisSnapshotStoreTestSuite))
}

func (s *RedisSnapshotStoreTestSuite) TestSaveAndLoadRoundTrip() {
	state := engine.NewState("ABC123", engine.Config{MaxPlayers: 4, AllowSpectators: true})
	state.Seats[0].UserID = "alice"
	state.Seats[0].Scorecard = map[scoring.Category]int{scoring.Dicee: 50}
	state.HostID = "alice"
	state.Status = engine.StatusPlaying
	state.Turn.Number = 7

	s.Require().NoError(s.store.Save(context.Background(), "ABC123", state))

	loaded, err := s.store.Load(context.Background(), "ABC123")
	s.Require().NoError(err)
	s.Equal("ABC123", loaded.Code)
	s.Equal(engine.StatusPlaying, loaded.Status)
	s.Equal("alice", loaded.Seats[0].UserID)
	s.Equal(50, loaded.Seats[0].Scorecard[scoring.Dicee])
	s.Equal(7, loaded.Turn.Number)
}

func (s *RedisSnapshotStoreTestSuite) TestLoadMissingReturnsNotFound() {
	_, err := s.store.Load(context.Background(), "NOPE")
	s.Require().ErrorIs(err, ErrNotFound)
}

func (s *RedisSnapshotStoreTestSuite) TestDeleteRemovesSnapshot() {
	state := engine.NewState("GONE01", engine.Config{MaxPlayers: 2})
	s.Require().NoError(s.store.Save(context.Background(), "GONE01", state))
	s.Require().NoError(s.store.Delete(context.Background(), "GONE01"))

	_, err := s.store.Load(context.Background(), "GONE01")
	s.Require().ErrorIs(err, ErrNotFound)
}

func (s *RedisSnapshotStoreTestSuite) TestSaveOverwrites() {
	state := engine.NewState("OVR001", engine.Config{MaxPlayers: 2})
	s.Require().NoError(s.store.Save(context.Background(), "OVR001", state))

	state.Status = engine.StatusCompleted
	state.WinnerID = "bob"
	s.Require().NoError(s.store.Save(context.Background(), "OVR001", state))

	loaded, err := s.store.Load(context.Background(), "OVR001")
	s.Require().NoError(err)
	s.Equal(engine.StatusCompleted, loaded.Status)
	s.Equal("bob", loaded.WinnerID)
}
