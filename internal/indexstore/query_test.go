// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package indexstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTwoSessions(t *testing.T, s *Store) {
	t.Helper()

	sess1 := sampleSession("sess-a")
	sess1.Model = "claude-opus-4"
	sess1.TotalInputTokens = 100
	sess1.TotalOutputTokens = 50
	sess1.TotalCacheRead = 20
	sess1.TotalCacheCreate = 5
	require.NoError(t, s.ReplaceSession(sess1, []Message{
		{UUID: "a1", SessionID: "sess-a", Role: "user", ContentText: "please refactor the parser", Timestamp: "2026-01-01T00:00:00Z", SeqNum: 0},
		{UUID: "a2", SessionID: "sess-a", Role: "assistant", ContentText: "sure, looking at it now", Timestamp: "2026-01-01T00:01:00Z", SeqNum: 1},
	}, []ToolUse{
		{ToolUseID: "t1", SessionID: "sess-a", MessageUUID: "a2", ToolName: "Read", Timestamp: "2026-01-01T00:00:30Z"},
		{ToolUseID: "t2", SessionID: "sess-a", MessageUUID: "a2", ToolName: "Read", Timestamp: "2026-01-01T00:00:45Z"},
	}, nil))

	sess2 := sampleSession("sess-b")
	sess2.Model = "claude-sonnet-4"
	sess2.TotalInputTokens = 200
	sess2.TotalOutputTokens = 80
	sess2.LastMessage = "2026-01-01T00:10:00Z"
	sess2.MessageCount = 1
	sess2.AsstMsgCount = 0
	require.NoError(t, s.ReplaceSession(sess2, []Message{
		{UUID: "b1", SessionID: "sess-b", Role: "user", ContentText: "deploy the service", Timestamp: "2026-01-02T00:00:00Z", SeqNum: 0},
	}, []ToolUse{
		{ToolUseID: "t3", SessionID: "sess-b", MessageUUID: "b1", ToolName: "Bash", Timestamp: "2026-01-02T00:00:10Z"},
	}, nil))
}

func TestDashboard_AggregatesAcrossSessions(t *testing.T) {
	s := openTestStore(t)
	seedTwoSessions(t, s)

	stats, activity, err := s.Dashboard(10)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalSessions)
	assert.Equal(t, 3, stats.TotalMessages)
	assert.Equal(t, int64(300), stats.TotalInputTokens)
	assert.Equal(t, int64(130), stats.TotalOutputTokens)
	assert.Greater(t, stats.CacheHitRate, 0.0)
	require.Len(t, activity, 3)
	// newest first
	assert.Equal(t, "sess-b", activity[0].SessionID)
}

func TestListSessions_PaginatesAndFilters(t *testing.T) {
	s := openTestStore(t)
	seedTwoSessions(t, s)

	sessions, total, err := s.ListSessions("", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, sessions, 1)
	assert.Equal(t, "sess-b", sessions[0].SessionID) // last_message DESC: sess-b is newer

	sessions, total, err = s.ListSessions("", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, sessions, 1)
	assert.Equal(t, "sess-a", sessions[0].SessionID)

	sessions, total, err = s.ListSessions("/home/user/projects/my-project", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, sessions, 2)
}

func TestRecentToolActivity_NewestFirst(t *testing.T) {
	s := openTestStore(t)
	seedTwoSessions(t, s)

	rows, err := s.RecentToolActivity(10)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Bash", rows[0].ToolName)
	assert.Equal(t, "sess-b", rows[0].SessionID)
}

func TestStatsSince_AggregatesTokensForRange(t *testing.T) {
	s := openTestStore(t)
	seedTwoSessions(t, s)

	r, err := s.StatsSince("2026-01-02T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 0, r.SessionCount)

	r, err = s.StatsSince("2025-01-01T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 2, r.SessionCount)
	assert.Equal(t, int64(300), r.InputTokens)
}

func TestFileEventCounts_GroupsByPathAndType(t *testing.T) {
	s := openTestStore(t)
	sess := sampleSession("sess-a")
	require.NoError(t, s.ReplaceSession(sess, nil, nil, []FileEvent{
		{SessionID: "sess-a", FilePath: "main.go", EventType: "edit", Timestamp: "2026-01-01T00:00:00Z"},
		{SessionID: "sess-a", FilePath: "main.go", EventType: "edit", Timestamp: "2026-01-01T00:00:01Z"},
		{SessionID: "sess-a", FilePath: "main.go", EventType: "read", Timestamp: "2026-01-01T00:00:02Z"},
	}))

	rows, err := s.FileEventCounts("sess-a", 100)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "main.go", rows[0].FilePath)
	assert.Equal(t, "edit", rows[0].EventType)
	assert.Equal(t, 2, rows[0].Count)
}

func TestToolUsageBySession_CountsPerTool(t *testing.T) {
	s := openTestStore(t)
	seedTwoSessions(t, s)

	rows, err := s.ToolUsageBySession("sess-a")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Read", rows[0].ToolName)
	assert.Equal(t, 2, rows[0].Count)
}

func TestLastMessage(t *testing.T) {
	s := openTestStore(t)
	seedTwoSessions(t, s)

	m, ok, err := s.LastMessage("sess-a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a2", m.UUID)

	_, ok, err = s.LastMessage("no-such-session")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSearch_MatchesFTSContent(t *testing.T) {
	s := openTestStore(t)
	seedTwoSessions(t, s)

	results, err := s.Search("refactor", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "sess-a", results[0].SessionID)

	results, err = s.Search("deploy", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "sess-b", results[0].SessionID)

	results, err = s.Search("nonexistentword", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchFiltered_AppliesTimestampRange(t *testing.T) {
	s := openTestStore(t)
	seedTwoSessions(t, s)

	results, err := s.SearchFiltered("refactor", SearchFilter{After: "2026-01-02T00:00:00Z"}, 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = s.SearchFiltered("refactor", SearchFilter{After: "2025-12-01T00:00:00Z"}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a1", results[0].MessageUUID)
}

func TestTokenUsageByModel(t *testing.T) {
	s := openTestStore(t)
	seedTwoSessions(t, s)

	usage, err := s.TokenUsageByModel()
	require.NoError(t, err)
	require.Len(t, usage, 2)

	byModel := map[string]TokenAnalytics{}
	for _, u := range usage {
		byModel[u.Model] = u
	}
	assert.Equal(t, int64(100), byModel["claude-opus-4"].TotalInputTokens)
	assert.Equal(t, int64(200), byModel["claude-sonnet-4"].TotalInputTokens)
}

func TestToolUsage(t *testing.T) {
	s := openTestStore(t)
	seedTwoSessions(t, s)

	usage, err := s.ToolUsage()
	require.NoError(t, err)

	byTool := map[string]int{}
	for _, u := range usage {
		byTool[u.ToolName] = u.Count
	}
	assert.Equal(t, 2, byTool["Read"])
	assert.Equal(t, 1, byTool["Bash"])
}

func TestPushSubscriptionCRUD(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SavePushSubscription(PushSubscription{
		Endpoint:  "https://push.example/abc",
		P256dhKey: "key1",
		AuthKey:   "auth1",
		UserAgent: "test-agent",
	}))

	subs, err := s.ListPushSubscriptions()
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "key1", subs[0].P256dhKey)

	// Upsert by endpoint should update, not duplicate.
	require.NoError(t, s.SavePushSubscription(PushSubscription{
		Endpoint:  "https://push.example/abc",
		P256dhKey: "key2",
		AuthKey:   "auth2",
	}))
	subs, err = s.ListPushSubscriptions()
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "key2", subs[0].P256dhKey)

	require.NoError(t, s.DeletePushSubscription("https://push.example/abc"))
	subs, err = s.ListPushSubscriptions()
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestPushDeviceCRUD(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.RegisterPushDevice("device-token-1", "ios"))
	devices, err := s.ListPushDevices()
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "ios", devices[0].Platform)

	require.NoError(t, s.UnregisterPushDevice("device-token-1"))
	devices, err = s.ListPushDevices()
	require.NoError(t, err)
	assert.Empty(t, devices)
}
