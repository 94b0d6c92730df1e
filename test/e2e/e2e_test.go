//go:build e2e

package e2e

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type conversationData struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
}

type turnData struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type chatData struct {
	Response string   `json:"response"`
	Source   string   `json:"source"`
	Score    *float64 `json:"score,omitempty"`
}

type recordData struct {
	ID       string `json:"id"`
	Domain   string `json:"domain"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Embedded bool   `json:"embedded"`
}

type importData struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

type pageData struct {
	Items   []conversationData `json:"items"`
	Cursor  string             `json:"cursor,omitempty"`
	HasMore bool               `json:"has_more"`
}

func startConversation(t *testing.T, env *E2ETestEnv, title string) conversationData {
	resp, err := env.Post("/conversations", map[string]string{"title": title})
	require.NoError(t, err)

	var c conversationData
	require.NoError(t, json.Unmarshal(resp.Data, &c))
	require.NotEmpty(t, c.ID)
	return c
}

func TestE2E_ConversationFlow(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	c := startConversation(t, env, "Small talk")
	assert.Equal(t, "Small talk", c.Title)

	// Without a domain the stub generation backend answers
	resp, err := env.Post("/conversations/"+c.ID+"/chat", map[string]interface{}{
		"message": "hello there",
	})
	require.NoError(t, err)

	var chat chatData
	require.NoError(t, json.Unmarshal(resp.Data, &chat))
	assert.Equal(t, "stub reply", chat.Response)
	assert.Equal(t, "llm", chat.Source)
	assert.Nil(t, chat.Score)

	resp, err = env.Post("/conversations/"+c.ID+"/chat", map[string]interface{}{
		"message": "how are you",
	})
	require.NoError(t, err)

	// History is chronological and interleaves user and bot turns
	resp, err = env.Get("/conversations/" + c.ID + "/history")
	require.NoError(t, err)

	var turns []turnData
	require.NoError(t, json.Unmarshal(resp.Data, &turns))
	require.Len(t, turns, 4)
	assert.Equal(t, "user", turns[0].Role)
	assert.Equal(t, "hello there", turns[0].Content)
	assert.Equal(t, "bot", turns[1].Role)
	assert.Equal(t, "user", turns[2].Role)
	assert.Equal(t, "how are you", turns[2].Content)
	assert.Equal(t, "bot", turns[3].Role)
	for i := 1; i < len(turns); i++ {
		assert.GreaterOrEqual(t, turns[i].Timestamp, turns[i-1].Timestamp)
	}
}

func TestE2E_DomainMatching(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	resp, err := env.Post("/domains/records", map[string]string{
		"domain":   "support",
		"question": "how do I reset my password",
		"answer":   "use the forgot password link on the login page",
	})
	require.NoError(t, err)

	var record recordData
	require.NoError(t, json.Unmarshal(resp.Data, &record))
	assert.True(t, record.Embedded)

	c := startConversation(t, env, "Support chat")

	// The exact stored question must match with full confidence
	resp, err = env.Post("/conversations/"+c.ID+"/chat", map[string]interface{}{
		"message":    "how do I reset my password",
		"domain":     "support",
		"use_domain": true,
	})
	require.NoError(t, err)

	var chat chatData
	require.NoError(t, json.Unmarshal(resp.Data, &chat))
	assert.Equal(t, "use the forgot password link on the login page", chat.Response)
	assert.Equal(t, "domain", chat.Source)
	require.NotNil(t, chat.Score)
	assert.InDelta(t, 1.0, *chat.Score, 1e-6)

	// An unrelated question falls through to generation
	resp, err = env.Post("/conversations/"+c.ID+"/chat", map[string]interface{}{
		"message":    "completely unrelated gibberish zzz",
		"domain":     "support",
		"use_domain": true,
	})
	require.NoError(t, err)

	require.NoError(t, json.Unmarshal(resp.Data, &chat))
	assert.Equal(t, "stub reply", chat.Response)
	assert.Equal(t, "llm", chat.Source)

	// Both exchanges landed in the match log
	var logged int
	require.NoError(t, env.Pool.QueryRow(env.Ctx,
		"SELECT COUNT(*) FROM match_logs WHERE domain = 'support'").Scan(&logged))
	assert.Equal(t, 2, logged)
}

func TestE2E_CSVImport(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	csv := "question,answer\n" +
		"what are your opening hours,we are open 9 to 5\n" +
		"where are you located,main street 1\n" +
		"malformed row\n"

	resp, err := env.PostCSV("/domains/faq/import", csv)
	require.NoError(t, err)

	var result importData
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 1, result.Skipped)

	resp, err = env.Get("/domains/faq/records")
	require.NoError(t, err)

	var records []recordData
	require.NoError(t, json.Unmarshal(resp.Data, &records))
	require.Len(t, records, 2)
	assert.Equal(t, "what are your opening hours", records[0].Question)

	// Imported records are immediately matchable
	c := startConversation(t, env, "FAQ")
	resp, err = env.Post("/conversations/"+c.ID+"/chat", map[string]interface{}{
		"message":    "what are your opening hours",
		"domain":     "faq",
		"use_domain": true,
	})
	require.NoError(t, err)

	var chat chatData
	require.NoError(t, json.Unmarshal(resp.Data, &chat))
	assert.Equal(t, "we are open 9 to 5", chat.Response)
	assert.Equal(t, "domain", chat.Source)
}

func TestE2E_UnknownConversation(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	_, err := env.Post("/conversations/00000000-0000-0000-0000-000000000000/chat", map[string]interface{}{
		"message": "anyone home",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")

	_, err = env.Get("/conversations/00000000-0000-0000-0000-000000000000/history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
}

func TestE2E_ListConversations(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	for i := 0; i < 3; i++ {
		startConversation(t, env, "Conversation")
	}

	resp, err := env.Get("/conversations?limit=2")
	require.NoError(t, err)

	var page pageData
	require.NoError(t, json.Unmarshal(resp.Data, &page))
	assert.Len(t, page.Items, 2)
	assert.True(t, page.HasMore)
	require.NotEmpty(t, page.Cursor)

	resp, err = env.Get("/conversations?limit=2&cursor=" + page.Cursor)
	require.NoError(t, err)

	require.NoError(t, json.Unmarshal(resp.Data, &page))
	assert.Len(t, page.Items, 1)
	assert.False(t, page.HasMore)
}

func TestE2E_CLI(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.BuildBinaries()

	workDir := t.TempDir()

	out, err := env.RunParley(workDir, "start", "CLI", "session")
	require.NoError(t, err, out)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	conversationID := lines[len(lines)-1]
	require.NotEmpty(t, conversationID)

	out, err = env.RunParley(workDir, "chat", conversationID, "hello", "from", "the", "cli")
	require.NoError(t, err, out)
	assert.Contains(t, out, "stub reply")

	out, err = env.RunParley(workDir, "history", conversationID)
	require.NoError(t, err, out)
	assert.Contains(t, out, "user: hello from the cli")
	assert.Contains(t, out, "bot: stub reply")

	out, err = env.RunParley(workDir, "list")
	require.NoError(t, err, out)
	assert.Contains(t, out, conversationID)
}
