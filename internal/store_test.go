package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/iksnae/vibe-context/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeFactory func(t *testing.T) Store

func storeBackends() map[string]storeFactory {
	return map[string]storeFactory{
		BackendFile: func(t *testing.T) Store {
			s, err := NewFileStore(testutil.CreateTempDir(t))
			require.NoError(t, err)
			return s
		},
		BackendSQLite: func(t *testing.T) Store {
			s, err := NewSQLiteStore(filepath.Join(testutil.CreateTempDir(t), "history.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func TestStore_RoundTrip(t *testing.T) {
	contents := []string{
		"",
		"plain ascii",
		"héllo wörld ✨ 日本語 🚀",
		"line one\nline two\ttabbed \"quoted\" \\ backslash",
		"   surrounding whitespace   ",
	}

	for name, open := range storeBackends() {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			for i, content := range contents {
				role := RoleUser
				if i%2 == 1 {
					role = RoleAssistant
				}
				msg, err := store.Append("round-trip", role, content)
				require.NoError(t, err)
				assert.Equal(t, content, msg.Content)
				assert.NotEmpty(t, msg.Timestamp)
			}

			history := store.Load("round-trip")
			require.Len(t, history, len(contents))
			for i, content := range contents {
				assert.Equal(t, content, history[i].Content, "message %d", i)
			}
			assert.Equal(t, RoleUser, history[0].Role)
			assert.Equal(t, RoleAssistant, history[1].Role)
		})
	}
}

func TestStore_UnknownSessionIsEmpty(t *testing.T) {
	for name, open := range storeBackends() {
		t.Run(name, func(t *testing.T) {
			history := open(t).Load("never-written")
			assert.NotNil(t, history)
			assert.Empty(t, history)
		})
	}
}

func TestStore_SessionsAreIndependent(t *testing.T) {
	for name, open := range storeBackends() {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			_, err := store.Append("a", RoleUser, "for a")
			require.NoError(t, err)
			_, err = store.Append("b", RoleUser, "for b")
			require.NoError(t, err)
			_, err = store.Append("a", RoleAssistant, "reply a")
			require.NoError(t, err)

			assert.Len(t, store.Load("a"), 2)
			assert.Len(t, store.Load("b"), 1)
			assert.Equal(t, "for b", store.Load("b")[0].Content)
		})
	}
}

func TestStore_SanitizedIDsShareHistory(t *testing.T) {
	for name, open := range storeBackends() {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			_, err := store.Append("proj/main branch", RoleUser, "first")
			require.NoError(t, err)
			_, err = store.Append("proj_main_branch", RoleAssistant, "second")
			require.NoError(t, err)

			assert.Len(t, store.Load("proj/main branch"), 2)
		})
	}
}

func TestStore_PersistsSystemRoleVerbatim(t *testing.T) {
	for name, open := range storeBackends() {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			_, err := store.Append("s", RoleSystem, "injected")
			require.NoError(t, err)
			assert.Equal(t, RoleSystem, store.Load("s")[0].Role)
		})
	}
}

func TestStore_List(t *testing.T) {
	for name, open := range storeBackends() {
		t.Run(name, func(t *testing.T) {
			store := open(t)

			entries, err := store.List()
			require.NoError(t, err)
			assert.Empty(t, entries)

			for i := 0; i < 3; i++ {
				_, err := store.Append("busy", RoleUser, fmt.Sprintf("m%d", i))
				require.NoError(t, err)
			}
			_, err = store.Append("quiet", RoleUser, "only")
			require.NoError(t, err)

			entries, err = store.List()
			require.NoError(t, err)
			require.Len(t, entries, 2)

			counts := map[string]int{}
			for _, e := range entries {
				counts[e.ID] = e.MessageCount
				assert.NotEmpty(t, e.File)
				assert.NotEmpty(t, e.UpdatedAt)
			}
			assert.Equal(t, map[string]int{"busy": 3, "quiet": 1}, counts)
		})
	}
}

func TestStore_ConcurrentAppendsSameSession(t *testing.T) {
	for name, open := range storeBackends() {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			const writers = 8

			var wg sync.WaitGroup
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, err := store.Append("shared", RoleUser, fmt.Sprintf("writer %d", i))
					assert.NoError(t, err)
				}(i)
			}
			wg.Wait()

			history := store.Load("shared")
			require.Len(t, history, writers)
			seen := map[string]bool{}
			for _, m := range history {
				seen[m.Content] = true
			}
			assert.Len(t, seen, writers)
		})
	}
}

func TestFileStore_Layout(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	_, err = store.Append("my session!", RoleUser, "hello")
	require.NoError(t, err)

	path := filepath.Join(dir, "my_session_.json")
	assert.Equal(t, path, store.SessionPath("my session!"))

	var onDisk []map[string]string
	testutil.JSONUnmarshal(t, mustRead(t, path), &onDisk)
	require.Len(t, onDisk, 1)
	assert.Equal(t, "user", onDisk[0]["role"])
	assert.Equal(t, "hello", onDisk[0]["content"])
	assert.NotEmpty(t, onDisk[0]["timestamp"])

	index, err := NewIndexManager(dir).Load()
	require.NoError(t, err)
	require.Len(t, index.Sessions, 1)
	assert.Equal(t, "my session!", index.Sessions[0].ID)
	assert.Equal(t, "my_session_.json", index.Sessions[0].File)
}

func TestFileStore_WritesCodeUnescaped(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	code := "if a < b && c > d {}"
	_, err = store.Append("code", RoleAssistant, code)
	require.NoError(t, err)

	raw := string(mustRead(t, store.SessionPath("code")))
	assert.Contains(t, raw, `"content": "if a < b && c > d {}"`)
	assert.NotContains(t, raw, `\u003c`)
	assert.NotContains(t, raw, `\u0026`)

	history := store.Load("code")
	require.Len(t, history, 1)
	assert.Equal(t, code, history[0].Content)
}

func TestFileStore_CorruptHistory(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: "{{{"},
		{name: "object instead of list", data: `{"role": "user"}`},
		{name: "list of scalars", data: `[1, 2, 3]`},
		{name: "truncated", data: `[{"role": "user", "content": "cut`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := testutil.CreateTempDir(t)
			testutil.WriteFile(t, dir, "broken.json", []byte(tt.data))
			store, err := NewFileStore(dir)
			require.NoError(t, err)

			assert.Empty(t, store.Load("broken"))

			// appending still works and starts a fresh history
			_, err = store.Append("broken", RoleUser, "start over")
			require.NoError(t, err)
			history := store.Load("broken")
			require.Len(t, history, 1)
			assert.Equal(t, "start over", history[0].Content)
		})
	}
}

func TestFileStore_CoercesOddValues(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	testutil.WriteFile(t, dir, "odd.json", []byte(`[
  {"role": "user", "content": 42, "timestamp": 1700000000},
  {"role": "assistant", "content": null},
  {"role": "user", "content": {"nested": true}}
]`))
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	history := store.Load("odd")
	require.Len(t, history, 3)
	assert.Equal(t, "42", history[0].Content)
	assert.Equal(t, "1700000000", history[0].Timestamp)
	assert.Equal(t, "", history[1].Content)
	assert.Equal(t, `{"nested": true}`, history[2].Content)
}

func TestFileStore_ReadsExistingHistoryFile(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	testutil.WriteFile(t, dir, "project-main.json", testutil.LoadFixture(t, "legacy_history.json"))
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	history := store.Load("project-main")
	require.Len(t, history, 4)
	assert.Equal(t, "Warum schlägt mein async Test fehl?", history[0].Content)
	assert.Contains(t, history[1].Content, "asyncio.run(main())")
	assert.Equal(t, "2025-05-01T10:15:00.123456", history[0].Timestamp)

	_, err = store.Append("project-main", RoleUser, "Noch eine Frage")
	require.NoError(t, err)

	var onDisk []map[string]string
	testutil.JSONUnmarshal(t, mustRead(t, store.SessionPath("project-main")), &onDisk)
	require.Len(t, onDisk, 5)
	assert.Equal(t, "2025-05-01T10:16:31.250000", onDisk[3]["timestamp"], "existing timestamps are kept verbatim")
	assert.Equal(t, "Noch eine Frage", onDisk[4]["content"])
}

func TestFileStore_ListRebuildsMissingIndex(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	_, err = store.Append("one", RoleUser, "x")
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "sessions.yaml")))

	entries, err := store.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "one", entries[0].ID)
	assert.FileExists(t, filepath.Join(dir, "sessions.yaml"))
}

func TestFileStore_EmptyDir(t *testing.T) {
	_, err := NewFileStore("")
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestFileStore_WriteFailure(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	// a directory where the session file should be makes the rename fail
	require.NoError(t, os.Mkdir(store.SessionPath("blocked"), 0755))

	_, err = store.Append("blocked", RoleUser, "x")
	var storageErr *StorageError
	assert.ErrorAs(t, err, &storageErr)
}

func TestOpenStore(t *testing.T) {
	dir := testutil.CreateTempDir(t)

	s, err := OpenStore(StoreConfig{HistoryDir: dir})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = OpenStore(StoreConfig{Backend: BackendSQLite, HistoryDir: dir})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	assert.Equal(t, filepath.Join(dir, "history.db"), s.(*SQLiteStore).Path())
	require.NoError(t, s.Close())

	_, err = OpenStore(StoreConfig{Backend: "redis", HistoryDir: dir})
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoadSession(t *testing.T) {
	store, err := NewFileStore(testutil.CreateTempDir(t))
	require.NoError(t, err)
	_, _ = store.Append("s", RoleUser, "a")
	_, _ = store.Append("s", RoleAssistant, "b")

	session := LoadSession(store, "s")
	assert.Equal(t, "s", session.ID)
	assert.Equal(t, 2, session.Info.MessageCount)
	assert.Equal(t, 1, TurnCount(session.Messages))
}

func mustRead(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}
