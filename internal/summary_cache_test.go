package internal

import (
	"testing"
)

func TestHashMessages(t *testing.T) {
	tests := []struct {
		name string
		a    []Message
		b    []Message
		same bool
	}{
		{
			name: "identical content",
			a:    []Message{{Role: RoleUser, Content: "Hello"}},
			b:    []Message{{Role: RoleUser, Content: "Hello"}},
			same: true,
		},
		{
			name: "timestamps ignored",
			a:    []Message{{Role: RoleUser, Content: "Hello", Timestamp: "2024-01-01T00:00:00Z"}},
			b:    []Message{{Role: RoleUser, Content: "Hello", Timestamp: "2025-06-01T00:00:00Z"}},
			same: true,
		},
		{
			name: "different role",
			a:    []Message{{Role: RoleUser, Content: "Hello"}},
			b:    []Message{{Role: RoleAssistant, Content: "Hello"}},
			same: false,
		},
		{
			name: "boundary shift",
			a:    []Message{{Role: RoleUser, Content: "ab"}, {Role: RoleUser, Content: "c"}},
			b:    []Message{{Role: RoleUser, Content: "a"}, {Role: RoleUser, Content: "bc"}},
			same: false,
		},
		{
			name: "order matters",
			a:    []Message{{Role: RoleUser, Content: "1"}, {Role: RoleAssistant, Content: "2"}},
			b:    []Message{{Role: RoleAssistant, Content: "2"}, {Role: RoleUser, Content: "1"}},
			same: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HashMessages(tt.a) == HashMessages(tt.b)
			if got != tt.same {
				t.Errorf("HashMessages equal = %v, want %v", got, tt.same)
			}
		})
	}
}

func TestSummaryCache_GetPut(t *testing.T) {
	c := NewSummaryCache(2)

	if _, ok := c.Get("missing"); ok {
		t.Error("Get() on empty cache should miss")
	}

	c.Put("a", "summary a")
	c.Put("b", "summary b")
	if got, ok := c.Get("a"); !ok || got != "summary a" {
		t.Errorf("Get(a) = %q, %v", got, ok)
	}

	// "b" is now least recently used
	c.Put("c", "summary c")
	if _, ok := c.Get("b"); ok {
		t.Error("Get(b) should miss after eviction")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}

	c.Put("a", "summary a2")
	if got, _ := c.Get("a"); got != "summary a2" {
		t.Errorf("Get(a) after overwrite = %q", got)
	}
}

func TestNewSummaryCache_DefaultCapacity(t *testing.T) {
	c := NewSummaryCache(0)
	if c.capacity != DefaultSummaryCacheSize {
		t.Errorf("capacity = %d, want %d", c.capacity, DefaultSummaryCacheSize)
	}
}
