package storage

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"taskboard-api/domain"
)

func TestTaskEntityRoundTrip(t *testing.T) {
	ent := taskEntity{
		Entity:        aztables.Entity{PartitionKey: "u-alice", RowKey: "t-1"},
		Title:         "write report",
		Description:   "first draft",
		Status:        domain.StatusTodo,
		Priority:      domain.PriorityMedium,
		CreatedAt:     1700000000000,
		CreatedAtType: edmInt64,
		UpdatedAt:     1700000000001,
		UpdatedAtType: edmInt64,
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded taskEntity
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	task := decoded.toDomain()
	if task.ID != "t-1" || task.AssigneeID != "u-alice" {
		t.Fatalf("keys not mapped: %#v", task)
	}
	if task.Title != "write report" || task.Status != domain.StatusTodo || task.Priority != domain.PriorityMedium {
		t.Fatalf("fields not mapped: %#v", task)
	}
	if task.CreatedAt != 1700000000000 || task.UpdatedAt != 1700000000001 {
		t.Fatalf("timestamps not mapped: %#v", task)
	}
}

func TestODataStringEscapesQuotes(t *testing.T) {
	cases := map[string]struct {
		in   string
		want string
	}{
		"plain_id":   {"t-1", "'t-1'"},
		"uuid":       {"7b0d3f6e-9a1c-4c55-8f1e-2d4b6a8c0e12", "'7b0d3f6e-9a1c-4c55-8f1e-2d4b6a8c0e12'"},
		"lone_quote": {"'", "''''"},
		"injection":  {"x' or PartitionKey eq 'u-victim", "'x'' or PartitionKey eq ''u-victim'"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got := odataString(tc.in)
			if got != tc.want {
				t.Fatalf("odataString(%q) = %q, want %q", tc.in, got, tc.want)
			}
			// The literal must stay balanced: anything an id contributes sits
			// inside quotes, never alongside them as a new predicate.
			if strings.Count(got, "'")%2 != 0 {
				t.Fatalf("odataString(%q) = %q has unbalanced quotes", tc.in, got)
			}
		})
	}
}

func TestUserEntityRoundTrip(t *testing.T) {
	ent := userEntity{
		Entity:        aztables.Entity{PartitionKey: userPartition, RowKey: "alice@example.com"},
		ID:            "u-alice",
		Name:          "Alice",
		Role:          domain.RoleUser,
		PasswordHash:  "$2a$10$digest",
		CreatedAt:     1700000000000,
		CreatedAtType: edmInt64,
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded userEntity
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.RowKey != "alice@example.com" || decoded.ID != "u-alice" {
		t.Fatalf("keys not mapped: %#v", decoded)
	}
	if decoded.PasswordHash != "$2a$10$digest" || decoded.CreatedAt != 1700000000000 {
		t.Fatalf("fields not mapped: %#v", decoded)
	}
}
