package graph

import (
	"context"
	"errors"
	"testing"
)

func TestMockAPI_ScriptedResponsesInOrder(t *testing.T) {
	boom := errors.New("boom")
	m := NewMockAPI(
		MockResponse{Body: map[string]any{"value": []any{}}},
		MockResponse{Err: boom},
	)
	ctx := context.Background()

	var out struct {
		Value []testMessage `json:"value"`
	}
	if err := m.Call(ctx, "tok", MethodGet, "me/messages", nil, Params{{Key: "$top", Value: "1"}}, &out); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if err := m.Call(ctx, "tok", MethodGet, "me/messages", nil, nil, &out); !errors.Is(err, boom) {
		t.Fatalf("second call = %v, want boom", err)
	}
	if m.CallCount() != 2 {
		t.Errorf("CallCount() = %d, want 2", m.CallCount())
	}
	if v, _ := m.Calls[0].Params.Get("$top"); v != "1" {
		t.Errorf("recorded $top = %q", v)
	}
}

func TestMockAPI_Routes(t *testing.T) {
	m := NewMockAPI()
	m.Routes["GET me/messages/abc"] = MockResponse{Body: map[string]any{"id": "abc", "subject": "Hi"}}

	var out testMessage
	if err := m.Call(context.Background(), "tok", MethodGet, "me/messages/abc", nil, nil, &out); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if out.Subject != "Hi" {
		t.Errorf("subject = %q", out.Subject)
	}
	if m.LastCall().Path != "me/messages/abc" {
		t.Errorf("LastCall().Path = %q", m.LastCall().Path)
	}
}

func TestSimulatedAPI(t *testing.T) {
	m := NewSimulatedAPI()
	ctx := context.Background()

	var list struct {
		Value []testMessage `json:"value"`
	}
	if err := m.Call(ctx, "tok", MethodGet, "me/messages", nil, nil, &list); err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list.Value) != 3 || list.Value[0].ID != "simulated-email-1" {
		t.Errorf("simulated list = %+v", list.Value)
	}

	var folders struct {
		Value []struct {
			ID string `json:"id"`
		} `json:"value"`
	}
	filter := Params{{Key: "$filter", Value: "displayName eq 'sent items'"}}
	if err := m.Call(ctx, "tok", MethodGet, "me/mailFolders", nil, filter, &folders); err != nil {
		t.Fatalf("folders: %v", err)
	}
	if len(folders.Value) != 1 || folders.Value[0].ID != "sentItems" {
		t.Errorf("filtered folders = %+v", folders.Value)
	}

	var msg testMessage
	if err := m.Call(ctx, "tok", MethodGet, "me/messages/xyz", nil, nil, &msg); err != nil {
		t.Fatalf("get: %v", err)
	}
	if msg.ID != "xyz" {
		t.Errorf("simulated message id = %q, want xyz", msg.ID)
	}
}

func TestMockAPI_CancelledContext(t *testing.T) {
	m := NewMockAPI()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Call(ctx, "tok", MethodGet, "me", nil, nil, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Call() = %v, want context.Canceled", err)
	}
	if m.CallCount() != 0 {
		t.Error("cancelled call should not be recorded")
	}
}
