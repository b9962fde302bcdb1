package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMessageBuilder(t *testing.T) {
	msg := NewMessage("m1").
		WithSubject("Invoice").
		WithFrom("Alice", "alice@example.com").
		WithReceived(time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)).
		Unread().
		WithAttachments().
		Build()

	data, err := json.Marshal(msg)
	MustNoErr(t, err, "marshal")

	var got struct {
		ID       string `json:"id"`
		Subject  string `json:"subject"`
		Received string `json:"receivedDateTime"`
		IsRead   bool   `json:"isRead"`
		HasAtt   bool   `json:"hasAttachments"`
		From     struct {
			EmailAddress struct {
				Name    string `json:"name"`
				Address string `json:"address"`
			} `json:"emailAddress"`
		} `json:"from"`
	}
	MustNoErr(t, json.Unmarshal(data, &got), "unmarshal")

	if got.ID != "m1" || got.Subject != "Invoice" || got.IsRead || !got.HasAtt {
		t.Errorf("message = %+v", got)
	}
	if got.Received != "2024-03-01T09:30:00Z" {
		t.Errorf("receivedDateTime = %q", got.Received)
	}
	if got.From.EmailAddress.Address != "alice@example.com" {
		t.Errorf("from = %+v", got.From)
	}
}

func TestMessageBuilder_BuildCopies(t *testing.T) {
	b := NewMessage("m1")
	first := b.Build()
	b.WithSubject("changed")
	if first["subject"] != "Subject m1" {
		t.Errorf("Build result shares state with builder: %v", first["subject"])
	}
}

func TestMessageBuilder_WithoutFrom(t *testing.T) {
	msg := NewMessage("m1").WithoutFrom().Build()
	if _, ok := msg["from"]; ok {
		t.Error("from should be absent")
	}
}

func TestPage(t *testing.T) {
	page := Page(NewMessage("a").Build(), NewMessage("b").Build())
	value, ok := page["value"].([]any)
	if !ok || len(value) != 2 {
		t.Fatalf("value = %#v", page["value"])
	}
	empty := Page()
	if v := empty["value"].([]any); len(v) != 0 {
		t.Errorf("empty page value = %v", v)
	}
}

func TestAssertStrings(t *testing.T) {
	AssertStrings(t, []string{"a", "b"}, "a", "b")
	AssertContainsAll(t, "hello world", []string{"hello", "world"})
	AssertValidUTF8(t, "héllo")
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := WriteFile(t, dir, filepath.Join("nested", "tokens.json"), "{}", 0o600)

	if want := filepath.Join(dir, "nested", "tokens.json"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	data, err := os.ReadFile(path)
	MustNoErr(t, err, "read back")
	if string(data) != "{}" {
		t.Errorf("content = %q", data)
	}
	AssertPerm(t, path, 0o600)
	MustNotExist(t, filepath.Join(dir, "missing"))
}
