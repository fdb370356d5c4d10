package notify

import (
	"context"
	"errors"
	"testing"
)

type fakeSender struct {
	sent    []int64
	failFor map[int64]error
}

func (f *fakeSender) SendTo(ctx context.Context, recipientID int64, text string) error {
	if err, ok := f.failFor[recipientID]; ok {
		return err
	}
	f.sent = append(f.sent, recipientID)
	return nil
}

func TestNotifyDeliversToAllRecipients(t *testing.T) {
	fs := &fakeSender{}
	d := NewDispatcher(fs)

	results, err := d.Notify(context.Background(), []int64{10, 20, 30}, "hello")
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	for i, want := range []int64{10, 20, 30} {
		if results[i].RecipientID != want {
			t.Errorf("results[%d].RecipientID = %d, want %d", i, results[i].RecipientID, want)
		}
		if results[i].Err != nil {
			t.Errorf("results[%d].Err = %v", i, results[i].Err)
		}
	}
	if len(fs.sent) != 3 {
		t.Errorf("sent %d messages, want 3", len(fs.sent))
	}
}

func TestNotifyContinuesPastFailures(t *testing.T) {
	boom := errors.New("chat not found")
	fs := &fakeSender{failFor: map[int64]error{20: boom}}
	d := NewDispatcher(fs)

	results, err := d.Notify(context.Background(), []int64{10, 20, 30}, "hello")
	if err == nil {
		t.Fatal("Notify returned nil error, want aggregated failure")
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("healthy recipients reported errors: %v, %v", results[0].Err, results[2].Err)
	}
	if !errors.Is(results[1].Err, boom) {
		t.Errorf("results[1].Err = %v, want %v", results[1].Err, boom)
	}
	if got := []int64{10, 30}; len(fs.sent) != 2 || fs.sent[0] != got[0] || fs.sent[1] != got[1] {
		t.Errorf("sent = %v, want %v", fs.sent, got)
	}
}

func TestNotifyEmptyRecipientList(t *testing.T) {
	fs := &fakeSender{}
	d := NewDispatcher(fs)

	results, err := d.Notify(context.Background(), nil, "hello")
	if !errors.Is(err, ErrNoAdmins) {
		t.Errorf("err = %v, want ErrNoAdmins", err)
	}
	if results != nil {
		t.Errorf("results = %v, want nil", results)
	}
	if len(fs.sent) != 0 {
		t.Errorf("sent = %v, want none", fs.sent)
	}
}
