package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/assure/inspectd/internal/completion"
)

// recordingCompleter captures every request and answers with a numbered reply.
type recordingCompleter struct {
	mu       sync.Mutex
	requests []completion.Request
	failNext error
}

func (r *recordingCompleter) Complete(_ context.Context, req completion.Request) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	if err := r.failNext; err != nil {
		r.failNext = nil
		return "", err
	}
	return fmt.Sprintf("answer %d", len(r.requests)), nil
}

func (r *recordingCompleter) last() completion.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests[len(r.requests)-1]
}

var testFraming = Framing{
	System:         "fixed policy",
	Preamble:       "Here is the inspection report:",
	DocumentTag:    "INSPECTION_REPORT",
	QuestionPrefix: "Customer Question:",
	MaxTokens:      800,
}

func lastUserContent(req completion.Request) string {
	return req.Messages[len(req.Messages)-1].Content
}

func TestAnswerFirstTurnEmbedsDocument(t *testing.T) {
	rc := &recordingCompleter{}
	e := NewEngine(NewState("Roof has minor wear."), rc, testFraming)

	if _, err := e.Answer(context.Background(), "Q1"); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	msg := lastUserContent(rc.last())
	want := "Here is the inspection report:\n\n<INSPECTION_REPORT>\nRoof has minor wear.\n</INSPECTION_REPORT>\n\nCustomer Question: Q1"
	if msg != want {
		t.Errorf("first message =\n%q\nwant\n%q", msg, want)
	}
}

func TestAnswerLaterTurnsSendBareQuestion(t *testing.T) {
	rc := &recordingCompleter{}
	e := NewEngine(NewState("D"), rc, testFraming)
	ctx := context.Background()

	if _, err := e.Answer(ctx, "Q1"); err != nil {
		t.Fatalf("Answer Q1: %v", err)
	}
	first := lastUserContent(rc.last())
	if !strings.Contains(first, "D") || !strings.Contains(first, "Q1") {
		t.Errorf("first message %q must contain document and question", first)
	}

	if _, err := e.Answer(ctx, "Q2"); err != nil {
		t.Fatalf("Answer Q2: %v", err)
	}
	req := rc.last()
	if got := lastUserContent(req); got != "Q2" {
		t.Errorf("second message = %q, want bare question", got)
	}

	// The document appears exactly once across the whole outbound history.
	count := 0
	for _, m := range req.Messages {
		count += strings.Count(m.Content, "<INSPECTION_REPORT>")
	}
	if count != 1 {
		t.Errorf("document block sent %d times in history, want 1", count)
	}
}

func TestAnswerSendsFullHistoryAndConstantSystem(t *testing.T) {
	rc := &recordingCompleter{}
	e := NewEngine(NewState("D"), rc, testFraming)
	ctx := context.Background()

	for i := range 3 {
		if _, err := e.Answer(ctx, fmt.Sprintf("Q%d", i+1)); err != nil {
			t.Fatalf("Answer: %v", err)
		}
	}

	for i, req := range rc.requests {
		if req.System != "fixed policy" {
			t.Errorf("request %d system = %q", i, req.System)
		}
		if req.MaxTokens != 800 {
			t.Errorf("request %d max tokens = %d", i, req.MaxTokens)
		}
		if want := 2*i + 1; len(req.Messages) != want {
			t.Errorf("request %d carried %d messages, want %d", i, len(req.Messages), want)
		}
	}

	third := rc.requests[2].Messages
	if third[1].Role != completion.RoleAssistant || third[1].Content != "answer 1" {
		t.Errorf("history[1] = %+v, want first assistant answer", third[1])
	}
}

func TestHistoryGrowth(t *testing.T) {
	rc := &recordingCompleter{}
	e := NewEngine(NewState("D"), rc, testFraming)

	for n := 1; n <= 5; n++ {
		answer, err := e.Answer(context.Background(), "q")
		if err != nil {
			t.Fatalf("Answer: %v", err)
		}
		if answer == "" {
			t.Fatal("empty answer")
		}
		if got := len(e.History()); got != 2*n {
			t.Errorf("after %d answers history = %d, want %d", n, got, 2*n)
		}
		if e.Turns() != n {
			t.Errorf("Turns = %d, want %d", e.Turns(), n)
		}
	}
}

func TestAnswerReturnsTextVerbatim(t *testing.T) {
	e := NewEngine(NewState("D"), completerFunc(func(context.Context, completion.Request) (string, error) {
		return "  Issue: spacing kept \n", nil
	}), testFraming)

	got, err := e.Answer(context.Background(), "q")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got != "  Issue: spacing kept \n" {
		t.Errorf("answer = %q, want untouched text", got)
	}
}

func TestAnswerFailureRollsBackUserTurn(t *testing.T) {
	boom := errors.New("provider down")
	rc := &recordingCompleter{failNext: boom}
	e := NewEngine(NewState("D"), rc, testFraming)
	ctx := context.Background()

	_, err := e.Answer(ctx, "Q1")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped provider error", err)
	}
	if got := len(e.History()); got != 0 {
		t.Errorf("history after failure = %d, want 0", got)
	}
	if e.Turns() != 0 {
		t.Errorf("Turns after failure = %d, want 0", e.Turns())
	}

	if _, err := e.Answer(ctx, "Q1"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	retry := rc.last()
	if len(retry.Messages) != 1 {
		t.Fatalf("retry sent %d messages, want 1", len(retry.Messages))
	}
	if !strings.Contains(retry.Messages[0].Content, "<INSPECTION_REPORT>") {
		t.Error("retry of first turn must carry the document again")
	}
	if got := len(e.History()); got != 2 {
		t.Errorf("history after retry = %d, want 2", got)
	}
}

func TestAnswerConcurrentCallsAreSerialized(t *testing.T) {
	rc := &recordingCompleter{}
	e := NewEngine(NewState("D"), rc, testFraming)

	const n = 20
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.Answer(context.Background(), fmt.Sprintf("q%d", i)); err != nil {
				t.Errorf("Answer: %v", err)
			}
		}()
	}
	wg.Wait()

	h := e.History()
	if len(h) != 2*n {
		t.Fatalf("history = %d, want %d", len(h), 2*n)
	}
	for i, m := range h {
		want := completion.RoleUser
		if i%2 == 1 {
			want = completion.RoleAssistant
		}
		if m.Role != want {
			t.Fatalf("history[%d].Role = %q, want %q", i, m.Role, want)
		}
	}
	framed := 0
	for _, m := range h {
		if strings.Contains(m.Content, "<INSPECTION_REPORT>") {
			framed++
		}
	}
	if framed != 1 {
		t.Errorf("document framed %d times, want 1", framed)
	}
}

type completerFunc func(context.Context, completion.Request) (string, error)

func (f completerFunc) Complete(ctx context.Context, req completion.Request) (string, error) {
	return f(ctx, req)
}
