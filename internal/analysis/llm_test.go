package analysis

import (
	"context"
	"errors"
	"testing"
)

type erringCaller struct {
	errs  []error
	resp  string
	calls int
}

func (e *erringCaller) GenerateJSON(context.Context, string) (string, error) {
	e.calls++
	if len(e.errs) > 0 {
		err := e.errs[0]
		e.errs = e.errs[1:]
		if err != nil {
			return "", err
		}
	}
	return e.resp, nil
}

func TestExecutorRetriesServerErrors(t *testing.T) {
	c := &erringCaller{
		errs: []error{errors.New("server error: overloaded"), nil},
		resp: `{"goals":["a","b"]}`,
	}
	out := GoalsOutput{}
	m, err := NewStageExecutor(c).Run(context.Background(), "goal_extraction", "prompt", &out, func() error { return validateGoals(out) })
	if err != nil {
		t.Fatal(err)
	}
	if m.Attempts != 2 || c.calls != 2 {
		t.Fatalf("expected one transport retry, got attempts=%d calls=%d", m.Attempts, c.calls)
	}
}

func TestExecutorDoesNotRetryClientErrors(t *testing.T) {
	c := &erringCaller{errs: []error{errors.New("status code: 400 bad request")}}
	out := GoalsOutput{}
	_, err := NewStageExecutor(c).Run(context.Background(), "goal_extraction", "prompt", &out, func() error { return nil })
	if err == nil {
		t.Fatal("expected transport failure")
	}
	if c.calls != 1 {
		t.Fatalf("client errors should not retry, got %d calls", c.calls)
	}
}

func TestStripCodeFences(t *testing.T) {
	cases := []struct{ in, want string }{
		{"{\"a\":1}", "{\"a\":1}"},
		{"```json\n{\"a\":1}\n```", "{\"a\":1}"},
		{"```\n{\"a\":1}\n```", "{\"a\":1}"},
	}
	for _, tc := range cases {
		if got := stripCodeFences(tc.in); got != tc.want {
			t.Fatalf("stripCodeFences(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}
