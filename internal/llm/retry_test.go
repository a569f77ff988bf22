package llm

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

type scriptedCompleter struct {
	errs  []error
	calls int
}

func (s *scriptedCompleter) Complete(ctx context.Context, req Request) (Response, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return Response{}, s.errs[i]
	}
	return Response{Text: "ok"}, nil
}

func TestRetryingRetriesTransientOnce(t *testing.T) {
	base := &scriptedCompleter{errs: []error{&StatusError{Provider: "test", StatusCode: http.StatusBadGateway}}}
	r := &Retrying{Base: base, Delay: time.Millisecond}

	resp, err := r.Complete(context.Background(), Request{Prompt: "x"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Text != "ok" || base.calls != 2 {
		t.Fatalf("expected one retry, calls=%d", base.calls)
	}
}

func TestRetryingSkipsPermanentErrors(t *testing.T) {
	base := &scriptedCompleter{errs: []error{&StatusError{Provider: "test", StatusCode: http.StatusUnauthorized}}}
	r := &Retrying{Base: base, Delay: time.Millisecond}

	if _, err := r.Complete(context.Background(), Request{}); err == nil {
		t.Fatalf("expected error")
	}
	if base.calls != 1 {
		t.Fatalf("permanent errors must not be retried, calls=%d", base.calls)
	}
}

func TestRetryingGivesUpAfterSecondFailure(t *testing.T) {
	transient := errors.New("read: connection reset by peer")
	base := &scriptedCompleter{errs: []error{transient, transient, nil}}
	r := &Retrying{Base: base, Delay: time.Millisecond}

	if _, err := r.Complete(context.Background(), Request{}); !errors.Is(err, transient) {
		t.Fatalf("expected second error, got %v", err)
	}
	if base.calls != 2 {
		t.Fatalf("expected exactly two calls, got %d", base.calls)
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.DeadlineExceeded, true},
		{context.Canceled, false},
		{ErrNotConfigured, false},
		{&StatusError{StatusCode: 500}, true},
		{&StatusError{StatusCode: 400}, false},
		{errors.New("Post: net/http: request canceled (Client.Timeout exceeded)"), true},
		{errors.New("invalid api key"), false},
	}
	for _, tc := range cases {
		if got := IsTransient(tc.err); got != tc.want {
			t.Errorf("IsTransient(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
